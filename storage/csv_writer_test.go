package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"insurance-analytics/models"
)

func sampleTable() models.Table {
	return models.Table{
		Name:    "loss_by_car",
		Columns: []string{"car_type", "num_policies", "loss_ratio"},
		Rows: [][]string{
			{"SUV", "1", "1.2500"},
			{"Sedan", "2", "0.3333"},
		},
	}
}

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewCSVExporter(dir)
	if err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}

	if err := exporter.WriteTable(sampleTable()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "loss_by_car.csv"))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}

	want := "car_type,num_policies,loss_ratio\nSUV,1,1.2500\nSedan,2,0.3333\n"
	if string(data) != want {
		t.Errorf("exported CSV:\ngot  %q\nwant %q", string(data), want)
	}
}

func TestWriteTableByteIdentical(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewCSVExporter(dir)
	if err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}

	table := sampleTable()
	if err := exporter.WriteTable(table); err != nil {
		t.Fatalf("first WriteTable: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "loss_by_car.csv"))
	if err != nil {
		t.Fatalf("read first export: %v", err)
	}

	if err := exporter.WriteTable(table); err != nil {
		t.Fatalf("second WriteTable: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "loss_by_car.csv"))
	if err != nil {
		t.Fatalf("read second export: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("re-export of identical table is not byte-identical")
	}
}

func TestWriteTableHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	exporter, err := NewCSVExporter(dir)
	if err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}

	table := models.Table{Name: "empty", Columns: []string{"a", "b"}}
	if err := exporter.WriteTable(table); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "empty.csv"))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Errorf("header-only CSV: got %q, want %q", string(data), "a,b\n")
	}
}

func TestWriteTableRejectsRaggedRows(t *testing.T) {
	exporter, err := NewCSVExporter(t.TempDir())
	if err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}

	table := models.Table{
		Name:    "bad",
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"only-one-field"}},
	}
	if err := exporter.WriteTable(table); err == nil {
		t.Error("expected error for ragged row, got nil")
	}
}

func TestNewCSVExporterCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "2024")

	if _, err := NewCSVExporter(dir); err != nil {
		t.Fatalf("NewCSVExporter: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("output directory %q was not created", dir)
	}
}
