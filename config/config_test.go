package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.PopulationSize != 1000 {
		t.Errorf("PopulationSize: got %d, want 1000", cfg.PopulationSize)
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("RandomSeed: got %d, want 42", cfg.RandomSeed)
	}
	if len(cfg.CarTypeWeights) != 4 {
		t.Fatalf("CarTypeWeights: got %d entries, want 4", len(cfg.CarTypeWeights))
	}
	if cfg.CarTypeWeights[0].Name != "Sedan" || cfg.CarTypeWeights[0].Weight != 0.4 {
		t.Errorf("first car type: got %+v, want Sedan:0.4", cfg.CarTypeWeights[0])
	}
	if cfg.AgeMin != 18 || cfg.AgeMax != 80 {
		t.Errorf("age range: got [%d, %d), want [18, 80)", cfg.AgeMin, cfg.AgeMax)
	}
	if len(cfg.AgeBuckets) != 5 || cfg.AgeBuckets[0] != 30 || cfg.AgeBuckets[4] != 70 {
		t.Errorf("AgeBuckets: got %v, want [30 40 50 60 70]", cfg.AgeBuckets)
	}
	if cfg.StoreBackend != BackendEmbedded {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, BackendEmbedded)
	}
	if cfg.TopPolicies != 10 {
		t.Errorf("TopPolicies: got %d, want 10", cfg.TopPolicies)
	}
	if cfg.HistogramBins != 50 {
		t.Errorf("HistogramBins: got %d, want 50", cfg.HistogramBins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POPULATION_SIZE", "250")
	t.Setenv("RANDOM_SEED", "7")
	t.Setenv("CAR_TYPE_WEIGHTS", "Hatchback:2,Van:1")
	t.Setenv("AGE_BUCKETS", "40,60")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("CLAIM_BASE_RATE", "0.3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.PopulationSize != 250 {
		t.Errorf("PopulationSize: got %d, want 250", cfg.PopulationSize)
	}
	if cfg.RandomSeed != 7 {
		t.Errorf("RandomSeed: got %d, want 7", cfg.RandomSeed)
	}
	want := []CarTypeWeight{{Name: "Hatchback", Weight: 2}, {Name: "Van", Weight: 1}}
	if len(cfg.CarTypeWeights) != len(want) {
		t.Fatalf("CarTypeWeights: got %d entries, want %d", len(cfg.CarTypeWeights), len(want))
	}
	for i, w := range want {
		if cfg.CarTypeWeights[i] != w {
			t.Errorf("CarTypeWeights[%d]: got %+v, want %+v", i, cfg.CarTypeWeights[i], w)
		}
	}
	if cfg.StoreBackend != BackendPostgres {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, BackendPostgres)
	}
	if cfg.ClaimBaseRate != 0.3 {
		t.Errorf("ClaimBaseRate: got %g, want 0.3", cfg.ClaimBaseRate)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"negative population", "POPULATION_SIZE", "-5"},
		{"zero weight", "CAR_TYPE_WEIGHTS", "Sedan:0"},
		{"malformed weights", "CAR_TYPE_WEIGHTS", "Sedan=0.4"},
		{"duplicate car type", "CAR_TYPE_WEIGHTS", "Sedan:0.5,Sedan:0.5"},
		{"descending buckets", "AGE_BUCKETS", "50,40"},
		{"bucket above max age", "AGE_BUCKETS", "30,90"},
		{"bucket not an int", "AGE_BUCKETS", "30,forty"},
		{"zero premium floor", "PREMIUM_MIN", "0"},
		{"ceiling below floor", "PREMIUM_MAX", "100"},
		{"negative claim rate", "CLAIM_BASE_RATE", "-0.1"},
		{"zero severity sigma", "CLAIM_SEVERITY_SIGMA", "0"},
		{"zero top policies", "TOP_POLICIES", "0"},
		{"zero histogram bins", "HISTOGRAM_BINS", "0"},
		{"unknown backend", "STORE_BACKEND", "oracle"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: expected error, got nil", tc.key, tc.value)
			}
		})
	}
}

func TestAgeGroupFor(t *testing.T) {
	cfg := &Config{AgeMin: 18, AgeMax: 80, AgeBuckets: []int{30, 40, 50, 60, 70}}

	cases := []struct {
		age  int
		want string
	}{
		{18, "18-29"},
		{29, "18-29"},
		{30, "30-39"},
		{39, "30-39"},
		{45, "40-49"},
		{69, "60-69"},
		{70, "70+"},
		{79, "70+"},
	}

	for _, tc := range cases {
		if got := cfg.AgeGroupFor(tc.age); got != tc.want {
			t.Errorf("AgeGroupFor(%d): got %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestAgeGroupLabels(t *testing.T) {
	cfg := &Config{AgeMin: 18, AgeMax: 80, AgeBuckets: []int{30, 40, 50, 60, 70}}

	want := []string{"18-29", "30-39", "40-49", "50-59", "60-69", "70+"}
	got := cfg.AgeGroupLabels()
	if len(got) != len(want) {
		t.Fatalf("AgeGroupLabels: got %d labels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAgeGroupLabelsNoBuckets(t *testing.T) {
	cfg := &Config{AgeMin: 18, AgeMax: 80}

	got := cfg.AgeGroupLabels()
	if len(got) != 1 || got[0] != "18+" {
		t.Errorf("AgeGroupLabels with no buckets: got %v, want [18+]", got)
	}
	if g := cfg.AgeGroupFor(55); g != "18+" {
		t.Errorf("AgeGroupFor(55) with no buckets: got %q, want %q", g, "18+")
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db.example.com",
		PostgresPort:     "5433",
		PostgresUser:     "insurance",
		PostgresPassword: "secret",
		PostgresDB:       "portfolio_db",
		PostgresSSLMode:  "require",
	}

	want := "host=db.example.com port=5433 user=insurance password=secret dbname=portfolio_db sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
