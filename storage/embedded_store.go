package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	"github.com/dolthub/go-mysql-server/server"
	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"
	_ "github.com/go-sql-driver/mysql"

	"insurance-analytics/models"
	"insurance-analytics/utils"
)

const embeddedDBName = "insurance"

// EmbeddedStore runs a MySQL-compatible engine inside the process and
// exposes it through database/sql, so the pipeline needs no external
// database. The data lives in memory and dies with the run.
type EmbeddedStore struct {
	db     *sql.DB
	cancel context.CancelFunc
	logger *utils.Logger
}

// NewEmbeddedStore boots the in-memory engine on a free localhost port,
// waits until it accepts connections, and registers the portfolio schema.
func NewEmbeddedStore(ctx context.Context, logger *utils.Logger) (*EmbeddedStore, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("embedded: allocate port: %w", err)
	}

	insuranceDB := memory.NewDatabase(embeddedDBName)
	createPortfolioTables(insuranceDB)

	provider := memory.NewDBProvider(insuranceDB)
	engine := sqle.NewDefault(provider)

	serverConfig := server.Config{
		Protocol: "tcp",
		Address:  fmt.Sprintf("localhost:%d", port),
	}
	srv, err := server.NewServer(serverConfig, engine, gmssql.NewContext, memory.NewSessionBuilder(provider), nil)
	if err != nil {
		return nil, fmt.Errorf("embedded: create server: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)

	// Cancelling the context shuts the server down.
	go func() {
		if err := srv.Start(); err != nil {
			logger.Debug("[store] Embedded engine stopped: %v", err)
		}
	}()
	go func() {
		<-serverCtx.Done()
		if err := srv.Close(); err != nil {
			logger.Debug("[store] Embedded engine close: %v", err)
		}
	}()

	dsn := fmt.Sprintf("root:@tcp(localhost:%d)/%s?interpolateParams=true", port, embeddedDBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("embedded: open connection: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 8, BaseDelay: 50 * time.Millisecond, Logger: logger}
	if err := retry.Do("embedded store ping", db.Ping); err != nil {
		_ = db.Close()
		cancel()
		return nil, fmt.Errorf("embedded: engine not ready: %w", err)
	}

	logger.Info("[store] Embedded engine ready on localhost:%d", port)
	return &EmbeddedStore{db: db, cancel: cancel, logger: logger}, nil
}

// createPortfolioTables registers the two relations on the in-memory
// database. Schema mirrors the PostgreSQL backend so the analytics queries
// run unchanged against either.
func createPortfolioTables(db *memory.Database) {
	policiesSchema := gmssql.NewPrimaryKeySchema(gmssql.Schema{
		{Name: "policy_id", Type: types.Int64, Source: "policies", Nullable: false, PrimaryKey: true},
		{Name: "customer_age", Type: types.Int64, Source: "policies", Nullable: false},
		{Name: "car_type", Type: types.Text, Source: "policies", Nullable: false},
		{Name: "age_group", Type: types.Text, Source: "policies", Nullable: false},
		{Name: "premium", Type: types.Float64, Source: "policies", Nullable: false},
	})
	db.AddTable("policies", memory.NewTable(db, "policies", policiesSchema, db.GetForeignKeyCollection()))

	claimsSchema := gmssql.NewPrimaryKeySchema(gmssql.Schema{
		{Name: "claim_id", Type: types.Int64, Source: "claims", Nullable: false, PrimaryKey: true},
		{Name: "policy_id", Type: types.Int64, Source: "claims", Nullable: false},
		{Name: "claim_amount", Type: types.Float64, Source: "claims", Nullable: false},
		{Name: "claim_date", Type: types.Text, Source: "claims"},
	})
	db.AddTable("claims", memory.NewTable(db, "claims", claimsSchema, db.GetForeignKeyCollection()))
}

// Load bulk-inserts both relations, policies first so claims never point at
// missing rows. The engine keeps data in memory only, so an error here
// leaves nothing behind once the pipeline aborts.
func (s *EmbeddedStore) Load(ctx context.Context, ds *models.Dataset) error {
	if err := s.insertPolicies(ctx, ds.Policies); err != nil {
		return fmt.Errorf("embedded: load policies: %w", err)
	}
	if err := s.insertClaims(ctx, ds.Claims); err != nil {
		return fmt.Errorf("embedded: load claims: %w", err)
	}
	return verifyRowCounts(ctx, s.db, len(ds.Policies), len(ds.Claims), "embedded")
}

func (s *EmbeddedStore) insertPolicies(ctx context.Context, policies []*models.Policy) error {
	const batchSize = 50
	for i := 0; i < len(policies); i += batchSize {
		end := i + batchSize
		if end > len(policies) {
			end = len(policies)
		}
		batch := policies[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*5)
		for _, p := range batch {
			valueStrings = append(valueStrings, "(?,?,?,?,?)")
			valueArgs = append(valueArgs, p.ID, p.CustomerAge, p.CarType, p.AgeGroup, p.Premium)
		}

		query := fmt.Sprintf(
			"INSERT INTO policies (policy_id, customer_age, car_type, age_group, premium) VALUES %s",
			strings.Join(valueStrings, ","))
		if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
			return err
		}
	}
	return nil
}

func (s *EmbeddedStore) insertClaims(ctx context.Context, claims []*models.Claim) error {
	const batchSize = 50
	for i := 0; i < len(claims); i += batchSize {
		end := i + batchSize
		if end > len(claims) {
			end = len(claims)
		}
		batch := claims[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*4)
		for _, c := range batch {
			valueStrings = append(valueStrings, "(?,?,?,?)")
			valueArgs = append(valueArgs, c.ID, c.PolicyID, c.Amount, c.Date)
		}

		query := fmt.Sprintf(
			"INSERT INTO claims (claim_id, policy_id, claim_amount, claim_date) VALUES %s",
			strings.Join(valueStrings, ","))
		if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the client connection to the embedded engine.
func (s *EmbeddedStore) DB() *sql.DB {
	return s.db
}

// Close drops the client connection and shuts the engine down.
func (s *EmbeddedStore) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

// freePort asks the kernel for an unused localhost TCP port.
func freePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
