package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"insurance-analytics/models"
	"insurance-analytics/utils"
)

// PostgresStore persists the portfolio in PostgreSQL so results can be
// inspected after the run.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection, waits for the server to come up, and
// rebuilds the portfolio schema from scratch.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do("postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	logger.Info("[store] PostgreSQL schema ready")
	return ps, nil
}

// migrate drops any previous portfolio and recreates both relations. Each
// run starts from an empty schema.
func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS claims;
		DROP TABLE IF EXISTS policies;

		CREATE TABLE policies (
			policy_id    BIGINT        PRIMARY KEY,
			customer_age INTEGER       NOT NULL,
			car_type     VARCHAR(40)   NOT NULL,
			age_group    VARCHAR(20)   NOT NULL,
			premium      DOUBLE PRECISION NOT NULL CHECK (premium > 0)
		);

		CREATE TABLE claims (
			claim_id     BIGINT        PRIMARY KEY,
			policy_id    BIGINT        NOT NULL REFERENCES policies(policy_id),
			claim_amount DOUBLE PRECISION NOT NULL CHECK (claim_amount >= 0),
			claim_date   DATE
		);

		CREATE INDEX idx_claims_policy      ON claims(policy_id);
		CREATE INDEX idx_policies_car_type  ON policies(car_type);
		CREATE INDEX idx_policies_age_group ON policies(age_group);
	`)
	return err
}

// Load bulk-inserts the dataset inside a single transaction. Either the
// whole portfolio lands or none of it does.
func (s *PostgresStore) Load(ctx context.Context, ds *models.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}

	if err := insertPolicyBatches(ctx, tx, ds.Policies); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("postgres: load policies: %w", err)
	}
	if err := insertClaimBatches(ctx, tx, ds.Claims); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("postgres: load claims: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return verifyRowCounts(ctx, s.db, len(ds.Policies), len(ds.Claims), "postgres")
}

func insertPolicyBatches(ctx context.Context, tx *sql.Tx, policies []*models.Policy) error {
	const batchSize = 50
	for i := 0; i < len(policies); i += batchSize {
		end := i + batchSize
		if end > len(policies) {
			end = len(policies)
		}
		batch := policies[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*5)
		for idx, p := range batch {
			base := idx * 5
			valueStrings = append(valueStrings,
				fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
			valueArgs = append(valueArgs, p.ID, p.CustomerAge, p.CarType, p.AgeGroup, p.Premium)
		}

		query := fmt.Sprintf(`
			INSERT INTO policies (policy_id, customer_age, car_type, age_group, premium)
			VALUES %s
		`, strings.Join(valueStrings, ","))
		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return err
		}
	}
	return nil
}

func insertClaimBatches(ctx context.Context, tx *sql.Tx, claims []*models.Claim) error {
	const batchSize = 50
	for i := 0; i < len(claims); i += batchSize {
		end := i + batchSize
		if end > len(claims) {
			end = len(claims)
		}
		batch := claims[i:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*4)
		for idx, c := range batch {
			base := idx * 4
			valueStrings = append(valueStrings,
				fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
			valueArgs = append(valueArgs, c.ID, c.PolicyID, c.Amount, c.Date)
		}

		query := fmt.Sprintf(`
			INSERT INTO claims (claim_id, policy_id, claim_amount, claim_date)
			VALUES %s
		`, strings.Join(valueStrings, ","))
		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the live connection for the analytics queries.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
