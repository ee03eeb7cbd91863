//go:build integration_pg
// +build integration_pg

package store

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"repolyze/internal/platform/logger"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func newTestStoreLogger() logger.Logger {
	// quiet, deterministic logs
	return zerolog.New(io.Discard)
}

func TestSQLAdapter_Integration_QuotaSchema(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s := &Store{Log: newTestStoreLogger()}
	cfg := Config{
		PG: PGConfig{
			URL:         dsn,
			MaxConns:    2,
			SlowQueryMs: 0,
			LogSQL:      true, // hit tracer wiring path
		},
	}
	txr, err := openPG(ctx, cfg, s)
	if err != nil {
		t.Fatalf("openPG failed: %v", err)
	}
	a, ok := txr.(*pgAdapter)
	if !ok {
		t.Fatalf("openPG did not return *pgAdapter, got %T", txr)
	}
	t.Cleanup(func() { _ = a.Close() })

	if _, err := a.Exec(ctx, `
		CREATE TABLE quota_records (
			id         BIGSERIAL PRIMARY KEY,
			scope      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`); err != nil {
		t.Fatalf("create quota_records: %v", err)
	}
	if _, err := a.Exec(ctx, `
		CREATE TABLE account_plans (
			account_id TEXT PRIMARY KEY,
			tier       TEXT NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`); err != nil {
		t.Fatalf("create account_plans: %v", err)
	}

	now := time.Now().UTC()
	old := now.Add(-72 * time.Hour)

	if _, err := a.Exec(ctx,
		`INSERT INTO quota_records (scope, created_at) VALUES ($1,$2), ($1,$3), ($4,$2)`,
		"addr:1.2.3.4", now, old, "acct:a1"); err != nil {
		t.Fatalf("insert records: %v", err)
	}

	// count within today's window via the Scalar helper
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := Scalar[int](ctx, a,
		`SELECT COUNT(*) FROM quota_records WHERE scope = $1 AND created_at >= $2`,
		"addr:1.2.3.4", midnight)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	// retention prune drops only the stale row
	tag, err := a.Exec(ctx,
		`DELETE FROM quota_records WHERE created_at < $1`, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if tag.RowsAffected() != 1 {
		t.Fatalf("pruned %d rows, want 1", tag.RowsAffected())
	}

	// plan lookup round trip
	if _, err := a.Exec(ctx,
		`INSERT INTO account_plans (account_id, tier, expires_at) VALUES ($1,$2,NULL)`,
		"a1", "pro"); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	var tier string
	if err := a.QueryRow(ctx,
		`SELECT tier FROM account_plans WHERE account_id = $1`, "a1").Scan(&tier); err != nil {
		t.Fatalf("plan scan: %v", err)
	}
	if tier != "pro" {
		t.Fatalf("tier = %q, want pro", tier)
	}

	// Query + Columns() through the adapter
	rs, err := a.Query(ctx, `SELECT scope, created_at FROM quota_records ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rs.Close()
	cols := rs.Columns()
	if len(cols) != 2 || cols[0] != "scope" || cols[1] != "created_at" {
		t.Fatalf("columns mismatch: %#v", cols)
	}
	n := 0
	for rs.Next() {
		var scope string
		var at time.Time
		if err := rs.Scan(&scope, &at); err != nil {
			t.Fatalf("scan: %v", err)
		}
		n++
	}
	if err := rs.Err(); err != nil {
		t.Fatalf("rows err: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}
