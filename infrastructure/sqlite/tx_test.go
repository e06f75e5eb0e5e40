package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	if _, err := ApplyMigrations(context.Background(), db, filepath.Join(filepath.Dir(file), "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

const insertRun = `INSERT INTO export_runs (id, kind, format, scope, status) VALUES (?, 'ProcessProductionReport', 'pdf', 'undated', 'generating')`

func countRuns(t *testing.T, db *DB, id string) int {
	t.Helper()
	var count int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM export_runs WHERE id = ?`, id).Scan(ctx, &count)
	})
	if err != nil {
		t.Fatalf("count runs: %v", err)
	}
	return count
}

func TestWithWriteTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, insertRun, "rollback-run"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got: %v", err)
	}
	if n := countRuns(t, db, "rollback-run"); n != 0 {
		t.Fatalf("expected rollback to remove insert, count=%d", n)
	}
}

func TestWithWriteTxCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertRun, "commit-run")
		return err
	})
	if err != nil {
		t.Fatalf("write tx failed: %v", err)
	}
	if n := countRuns(t, db, "commit-run"); n != 1 {
		t.Fatalf("expected committed insert, count=%d", n)
	}
}

func TestWithReadTxRejectsWrite(t *testing.T) {
	db := openTestDB(t)

	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertRun, "read-only-run")
		return err
	})
	if err == nil && countRuns(t, db, "read-only-run") > 0 {
		t.Fatalf("expected write in read tx to be blocked; write succeeded")
	}
}

func TestStatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO export_runs (id, kind, format, scope, status) VALUES ('x', 'k', 'pdf', 's', 'idle')`)
		return err
	})
	if err == nil {
		t.Fatalf("expected check constraint to reject unknown status")
	}
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var nilDB *DB
	if err := nilDB.Ping(context.Background()); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
