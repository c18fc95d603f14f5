package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/config"
	"github.com/tbourn/go-tgstats/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmasAndPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var journalMode string
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}

	var syncVal int
	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	// NORMAL == 1
	if syncVal != 1 {
		t.Fatalf("expected synchronous=1 (NORMAL), got %d", syncVal)
	}

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}
}

func TestOpen_SQLiteDriverInstallsTracing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tg.db")
	db, err := Open(config.DBConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(db.Plugins) == 0 {
		t.Fatalf("expected otel tracing plugin to be registered, got %v", db.Plugins)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(config.DBConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRunUnit_CommitRollbackAndCanceled(t *testing.T) {
	db := newTestDB(t, &domain.Participant{})
	ctx := context.Background()

	// commit
	err := RunUnit(ctx, db, func(tx *gorm.DB) error {
		return CreateParticipant(ctx, tx, newParticipant(1, 10))
	})
	if err != nil {
		t.Fatalf("RunUnit commit: %v", err)
	}

	// rollback: the insert inside the failing unit must not persist
	boom := errors.New("boom")
	err = RunUnit(ctx, db, func(tx *gorm.DB) error {
		if err := CreateParticipant(ctx, tx, newParticipant(1, 11)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunUnit should return fn's error, got %v", err)
	}
	if _, err := GetParticipant(ctx, db, 1, 11); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back row should be absent, got %v", err)
	}

	// canceled context: fn never runs
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	called := false
	err = RunUnit(cctx, db, func(tx *gorm.DB) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected context.Canceled without calling fn, got err=%v called=%v", err, called)
	}
}

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite
