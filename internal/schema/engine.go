package schema

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-tgstats/internal/repo"
)

// Engine is the storage surface the reconciler needs: introspection plus the
// two additive DDL operations. Each DDL call is its own transaction.
type Engine interface {
	Dialect() Dialect
	Snapshot(ctx context.Context) (Snapshot, error)
	CreateTable(ctx context.Context, t Table) error
	// AddColumn adds c and, when backfill is not DefaultNone, fills the
	// NULLs of existing rows with it in the same transaction.
	AddColumn(ctx context.Context, table string, c Column, backfill Default) error
}

// GormEngine implements Engine on a *gorm.DB using its Migrator for
// introspection and raw DDL for changes.
type GormEngine struct {
	DB      *gorm.DB
	dialect Dialect
}

// NewGormEngine picks the dialect from the gorm dialector.
func NewGormEngine(db *gorm.DB) (*GormEngine, error) {
	d, err := DialectFor(db.Dialector.Name())
	if err != nil {
		return nil, err
	}
	return &GormEngine{DB: db, dialect: d}, nil
}

func (e *GormEngine) Dialect() Dialect { return e.dialect }

// Snapshot lists the live tables and their columns.
func (e *GormEngine) Snapshot(ctx context.Context) (Snapshot, error) {
	m := e.DB.WithContext(ctx).Migrator()
	names, err := m.GetTables()
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tables: %w", err)
	}
	tables := make(map[string][]LiveColumn, len(names))
	for _, name := range names {
		cts, err := m.ColumnTypes(name)
		if err != nil {
			return Snapshot{}, fmt.Errorf("columns of %s: %w", name, err)
		}
		cols := make([]LiveColumn, 0, len(cts))
		for _, ct := range cts {
			nullable, ok := ct.Nullable()
			cols = append(cols, LiveColumn{
				Name:     ct.Name(),
				Type:     ct.DatabaseTypeName(),
				Nullable: nullable || !ok,
			})
		}
		tables[name] = cols
	}
	return NewSnapshot(tables), nil
}

// CreateTable creates t with its indexes in one transaction.
func (e *GormEngine) CreateTable(ctx context.Context, t Table) error {
	stmts, err := CreateTableSQL(e.dialect, t)
	if err != nil {
		return err
	}
	return repo.RunUnit(ctx, e.DB, func(tx *gorm.DB) error {
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
		}
		return nil
	})
}

// AddColumn adds one column, and backfills it, in its own transaction.
func (e *GormEngine) AddColumn(ctx context.Context, table string, c Column, backfill Default) error {
	stmt, err := AddColumnSQL(e.dialect, table, c)
	if err != nil {
		return err
	}
	stmts := []string{stmt}
	fill, err := BackfillSQL(e.dialect, table, c.Name, backfill)
	if err != nil {
		return err
	}
	if fill != "" {
		stmts = append(stmts, fill)
	}
	return repo.RunUnit(ctx, e.DB, func(tx *gorm.DB) error {
		for _, s := range stmts {
			if err := tx.Exec(s).Error; err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
		}
		return nil
	})
}
