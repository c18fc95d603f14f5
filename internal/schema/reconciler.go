package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Report summarizes a Check or a Reconcile.
type Report struct {
	Dialect        string   `json:"dialect"`
	MissingTables  []string `json:"missing_tables,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	CreatedTables  []string `json:"created_tables,omitempty"`
	AddedColumns   []string `json:"added_columns,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Compatible reports whether nothing is missing from the live schema.
func (r Report) Compatible() bool {
	return len(r.MissingTables) == 0 && len(r.MissingColumns) == 0
}

// Reconciler compares Expected with the live schema behind Engine and applies
// the additive difference.
type Reconciler struct {
	Engine   Engine
	Expected Schema
	Log      *zerolog.Logger
}

// NewReconciler constructs a Reconciler using the global logger.
func NewReconciler(engine Engine, expected Schema) *Reconciler {
	return &Reconciler{Engine: engine, Expected: expected}
}

func (r *Reconciler) logger() *zerolog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return &log.Logger
}

// Diff validates the descriptor, snapshots the live schema and diffs them.
func (r *Reconciler) Diff(ctx context.Context) (Diff, error) {
	if err := r.Expected.Validate(); err != nil {
		return Diff{}, err
	}
	live, err := r.Engine.Snapshot(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("snapshot: %w", err)
	}
	return Compute(r.Expected, live), nil
}

// Check reports what is missing without changing anything.
func (r *Reconciler) Check(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer("schema").Start(ctx, "Reconciler.Check")
	defer span.End()

	d, err := r.Diff(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		return Report{}, err
	}
	rep := Report{Dialect: r.Engine.Dialect().Name()}
	rep.addMissing(d)
	span.SetAttributes(attribute.Bool("schema.compatible", rep.Compatible()))
	return rep, nil
}

// Reconcile diffs and applies. Any failure is wrapped in ErrSchemaMismatch.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer("schema").Start(ctx, "Reconciler.Reconcile")
	defer span.End()

	d, err := r.Diff(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "diff failed")
		return Report{Dialect: r.Engine.Dialect().Name()}, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	rep, err := r.Apply(ctx, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
	}
	span.SetAttributes(
		attribute.Int("schema.tables_created", len(rep.CreatedTables)),
		attribute.Int("schema.columns_added", len(rep.AddedColumns)),
	)
	return rep, err
}

// Apply creates each missing table in full and adds each missing column in
// its own transaction. It stops at the first failure and leaves earlier
// changes in place; the report's Missing fields then list what is left.
func (r *Reconciler) Apply(ctx context.Context, d Diff) (Report, error) {
	dialect := r.Engine.Dialect()
	rep := Report{Dialect: dialect.Name()}
	if d.Empty() {
		return rep, nil
	}
	lg := r.logger()

	for i, t := range d.MissingTables {
		if err := r.Engine.CreateTable(ctx, t); err != nil {
			rest := Diff{MissingTables: d.MissingTables[i:], MissingColumns: d.MissingColumns}
			rep.addMissing(rest)
			lg.Error().Err(err).Str("table", t.Name).Msg("schema: create table failed")
			return rep, fmt.Errorf("%w: create table %s: %w", ErrSchemaMismatch, t.Name, err)
		}
		rep.CreatedTables = append(rep.CreatedTables, t.Name)
		lg.Info().Str("table", t.Name).Int("columns", len(t.Columns)).Msg("schema: table created")
	}

	for i, tc := range d.MissingColumns {
		for j, c := range tc.Columns {
			col, backfill, warnings, err := planColumn(dialect, c)
			if err == nil {
				err = r.Engine.AddColumn(ctx, tc.Table, col, backfill)
			}
			if err != nil {
				rest := Diff{MissingColumns: append([]TableColumns{{Table: tc.Table, Columns: tc.Columns[j:]}}, d.MissingColumns[i+1:]...)}
				rep.addMissing(rest)
				lg.Error().Err(err).Str("table", tc.Table).Str("column", c.Name).Msg("schema: add column failed")
				return rep, fmt.Errorf("%w: add column %s.%s: %w", ErrSchemaMismatch, tc.Table, c.Name, err)
			}
			for _, w := range warnings {
				msg := fmt.Sprintf("%s.%s: %s", tc.Table, c.Name, w)
				rep.Warnings = append(rep.Warnings, msg)
				lg.Warn().Str("table", tc.Table).Str("column", c.Name).Msg("schema: " + w)
			}
			rep.AddedColumns = append(rep.AddedColumns, tc.Table+"."+c.Name)
			lg.Info().Str("table", tc.Table).Str("column", c.Name).Msg("schema: column added")
		}
	}
	return rep, nil
}

// planColumn adapts c to what ADD COLUMN can express on dialect. A dynamic
// default the engine cannot attach is dropped and returned as the backfill
// for existing rows. A NOT NULL column left without any default is relaxed
// to NULL so existing rows stay valid.
func planColumn(d Dialect, c Column) (Column, Default, []string, error) {
	backfill := NoDefault()
	if c.PrimaryKey || c.AutoIncrement {
		return c, backfill, nil, fmt.Errorf("primary key column %q cannot be added to an existing table", c.Name)
	}
	var warnings []string
	if _, err := d.DefaultExpr(c.Default, true); err != nil {
		if !errors.Is(err, ErrUnsupportedDefault) {
			return c, backfill, nil, err
		}
		warnings = append(warnings, fmt.Sprintf("default not supported on add column (%v); added without a server default, existing rows backfilled", err))
		backfill = c.Default
		c.Default = NoDefault()
	}
	if !c.Nullable && c.Default.Kind == DefaultNone {
		warnings = append(warnings, "not null column without a default added as nullable")
		c.Nullable = true
	}
	return c, backfill, warnings, nil
}

func (r *Report) addMissing(d Diff) {
	for _, t := range d.MissingTables {
		r.MissingTables = append(r.MissingTables, t.Name)
	}
	for _, tc := range d.MissingColumns {
		for _, c := range tc.Columns {
			r.MissingColumns = append(r.MissingColumns, tc.Table+"."+c.Name)
		}
	}
}
