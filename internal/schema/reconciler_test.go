package schema

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gschema "gorm.io/gorm/schema"

	"github.com/tbourn/go-tgstats/internal/domain"
)

// fakeEngine keeps an in-memory live schema and records every DDL call.
type fakeEngine struct {
	dialect Dialect
	tables  map[string][]LiveColumn
	created []string
	added   []Column
	filled  []Default
	failOn  string // "table.column" or table name
	snapErr error
}

func newFakeEngine(d Dialect, tables map[string][]LiveColumn) *fakeEngine {
	if tables == nil {
		tables = map[string][]LiveColumn{}
	}
	return &fakeEngine{dialect: d, tables: tables}
}

func (f *fakeEngine) Dialect() Dialect { return f.dialect }

func (f *fakeEngine) Snapshot(context.Context) (Snapshot, error) {
	if f.snapErr != nil {
		return Snapshot{}, f.snapErr
	}
	return NewSnapshot(f.tables), nil
}

func (f *fakeEngine) CreateTable(_ context.Context, t Table) error {
	if f.failOn == t.Name {
		return errors.New("disk full")
	}
	cols := make([]LiveColumn, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, LiveColumn{Name: c.Name, Nullable: c.Nullable})
	}
	f.tables[t.Name] = cols
	f.created = append(f.created, t.Name)
	return nil
}

func (f *fakeEngine) AddColumn(_ context.Context, table string, c Column, backfill Default) error {
	if f.failOn == table+"."+c.Name {
		return errors.New("locked")
	}
	f.tables[table] = append(f.tables[table], LiveColumn{Name: c.Name, Nullable: c.Nullable})
	f.added = append(f.added, c)
	f.filled = append(f.filled, backfill)
	return nil
}

func (f *fakeEngine) ops() int { return len(f.created) + len(f.added) }

func TestReconcile_AddsMissingColumnsThenNoop(t *testing.T) {
	eng := newFakeEngine(Postgres{}, map[string][]LiveColumn{"widgets": {{Name: "id"}}})
	r := NewReconciler(eng, widgets())

	rep, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(eng.created) != 0 {
		t.Fatalf("no table should be created, got %v", eng.created)
	}
	if len(eng.added) != 2 || eng.added[0].Name != "name" || eng.added[1].Name != "created_at" {
		t.Fatalf("added = %+v", eng.added)
	}
	if eng.added[0].Default.Kind != DefaultNone {
		t.Fatalf("name should be added without a default")
	}
	if eng.added[1].Default.Kind != DefaultCurrentTimestamp {
		t.Fatalf("created_at should keep its current timestamp default on postgres")
	}
	if eng.filled[1].Kind != DefaultNone {
		t.Fatalf("postgres fills existing rows through the default, no backfill expected")
	}
	if len(rep.AddedColumns) != 2 || len(rep.Warnings) != 0 || !rep.Compatible() {
		t.Fatalf("report = %+v", rep)
	}

	// second pass: empty diff, no operations
	before := eng.ops()
	d, err := r.Diff(context.Background())
	if err != nil || !d.Empty() {
		t.Fatalf("second diff should be empty, got %+v (%v)", d, err)
	}
	if _, err := r.Reconcile(context.Background()); err != nil || eng.ops() != before {
		t.Fatalf("second Reconcile performed operations: err=%v ops=%d->%d", err, before, eng.ops())
	}
}

func TestReconcile_SQLiteDropsDynamicDefaultWithWarning(t *testing.T) {
	eng := newFakeEngine(SQLite{}, map[string][]LiveColumn{"widgets": {{Name: "id"}}})
	rep, err := NewReconciler(eng, widgets()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	ca := eng.added[1]
	if ca.Name != "created_at" || ca.Default.Kind != DefaultNone || !ca.Nullable {
		t.Fatalf("created_at should be added nullable without a default on sqlite, got %+v", ca)
	}
	if eng.filled[0].Kind != DefaultNone || eng.filled[1].Kind != DefaultCurrentTimestamp {
		t.Fatalf("only created_at should be backfilled, got %+v", eng.filled)
	}
	if len(rep.Warnings) != 2 || !strings.HasPrefix(rep.Warnings[0], "widgets.created_at") {
		t.Fatalf("expected two warnings for created_at, got %v", rep.Warnings)
	}
}

func TestReconcile_CreatesMissingTablesInOrder(t *testing.T) {
	eng := newFakeEngine(SQLite{}, nil)
	rep, err := NewReconciler(eng, Expected()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []string{"channel_participants", "harvest_runs", "harvest_probes"}
	if strings.Join(eng.created, ",") != strings.Join(want, ",") {
		t.Fatalf("created = %v", eng.created)
	}
	if len(eng.added) != 0 || strings.Join(rep.CreatedTables, ",") != strings.Join(want, ",") {
		t.Fatalf("report = %+v", rep)
	}
}

func TestReconcile_ColumnFailureStopsAndKeepsEarlierChanges(t *testing.T) {
	s := Schema{Tables: []Table{{
		Name: "widgets",
		Columns: []Column{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "a", Type: TypeText, Nullable: true},
			{Name: "b", Type: TypeText, Nullable: true},
			{Name: "c", Type: TypeText, Nullable: true},
		},
	}}}
	eng := newFakeEngine(Postgres{}, map[string][]LiveColumn{"widgets": {{Name: "id"}}})
	eng.failOn = "widgets.b"
	r := NewReconciler(eng, s)

	rep, err := r.Reconcile(context.Background())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if len(eng.added) != 1 || eng.added[0].Name != "a" {
		t.Fatalf("only a should be applied, got %+v", eng.added)
	}
	if strings.Join(rep.MissingColumns, ",") != "widgets.b,widgets.c" || rep.Compatible() {
		t.Fatalf("report should list what is left, got %+v", rep)
	}

	// retry after the fault clears picks up only b and c
	eng.failOn = ""
	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(eng.added) != 3 || eng.added[1].Name != "b" || eng.added[2].Name != "c" {
		t.Fatalf("retry added = %+v", eng.added)
	}
}

func TestReconcile_TableFailureIsFatal(t *testing.T) {
	eng := newFakeEngine(SQLite{}, nil)
	eng.failOn = "harvest_runs"
	rep, err := NewReconciler(eng, Expected()).Reconcile(context.Background())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if strings.Join(rep.CreatedTables, ",") != "channel_participants" {
		t.Fatalf("created = %v", rep.CreatedTables)
	}
	if strings.Join(rep.MissingTables, ",") != "harvest_runs,harvest_probes" {
		t.Fatalf("missing = %v", rep.MissingTables)
	}
}

func TestReconcile_InvalidDescriptorRunsNoDDL(t *testing.T) {
	eng := newFakeEngine(SQLite{}, nil)
	bad := Schema{Tables: []Table{{Name: "t", Columns: []Column{{Name: "x", Type: TypeText, Default: Default{Kind: 9}}}}}}
	_, err := NewReconciler(eng, bad).Reconcile(context.Background())
	if !errors.Is(err, ErrSchemaMismatch) || !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected mismatch wrapping invalid descriptor, got %v", err)
	}
	if eng.ops() != 0 {
		t.Fatalf("no DDL expected, got %d ops", eng.ops())
	}
}

func TestReconcile_PrimaryKeyCannotBeAdded(t *testing.T) {
	eng := newFakeEngine(Postgres{}, map[string][]LiveColumn{"widgets": {{Name: "name"}}})
	_, err := NewReconciler(eng, widgets()).Reconcile(context.Background())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if eng.ops() != 0 {
		t.Fatalf("nothing should be applied before the failing column")
	}
}

func TestCheck_ReportsWithoutApplying(t *testing.T) {
	eng := newFakeEngine(SQLite{}, map[string][]LiveColumn{"widgets": {{Name: "id"}}})
	rep, err := NewReconciler(eng, widgets()).Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.Compatible() || strings.Join(rep.MissingColumns, ",") != "widgets.name,widgets.created_at" {
		t.Fatalf("report = %+v", rep)
	}
	if eng.ops() != 0 {
		t.Fatalf("Check must not apply anything")
	}

	eng.snapErr = errors.New("conn refused")
	if _, err := NewReconciler(eng, widgets()).Check(context.Background()); err == nil {
		t.Fatalf("expected snapshot error")
	}
}

func TestApply_EmptyDiffIsNoop(t *testing.T) {
	eng := newFakeEngine(SQLite{}, nil)
	rep, err := NewReconciler(eng, widgets()).Apply(context.Background(), Diff{})
	if err != nil || eng.ops() != 0 || rep.Dialect != "sqlite" {
		t.Fatalf("empty apply: rep=%+v err=%v ops=%d", rep, err, eng.ops())
	}
}

// --- SQLite integration through GormEngine ---

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGormEngine_FreshDatabase_ApplyTwice(t *testing.T) {
	db := openSQLite(t)
	eng, err := NewGormEngine(db)
	if err != nil {
		t.Fatalf("NewGormEngine: %v", err)
	}
	r := NewReconciler(eng, Expected())
	ctx := context.Background()

	rep, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if len(rep.CreatedTables) != 3 {
		t.Fatalf("expected 3 tables created, got %+v", rep)
	}
	if !db.Migrator().HasIndex("channel_participants", "ux_participants_channel_user") {
		t.Fatalf("unique index not created")
	}

	d, err := r.Diff(ctx)
	if err != nil || !d.Empty() {
		t.Fatalf("diff after apply should be empty, got %+v (%v)", d, err)
	}
	rep, err = r.Reconcile(ctx)
	if err != nil || len(rep.CreatedTables)+len(rep.AddedColumns) != 0 {
		t.Fatalf("second Reconcile should be a no-op, got %+v (%v)", rep, err)
	}

	// the created table accepts the GORM model with its defaults
	p := &domain.Participant{ChannelID: 1, UserID: 2}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("insert participant: %v", err)
	}
	var got domain.Participant
	if err := db.First(&got, p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.State != domain.StateActive || got.FirstSeen.IsZero() {
		t.Fatalf("column defaults not applied: %+v", got)
	}
}

func TestGormEngine_AddsMissingColumnsToLegacyTable(t *testing.T) {
	db := openSQLite(t)
	if err := db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY)`).Error; err != nil {
		t.Fatalf("legacy table: %v", err)
	}
	if err := db.Exec(`INSERT INTO widgets (id) VALUES (1)`).Error; err != nil {
		t.Fatalf("legacy row: %v", err)
	}
	eng, err := NewGormEngine(db)
	if err != nil {
		t.Fatalf("NewGormEngine: %v", err)
	}
	r := NewReconciler(eng, widgets())

	rep, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if strings.Join(rep.AddedColumns, ",") != "widgets.name,widgets.created_at" {
		t.Fatalf("added = %v", rep.AddedColumns)
	}
	if len(rep.Warnings) == 0 {
		t.Fatalf("expected a warning for the dropped current timestamp default")
	}

	// existing row survives and gets created_at backfilled
	var n int64
	if err := db.Table("widgets").Where("id = ?", 1).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("legacy row lost: n=%d err=%v", n, err)
	}
	if err := db.Table("widgets").Where("id = ? AND created_at IS NOT NULL", 1).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("legacy row not backfilled: n=%d err=%v", n, err)
	}
	if d, _ := r.Diff(context.Background()); !d.Empty() {
		t.Fatalf("diff after apply should be empty, got %+v", d)
	}
}

// The descriptor must name exactly the columns the GORM models map.
func TestExpected_MatchesDomainModels(t *testing.T) {
	cache := &sync.Map{}
	for _, model := range []any{&domain.Participant{}, &domain.HarvestRun{}, &domain.HarvestProbe{}} {
		s, err := gschema.Parse(model, cache, gschema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse %T: %v", model, err)
		}
		tbl, ok := Expected().Table(s.Table)
		if !ok {
			t.Fatalf("descriptor has no table %q", s.Table)
		}
		var cols []string
		for _, c := range tbl.Columns {
			cols = append(cols, c.Name)
		}
		if got, want := strings.Join(cols, ","), strings.Join(s.DBNames, ","); got != want {
			t.Fatalf("%s columns differ:\n descriptor %s\n model      %s", s.Table, got, want)
		}
		for _, f := range s.Fields {
			if f.DBName == "" {
				continue
			}
			c, _ := tbl.Column(f.DBName)
			if c.PrimaryKey != f.PrimaryKey {
				t.Fatalf("%s.%s primary key mismatch", s.Table, f.DBName)
			}
		}
	}
}
