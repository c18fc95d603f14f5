package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{"sqlite": "sqlite", "postgres": "postgres", "PGX": "postgres"} {
		d, err := DialectFor(name)
		if err != nil || d.Name() != want {
			t.Fatalf("DialectFor(%q) = %v, %v", name, d, err)
		}
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatalf("expected error for mysql")
	}
}

func TestCreateTableSQL_SQLite(t *testing.T) {
	tbl := Table{
		Name: "widgets",
		Columns: []Column{
			{Name: "id", Type: TypeInteger, PrimaryKey: true, AutoIncrement: true},
			{Name: "name", Type: TypeText, Default: Literal("it's")},
			{Name: "on", Type: TypeBool, Default: Literal(true)},
			{Name: "created_at", Type: TypeTimestamp, Default: CurrentTimestamp()},
		},
		Unique:  []Index{{Name: "ux_name", Columns: []string{"name"}}},
		Indexes: []Index{{Name: "idx_created", Columns: []string{"created_at"}}},
	}
	stmts, err := CreateTableSQL(SQLite{}, tbl)
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := []string{
		`CREATE TABLE "widgets" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL DEFAULT 'it''s', "on" NUMERIC NOT NULL DEFAULT TRUE, "created_at" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS "ux_name" ON "widgets" ("name")`,
		`CREATE INDEX IF NOT EXISTS "idx_created" ON "widgets" ("created_at")`,
	}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	for i := range want {
		if stmts[i] != want[i] {
			t.Fatalf("stmt %d:\n got %s\nwant %s", i, stmts[i], want[i])
		}
	}
}

func TestCreateTableSQL_Postgres(t *testing.T) {
	stmts, err := CreateTableSQL(Postgres{}, Expected().Tables[0])
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	create := stmts[0]
	for _, frag := range []string{
		`"id" BIGSERIAL PRIMARY KEY`,
		`"is_bot" BOOLEAN NOT NULL DEFAULT FALSE`,
		`"state" TEXT NOT NULL DEFAULT 'active'`,
		`"first_seen" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP`,
		`"departed_at" TIMESTAMPTZ,`,
	} {
		if !strings.Contains(create, frag) {
			t.Fatalf("expected %q in %s", frag, create)
		}
	}
}

func TestAddColumnSQL(t *testing.T) {
	ts := Column{Name: "created_at", Type: TypeTimestamp, Default: CurrentTimestamp()}

	got, err := AddColumnSQL(Postgres{}, "widgets", ts)
	if err != nil {
		t.Fatalf("postgres: %v", err)
	}
	if got != `ALTER TABLE "widgets" ADD COLUMN "created_at" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP` {
		t.Fatalf("postgres add column: %s", got)
	}

	if _, err := AddColumnSQL(SQLite{}, "widgets", ts); !errors.Is(err, ErrUnsupportedDefault) {
		t.Fatalf("sqlite should refuse a dynamic default on add, got %v", err)
	}
	if _, err := AddColumnSQL(SQLite{}, "widgets", Column{Name: "id", Type: TypeInteger, PrimaryKey: true}); err == nil {
		t.Fatalf("sqlite should refuse adding a primary key")
	}

	got, err = AddColumnSQL(SQLite{}, "widgets", Column{Name: "n", Type: TypeInteger, Default: Literal(int64(3))})
	if err != nil || got != `ALTER TABLE "widgets" ADD COLUMN "n" INTEGER NOT NULL DEFAULT 3` {
		t.Fatalf("sqlite literal add: %s %v", got, err)
	}
}

func TestBackfillSQL(t *testing.T) {
	got, err := BackfillSQL(SQLite{}, "widgets", "created_at", CurrentTimestamp())
	if err != nil || got != `UPDATE "widgets" SET "created_at" = CURRENT_TIMESTAMP WHERE "created_at" IS NULL` {
		t.Fatalf("sqlite backfill: %s %v", got, err)
	}
	if got, err := BackfillSQL(SQLite{}, "widgets", "name", NoDefault()); err != nil || got != "" {
		t.Fatalf("no default should render nothing, got %q %v", got, err)
	}
}

func TestQuoteIdent_EscapesQuotes(t *testing.T) {
	if got := (SQLite{}).Quote(`we"ird`); got != `"we""ird"` {
		t.Fatalf("Quote = %s", got)
	}
}
