package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders descriptor types and defaults for one storage engine.
type Dialect interface {
	Name() string
	Quote(ident string) string
	// ColumnSQL renders a full column definition. adding is true when the
	// column is rendered for ALTER TABLE ... ADD COLUMN.
	ColumnSQL(c Column, adding bool) (string, error)
	// DefaultExpr renders d, or returns ErrUnsupportedDefault when the engine
	// cannot attach it in this context. DefaultNone renders as "".
	DefaultExpr(d Default, adding bool) (string, error)
}

// DialectFor returns the dialect matching a gorm dialector name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("no schema dialect for %q", name)
	}
}

// SQLite renders DDL for SQLite. SQLite refuses non-constant defaults on
// ADD COLUMN, so current-timestamp defaults are only available at CREATE TABLE.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Quote(ident string) string { return quoteIdent(ident) }

func (SQLite) typeName(t ColumnType) string {
	switch t {
	case TypeInteger, TypeBigInt:
		return "INTEGER"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "NUMERIC"
	case TypeFloat:
		return "REAL"
	case TypeTimestamp:
		return "DATETIME"
	default:
		return ""
	}
}

func (d SQLite) DefaultExpr(def Default, adding bool) (string, error) {
	switch def.Kind {
	case DefaultNone:
		return "", nil
	case DefaultCurrentTimestamp:
		if adding {
			return "", fmt.Errorf("%w: sqlite cannot add a column with a non-constant default", ErrUnsupportedDefault)
		}
		return "CURRENT_TIMESTAMP", nil
	case DefaultLiteral:
		return renderLiteral(def.Literal)
	default:
		return "", fmt.Errorf("%w: kind %d", ErrUnsupportedDefault, int(def.Kind))
	}
}

func (d SQLite) ColumnSQL(c Column, adding bool) (string, error) {
	if adding && c.PrimaryKey {
		return "", fmt.Errorf("sqlite cannot add primary key column %q", c.Name)
	}
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(d.typeName(c.Type))
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if c.AutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	return finishColumn(&b, d, c, adding)
}

// Postgres renders DDL for PostgreSQL.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Quote(ident string) string { return quoteIdent(ident) }

func (Postgres) typeName(c Column) string {
	switch c.Type {
	case TypeInteger:
		if c.AutoIncrement {
			return "SERIAL"
		}
		return "INTEGER"
	case TypeBigInt:
		if c.AutoIncrement {
			return "BIGSERIAL"
		}
		return "BIGINT"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "BOOLEAN"
	case TypeFloat:
		return "DOUBLE PRECISION"
	case TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return ""
	}
}

func (Postgres) DefaultExpr(def Default, _ bool) (string, error) {
	switch def.Kind {
	case DefaultNone:
		return "", nil
	case DefaultCurrentTimestamp:
		return "CURRENT_TIMESTAMP", nil
	case DefaultLiteral:
		return renderLiteral(def.Literal)
	default:
		return "", fmt.Errorf("%w: kind %d", ErrUnsupportedDefault, int(def.Kind))
	}
}

func (d Postgres) ColumnSQL(c Column, adding bool) (string, error) {
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(d.typeName(c))
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	return finishColumn(&b, d, c, adding)
}

func finishColumn(b *strings.Builder, d Dialect, c Column, adding bool) (string, error) {
	if !c.Nullable && !c.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	expr, err := d.DefaultExpr(c.Default, adding)
	if err != nil {
		return "", err
	}
	if expr != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(expr)
	}
	return b.String(), nil
}

// CreateTableSQL renders the CREATE TABLE statement for t followed by its
// unique and plain indexes.
func CreateTableSQL(d Dialect, t Table) ([]string, error) {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def, err := d.ColumnSQL(c, false)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		defs = append(defs, def)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(t.Name), strings.Join(defs, ", "))}
	for _, idx := range t.Unique {
		stmts = append(stmts, indexSQL(d, t.Name, idx, true))
	}
	for _, idx := range t.Indexes {
		stmts = append(stmts, indexSQL(d, t.Name, idx, false))
	}
	return stmts, nil
}

// AddColumnSQL renders ALTER TABLE ... ADD COLUMN for c.
func AddColumnSQL(d Dialect, table string, c Column) (string, error) {
	def, err := d.ColumnSQL(c, true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.Quote(table), def), nil
}

// BackfillSQL renders the UPDATE that gives existing rows of table the value
// of def where column is NULL. DefaultNone renders as "".
func BackfillSQL(d Dialect, table, column string, def Default) (string, error) {
	if def.Kind == DefaultNone {
		return "", nil
	}
	expr, err := d.DefaultExpr(def, false)
	if err != nil {
		return "", err
	}
	col := d.Quote(column)
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL", d.Quote(table), col, expr, col), nil
}

func indexSQL(d Dialect, table string, idx Index, unique bool) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = d.Quote(c)
	}
	kw := "INDEX"
	if unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kw, d.Quote(idx.Name), d.Quote(table), strings.Join(cols, ", "))
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func renderLiteral(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: literal of type %T", ErrUnsupportedDefault, v)
	}
}
