// Package schema keeps the live database structure in line with the data
// model. It compares a declarative Schema against an introspected Snapshot
// and applies additive changes only: missing tables are created, missing
// columns are added, and nothing is ever dropped or retyped.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the portable column type of a descriptor column. Dialects map
// each value to their native type name.
type ColumnType int

const (
	TypeInvalid ColumnType = iota
	TypeInteger
	TypeBigInt
	TypeText
	TypeBool
	TypeFloat
	TypeTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBigInt:
		return "bigint"
	case TypeText:
		return "text"
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// DefaultKind is the closed set of server-side default kinds.
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	DefaultLiteral
	DefaultCurrentTimestamp
)

// Default describes a column's server-side default. Literal holds a string,
// bool, int, int64 or float64 when Kind is DefaultLiteral.
type Default struct {
	Kind    DefaultKind
	Literal any
}

// NoDefault is the zero Default.
func NoDefault() Default { return Default{} }

// Literal returns a static literal default.
func Literal(v any) Default { return Default{Kind: DefaultLiteral, Literal: v} }

// CurrentTimestamp returns a default rendered as the engine's current time.
func CurrentTimestamp() Default { return Default{Kind: DefaultCurrentTimestamp} }

// Column is one expected column.
type Column struct {
	Name          string
	Type          ColumnType
	Nullable      bool
	Default       Default
	PrimaryKey    bool
	AutoIncrement bool
}

// Index is a named index over an ordered list of columns.
type Index struct {
	Name    string
	Columns []string
}

// Table is one expected table. Column order is significant.
type Table struct {
	Name    string
	Columns []Column
	Unique  []Index
	Indexes []Index
}

// Column returns the column named name (case-insensitive).
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Schema is the expected set of tables, in creation order.
type Schema struct {
	Tables []Table
}

// Table returns the table named name (case-insensitive).
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// Validate checks the descriptor before any DDL is issued. Unknown column
// types or default kinds, duplicate names and dangling index columns are
// reported as ErrInvalidDescriptor.
func (s Schema) Validate() error {
	if len(s.Tables) == 0 {
		return fmt.Errorf("%w: no tables", ErrInvalidDescriptor)
	}
	tables := map[string]bool{}
	for _, t := range s.Tables {
		if err := t.validate(); err != nil {
			return err
		}
		key := strings.ToLower(t.Name)
		if tables[key] {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalidDescriptor, t.Name)
		}
		tables[key] = true
	}
	return nil
}

func (t Table) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table with empty name", ErrInvalidDescriptor)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrInvalidDescriptor, t.Name)
	}
	seen := map[string]bool{}
	pks := 0
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: table %q has a column with empty name", ErrInvalidDescriptor, t.Name)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate column %s.%s", ErrInvalidDescriptor, t.Name, c.Name)
		}
		seen[key] = true
		if err := c.validate(); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		if c.PrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		return fmt.Errorf("%w: table %q declares %d primary key columns", ErrInvalidDescriptor, t.Name, pks)
	}
	for _, idx := range append(append([]Index{}, t.Unique...), t.Indexes...) {
		if idx.Name == "" || len(idx.Columns) == 0 {
			return fmt.Errorf("%w: table %q has an unnamed or empty index", ErrInvalidDescriptor, t.Name)
		}
		for _, col := range idx.Columns {
			if !seen[strings.ToLower(col)] {
				return fmt.Errorf("%w: index %s references unknown column %q", ErrInvalidDescriptor, idx.Name, col)
			}
		}
	}
	return nil
}

func (c Column) validate() error {
	switch c.Type {
	case TypeInteger, TypeBigInt, TypeText, TypeBool, TypeFloat, TypeTimestamp:
	default:
		return fmt.Errorf("%w: unknown column type %s", ErrInvalidDescriptor, c.Type)
	}
	if c.AutoIncrement && !(c.PrimaryKey && (c.Type == TypeInteger || c.Type == TypeBigInt)) {
		return fmt.Errorf("%w: auto increment requires an integer primary key", ErrInvalidDescriptor)
	}
	if c.PrimaryKey && c.Nullable {
		return fmt.Errorf("%w: primary key cannot be nullable", ErrInvalidDescriptor)
	}
	switch c.Default.Kind {
	case DefaultNone:
	case DefaultCurrentTimestamp:
		if c.Type != TypeTimestamp {
			return fmt.Errorf("%w: current timestamp default on %s column", ErrInvalidDescriptor, c.Type)
		}
	case DefaultLiteral:
		if !literalFits(c.Type, c.Default.Literal) {
			return fmt.Errorf("%w: literal default %v (%T) does not fit %s", ErrInvalidDescriptor, c.Default.Literal, c.Default.Literal, c.Type)
		}
	default:
		return fmt.Errorf("%w: unknown default kind %d", ErrInvalidDescriptor, int(c.Default.Kind))
	}
	return nil
}

func literalFits(t ColumnType, v any) bool {
	switch v.(type) {
	case string:
		return t == TypeText
	case bool:
		return t == TypeBool
	case int, int64:
		return t == TypeInteger || t == TypeBigInt || t == TypeFloat
	case float64:
		return t == TypeFloat
	default:
		return false
	}
}
