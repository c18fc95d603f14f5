package schema

import "strings"

// LiveColumn is one introspected column.
type LiveColumn struct {
	Name     string
	Type     string
	Nullable bool
}

// Snapshot is the introspected structure of the database, keyed by lower
// case table name. It is read once per reconciliation and then discarded.
type Snapshot struct {
	Tables map[string][]LiveColumn
}

// NewSnapshot builds a Snapshot from table name -> columns.
func NewSnapshot(tables map[string][]LiveColumn) Snapshot {
	s := Snapshot{Tables: make(map[string][]LiveColumn, len(tables))}
	for name, cols := range tables {
		s.Tables[strings.ToLower(name)] = cols
	}
	return s
}

// HasTable reports whether the snapshot contains table name.
func (s Snapshot) HasTable(name string) bool {
	_, ok := s.Tables[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether table name has column col.
func (s Snapshot) HasColumn(table, col string) bool {
	for _, c := range s.Tables[strings.ToLower(table)] {
		if strings.EqualFold(c.Name, col) {
			return true
		}
	}
	return false
}

// TableColumns lists the columns missing from one existing table.
type TableColumns struct {
	Table   string
	Columns []Column
}

// Diff is the additive change set between a Schema and a Snapshot.
type Diff struct {
	MissingTables  []Table
	MissingColumns []TableColumns
}

// Empty reports whether there is nothing to apply.
func (d Diff) Empty() bool {
	return len(d.MissingTables) == 0 && len(d.MissingColumns) == 0
}

// Operations returns the number of DDL statements Apply would issue at most.
func (d Diff) Operations() int {
	n := len(d.MissingTables)
	for _, tc := range d.MissingColumns {
		n += len(tc.Columns)
	}
	return n
}

// Compute returns the tables and columns of expected that live lacks, in
// descriptor order. Names compare case-insensitively. Extra live tables and
// columns are ignored, and types are never compared.
func Compute(expected Schema, live Snapshot) Diff {
	var d Diff
	for _, t := range expected.Tables {
		if !live.HasTable(t.Name) {
			d.MissingTables = append(d.MissingTables, t)
			continue
		}
		var missing []Column
		for _, c := range t.Columns {
			if !live.HasColumn(t.Name, c.Name) {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			d.MissingColumns = append(d.MissingColumns, TableColumns{Table: t.Name, Columns: missing})
		}
	}
	return d
}
