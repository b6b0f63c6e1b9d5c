package database

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/dbpilot/internal/errs"
)

// Statement is parameterized SQL plus its bind arguments in placeholder
// order. Identifiers are validated and quoted before they reach SQL; values
// only ever travel through Args.
type Statement struct {
	SQL  string
	Args []any
}

// Bind appends v as the next bind argument.
func (s *Statement) Bind(v Value) {
	s.Args = append(s.Args, BindArg(v))
}

// CountRows builds SELECT COUNT(*) over a table.
func CountRows(d Dialect, schema, table string) (Statement, error) {
	ref, err := SafeTableRef(d, schema, table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) FROM " + ref}, nil
}

// SelectPage builds an unordered page scan. limit and offset are unsigned
// so they are interpolated directly.
func SelectPage(d Dialect, schema, table string, limit, offset uint64) (Statement, error) {
	ref, err := SafeTableRef(d, schema, table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", ref, limit, offset),
	}, nil
}

// InsertRow builds a single-row INSERT. Columns are emitted in sorted
// order so the same map always yields the same statement.
func InsertRow(d Dialect, schema, table string, values map[string]Value) (Statement, error) {
	ref, err := SafeTableRef(d, schema, table)
	if err != nil {
		return Statement{}, err
	}
	if len(values) == 0 {
		return Statement{}, errs.InvalidConfig("insert into %s has no values", ref)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	st := Statement{Args: make([]any, 0, len(names))}
	cols := make([]string, len(names))
	marks := make([]string, len(names))
	for i, name := range names {
		col, err := SafeIdentifier(d, name)
		if err != nil {
			return Statement{}, err
		}
		cols[i] = col
		marks[i] = d.Placeholder(i + 1)
		st.Bind(values[name])
	}

	st.SQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ref, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return st, nil
}

// UpdateCell builds a single-column UPDATE addressed by primary key. The
// new value binds first, then the key values in pk order.
func UpdateCell(d Dialect, schema, table, column string, newValue Value, pk []string, key RowKey) (Statement, error) {
	ref, err := SafeTableRef(d, schema, table)
	if err != nil {
		return Statement{}, err
	}
	col, err := SafeIdentifier(d, column)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{}
	st.Bind(newValue)
	where, err := keyPredicate(d, &st, pk, key)
	if err != nil {
		return Statement{}, err
	}

	st.SQL = fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s", ref, col, d.Placeholder(1), where)
	return st, nil
}

// DeleteRow builds a DELETE addressed by primary key.
func DeleteRow(d Dialect, schema, table string, pk []string, key RowKey) (Statement, error) {
	ref, err := SafeTableRef(d, schema, table)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{}
	where, err := keyPredicate(d, &st, pk, key)
	if err != nil {
		return Statement{}, err
	}

	st.SQL = fmt.Sprintf("DELETE FROM %s WHERE %s", ref, where)
	return st, nil
}

// keyPredicate renders "pk1 = $n AND pk2 = $n+1 ..." and binds the key
// values, continuing the placeholder numbering after any args already in st.
func keyPredicate(d Dialect, st *Statement, pk []string, key RowKey) (string, error) {
	if len(pk) == 0 {
		return "", errs.InvalidConfig("table has no primary key")
	}
	parts := make([]string, len(pk))
	for i, name := range pk {
		col, err := SafeIdentifier(d, name)
		if err != nil {
			return "", err
		}
		st.Bind(key[name])
		parts[i] = fmt.Sprintf("%s = %s", col, d.Placeholder(len(st.Args)))
	}
	return strings.Join(parts, " AND "), nil
}
