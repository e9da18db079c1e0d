// Package querybuilder renders the Postgres statements the repositories issue: filtered selects,
// multi-row upserts and keyed updates, all with $n placeholders.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// statement accumulates SQL text and the arguments its placeholders refer to.
type statement struct {
	sql  strings.Builder
	args []any
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sql.WriteString(p)
	}
}

func (s *statement) placeholder(v any) string {
	s.args = append(s.args, v)
	return "$" + strconv.Itoa(len(s.args))
}

func (s *statement) where(conditions []Condition) {
	for i, c := range conditions {
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		c.render(s)
	}
}

func (s *statement) done() (string, []any, error) {
	return s.sql.String(), s.args, nil
}

type Condition interface {
	render(s *statement)
}

type comparison struct {
	column string
	op     string
	value  any
}

func (c comparison) render(s *statement) {
	s.write(c.column, " ", c.op, " ", s.placeholder(c.value))
}

func Eq(column string, value any) Condition  { return comparison{column, "=", value} }
func Neq(column string, value any) Condition { return comparison{column, "<>", value} }

type membership struct {
	column string
	values []any
}

// In matches column against any of values. An empty list matches nothing.
func In[T any](column string, values []T) Condition {
	m := membership{column: column, values: make([]any, 0, len(values))}
	for _, v := range values {
		m.values = append(m.values, v)
	}
	return m
}

func (m membership) render(s *statement) {
	if len(m.values) == 0 {
		s.write("FALSE")
		return
	}
	s.write(m.column, " IN (")
	for i, v := range m.values {
		if i > 0 {
			s.write(", ")
		}
		s.write(s.placeholder(v))
	}
	s.write(")")
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(terms ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, terms...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	switch {
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("select from %q: no columns", b.table)
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("select: no table")
	}

	var s statement
	s.write("SELECT ", strings.Join(b.columns, ", "), " FROM ", b.table)
	s.where(b.where)
	if len(b.orderBy) > 0 {
		s.write(" ORDER BY ", strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		s.write(" LIMIT ", strconv.Itoa(b.limit))
	}
	return s.done()
}

// InsertBuilder renders a multi-row INSERT with an optional ON CONFLICT clause.
// Without DoUpdate columns a conflict target resolves to DO NOTHING.
type InsertBuilder struct {
	table     string
	columns   []string
	rows      [][]any
	conflict  []string
	update    []string
	returning []string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = columns
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, values)
	return b
}

func (b *InsertBuilder) OnConflict(columns ...string) *InsertBuilder {
	b.conflict = columns
	return b
}

// DoUpdate copies the listed columns from EXCLUDED when the conflict target matches.
func (b *InsertBuilder) DoUpdate(columns ...string) *InsertBuilder {
	b.update = columns
	return b
}

func (b *InsertBuilder) DoNothing() *InsertBuilder {
	b.update = nil
	return b
}

func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.returning = columns
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("insert: no table")
	case len(b.columns) == 0:
		return "", nil, fmt.Errorf("insert into %q: no columns", b.table)
	case len(b.rows) == 0:
		return "", nil, fmt.Errorf("insert into %q: no rows", b.table)
	}

	var s statement
	s.write("INSERT INTO ", b.table, " (", strings.Join(b.columns, ", "), ") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert into %q: row %d has %d values for %d columns", b.table, i, len(row), len(b.columns))
		}
		if i > 0 {
			s.write(", ")
		}
		s.write("(")
		for j, v := range row {
			if j > 0 {
				s.write(", ")
			}
			s.write(s.placeholder(v))
		}
		s.write(")")
	}

	if len(b.conflict) > 0 {
		s.write(" ON CONFLICT (", strings.Join(b.conflict, ", "), ")")
		if len(b.update) == 0 {
			s.write(" DO NOTHING")
		} else {
			s.write(" DO UPDATE SET ")
			for i, col := range b.update {
				if i > 0 {
					s.write(", ")
				}
				s.write(col, " = EXCLUDED.", col)
			}
		}
	}
	if len(b.returning) > 0 {
		s.write(" RETURNING ", strings.Join(b.returning, ", "))
	}
	return s.done()
}

type assignment struct {
	column string
	value  any
	now    bool
}

type UpdateBuilder struct {
	table string
	sets  []assignment
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, value: value})
	return b
}

// SetNow assigns the database clock, keeping updated_at consistent with column defaults.
func (b *UpdateBuilder) SetNow(column string) *UpdateBuilder {
	b.sets = append(b.sets, assignment{column: column, now: true})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

// ToSQL refuses an UPDATE without conditions; every repository update is keyed.
func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	switch {
	case strings.TrimSpace(b.table) == "":
		return "", nil, fmt.Errorf("update: no table")
	case len(b.sets) == 0:
		return "", nil, fmt.Errorf("update %q: nothing to set", b.table)
	case len(b.where) == 0:
		return "", nil, fmt.Errorf("update %q: no conditions", b.table)
	}

	var s statement
	s.write("UPDATE ", b.table, " SET ")
	for i, a := range b.sets {
		if i > 0 {
			s.write(", ")
		}
		if a.now {
			s.write(a.column, " = NOW()")
			continue
		}
		s.write(a.column, " = ", s.placeholder(a.value))
	}
	s.where(b.where)
	return s.done()
}
