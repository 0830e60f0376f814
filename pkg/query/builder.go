package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

type condition struct {
	clause string
	args   []any
}

// SortField is one ORDER BY term.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "name,-uploaded_at" into sort fields. A leading "-"
// sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if after, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: after, Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

// Builder accumulates conditions and ordering against a Projection and
// numbers placeholders when the statement is built. The first unknown field
// is remembered and returned by every Build method.
type Builder struct {
	projection  *Projection
	conditions  []condition
	order       []SortField
	defaultSort []SortField
	err         error
}

// NewBuilder creates a Builder ordered by defaultSort unless OrderBy is set.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

func (b *Builder) column(field string) (string, bool) {
	col, err := b.projection.Column(field)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return "", false
	}
	return col, true
}

func (b *Builder) add(clause string, args ...any) {
	b.conditions = append(b.conditions, condition{clause: clause, args: args})
}

// WhereEquals filters field = value. A nil value adds nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	if col, ok := b.column(field); ok {
		b.add(col+" = $%d", value)
	}
	return b
}

// WhereAtLeast filters field >= value. A nil value adds nothing.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	if col, ok := b.column(field); ok {
		b.add(col+" >= $%d", value)
	}
	return b
}

// WhereBefore filters field < value. A nil value adds nothing.
func (b *Builder) WhereBefore(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	if col, ok := b.column(field); ok {
		b.add(col+" < $%d", value)
	}
	return b
}

// WhereSearch matches search case-insensitively against any of fields.
// Empty search adds nothing.
func (b *Builder) WhereSearch(search string, fields ...string) *Builder {
	search = strings.TrimSpace(search)
	if search == "" || len(fields) == 0 {
		return b
	}

	clauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	pattern := "%" + escapeLike(search) + "%"

	for _, field := range fields {
		col, ok := b.column(field)
		if !ok {
			return b
		}
		clauses = append(clauses, col+" ILIKE $%d")
		args = append(args, pattern)
	}

	b.add("("+strings.Join(clauses, " OR ")+")", args...)
	return b
}

// OrderBy replaces the default ordering. Nil keeps the default.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	for _, f := range fields {
		b.column(f.Field)
	}
	b.order = fields
	return b
}

// Build returns the full SELECT.
func (b *Builder) Build() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.where()
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() + where + b.orderBy(), args, nil
}

// BuildCount returns SELECT COUNT(*) under the same conditions.
func (b *Builder) BuildCount() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args, nil
}

// BuildPage returns the ordered SELECT with LIMIT and OFFSET bound as the
// last two parameters.
func (b *Builder) BuildPage(limit, offset int) (string, []any, error) {
	sql, args, err := b.Build()
	if err != nil {
		return "", nil, err
	}
	n := len(args)
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	return sql, append(args, limit, offset), nil
}

func (b *Builder) orderBy() string {
	fields := b.order
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, _ := b.projection.Column(f.Field)
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(b.conditions))
	var args []any

	for _, cond := range b.conditions {
		clause := cond.clause
		for _, arg := range cond.args {
			args = append(args, arg)
			clause = strings.Replace(clause, "$%d", fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses = append(clauses, clause)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
