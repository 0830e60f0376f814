// Package query builds parameterized SELECT statements over a single table
// from a whitelist of exposed fields.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned when a filter or sort names a field the
// projection does not expose.
var ErrUnknownField = errors.New("unknown field")

// Projection maps exposed field names to qualified columns (alias.column).
type Projection struct {
	table      string
	alias      string
	columns    map[string]string
	columnList []string
}

// NewProjection creates a Projection over table, aliased as alias.
func NewProjection(table, alias string) *Projection {
	return &Projection{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project selects column and exposes it as field. Columns are selected in
// the order they are projected.
func (p *Projection) Project(column, field string) *Projection {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.columnList = append(p.columnList, qualified)
	return p
}

// From returns the table reference with its alias.
func (p *Projection) From() string {
	return p.table + " " + p.alias
}

// Column resolves field to its qualified column.
func (p *Projection) Column(field string) (string, error) {
	col, ok := p.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return col, nil
}

// Columns returns the selected columns as a comma-separated list.
func (p *Projection) Columns() string {
	return strings.Join(p.columnList, ", ")
}
