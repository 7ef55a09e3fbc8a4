package payload

import (
	"fmt"
	"strconv"
)

// Table is the decoded DataTable literal: column descriptors plus rows of cells.
type Table struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

// Column describes one DataTable column. The first column holds the date.
type Column struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Row holds the cells of one DataTable row. Cells may be null.
type Row struct {
	C []*Cell `json:"c"`
}

// Cell is a raw value with an optional display-format string.
type Cell struct {
	V any     `json:"v"`
	F *string `json:"f,omitempty"`
}

// Format returns the display-format string, or "" when the cell has none.
func (c *Cell) Format() string {
	if c == nil || c.F == nil {
		return ""
	}
	return *c.F
}

// Empty reports whether the table has no columns or no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Cols) == 0 || len(t.Rows) == 0
}

// tableFrom builds a Table from a generically decoded literal. The literal
// must be an object whose cols and rows, when present, are lists. Malformed
// columns, rows and cells degrade to empty values so the record builder can
// skip them one by one.
func tableFrom(v any) (*Table, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("table literal is %T, not an object", v)
	}

	cols, err := listField(obj, "cols")
	if err != nil {
		return nil, err
	}
	rows, err := listField(obj, "rows")
	if err != nil {
		return nil, err
	}

	table := &Table{}
	for _, c := range cols {
		m, _ := c.(map[string]any)
		table.Cols = append(table.Cols, Column{
			ID:    scalarString(m["id"]),
			Label: scalarString(m["label"]),
			Type:  scalarString(m["type"]),
		})
	}

	for _, r := range rows {
		m, _ := r.(map[string]any)
		cells, _ := m["c"].([]any)
		row := Row{C: make([]*Cell, len(cells))}
		for i, c := range cells {
			row.C[i] = cellFrom(c)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// listField returns obj[key] as a list. A missing or null field is empty.
func listField(obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not a list", key, v)
	}
	return list, nil
}

// cellFrom returns nil for anything that is not a cell object.
func cellFrom(v any) *Cell {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	cell := &Cell{V: m["v"]}
	if f, ok := m["f"]; ok && f != nil {
		if s := scalarString(f); s != "" {
			cell.F = &s
		}
	}
	return cell
}

// scalarString formats strings, numbers and booleans. Other values are "".
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}
