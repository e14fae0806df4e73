// Package dataset handles tabular entity x year data: CSV parsing and
// normalization on import, schema inference, and assembly of observation
// rows for the weighting engine.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadCSV marks any import-time rejection of user-supplied tabular data.
var ErrBadCSV = errors.New("invalid csv")

// Reserved column names every normalized dataset carries.
const (
	ColumnEntity = "entity"
	ColumnYear   = "year"
)

// Parsed is a raw rectangular table with string cells, header order
// preserved.
type Parsed struct {
	Columns []string
	Rows    []map[string]string
}

// Schema describes the inferred shape of an imported dataset.
type Schema struct {
	Columns  []string          `json:"columns"`
	Types    map[string]string `json:"types"`
	RowCount int               `json:"row_count"`
	Required []string          `json:"required"`
}

// Parse reads CSV text into a table, stripping a UTF-8 BOM and whitespace
// around headers and cells.
func Parse(text string) (*Parsed, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF"))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrBadCSV)
	}

	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCSV, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrBadCSV)
	}

	var columns []string
	for _, c := range records[0] {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrBadCSV)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return &Parsed{Columns: columns, Rows: rows}, nil
}

// Normalize enforces the entity/year contract on an imported table: an
// entity column must exist, year comes either from a column or from the
// import-time override, year values are canonicalized to integers, and
// (entity, year) must be unique. Returns the normalized table and its
// inferred schema.
func Normalize(p *Parsed, yearOverride *int) (*Parsed, *Schema, error) {
	columns := append([]string(nil), p.Columns...)
	rows := make([]map[string]string, len(p.Rows))
	for i, r := range p.Rows {
		row := make(map[string]string, len(r)+1)
		for k, v := range r {
			row[k] = v
		}
		rows[i] = row
	}

	if !contains(columns, ColumnEntity) {
		return nil, nil, fmt.Errorf("%w: an entity column is required", ErrBadCSV)
	}
	if !contains(columns, ColumnYear) {
		if yearOverride == nil {
			return nil, nil, fmt.Errorf("%w: no year column; supply a year on import", ErrBadCSV)
		}
		rest := make([]string, 0, len(columns)-1)
		for _, c := range columns {
			if c != ColumnEntity {
				rest = append(rest, c)
			}
		}
		columns = append([]string{ColumnEntity, ColumnYear}, rest...)
		for _, row := range rows {
			row[ColumnYear] = strconv.Itoa(*yearOverride)
		}
	}

	for _, row := range rows {
		if strings.TrimSpace(row[ColumnEntity]) == "" {
			return nil, nil, fmt.Errorf("%w: blank entity value", ErrBadCSV)
		}
		y := strings.TrimSpace(row[ColumnYear])
		if y == "" {
			if yearOverride == nil {
				return nil, nil, fmt.Errorf("%w: blank year value", ErrBadCSV)
			}
			row[ColumnYear] = strconv.Itoa(*yearOverride)
			continue
		}
		yi, err := parseYear(y)
		if err != nil {
			return nil, nil, err
		}
		row[ColumnYear] = strconv.Itoa(yi)
	}

	if err := ensureUniqueEntityYear(rows); err != nil {
		return nil, nil, err
	}

	normalized := &Parsed{Columns: columns, Rows: rows}
	return normalized, InferSchema(normalized), nil
}

// parseYear accepts integer years, tolerating a float rendering like "2020.0".
func parseYear(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: year %q is not an integer", ErrBadCSV, s)
	}
	return int(f), nil
}

func ensureUniqueEntityYear(rows []map[string]string) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row[ColumnEntity] + "\x00" + row[ColumnYear]
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate (entity, year) pair (%s, %s)", ErrBadCSV, row[ColumnEntity], row[ColumnYear])
		}
		seen[key] = struct{}{}
	}
	return nil
}

// InferSchema classifies each column as int, number or string from its
// non-empty values.
func InferSchema(p *Parsed) *Schema {
	types := make(map[string]string, len(p.Columns))
	for _, col := range p.Columns {
		types[col] = inferColumnType(col, p.Rows)
	}
	return &Schema{
		Columns:  append([]string(nil), p.Columns...),
		Types:    types,
		RowCount: len(p.Rows),
		Required: []string{ColumnEntity, ColumnYear},
	}
}

func inferColumnType(col string, rows []map[string]string) string {
	nonEmpty := 0
	numeric := true
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
			break
		}
	}
	switch {
	case nonEmpty == 0 || !numeric:
		return "string"
	case col == ColumnYear:
		return "int"
	default:
		return "number"
	}
}

// ToCSV renders a table back to CSV text with a trailing newline.
func ToCSV(columns []string, rows []map[string]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(columns)
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		_ = w.Write(record)
	}
	w.Flush()
	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
