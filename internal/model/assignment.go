package model

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoData is returned by the typed accessors when an assignment holds no rows.
var ErrNoData = errors.New("assignment has no rows")

// Cells returns a copy of the values as rows of string cells.
func (a *Assignment) Cells() ([][]string, error) {
	if len(a.Values) == 0 {
		return nil, ErrNoData
	}
	out := make([][]string, len(a.Values))
	for i, row := range a.Values {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Rows returns each row as a map keyed by column name.
func (a *Assignment) Rows() ([]map[string]string, error) {
	if len(a.Values) == 0 {
		return nil, ErrNoData
	}
	names := a.Table.ColumnNames()
	out := make([]map[string]string, len(a.Values))
	for i, row := range a.Values {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, table %s has %d columns", i, len(row), a.Table.Path, len(names))
		}
		m := make(map[string]string, len(names))
		for j, name := range names {
			m[name] = row[j]
		}
		out[i] = m
	}
	return out, nil
}

// Row returns the first row keyed by column name.
// Use Rows for assignments that carry more than one row.
func (a *Assignment) Row() (map[string]string, error) {
	rows, err := a.Rows()
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Float64s returns every cell parsed as float64, row by row.
func (a *Assignment) Float64s() ([][]float64, error) {
	if len(a.Values) == 0 {
		return nil, ErrNoData
	}
	out := make([][]float64, len(a.Values))
	for i, row := range a.Values {
		out[i] = make([]float64, len(row))
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: parse double %q: %w", i, j, cell, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// Ints returns every cell parsed as int64, row by row.
func (a *Assignment) Ints() ([][]int64, error) {
	if len(a.Values) == 0 {
		return nil, ErrNoData
	}
	out := make([][]int64, len(a.Values))
	for i, row := range a.Values {
		out[i] = make([]int64, len(row))
		for j, cell := range row {
			v, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: parse int %q: %w", i, j, cell, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}
