package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/ccdb/internal/model"
)

// TypeTableByPath returns the type table at a normalized absolute path,
// with its columns in declaration order. Returns model.ErrNotFound if absent.
func (s *Store) TypeTableByPath(ctx context.Context, path string) (model.TypeTable, error) {
	var (
		t       model.TypeTable
		created int64
	)
	err := s.reads.QueryRowContext(ctx, `
		SELECT id, path, comment, created_at
		FROM type_tables
		WHERE path = ?
	`, path).Scan(&t.ID, &t.Path, &t.Comment, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TypeTable{}, fmt.Errorf("type table %s: %w", path, model.ErrNotFound)
	}
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("type table %s: %w", path, err))
	}
	t.Created = fromUnixNano(created)

	t.Columns, err = s.readColumns(ctx, t.ID)
	if err != nil {
		return model.TypeTable{}, err
	}
	return t, nil
}

// ListTypeTables returns every type table under dir (all tables when dir
// is "" or "/"), ordered by path.
func (s *Store) ListTypeTables(ctx context.Context, dir string) ([]model.TypeTable, error) {
	query := `SELECT id, path, comment, created_at FROM type_tables`
	var args []any
	if dir = strings.TrimSuffix(dir, "/"); dir != "" {
		query += ` WHERE path LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(dir)+"/%")
	}
	query += ` ORDER BY path COLLATE BINARY ASC`

	rows, err := s.reads.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.record(fmt.Errorf("query type tables: %w", err))
	}
	defer rows.Close()

	tables := []model.TypeTable{}
	for rows.Next() {
		var (
			t       model.TypeTable
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Path, &t.Comment, &created); err != nil {
			return nil, s.record(fmt.Errorf("scan type table: %w", err))
		}
		t.Created = fromUnixNano(created)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.record(fmt.Errorf("iterate type tables: %w", err))
	}
	rows.Close()

	for i := range tables {
		if tables[i].Columns, err = s.readColumns(ctx, tables[i].ID); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (s *Store) readColumns(ctx context.Context, tableID int64) ([]model.Column, error) {
	rows, err := s.reads.QueryContext(ctx, `
		SELECT name, cell_type
		FROM columns
		WHERE type_table_id = ?
		ORDER BY position ASC
	`, tableID)
	if err != nil {
		return nil, s.record(fmt.Errorf("query columns: %w", err))
	}
	defer rows.Close()

	var cols []model.Column
	for rows.Next() {
		var c model.Column
		var ct string
		if err := rows.Scan(&c.Name, &ct); err != nil {
			return nil, s.record(fmt.Errorf("scan column: %w", err))
		}
		c.Type = model.CellType(ct)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.record(fmt.Errorf("iterate columns: %w", err))
	}
	return cols, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// VariationByName returns the named variation or model.ErrNotFound.
func (s *Store) VariationByName(ctx context.Context, name string) (model.Variation, error) {
	v, err := variationByName(ctx, s.reads, name)
	return v, s.record(err)
}

// VariationByID returns the variation with the given ID or model.ErrNotFound.
func (s *Store) VariationByID(ctx context.Context, id int64) (model.Variation, error) {
	v, err := variationByID(ctx, s.reads, id)
	return v, s.record(err)
}

// ListVariations returns every variation ordered by name.
func (s *Store) ListVariations(ctx context.Context) ([]model.Variation, error) {
	rows, err := s.reads.QueryContext(ctx, `
		SELECT id, name, parent_id, comment, created_at
		FROM variations
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, s.record(fmt.Errorf("query variations: %w", err))
	}
	defer rows.Close()

	variations := []model.Variation{}
	for rows.Next() {
		v, err := scanVariation(rows)
		if err != nil {
			return nil, s.record(err)
		}
		variations = append(variations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.record(fmt.Errorf("iterate variations: %w", err))
	}
	return variations, nil
}

func variationByName(ctx context.Context, q queryer, name string) (model.Variation, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, parent_id, comment, created_at
		FROM variations
		WHERE name = ?
	`, name)
	v, err := scanVariation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Variation{}, fmt.Errorf("variation %q: %w", name, model.ErrNotFound)
	}
	return v, err
}

func variationByID(ctx context.Context, q queryer, id int64) (model.Variation, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, parent_id, comment, created_at
		FROM variations
		WHERE id = ?
	`, id)
	v, err := scanVariation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Variation{}, fmt.Errorf("variation %d: %w", id, model.ErrNotFound)
	}
	return v, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVariation(row scanner) (model.Variation, error) {
	var (
		v       model.Variation
		parent  sql.NullInt64
		created int64
	)
	if err := row.Scan(&v.ID, &v.Name, &parent, &v.Comment, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Variation{}, err
		}
		return model.Variation{}, fmt.Errorf("scan variation: %w", err)
	}
	v.ParentID = parent.Int64
	v.Created = fromUnixNano(created)
	return v, nil
}

// AssignmentQuery selects assignments of one table and variation.
type AssignmentQuery struct {
	Table     model.TypeTable
	Variation model.Variation

	// HasRun restricts results to ranges containing Run.
	Run    int64
	HasRun bool

	// Before, when non-zero, excludes assignments created after it.
	Before time.Time

	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// QueryAssignments returns matching assignments, highest version first.
// Table and Variation on each result are copied from the query.
func (s *Store) QueryAssignments(ctx context.Context, q AssignmentQuery) ([]model.Assignment, error) {
	query := `
		SELECT id, run_min, run_max, version, values_json, data_hash, comment, created_at
		FROM assignments
		WHERE type_table_id = ? AND variation_id = ?`
	args := []any{q.Table.ID, q.Variation.ID}
	if q.HasRun {
		query += ` AND run_min <= ? AND (run_max >= ? OR run_max = ?)`
		args = append(args, q.Run, q.Run, model.InfiniteRun)
	}
	if !q.Before.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, toUnixNano(q.Before))
	}
	query += ` ORDER BY version DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.reads.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.record(fmt.Errorf("query assignments: %w", err))
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		var (
			a          model.Assignment
			valuesJSON string
			created    int64
		)
		if err := rows.Scan(&a.ID, &a.RunRange.Min, &a.RunRange.Max, &a.Version, &valuesJSON, &a.DataHash, &a.Comment, &created); err != nil {
			return nil, s.record(fmt.Errorf("scan assignment: %w", err))
		}
		if a.Values, err = unmarshalValues(valuesJSON); err != nil {
			return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		a.Table = q.Table
		a.Variation = q.Variation
		a.Created = fromUnixNano(created)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.record(fmt.Errorf("iterate assignments: %w", err))
	}
	return assignments, nil
}
