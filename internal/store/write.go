package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ccdb/internal/model"
)

// ErrTableExists is returned when creating a type table at a taken path.
var ErrTableExists = errors.New("type table already exists")

// CreateTypeTable creates the table, its columns, and any missing parent
// directories in a single transaction. Returns the stored table with its ID.
func (s *Store) CreateTypeTable(ctx context.Context, table model.TypeTable, created time.Time) (model.TypeTable, error) {
	path, err := model.NormalizePath(table.Path)
	if err != nil {
		return model.TypeTable{}, err
	}
	if len(table.Columns) == 0 {
		return model.TypeTable{}, fmt.Errorf("create type table %s: no columns", path)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table: begin tx: %w", err))
	}
	defer tx.Rollback()

	dir, name := model.SplitPath(path)
	dirID, err := ensureDirectories(ctx, tx, model.PathElements(dir), created)
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: %w", path, err))
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO type_tables
		(directory_id, name, path, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, dirID, name, path, table.Comment, toUnixNano(created))
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: insert: %w", path, err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: rows affected: %w", path, err))
	}
	if rowsAffected == 0 {
		return model.TypeTable{}, fmt.Errorf("create type table %s: %w", path, ErrTableExists)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: last insert id: %w", path, err))
	}

	columns := make([]model.Column, len(table.Columns))
	for i, col := range table.Columns {
		ct, err := model.ParseCellType(string(col.Type))
		if err != nil {
			return model.TypeTable{}, fmt.Errorf("create type table %s: column %q: %w", path, col.Name, err)
		}
		columns[i] = model.Column{Name: model.NormalizeName(col.Name), Type: ct}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO columns (type_table_id, position, name, cell_type)
			VALUES (?, ?, ?, ?)
		`, id, i, columns[i].Name, string(ct)); err != nil {
			return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: column %q: %w", path, col.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return model.TypeTable{}, s.record(fmt.Errorf("create type table %s: commit: %w", path, err))
	}

	return model.TypeTable{
		ID:      id,
		Path:    path,
		Comment: table.Comment,
		Columns: columns,
		Created: fromUnixNano(toUnixNano(created)),
	}, nil
}

// ensureDirectories walks names from the root, creating each missing
// directory. Returns the ID of the deepest one (0 for the root).
func ensureDirectories(ctx context.Context, q queryer, names []string, created time.Time) (int64, error) {
	var parentID int64
	for _, name := range names {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO directories (parent_id, name, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(parent_id, name) DO NOTHING
		`, parentID, name, toUnixNano(created)); err != nil {
			return 0, fmt.Errorf("directory %q: %w", name, err)
		}

		if err := q.QueryRowContext(ctx, `
			SELECT id FROM directories WHERE parent_id = ? AND name = ?
		`, parentID, name).Scan(&parentID); err != nil {
			return 0, fmt.Errorf("directory %q: select: %w", name, err)
		}
	}
	return parentID, nil
}

// CreateVariation inserts a root variation, or returns the existing one
// with that name unchanged.
func (s *Store) CreateVariation(ctx context.Context, name, comment string, created time.Time) (model.Variation, error) {
	v, err := createVariation(ctx, s.db, name, comment, created)
	return v, s.record(err)
}

// SetVariationParent points a variation at its parent. A parentID of 0
// makes it a root.
func (s *Store) SetVariationParent(ctx context.Context, id, parentID int64) error {
	return s.record(setVariationParent(ctx, s.db, id, parentID))
}

func createVariation(ctx context.Context, q queryer, name, comment string, created time.Time) (model.Variation, error) {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO variations (name, parent_id, comment, created_at)
		VALUES (?, NULL, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, comment, toUnixNano(created)); err != nil {
		return model.Variation{}, fmt.Errorf("create variation %q: %w", name, err)
	}
	v, err := variationByName(ctx, q, name)
	if err != nil {
		return model.Variation{}, fmt.Errorf("create variation %q: %w", name, err)
	}
	return v, nil
}

func setVariationParent(ctx context.Context, q queryer, id, parentID int64) error {
	parent := sql.NullInt64{Int64: parentID, Valid: parentID != 0}
	result, err := q.ExecContext(ctx, `
		UPDATE variations SET parent_id = ? WHERE id = ?
	`, parent, id)
	if err != nil {
		return fmt.Errorf("set variation parent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set variation parent: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set variation parent: variation %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Tx is an open write transaction. All reads made through a Tx see its
// own uncommitted writes.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// BeginTx starts a write transaction.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.record(fmt.Errorf("begin tx: %w", err))
	}
	return &Tx{tx: tx, store: s}, nil
}

// InTx runs fn inside a write transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return t.store.record(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return t.store.record(fmt.Errorf("rollback: %w", err))
	}
	return nil
}

// VariationByName looks up a variation inside the transaction.
func (t *Tx) VariationByName(ctx context.Context, name string) (model.Variation, error) {
	v, err := variationByName(ctx, t.tx, name)
	return v, t.store.record(err)
}

// VariationByID looks up a variation inside the transaction.
func (t *Tx) VariationByID(ctx context.Context, id int64) (model.Variation, error) {
	v, err := variationByID(ctx, t.tx, id)
	return v, t.store.record(err)
}

// CreateVariation is Store.CreateVariation inside the transaction.
func (t *Tx) CreateVariation(ctx context.Context, name, comment string, created time.Time) (model.Variation, error) {
	v, err := createVariation(ctx, t.tx, name, comment, created)
	return v, t.store.record(err)
}

// SetVariationParent is Store.SetVariationParent inside the transaction.
func (t *Tx) SetVariationParent(ctx context.Context, id, parentID int64) error {
	return t.store.record(setVariationParent(ctx, t.tx, id, parentID))
}

// AllocateNextVersion bumps and returns the version counter for the
// (table, variation) pair. The first allocation returns 1.
func (t *Tx) AllocateNextVersion(ctx context.Context, tableID, variationID int64) (int64, error) {
	var version int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO assignment_versions (type_table_id, variation_id, last_version)
		VALUES (?, ?, 1)
		ON CONFLICT(type_table_id, variation_id)
		DO UPDATE SET last_version = last_version + 1
		RETURNING last_version
	`, tableID, variationID).Scan(&version)
	if err != nil {
		return 0, t.store.record(fmt.Errorf("allocate version: %w", err))
	}
	return version, nil
}

// InsertAssignment writes a fully populated assignment. Version, ID and
// DataHash must already be set.
func (t *Tx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	valuesJSON, err := marshalValues(a.Values)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO assignments
		(id, type_table_id, variation_id, run_min, run_max, version, values_json, data_hash, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.Table.ID,
		a.Variation.ID,
		a.RunRange.Min,
		a.RunRange.Max,
		a.Version,
		valuesJSON,
		a.DataHash,
		a.Comment,
		toUnixNano(a.Created),
	)
	if err != nil {
		return t.store.record(fmt.Errorf("insert assignment: %w", err))
	}
	return nil
}
