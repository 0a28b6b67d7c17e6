// Package sqlite implements the molecule repository over a sqlite
// database using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	sqlite3 "modernc.org/sqlite"

	"github.com/molsearch/molsearch/domain/molecule"
	"github.com/molsearch/molsearch/pkg/apperrors"
)

// sqlite extended result codes for constraint violations
const (
	sqliteConstraintUnique     = 2067 // SQLITE_CONSTRAINT_UNIQUE
	sqliteConstraintPrimaryKey = 1555 // SQLITE_CONSTRAINT_PRIMARYKEY
)

// Repository is the sqlite-backed molecule store. Every operation
// opens its own transaction scope; the UNIQUE constraint on the
// smiles column is the only concurrency-safety mechanism for
// concurrent inserts of the same value.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRepository opens the database at path, applies migrations and
// returns the store. Use ":memory:" for an ephemeral database.
func NewRepository(path string, logger *zap.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked while a writer commits
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// sqlite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Repository{db: db, logger: logger}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Insert stores the given SMILES values in one transaction. The batch
// is all-or-nothing: any uniqueness violation rolls back every row.
func (r *Repository) Insert(ctx context.Context, smiles ...string) ([]molecule.Molecule, error) {
	if len(smiles) == 0 {
		return nil, apperrors.NewValidationError("no smiles values to insert")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewDatabaseError("insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := make([]molecule.Molecule, 0, len(smiles))
	for _, s := range smiles {
		result, err := tx.ExecContext(ctx, "INSERT INTO molecules (smiles) VALUES (?)", s)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperrors.NewConflictError(
					"Molecule with this SMILES value already exists").WithCause(err)
			}
			return nil, apperrors.NewDatabaseError("insert", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, apperrors.NewDatabaseError("insert", err)
		}
		inserted = append(inserted, molecule.Molecule{ID: id, Smiles: s})
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewDatabaseError("insert", err)
	}
	r.logger.Debug("inserted molecules", zap.Int("count", len(inserted)))
	return inserted, nil
}

// InsertWithID stores a molecule under a caller-chosen identifier.
func (r *Repository) InsertWithID(ctx context.Context, id int64, smiles string) (molecule.Molecule, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO molecules (id, smiles) VALUES (?, ?)", id, smiles)
	if err != nil {
		if isUniqueViolation(err) {
			return molecule.Molecule{}, apperrors.NewConflictError(
				"Molecule with this SMILES value already exists").WithCause(err)
		}
		return molecule.Molecule{}, apperrors.NewDatabaseError("insert", err)
	}
	return molecule.Molecule{ID: id, Smiles: smiles}, nil
}

// Get returns the molecule with the given id
func (r *Repository) Get(ctx context.Context, id int64) (molecule.Molecule, error) {
	var m molecule.Molecule
	err := r.db.QueryRowContext(ctx,
		"SELECT id, smiles FROM molecules WHERE id = ?", id).Scan(&m.ID, &m.Smiles)
	if errors.Is(err, sql.ErrNoRows) {
		return molecule.Molecule{}, notFound(id)
	}
	if err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("get", err)
	}
	return m, nil
}

// Update replaces the SMILES value of an existing row. The UNIQUE
// constraint stays in force: moving a row onto a value held by
// another row is a conflict, exactly as on insert.
func (r *Repository) Update(ctx context.Context, id int64, smiles string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE molecules SET smiles = ? WHERE id = ?", smiles, id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(
				"Molecule with this SMILES value already exists").WithCause(err)
		}
		return apperrors.NewDatabaseError("update", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("update", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

// Delete removes a row and returns it
func (r *Repository) Delete(ctx context.Context, id int64) (molecule.Molecule, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	var m molecule.Molecule
	err = tx.QueryRowContext(ctx,
		"SELECT id, smiles FROM molecules WHERE id = ?", id).Scan(&m.ID, &m.Smiles)
	if errors.Is(err, sql.ErrNoRows) {
		return molecule.Molecule{}, notFound(id)
	}
	if err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("delete", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM molecules WHERE id = ?", id); err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("delete", err)
	}
	if err := tx.Commit(); err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("delete", err)
	}
	r.logger.Debug("deleted molecule", zap.Int64("id", id))
	return m, nil
}

// List returns molecules in insertion order
func (r *Repository) List(ctx context.Context, limit, offset int) ([]molecule.Molecule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, smiles FROM molecules ORDER BY id LIMIT ? OFFSET ?",
		normalizeLimit(limit), offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list", err)
	}
	defer rows.Close()

	molecules := []molecule.Molecule{}
	for rows.Next() {
		var m molecule.Molecule
		if err := rows.Scan(&m.ID, &m.Smiles); err != nil {
			return nil, apperrors.NewDatabaseError("list", err)
		}
		molecules = append(molecules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list", err)
	}
	return molecules, nil
}

// AllSmiles returns the stored SMILES strings in insertion order
func (r *Repository) AllSmiles(ctx context.Context, limit, offset int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT smiles FROM molecules ORDER BY id LIMIT ? OFFSET ?",
		normalizeLimit(limit), offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("all_smiles", err)
	}
	defer rows.Close()

	smiles := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, apperrors.NewDatabaseError("all_smiles", err)
		}
		smiles = append(smiles, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("all_smiles", err)
	}
	return smiles, nil
}

// LastBySmiles returns the most recently inserted row with the value
func (r *Repository) LastBySmiles(ctx context.Context, smiles string) (molecule.Molecule, error) {
	var m molecule.Molecule
	err := r.db.QueryRowContext(ctx,
		"SELECT id, smiles FROM molecules WHERE smiles = ? ORDER BY id DESC LIMIT 1",
		smiles).Scan(&m.ID, &m.Smiles)
	if errors.Is(err, sql.ErrNoRows) {
		return molecule.Molecule{}, apperrors.NewNotFoundError(
			fmt.Sprintf("The molecule %q is not found.", smiles))
	}
	if err != nil {
		return molecule.Molecule{}, apperrors.NewDatabaseError("last", err)
	}
	return m, nil
}

// Last returns the n most recently inserted rows, newest first
func (r *Repository) Last(ctx context.Context, n int) ([]molecule.Molecule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, smiles FROM molecules ORDER BY id DESC LIMIT ?", normalizeLimit(n))
	if err != nil {
		return nil, apperrors.NewDatabaseError("last", err)
	}
	defer rows.Close()

	molecules := []molecule.Molecule{}
	for rows.Next() {
		var m molecule.Molecule
		if err := rows.Scan(&m.ID, &m.Smiles); err != nil {
			return nil, apperrors.NewDatabaseError("last", err)
		}
		molecules = append(molecules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("last", err)
	}
	return molecules, nil
}

func notFound(id int64) error {
	return apperrors.NewNotFoundError(
		fmt.Sprintf("The molecule with identifier %d is not found.", id))
}

// normalizeLimit maps "no limit" onto sqlite's unbounded LIMIT -1
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure from the sqlite driver.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return false
}
