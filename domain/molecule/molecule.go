// Package molecule defines the stored molecule entity and the
// persistence contract the infrastructure layer implements.
package molecule

import "context"

// MaxSmilesLen bounds stored SMILES strings. The longest SMILES
// published so far, a cluster with 52 metallic atoms, is 2778
// characters.
const MaxSmilesLen = 2778

// Molecule is a stored compound identifier. SMILES values are unique
// across the store; the identifier is generated on insert.
type Molecule struct {
	ID     int64  `json:"identifier"`
	Smiles string `json:"smiles"`
}

// Repository is the persistence contract for molecules. Every
// operation opens its own transaction scope; implementations hold no
// locks across calls, so concurrent duplicate inserts race at the
// uniqueness constraint and exactly one wins.
type Repository interface {
	// Insert stores one or more SMILES values in a single
	// transaction; a duplicate anywhere in the batch fails the whole
	// batch with a conflict error.
	Insert(ctx context.Context, smiles ...string) ([]Molecule, error)

	// InsertWithID stores a molecule under a caller-chosen identifier;
	// used by the upsert path when an update finds no row.
	InsertWithID(ctx context.Context, id int64, smiles string) (Molecule, error)

	// Get returns the molecule with the given id or a not-found error.
	Get(ctx context.Context, id int64) (Molecule, error)

	// Update replaces the SMILES value of an existing row. Missing ids
	// are a not-found error; a value held by another row is a conflict.
	Update(ctx context.Context, id int64, smiles string) error

	// Delete removes a row and returns it, or a not-found error.
	Delete(ctx context.Context, id int64) (Molecule, error)

	// List returns molecules in insertion order (id ascending),
	// skipping offset rows and returning at most limit rows.
	// A non-positive limit means no bound.
	List(ctx context.Context, limit, offset int) ([]Molecule, error)

	// AllSmiles is the projection of List onto the smiles column,
	// used as the candidate pool for substructure search.
	AllSmiles(ctx context.Context, limit, offset int) ([]string, error)

	// LastBySmiles returns the most recently inserted row holding the
	// given value.
	LastBySmiles(ctx context.Context, smiles string) (Molecule, error)

	// Last returns the n most recently inserted rows, newest first.
	Last(ctx context.Context, n int) ([]Molecule, error)
}
