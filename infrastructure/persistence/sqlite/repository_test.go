package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molsearch/molsearch/pkg/apperrors"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestInsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "CCO", inserted[0].Smiles)
	assert.Positive(t, inserted[0].ID)

	got, err := repo.Get(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, inserted[0], got)
}

func TestInsertDuplicateConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, apperrors.Get(err).Message, "already exists")

	// the failed insert must not have changed the store
	all, err := repo.AllSmiles(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCO"}, all)
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)

	// second value collides, so the first must not survive either
	_, err = repo.Insert(ctx, "c1ccccc1", "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	all, err := repo.AllSmiles(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCO"}, all)
}

func TestInsertEmptyBatch(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Insert(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "The molecule with identifier 42 is not found.", apperrors.Get(err).Message)
}

func TestUpdate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, inserted[0].ID, "CCN"))

	got, err := repo.Get(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CCN", got.Smiles)
}

func TestUpdateNotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Update(context.Background(), 42, "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateOntoExistingValueConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "CCO", "CCN")
	require.NoError(t, err)

	err = repo.Update(ctx, inserted[1].ID, "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestInsertWithID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	m, err := repo.InsertWithID(ctx, 7, "CCO")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.ID)

	got, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "CCO", got.Smiles)

	_, err = repo.InsertWithID(ctx, 7, "CCN")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, inserted[0], removed)

	_, err = repo.Delete(ctx, inserted[0].ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListOrderAndPagination(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "C", "CC", "CCC", "CCCC")
	require.NoError(t, err)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "C", all[0].Smiles)
	assert.Equal(t, "CCCC", all[3].Smiles)

	page, err := repo.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "CC", page[0].Smiles)
	assert.Equal(t, "CCC", page[1].Smiles)
}

func TestAllSmiles(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	all, err := repo.AllSmiles(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = repo.Insert(ctx, "CCO", "c1ccccc1")
	require.NoError(t, err)

	all, err = repo.AllSmiles(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCO", "c1ccccc1"}, all)
}

func TestLastBySmiles(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.LastBySmiles(ctx, "CCO")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	inserted, err := repo.Insert(ctx, "CCO")
	require.NoError(t, err)

	got, err := repo.LastBySmiles(ctx, "CCO")
	require.NoError(t, err)
	assert.Equal(t, inserted[0], got)
}

func TestLastNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, "C", "CC", "CCC")
	require.NoError(t, err)

	last, err := repo.Last(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "CCC", last[0].Smiles)
	assert.Equal(t, "CC", last[1].Smiles)
}
