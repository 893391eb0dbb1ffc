package codelist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeStore struct {
	items []models.CodelistItem
	err   error
}

func (f *fakeStore) GetAll(ctx context.Context) ([]models.CodelistItem, error) {
	return f.items, f.err
}

func TestResolver_Reload(t *testing.T) {
	name := "Incoming Funds"
	store := &fakeStore{items: []models.CodelistItem{
		{ID: "1", List: "TransactionType", Code: "1", Name: &name},
		{ID: "2", List: "TransactionType", Code: "2"},
		{ID: "3", List: "Sector", Code: "11110"},
	}}
	r := NewResolver(store, logger.NewNop())
	require.NoError(t, r.Reload(context.Background()))

	item, ok := r.Find("TransactionType", "1")
	require.True(t, ok)
	require.NotNil(t, item.Name)
	assert.Equal(t, "Incoming Funds", *item.Name)

	assert.True(t, r.Exists("Sector", "11110"))
	assert.False(t, r.Exists("Sector", "99999"))
	assert.False(t, r.Exists("NoSuchList", "1"))

	assert.True(t, r.HasList("TransactionType"))
	assert.False(t, r.HasList("NoSuchList"))
}

func TestResolver_ReloadError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	r := NewResolver(store, logger.NewNop())
	assert.Error(t, r.Reload(context.Background()))
}

func TestResolver_EmptyBeforeReload(t *testing.T) {
	r := NewResolver(&fakeStore{}, logger.NewNop())
	assert.False(t, r.Exists("TransactionType", "1"))
	assert.False(t, r.HasList("TransactionType"))
}

func TestResolver_ReloadReplaces(t *testing.T) {
	store := &fakeStore{items: []models.CodelistItem{{ID: "1", List: "A", Code: "x"}}}
	r := NewResolver(store, logger.NewNop())
	require.NoError(t, r.Reload(context.Background()))
	assert.True(t, r.Exists("A", "x"))

	store.items = []models.CodelistItem{{ID: "2", List: "B", Code: "y"}}
	require.NoError(t, r.Reload(context.Background()))
	assert.False(t, r.Exists("A", "x"))
	assert.True(t, r.Exists("B", "y"))
}
