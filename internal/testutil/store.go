package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/pricenest/internal/datastore"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/stretchr/testify/require"
)

// NewTestStore opens a fresh SQLite store inside a temp directory.
func NewTestStore(t *testing.T) *datastore.SQLStore {
	t.Helper()

	store, err := datastore.Open(context.Background(), filepath.Join(t.TempDir(), "pricenest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// CreateCategory inserts a category of the given type and returns it.
func CreateCategory(t *testing.T, store datastore.Store, name string, typ model.CategoryType) *model.Category {
	t.Helper()

	c := &model.Category{Name: name, Type: typ}
	require.NoError(t, store.CreateCategory(context.Background(), c))
	return c
}

// CreateItem inserts item into categoryID and returns it.
func CreateItem(t *testing.T, store datastore.Store, categoryID int64, item model.Item) *model.Item {
	t.Helper()

	item.CategoryID = categoryID
	require.NoError(t, store.CreateItem(context.Background(), &item))
	return &item
}
