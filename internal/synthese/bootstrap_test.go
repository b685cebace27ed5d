package synthese

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() Keys {
	return Keys{
		SourceName:    "GBIF occurrences",
		SourceDesc:    "Records harvested from the GBIF occurrence API",
		FrameworkName: "External imports",
		FrameworkDesc: "Occurrences imported from external providers",
		DatasetName:   "GBIF - Isère",
		DatasetDesc:   "GBIF occurrences for the Isère department",
	}
}

func TestBootstrapper_CreatesMissingEntities(t *testing.T) {
	store := NewMemStore()
	b := NewBootstrapper(store, nil)

	meta, err := b.Ensure(context.Background(), testKeys(), false)
	require.NoError(t, err)

	assert.Positive(t, meta.SourceID)
	assert.Positive(t, meta.FrameworkID)
	assert.Positive(t, meta.DatasetID)
}

func TestBootstrapper_Idempotent(t *testing.T) {
	store := NewMemStore()
	b := NewBootstrapper(store, nil)

	first, err := b.Ensure(context.Background(), testKeys(), false)
	require.NoError(t, err)

	// Second call from a fresh bootstrapper hits the store, not the
	// run-level cache, and must find the same rows.
	second, err := NewBootstrapper(store, nil).Ensure(context.Background(), testKeys(), false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.sources, 1)
	assert.Len(t, store.frameworks, 1)
	assert.Len(t, store.datasets, 1)
}

func TestBootstrapper_DryRunWritesNothing(t *testing.T) {
	store := NewMemStore()
	b := NewBootstrapper(store, nil)

	meta, err := b.Ensure(context.Background(), testKeys(), true)
	require.NoError(t, err)

	assert.Equal(t, DrySentinelID, meta.SourceID)
	assert.Equal(t, DrySentinelID, meta.FrameworkID)
	assert.Equal(t, DrySentinelID, meta.DatasetID)
	assert.Empty(t, store.sources)
	assert.Empty(t, store.frameworks)
	assert.Empty(t, store.datasets)
}

func TestBootstrapper_DryRunKeepsExistingIDs(t *testing.T) {
	store := NewMemStore()
	keys := testKeys()

	// Seed the source so only framework and dataset are missing.
	id, err := store.CreateSource(context.Background(), keys.SourceName, keys.SourceDesc)
	require.NoError(t, err)

	meta, err := NewBootstrapper(store, nil).Ensure(context.Background(), keys, true)
	require.NoError(t, err)

	assert.Equal(t, id, meta.SourceID)
	assert.Equal(t, DrySentinelID, meta.FrameworkID)
	assert.Equal(t, DrySentinelID, meta.DatasetID)
}
