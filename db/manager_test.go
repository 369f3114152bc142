package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"vector-store/config"
	"vector-store/store"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Collections = map[string]config.CollectionConfig{
		"default": {Dimension: 4},
	}
	return cfg
}

func TestCollectionManager(t *testing.T) {
	manager := NewManager(testConfig())

	c1, err := manager.CreateCollection("test1", config.CollectionConfig{Dimension: 64})
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, 64, c1.Store.Dimension())

	// duplicate
	_, err = manager.CreateCollection("test1", config.CollectionConfig{Dimension: 64})
	assert.ErrorIs(t, err, ErrCollectionExists)

	c2, err := manager.GetCollection("test1")
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	assert.Equal(t, []string{"test1"}, manager.ListCollections())

	require.NoError(t, manager.DeleteCollection("test1"))
	_, err = manager.GetCollection("test1")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.ErrorIs(t, manager.DeleteCollection("test1"), ErrCollectionNotFound)
}

func TestCreateCollectionValidation(t *testing.T) {
	manager := NewManager(testConfig())

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := manager.CreateCollection(name, config.CollectionConfig{Dimension: 3})
		assert.ErrorIs(t, err, ErrInvalidCollectionName, name)
	}

	_, err := manager.CreateCollection("zero", config.CollectionConfig{Dimension: 0})
	assert.ErrorIs(t, err, store.ErrInvalidDimension)
	assert.Empty(t, manager.ListCollections())
}

func TestEnsureConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Collections["docs"] = config.CollectionConfig{Dimension: 8}
	manager := NewManager(cfg)

	existing, err := manager.CreateCollection("docs", config.CollectionConfig{Dimension: 8})
	require.NoError(t, err)
	_, err = existing.Store.Add("kept", make([]float32, 8), "", "")
	require.NoError(t, err)

	require.NoError(t, manager.EnsureConfigured())
	assert.Equal(t, []string{"default", "docs"}, manager.ListCollections())

	docs, err := manager.GetCollection("docs")
	require.NoError(t, err)
	assert.Same(t, existing, docs)
	assert.Equal(t, 1, docs.Store.Size())

	info := docs.Info()
	assert.Equal(t, CollectionInfo{Name: "docs", Dimension: 8, Size: 1}, info)
}

func TestCollectionRecords(t *testing.T) {
	manager := NewManager(testConfig())
	require.NoError(t, manager.EnsureConfigured())

	c, err := manager.GetCollection("default")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		added, err := c.Store.Add(fmt.Sprintf("%d", i), []float32{float32(i), 0, 0, 0}, "", fmt.Sprintf(`{"index": %d}`, i))
		require.NoError(t, err)
		require.True(t, added)
	}
	assert.Equal(t, 50, c.Info().Size)

	rec, ok := c.Store.Get("25")
	require.True(t, ok)
	assert.Equal(t, `{"index": 25}`, rec.Metadata)
}

func TestConcurrentCollectionOperations(t *testing.T) {
	manager := NewManager(testConfig())

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			name := fmt.Sprintf("c%d", i)
			c, err := manager.CreateCollection(name, config.CollectionConfig{Dimension: 4})
			if err != nil {
				return err
			}
			for j := 0; j < 25; j++ {
				if _, err := c.Store.Add(fmt.Sprintf("%d", j), make([]float32, 4), "", ""); err != nil {
					return err
				}
			}
			manager.ListCollections()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, manager.ListCollections(), 8)

	for _, name := range manager.ListCollections() {
		c, err := manager.GetCollection(name)
		require.NoError(t, err)
		assert.Equal(t, 25, c.Store.Size())
	}
}
