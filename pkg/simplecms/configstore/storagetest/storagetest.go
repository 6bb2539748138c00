// Package storagetest checks configstore.Storage implementations against
// the shared contract.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
)

// Run exercises s. The storage must start empty.
func Run(t *testing.T, s configstore.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("ReadMissing", func(t *testing.T) {
		_, err := s.Read(ctx, "system.missing")
		assert.ErrorIs(t, err, configstore.ErrNotFound)
		ok, err := s.Exists(ctx, "system.missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WriteRead", func(t *testing.T) {
		data := map[string]any{
			"name":   "Drupal",
			"page":   map[string]any{"front": "/node"},
			"weight": 3,
			"tags":   []any{"a", "b"},
		}
		require.NoError(t, s.Write(ctx, "system.site", data))

		got, err := s.Read(ctx, "system.site")
		require.NoError(t, err)
		assert.Equal(t, "Drupal", got["name"])
		assert.Equal(t, map[string]any{"front": "/node"}, got["page"])
		assert.Equal(t, "3", fmt.Sprint(got["weight"]))
		assert.Len(t, got["tags"], 2)

		ok, err := s.Exists(ctx, "system.site")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "system.site", map[string]any{"name": "Other"}))
		got, err := s.Read(ctx, "system.site")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Other"}, got)
	})

	t.Run("InvalidName", func(t *testing.T) {
		assert.ErrorIs(t, s.Write(ctx, "noprefix", map[string]any{}), configstore.ErrInvalidName)
		assert.ErrorIs(t, s.Write(ctx, "system/../x", map[string]any{}), configstore.ErrInvalidName)
	})

	t.Run("ListAllAndReadMultiple", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "system.date_format.short", map[string]any{"id": "short"}))
		require.NoError(t, s.Write(ctx, "system.date_format.long", map[string]any{"id": "long"}))
		require.NoError(t, s.Write(ctx, "node.settings", map[string]any{}))

		names, err := s.ListAll(ctx, "system.date_format.")
		require.NoError(t, err)
		assert.Equal(t, []string{"system.date_format.long", "system.date_format.short"}, names)

		all, err := s.ListAll(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"node.settings", "system.date_format.long", "system.date_format.short", "system.site"}, all)

		multi, err := s.ReadMultiple(ctx, []string{"system.date_format.long", "system.missing"})
		require.NoError(t, err)
		assert.Len(t, multi, 1)
		assert.Equal(t, "long", multi["system.date_format.long"]["id"])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "node.settings"))
		assert.ErrorIs(t, s.Delete(ctx, "node.settings"), configstore.ErrNotFound)
		_, err := s.Read(ctx, "node.settings")
		assert.ErrorIs(t, err, configstore.ErrNotFound)
	})
}
