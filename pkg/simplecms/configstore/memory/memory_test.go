package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, memory.New())
}

func TestStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	data := map[string]any{"page": map[string]any{"front": "/node"}}
	require.NoError(t, s.Write(ctx, "system.site", data))

	data["page"].(map[string]any)["front"] = "/changed"
	got, err := s.Read(ctx, "system.site")
	require.NoError(t, err)
	assert.Equal(t, "/node", got["page"].(map[string]any)["front"])

	got["page"].(map[string]any)["front"] = "/mutated"
	again, err := s.Read(ctx, "system.site")
	require.NoError(t, err)
	assert.Equal(t, "/node", again["page"].(map[string]any)["front"])
}
