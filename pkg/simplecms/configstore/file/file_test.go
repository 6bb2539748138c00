package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore/file"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore/storagetest"
)

func TestStorage(t *testing.T) {
	s, err := file.New(t.TempDir())
	require.NoError(t, err)
	storagetest.Run(t, s)
}

func TestStorage_YAMLOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.settings.yml"), []byte("use_admin_theme: true\nitems_per_page: 10\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	data, err := s.Read(context.Background(), "node.settings")
	require.NoError(t, err)
	assert.Equal(t, true, data["use_admin_theme"])
	assert.Equal(t, 10, data["items_per_page"])

	names, err := s.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"node.settings"}, names)
}

func TestStorage_BrokenYAML(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node.settings.yml"), []byte("a: [unclosed"), 0o644))

	_, err = s.Read(context.Background(), "node.settings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config node.settings")
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := file.New("")
	assert.Error(t, err)
}
