package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/db2z/ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db2z.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hostname: db2.example.com\n"), 0644))

	p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: path})
	require.NoError(t, err)

	data, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, "hostname: db2.example.com\n", string(data))
}

func TestFileProviderErrors(t *testing.T) {
	_, err := NewFileProviderWithOptions(nil)
	assert.Error(t, err)

	_, err = NewFileProviderWithOptions(&FileProviderOptions{})
	assert.Error(t, err)

	p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
	_, err = p.Load()
	assert.Error(t, err)
}

func TestNewProviderWithOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db2z.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	p, err := NewProviderWithOptions(&ref.TypeOptions{
		Namespace: "github.com/hatlonely/db2z/cfg/provider",
		Type:      "FileProvider",
		Options:   &FileProviderOptions{FilePath: path},
	})
	require.NoError(t, err)
	data, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
