package templates

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/weaver/internal/modfile"
	"github.com/opmodel/weaver/internal/module"
)

func TestGet(t *testing.T) {
	tmpl, err := Get("loader")
	require.NoError(t, err)
	assert.True(t, tmpl.Default)
	assert.Equal(t, LoaderName, tmpl.Build().Name)

	_, err = Get("nope")
	assert.ErrorContains(t, err, `unknown template "nope"`)
}

func TestList(t *testing.T) {
	assert.Len(t, List(), len(Names()))
	assert.Equal(t, "loader", GetDefault().Name)
}

func TestNewRegistry(t *testing.T) {
	r, loader := NewRegistry()
	got, err := r.Resolve(module.Name{Name: LoaderName})
	require.NoError(t, err)
	assert.Same(t, loader, got)
}

func TestDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := Dump(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	lib, err := modfile.ReadFile(filepath.Join(dir, "corlib.yaml"))
	require.NoError(t, err)
	loader, err := modfile.ReadFile(filepath.Join(dir, "loader.yaml"))
	require.NoError(t, err)
	assert.NoError(t, module.Verify(loader, module.NewRegistry(lib)))
}
