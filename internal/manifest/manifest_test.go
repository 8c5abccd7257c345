package manifest

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/weaver/internal/cache"
	"github.com/opmodel/weaver/internal/embed"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/templates"
	"github.com/opmodel/weaver/internal/testutil"
	"github.com/opmodel/weaver/internal/weaver"
)

func weave(t *testing.T, files map[string]string) *Manifest {
	t.Helper()
	dir := t.TempDir()
	var deps []string
	for _, name := range slices.Sorted(maps.Keys(files)) {
		deps = append(deps, testutil.WriteFile(t, dir, name, files[name]))
	}
	store, err := cache.Open(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	r, loader := templates.NewRegistry()

	res, err := weaver.Run(context.Background(), weaver.Inputs{
		Module:    module.New("App", "1.0.0.0"),
		Template:  loader,
		Resolver:  r,
		Cache:     store,
		CopyLocal: deps,
		Embed:     embed.Options{IncludeDebugSymbols: true, OptOut: true},
	})
	require.NoError(t, err)
	return FromResult(res)
}

func TestFromResult(t *testing.T) {
	m := weave(t, map[string]string{"A.dll": "assembly a", "B.dll": "assembly b", "B.pdb": "symbols b"})

	assert.Equal(t, "App", m.Module)
	assert.Equal(t, "plain", m.Variant)
	assert.Equal(t, "Weaver.AssemblyLoader", m.Loader)
	assert.Len(t, m.Stamp, 32)
	require.Len(t, m.Resources, 3)

	pdb := m.Resources[2]
	assert.Equal(t, "weaver.b.pdb.zip", pdb.Name)
	assert.Equal(t, "weaver", pdb.Category)
	assert.Equal(t, "b", pdb.Logical)
	assert.Equal(t, "pdb", pdb.Extension)
	assert.True(t, pdb.Compressed)
	assert.Equal(t, "symbols", pdb.Table)
	assert.Len(t, pdb.Checksum, 40)
	assert.Empty(t, pdb.Source)
}

func TestReadWriteFile(t *testing.T) {
	m := weave(t, map[string]string{"A.dll": "assembly a"})
	path := filepath.Join(t.TempDir(), "weaver.manifest.yaml")
	require.NoError(t, WriteFile(path, m))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDiff(t *testing.T) {
	old := weave(t, map[string]string{"A.dll": "assembly a"})
	cur := weave(t, map[string]string{"A.dll": "assembly A"})

	a, err := Marshal(old)
	require.NoError(t, err)
	b, err := Marshal(cur)
	require.NoError(t, err)

	t.Run("identical", func(t *testing.T) {
		diff, err := Diff(a, a, false)
		require.NoError(t, err)
		assert.Empty(t, diff)
	})

	t.Run("changed payload", func(t *testing.T) {
		diff, err := Diff(a, b, false)
		require.NoError(t, err)
		assert.Contains(t, diff, "stamp")
		assert.Contains(t, diff, cur.Stamp)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Diff([]byte("a: [unclosed"), b, false)
		assert.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	old := weave(t, map[string]string{"A.dll": "assembly a", "B.dll": "assembly b"})
	cur := weave(t, map[string]string{"A.dll": "assembly A", "C.dll": "assembly c"})

	c, err := Compare(old, cur, false)
	require.NoError(t, err)
	assert.False(t, c.Empty())
	assert.Equal(t, []string{"weaver.c.dll.zip"}, c.Added)
	assert.Equal(t, []string{"weaver.b.dll.zip"}, c.Removed)
	require.Len(t, c.Modified, 1)
	assert.Equal(t, "weaver.a.dll.zip", c.Modified[0].Name)
	assert.Contains(t, c.Modified[0].Diff, "checksum")

	same, err := Compare(old, old, false)
	require.NoError(t, err)
	assert.True(t, same.Empty())
}

func TestDescribe(t *testing.T) {
	t.Run("weaver resource", func(t *testing.T) {
		r := Describe(&module.Resource{Name: "weaver64.native.dll", Data: []byte("x")})
		assert.Equal(t, "weaver64", r.Category)
		assert.Equal(t, "native", r.Logical)
		assert.False(t, r.Compressed)
		assert.Equal(t, 1, r.Size)
	})

	t.Run("foreign resource", func(t *testing.T) {
		r := Describe(&module.Resource{Name: "App.Strings", Data: []byte("abc")})
		assert.Equal(t, "App.Strings", r.Name)
		assert.Empty(t, r.Category)
		assert.Equal(t, 3, r.Size)
	})
}
