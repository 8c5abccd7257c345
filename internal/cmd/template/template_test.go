package template

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/weaver/internal/cmdtypes"
	"github.com/opmodel/weaver/internal/modfile"
	"github.com/opmodel/weaver/internal/templates"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := NewTemplateCmd(&cmdtypes.GlobalConfig{})
	c.SetArgs(args)
	return c.Execute()
}

func TestDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, execute(t, "dump", dir))

	for _, tpl := range templates.List() {
		m, err := modfile.ReadFile(filepath.Join(dir, tpl.FileName()))
		require.NoError(t, err, tpl.Name)
		assert.NotEmpty(t, m.Types, tpl.Name)
	}
}

func TestShow(t *testing.T) {
	assert.NoError(t, execute(t, "show"))
	assert.NoError(t, execute(t, "show", "corlib"))

	err := execute(t, "show", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid templates: corlib, loader")
}

func TestList(t *testing.T) {
	assert.NoError(t, execute(t, "list"))
}
