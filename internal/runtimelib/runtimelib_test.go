package runtimelib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/runtimelib"
	"github.com/opmodel/weaver/internal/templates"
)

func TestFind(t *testing.T) {
	target := module.New("App", "1.0.0.0")
	refs, err := runtimelib.Find(target, module.NewRegistry(templates.Corlib()))
	require.NoError(t, err)

	assert.Equal(t, []string{runtimelib.Name}, target.References)
	assert.Equal(t, "System.Object", refs.Object.FullName())
	assert.Equal(t, "System.Collections.Generic.Dictionary`2<System.String,System.String>", refs.DictionaryAdd.DeclaringType.FullName())
	assert.Equal(t, "System.Collections.Generic.List`1<System.String>", refs.ListAdd.DeclaringType.FullName())
	assert.Equal(t, module.CtorName, refs.CompilerGenerated.Name)
	assert.True(t, refs.DictionaryAdd.HasThis)
	assert.Equal(t, "System.String", refs.String.FullName())
	assert.Contains(t, refs.Describe(), runtimelib.Name)

	_, _, _, err = module.ResolveMethod(module.NewRegistry(refs.Library), refs.DictionaryAdd)
	assert.NoError(t, err)
}

func TestFind_Missing(t *testing.T) {
	t.Run("no library", func(t *testing.T) {
		_, err := runtimelib.Find(module.New("App", "1.0"), module.NewRegistry())
		require.Error(t, err)
		assert.ErrorIs(t, err, oerrors.ErrWeaving)
		assert.ErrorIs(t, err, oerrors.ErrNotFound)
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := runtimelib.Find(module.New("App", "1.0"), module.NewRegistry(module.New(runtimelib.Name, "2.0")))
		assert.ErrorIs(t, err, oerrors.ErrWeaving)
	})

	t.Run("no object type", func(t *testing.T) {
		_, err := runtimelib.Find(module.New("App", "1.0"), module.NewRegistry(module.New(runtimelib.Name, runtimelib.Version)))
		require.Error(t, err)
		assert.ErrorIs(t, err, oerrors.ErrWeaving)
		assert.Contains(t, err.Error(), "only compatible with the base runtime library")
	})
}
