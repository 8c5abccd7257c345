package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/weaver/internal/clone"
	"github.com/opmodel/weaver/internal/module"
)

func TestLoader_Verifies(t *testing.T) {
	lib := Corlib()
	loader := Loader(lib)
	require.NoError(t, module.Verify(loader, module.NewRegistry(lib)))
	require.NoError(t, module.Verify(lib, module.NewRegistry()))
}

func TestLoader_Variants(t *testing.T) {
	loader := Loader(Corlib())
	require.NotNil(t, loader.TypeByName(clone.CommonTypeName))

	tests := []struct {
		variant clone.Variant
		fields  []string
		stamp   bool
	}{
		{clone.Plain, []string{"assemblyNames", "symbolNames", "isAttached"}, false},
		{clone.Unmanaged, []string{"assemblyNames", "symbolNames", "preload32List", "preload64List", "checksums", "tempBasePath", "isAttached"}, true},
		{clone.TempFiles, []string{"preloadList", "preload32List", "preload64List", "checksums", "tempBasePath", "isAttached"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			typ := loader.TypeByName(tt.variant.TypeName())
			require.NotNil(t, typ)

			var names []string
			for _, f := range typ.Fields {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.fields, names)

			require.NotNil(t, typ.StaticConstructor())
			require.NotNil(t, typ.MethodNamed(clone.AttachMethodName))
			require.NotNil(t, typ.MethodNamed(clone.ResolveMethodName))
			assert.Equal(t, tt.stamp, hasStamp(typ.StaticConstructor().Body))
		})
	}
}

func TestLoader_ResolveUsesFilter(t *testing.T) {
	loader := Loader(Corlib())
	body := loader.TypeByName(clone.PlainTypeName).MethodNamed(clone.ResolveMethodName).Body
	require.Len(t, body.Handlers, 1)
	h := body.Handlers[0]
	assert.Equal(t, module.HandlerFilter, h.Kind)
	assert.Equal(t, h.TryEnd, h.FilterStart)
	assert.Equal(t, module.Endfilter, body.Instructions[h.HandlerStart-1].Op)
}

func TestLoader_PInvoke(t *testing.T) {
	loader := Loader(Corlib())
	m := loader.TypeByName(clone.CommonTypeName).MethodNamed("LoadLibrary")
	require.NotNil(t, m)
	assert.True(t, m.IsPInvokeImpl())
	assert.True(t, m.IsPreserveSig())
	assert.Nil(t, m.Body)
	require.NotNil(t, m.PInvoke)
	assert.Equal(t, "LoadLibraryW", m.PInvoke.EntryPoint)
	assert.Same(t, loader.ModuleRef("kernel32"), m.PInvoke.Module)
}

func hasStamp(b *module.Body) bool {
	for _, in := range b.Instructions {
		if s, ok := in.Operand.(module.String); ok && in.Op == module.Ldstr && string(s) == clone.StampPlaceholder {
			return true
		}
	}
	return false
}
