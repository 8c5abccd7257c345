package clone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/weaver/internal/clone"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/runtimelib"
	"github.com/opmodel/weaver/internal/templates"
)

const stamp = "0123456789ABCDEF0123456789ABCDEF"

func TestSelectVariant(t *testing.T) {
	assert.Equal(t, clone.TempFiles, clone.SelectVariant(true, true))
	assert.Equal(t, clone.TempFiles, clone.SelectVariant(true, false))
	assert.Equal(t, clone.Unmanaged, clone.SelectVariant(false, true))
	assert.Equal(t, clone.Plain, clone.SelectVariant(false, false))
}

func TestClone_BuiltinLoader(t *testing.T) {
	for _, v := range []clone.Variant{clone.Plain, clone.Unmanaged, clone.TempFiles} {
		t.Run(v.String(), func(t *testing.T) {
			lib := templates.Corlib()
			loader := templates.Loader(lib)
			r := module.NewRegistry(lib)
			target := module.New("App", "1.0.0.0")

			refs, err := runtimelib.Find(target, r)
			require.NoError(t, err)

			res, err := clone.Clone(loader, target, r, clone.Options{Variant: v, Stamp: stamp, Attribute: refs.CompilerGenerated})
			require.NoError(t, err)
			require.NoError(t, module.Verify(target, r))

			assert.Equal(t, "Weaver.AssemblyLoader", res.Type.FullName())
			assert.Same(t, res.Type, target.Type(clone.DefaultNamespace, clone.DefaultName))
			require.Len(t, res.Type.CustomAttributes, 1)
			assert.Same(t, refs.CompilerGenerated, res.Type.CustomAttributes[0].Ctor)
			assert.Equal(t, v != clone.Plain, res.StampBound)
			assert.Equal(t, v != clone.Plain, hasString(res.StaticConstructor.Body, stamp))
			assert.False(t, hasString(res.StaticConstructor.Body, clone.StampPlaceholder))

			assert.Equal(t, v != clone.TempFiles, res.Fields.AssemblyNames != nil)
			assert.Equal(t, v == clone.TempFiles, res.Fields.PreloadList != nil)
			assert.Equal(t, v != clone.Plain, res.Fields.Checksums != nil)

			// Helpers are private copies on the loader type.
			common := loader.TypeByName(clone.CommonTypeName)
			for _, m := range res.Type.Methods {
				if common.MethodNamed(m.Name) != nil {
					assert.Equal(t, module.MethodPrivate, m.Attributes&module.MethodAccessMask, m.Name)
				}
			}
			assert.NotNil(t, res.Type.MethodNamed("ReadStream"))
			if v == clone.Plain {
				assert.Nil(t, res.Type.MethodNamed("LoadLibrary"))
				assert.Empty(t, target.ModuleRefs)
			} else {
				ll := res.Type.MethodNamed("LoadLibrary")
				require.NotNil(t, ll)
				assert.Same(t, target.ModuleRef("kernel32"), ll.PInvoke.Module)
				assert.Equal(t, "LoadLibraryW", ll.PInvoke.EntryPoint)
				assert.True(t, ll.IsPreserveSig())
			}
		})
	}
}

func TestClone_PreservesRegions(t *testing.T) {
	lib := templates.Corlib()
	loader := templates.Loader(lib)
	target := module.New("App", "1.0.0.0")

	res, err := clone.Clone(loader, target, module.NewRegistry(lib), clone.Options{Variant: clone.Plain})
	require.NoError(t, err)

	src := loader.TypeByName(clone.PlainTypeName).MethodNamed(clone.ResolveMethodName).Body
	dst := res.ResolveAssembly.Body
	require.Len(t, dst.Handlers, len(src.Handlers))
	for i := range src.Handlers {
		s, d := src.Handlers[i], dst.Handlers[i]
		assert.Equal(t, s.Kind, d.Kind)
		assert.Equal(t, s.TryStart, d.TryStart)
		assert.Equal(t, s.TryEnd, d.TryEnd)
		assert.Equal(t, s.HandlerStart, d.HandlerStart)
		assert.Equal(t, s.HandlerEnd, d.HandlerEnd)
		assert.Equal(t, s.FilterStart, d.FilterStart)
	}
	require.Len(t, dst.Instructions, len(src.Instructions))
	for i, in := range src.Instructions {
		assert.Equal(t, in.Op, dst.Instructions[i].Op)
		if l, ok := in.Operand.(module.Label); ok {
			assert.Equal(t, l, dst.Instructions[i].Operand)
		}
	}
}

func TestClone_AlreadyWoven(t *testing.T) {
	lib := templates.Corlib()
	loader := templates.Loader(lib)
	r := module.NewRegistry(lib)
	target := module.New("App", "1.0.0.0")

	_, err := clone.Clone(loader, target, r, clone.Options{Variant: clone.Plain})
	require.NoError(t, err)
	_, err = clone.Clone(loader, target, r, clone.Options{Variant: clone.Plain})
	assert.ErrorIs(t, err, oerrors.ErrWeaving)
}

func TestClone_MissingVariant(t *testing.T) {
	tpl := module.New("Tpl", "1.0")
	_, err := clone.Clone(tpl, module.New("App", "1.0"), module.NewRegistry(), clone.Options{})
	assert.ErrorIs(t, err, oerrors.ErrWeaving)
}

var (
	tObject = module.NamedType(runtimelib.Name, "System", "Object")
	tVoid   = module.NamedType(runtimelib.Name, "System", "Void")
	tInt32  = module.NamedType(runtimelib.Name, "System", "Int32")
)

// miniTemplate builds a plain loader template whose static constructor runs
// cctor. Extra helper methods go on the Common type.
func miniTemplate(cctor *module.Body, helpers ...*module.MethodDef) *module.Module {
	tpl := module.New("Tpl", "1.0")
	tpl.AddReference(runtimelib.Name)
	static := module.MethodPrivate | module.MethodStatic
	ret := &module.Body{Instructions: []module.Instruction{module.Ins(module.Ret, nil)}}
	loader := &module.TypeDef{
		Name:     clone.PlainTypeName,
		BaseType: tObject,
		Fields: []*module.FieldDef{
			{Name: clone.AssemblyNamesField, Attributes: module.FieldStatic, Type: tObject},
		},
		Methods: []*module.MethodDef{
			{Name: module.StaticCtorName, Attributes: static | module.MethodSpecialName | module.MethodRTSpecialName, ReturnType: tVoid, Body: cctor},
			{Name: clone.AttachMethodName, Attributes: static, ReturnType: tVoid, Body: ret},
			{Name: clone.ResolveMethodName, Attributes: static, ReturnType: tObject, Body: &module.Body{Instructions: []module.Instruction{
				module.Ins(module.Ldnull, nil),
				module.Ins(module.Ret, nil),
			}}},
		},
	}
	common := &module.TypeDef{Name: clone.CommonTypeName, BaseType: tObject, Methods: helpers}
	for _, t := range []*module.TypeDef{loader, common} {
		if err := tpl.AddType(t); err != nil {
			panic(err)
		}
	}
	return tpl
}

func body(ins ...module.Instruction) *module.Body {
	return &module.Body{Instructions: append(ins, module.Ins(module.Ret, nil))}
}

func commonRef(name string, params ...*module.TypeRef) *module.MethodRef {
	return &module.MethodRef{
		DeclaringType: module.NamedType("Tpl", "", clone.CommonTypeName),
		Name:          name,
		ReturnType:    tVoid,
		Params:        params,
	}
}

func TestClone_Stamp(t *testing.T) {
	lib := templates.Corlib()

	t.Run("bound once", func(t *testing.T) {
		tpl := miniTemplate(body(
			module.Ins(module.Ldstr, module.String(clone.StampPlaceholder)),
			module.Ins(module.Pop, nil),
		))
		res, err := clone.Clone(tpl, module.New("App", "1.0"), module.NewRegistry(lib), clone.Options{Stamp: stamp})
		require.NoError(t, err)
		assert.True(t, res.StampBound)
		assert.Equal(t, module.String(stamp), res.StaticConstructor.Body.Instructions[0].Operand)
	})

	t.Run("bound twice", func(t *testing.T) {
		tpl := miniTemplate(body(
			module.Ins(module.Ldstr, module.String(clone.StampPlaceholder)),
			module.Ins(module.Ldstr, module.String(clone.StampPlaceholder)),
			module.Ins(module.Pop, nil),
			module.Ins(module.Pop, nil),
		))
		_, err := clone.Clone(tpl, module.New("App", "1.0"), module.NewRegistry(lib), clone.Options{Stamp: stamp})
		require.Error(t, err)
		assert.ErrorIs(t, err, oerrors.ErrConsistency)
		assert.NotErrorIs(t, err, oerrors.ErrWeaving)
	})
}

func TestClone_MissingField(t *testing.T) {
	tpl := miniTemplate(body(
		module.Ins(module.Ldsfld, &module.FieldRef{
			DeclaringType: module.NamedType("Tpl", "", clone.PlainTypeName),
			Name:          "nonexistent",
			Type:          tObject,
		}),
		module.Ins(module.Pop, nil),
	))
	_, err := clone.Clone(tpl, module.New("App", "1.0"), module.NewRegistry(templates.Corlib()), clone.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrConsistency)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestClone_UnresolvableRuntimeSymbol(t *testing.T) {
	tpl := miniTemplate(body(
		module.Ins(module.Call, &module.MethodRef{
			DeclaringType: tObject,
			Name:          "Missing",
			ReturnType:    tVoid,
		}),
	))
	_, err := clone.Clone(tpl, module.New("App", "1.0"), module.NewRegistry(templates.Corlib()), clone.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrWeaving)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestClone_CatchType(t *testing.T) {
	lib := templates.Corlib()
	exception := module.NamedType(runtimelib.Name, "System", "Exception")

	cctor := &module.Body{Instructions: []module.Instruction{
		module.Ins(module.Nop, nil),
		module.Ins(module.Leave, module.Label(4)),
		module.Ins(module.Pop, nil),
		module.Ins(module.Leave, module.Label(4)),
		module.Ins(module.Ret, nil),
	}}
	h := module.NewExceptionHandler(module.HandlerCatch)
	h.TryStart, h.TryEnd = 0, 2
	h.HandlerStart, h.HandlerEnd = 2, 4
	h.CatchType = exception
	cctor.Handlers = append(cctor.Handlers, h)

	target := module.New("App", "1.0")
	r := module.NewRegistry(lib)
	res, err := clone.Clone(miniTemplate(cctor), target, r, clone.Options{})
	require.NoError(t, err)
	require.NoError(t, module.Verify(target, r))

	handlers := res.StaticConstructor.Body.Handlers
	require.Len(t, handlers, 1)
	got := handlers[0]
	assert.Equal(t, module.HandlerCatch, got.Kind)
	assert.Equal(t, []module.Label{0, 2, 2, 4, module.NoLabel},
		[]module.Label{got.TryStart, got.TryEnd, got.HandlerStart, got.HandlerEnd, got.FilterStart})
	require.NotNil(t, got.CatchType)
	assert.NotSame(t, exception, got.CatchType)
	assert.True(t, exception.Equal(got.CatchType))
	assert.Contains(t, target.References, runtimelib.Name)
}

func TestClone_GenericArguments(t *testing.T) {
	lib := templates.Corlib()
	other := module.New("Lib", "1.0")
	for _, name := range []string{"X", "Y"} {
		require.NoError(t, other.AddType(&module.TypeDef{Namespace: "Lib", Name: name, BaseType: tObject}))
	}
	x := module.NamedType("Lib", "Lib", "X")
	y := module.NamedType("Lib", "Lib", "Y")

	dict := lib.Type("System.Collections.Generic", "Dictionary`2")
	open := module.NamedType(runtimelib.Name, "System.Collections.Generic", "Dictionary`2")
	ctor := dict.Method(module.CtorName, 0).Ref(open).MakeHostInstanceGeneric(x, y)

	tpl := miniTemplate(body(
		module.Ins(module.Newobj, ctor),
		module.Ins(module.Pop, nil),
	))
	target := module.New("App", "1.0")
	r := module.NewRegistry(lib, other)
	res, err := clone.Clone(tpl, target, r, clone.Options{})
	require.NoError(t, err)
	require.NoError(t, module.Verify(target, r))

	got, ok := res.StaticConstructor.Body.Instructions[0].Operand.(*module.MethodRef)
	require.True(t, ok)
	assert.NotSame(t, ctor, got)
	assert.Equal(t, "System.Collections.Generic.Dictionary`2<Lib.X,Lib.Y>", got.DeclaringType.FullName())
	assert.Equal(t, []string{runtimelib.Name, "Lib", "Lib"}, got.DeclaringType.Scopes())
	assert.ElementsMatch(t, []string{runtimelib.Name, "Lib"}, target.References)
}

func TestClone_OnDemandRecursion(t *testing.T) {
	loop := func(self, next string) *module.MethodDef {
		return &module.MethodDef{
			Name:       self,
			Attributes: module.MethodPublic | module.MethodStatic,
			ReturnType: tVoid,
			Params:     []*module.Param{{Name: "n", Type: tInt32}},
			Body: body(
				module.Ins(module.Ldarg, module.Arg(0)),
				module.Ins(module.Call, commonRef(next, tInt32)),
			),
		}
	}
	tpl := miniTemplate(body(
		module.Ins(module.LdcI4, module.Int32(3)),
		module.Ins(module.Call, commonRef("Ping", tInt32)),
	), loop("Ping", "Pong"), loop("Pong", "Ping"), loop("Unused", "Unused"))

	target := module.New("App", "1.0")
	r := module.NewRegistry(templates.Corlib())
	res, err := clone.Clone(tpl, target, r, clone.Options{})
	require.NoError(t, err)
	require.NoError(t, module.Verify(target, r))

	ping, pong := res.Type.MethodNamed("Ping"), res.Type.MethodNamed("Pong")
	require.NotNil(t, ping)
	require.NotNil(t, pong)
	assert.Nil(t, res.Type.MethodNamed("Unused"))
	assert.Equal(t, module.MethodPrivate, ping.Attributes&module.MethodAccessMask)

	back, ok := pong.Body.Instructions[1].Operand.(*module.MethodRef)
	require.True(t, ok)
	assert.Equal(t, "Ping", back.Name)
	assert.Same(t, res.Ref, back.DeclaringType)
	require.Len(t, back.Params, 1)
	assert.Equal(t, "System.Int32", back.Params[0].FullName())
}

func TestClone_NamespaceAndName(t *testing.T) {
	target := module.New("App", "1.0")
	res, err := clone.Clone(miniTemplate(body()), target, module.NewRegistry(templates.Corlib()),
		clone.Options{Namespace: "My", Name: "Loader"})
	require.NoError(t, err)
	assert.Equal(t, "My.Loader", res.Type.FullName())
	assert.NotNil(t, res.Fields.AssemblyNames)
	assert.Nil(t, res.Fields.Checksums)
}

func hasString(b *module.Body, s string) bool {
	for _, in := range b.Instructions {
		if v, ok := in.Operand.(module.String); ok && string(v) == s {
			return true
		}
	}
	return false
}
