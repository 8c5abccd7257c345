package templates

import (
	"fmt"

	"github.com/opmodel/weaver/internal/clone"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/runtimelib"
)

// Identity of the built-in loader template module.
const (
	LoaderName    = "Weaver.Template"
	LoaderVersion = "1.0.0.0"
)

const (
	staticClass   = module.TypeAbstract | module.TypeSealed | module.TypeBeforeFieldInit
	privateStatic = module.MethodPrivate | module.MethodStatic | module.MethodHideBySig
	cctorAttrs    = privateStatic | module.MethodSpecialName | module.MethodRTSpecialName
	staticField   = module.FieldPrivate | module.FieldStatic
)

type loaderBuilder struct {
	lib *module.Module
	m   *module.Module

	common    *module.TypeRef
	helpers   map[string]*module.MethodDef
	variantOf *module.TypeRef
	fields    map[string]*module.FieldDef
}

// Loader builds the loader template module against the runtime library lib:
// one template type per clone.Variant plus the shared helper type.
func Loader(lib *module.Module) *module.Module {
	b := &loaderBuilder{
		lib:     lib,
		m:       module.New(LoaderName, LoaderVersion),
		common:  module.NamedType(LoaderName, "", clone.CommonTypeName),
		helpers: make(map[string]*module.MethodDef),
	}
	b.m.AddReference(runtimelib.Name)

	b.add(b.buildCommon())
	b.add(b.buildVariant(clone.Plain))
	b.add(b.buildVariant(clone.Unmanaged))
	b.add(b.buildVariant(clone.TempFiles))
	return b.m
}

func (b *loaderBuilder) add(t *module.TypeDef) {
	if err := b.m.AddType(t); err != nil {
		panic(err)
	}
}

// call references a runtime library method. For a generic instance the
// method is taken from the open type and instantiated again.
func (b *loaderBuilder) call(t *module.TypeRef, name string, params int) *module.MethodRef {
	open := t.ElementType()
	def := b.lib.Type(open.Namespace, open.Name)
	if def == nil {
		panic(fmt.Sprintf("templates: runtime library has no %s", open.FullName()))
	}
	m := def.Method(name, params)
	if m == nil {
		panic(fmt.Sprintf("templates: %s has no %s/%d", open.FullName(), name, params))
	}
	ref := m.Ref(open)
	if t.IsGenericInstance() {
		ref = ref.MakeHostInstanceGeneric(t.Args...)
	}
	return ref
}

// helper references a method of the shared helper type.
func (b *loaderBuilder) helper(name string) *module.MethodRef {
	m, ok := b.helpers[name]
	if !ok {
		panic(fmt.Sprintf("templates: no helper %s", name))
	}
	return m.Ref(b.common)
}

// field references a field of the template type being built.
func (b *loaderBuilder) field(name string) *module.FieldRef {
	f, ok := b.fields[name]
	if !ok {
		panic(fmt.Sprintf("templates: no field %s", name))
	}
	return &module.FieldRef{DeclaringType: b.variantOf, Name: f.Name, Type: f.Type}
}

func params(names []string, types ...*module.TypeRef) []*module.Param {
	out := make([]*module.Param, len(types))
	for i, t := range types {
		out[i] = &module.Param{Name: names[i], Type: t}
	}
	return out
}

func (b *loaderBuilder) buildCommon() *module.TypeDef {
	t := &module.TypeDef{Name: clone.CommonTypeName, Attributes: staticClass, BaseType: tObject}
	def := func(name string, ret *module.TypeRef, p []*module.Param, body *module.Body) {
		m := &module.MethodDef{Name: name, Attributes: publicStatic, ReturnType: ret, Params: p, Body: body}
		t.Methods = append(t.Methods, m)
		b.helpers[name] = m
	}

	t.Methods = append(t.Methods, &module.MethodDef{
		Name:           "LoadLibrary",
		Attributes:     privateStatic | module.MethodPInvokeImpl,
		ImplAttributes: module.ImplPreserveSig,
		ReturnType:     tIntPtr,
		Params:         params([]string{"path"}, tString),
		PInvoke: &module.PInvokeInfo{
			Attributes: module.PInvokeCharSetUnicode | module.PInvokeSupportsLastErr | module.PInvokeCallConvWinapi,
			EntryPoint: "LoadLibraryW",
			Module:     b.m.ModuleRef("kernel32"),
		},
	})
	b.helpers["LoadLibrary"] = t.Methods[0]

	def("ReadStream", tBytes, params([]string{"stream"}, tStream), newAsm(tMemory, tBytes).
		emit(module.Newobj, b.call(tMemory, module.CtorName, 0)).
		emit(module.Stloc, module.Local(0)).
		mark("try").
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Ldloc, module.Local(0)).
		emit(module.Callvirt, b.call(tStream, "CopyTo", 1)).
		emit(module.Ldloc, module.Local(0)).
		emit(module.Callvirt, b.call(tMemory, "ToArray", 0)).
		emit(module.Stloc, module.Local(1)).
		branch(module.Leave, "done").
		mark("finally").
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Callvirt, b.call(tStream, "Dispose", 0)).
		op(module.Endfinally).
		mark("done").
		emit(module.Ldloc, module.Local(1)).
		op(module.Ret).
		try(module.HandlerFinally, "try", "finally", "finally", "done", "", nil).
		build())

	def("LoadStream", tStream, params([]string{"resource"}, tString), newAsm(tStream).
		emit(module.Call, b.call(tAssembly, "GetExecutingAssembly", 0)).
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Callvirt, b.call(tAssembly, "GetManifestResourceStream", 1)).
		emit(module.Stloc, module.Local(0)).
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Ldstr, module.String(".zip")).
		emit(module.Callvirt, b.call(tString, "EndsWith", 1)).
		branch(module.Brfalse, "raw").
		emit(module.Ldloc, module.Local(0)).
		emit(module.LdcI4, module.Int32(0)).
		emit(module.Newobj, b.call(tDeflate, module.CtorName, 2)).
		op(module.Ret).
		mark("raw").
		emit(module.Ldloc, module.Local(0)).
		op(module.Ret).
		build())

	def("ReadFromEmbeddedResources", tAssembly,
		params([]string{"assemblyNames", "symbolNames", "requested"}, tStringDictionary, tStringDictionary, tAsmName),
		newAsm(tString, tBytes).
			emit(module.Ldarg, module.Arg(2)).
			emit(module.Callvirt, b.call(tAsmName, "get_Name", 0)).
			emit(module.Callvirt, b.call(tString, "ToLowerInvariant", 0)).
			emit(module.Stloc, module.Local(0)).
			emit(module.Ldarg, module.Arg(0)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Callvirt, b.call(tStringDictionary, "ContainsKey", 1)).
			branch(module.Brtrue, "found").
			op(module.Ldnull, module.Ret).
			mark("found").
			emit(module.Ldarg, module.Arg(0)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Callvirt, b.call(tStringDictionary, "get_Item", 1)).
			emit(module.Call, b.helper("LoadStream")).
			emit(module.Call, b.helper("ReadStream")).
			emit(module.Stloc, module.Local(1)).
			emit(module.Ldarg, module.Arg(1)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Callvirt, b.call(tStringDictionary, "ContainsKey", 1)).
			branch(module.Brfalse, "nosymbols").
			emit(module.Ldloc, module.Local(1)).
			emit(module.Ldarg, module.Arg(1)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Callvirt, b.call(tStringDictionary, "get_Item", 1)).
			emit(module.Call, b.helper("LoadStream")).
			emit(module.Call, b.helper("ReadStream")).
			emit(module.Call, b.call(tAssembly, "Load", 2)).
			op(module.Ret).
			mark("nosymbols").
			emit(module.Ldloc, module.Local(1)).
			emit(module.Call, b.call(tAssembly, "Load", 1)).
			op(module.Ret).
			build())

	def("ExtractResource", tString, params([]string{"directory", "resource"}, tString, tString), newAsm(tString).
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Ldstr, module.String(".zip")).
		emit(module.Ldstr, module.String("")).
		emit(module.Callvirt, b.call(tString, "Replace", 2)).
		emit(module.Call, b.call(sys("System.IO", "Path"), "Combine", 2)).
		emit(module.Stloc, module.Local(0)).
		emit(module.Ldloc, module.Local(0)).
		emit(module.Call, b.call(sys("System.IO", "File"), "Exists", 1)).
		branch(module.Brtrue, "done").
		emit(module.Ldloc, module.Local(0)).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Call, b.helper("LoadStream")).
		emit(module.Call, b.helper("ReadStream")).
		emit(module.Call, b.call(sys("System.IO", "File"), "WriteAllBytes", 2)).
		mark("done").
		emit(module.Ldloc, module.Local(0)).
		op(module.Ret).
		build())

	def("ExtractAll", tVoid, params([]string{"directory", "resources"}, tString, tStringList), b.forEach(false))
	def("PreloadUnmanagedLibraries", tVoid, params([]string{"directory", "libraries"}, tString, tStringList), b.forEach(true))

	def("ReadFromDisk", tAssembly, params([]string{"directory", "requested"}, tString, tAsmName), newAsm(tString).
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Ldstr, module.String("weaver.")).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Callvirt, b.call(tAsmName, "get_Name", 0)).
		emit(module.Callvirt, b.call(tString, "ToLowerInvariant", 0)).
		emit(module.Call, b.call(tString, "Concat", 2)).
		emit(module.Ldstr, module.String(".dll")).
		emit(module.Call, b.call(tString, "Concat", 2)).
		emit(module.Call, b.call(sys("System.IO", "Path"), "Combine", 2)).
		emit(module.Stloc, module.Local(0)).
		emit(module.Ldloc, module.Local(0)).
		emit(module.Call, b.call(sys("System.IO", "File"), "Exists", 1)).
		branch(module.Brtrue, "load").
		op(module.Ldnull, module.Ret).
		mark("load").
		emit(module.Ldloc, module.Local(0)).
		emit(module.Call, b.call(tAssembly, "LoadFile", 1)).
		op(module.Ret).
		build())

	return t
}

// forEach builds a loop extracting every listed resource into a directory,
// loading each extracted file as a native library when load is set.
func (b *loaderBuilder) forEach(load bool) *module.Body {
	a := newAsm(tInt32).
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Call, b.call(sys("System.IO", "Directory"), "CreateDirectory", 1)).
		op(module.Pop).
		emit(module.LdcI4, module.Int32(0)).
		emit(module.Stloc, module.Local(0)).
		branch(module.Br, "cond").
		mark("body").
		emit(module.Ldarg, module.Arg(0)).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Ldloc, module.Local(0)).
		emit(module.Callvirt, b.call(tStringList, "get_Item", 1)).
		emit(module.Call, b.helper("ExtractResource"))
	if load {
		a.emit(module.Call, b.helper("LoadLibrary"))
	}
	return a.
		op(module.Pop).
		emit(module.Ldloc, module.Local(0)).
		emit(module.LdcI4, module.Int32(1)).
		op(module.Add).
		emit(module.Stloc, module.Local(0)).
		mark("cond").
		emit(module.Ldloc, module.Local(0)).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Callvirt, b.call(tStringList, "get_Count", 0)).
		branch(module.Blt, "body").
		op(module.Ret).
		build()
}

type fieldSpec struct {
	name string
	typ  *module.TypeRef
}

// variantFields lists the static fields of each template type.
func variantFields(v clone.Variant) []fieldSpec {
	plain := []fieldSpec{
		{clone.AssemblyNamesField, tStringDictionary},
		{clone.SymbolNamesField, tStringDictionary},
	}
	unmanaged := []fieldSpec{
		{clone.Preload32ListField, tStringList},
		{clone.Preload64ListField, tStringList},
		{clone.ChecksumsField, tStringDictionary},
		{tempBasePathField, tString},
	}
	attached := fieldSpec{isAttachedField, tBoolean}
	switch v {
	case clone.Unmanaged:
		return append(append(plain, unmanaged...), attached)
	case clone.TempFiles:
		return append(append([]fieldSpec{{clone.PreloadListField, tStringList}}, unmanaged...), attached)
	default:
		return append(plain, attached)
	}
}

const (
	tempBasePathField = "tempBasePath"
	isAttachedField   = "isAttached"
)

func (b *loaderBuilder) buildVariant(v clone.Variant) *module.TypeDef {
	t := &module.TypeDef{Name: v.TypeName(), Attributes: staticClass, BaseType: tObject}
	b.variantOf = module.NamedType(LoaderName, "", t.Name)
	b.fields = make(map[string]*module.FieldDef)
	for _, f := range variantFields(v) {
		def := &module.FieldDef{Name: f.name, Attributes: staticField, Type: f.typ}
		t.Fields = append(t.Fields, def)
		b.fields[f.name] = def
	}

	resolve := &module.MethodDef{
		Name:       clone.ResolveMethodName,
		Attributes: publicStatic,
		ReturnType: tAssembly,
		Params:     params([]string{"sender", "args"}, tObject, tEventArgs),
		Body:       b.resolveBody(v),
	}
	t.Methods = append(t.Methods,
		&module.MethodDef{Name: module.StaticCtorName, Attributes: cctorAttrs, ReturnType: tVoid, Body: b.cctorBody(v)},
		resolve,
	)
	// Attach registers the resolver by reference, so it comes last.
	t.Methods = append(t.Methods, &module.MethodDef{
		Name:       clone.AttachMethodName,
		Attributes: publicStatic,
		ReturnType: tVoid,
		Body:       b.attachBody(v, resolve.Ref(b.variantOf)),
	})
	return t
}

func (b *loaderBuilder) cctorBody(v clone.Variant) *module.Body {
	a := newAsm()
	for _, f := range variantFields(v) {
		switch f.typ {
		case tStringDictionary, tStringList:
			a.emit(module.Newobj, b.call(f.typ, module.CtorName, 0)).
				emit(module.Stsfld, b.field(f.name))
		}
	}
	if v != clone.Plain {
		a.emit(module.Call, b.call(sys("System.IO", "Path"), "GetTempPath", 0)).
			emit(module.Ldstr, module.String(clone.StampPlaceholder)).
			emit(module.Call, b.call(sys("System.IO", "Path"), "Combine", 2)).
			emit(module.Stsfld, b.field(tempBasePathField))
	}
	return a.op(module.Ret).build()
}

func (b *loaderBuilder) attachBody(v clone.Variant, resolve *module.MethodRef) *module.Body {
	a := newAsm().
		emit(module.Ldsfld, b.field(isAttachedField)).
		branch(module.Brfalse, "attach").
		op(module.Ret).
		mark("attach").
		emit(module.LdcI4, module.Int32(1)).
		emit(module.Stsfld, b.field(isAttachedField))
	if v == clone.TempFiles {
		a.emit(module.Ldsfld, b.field(tempBasePathField)).
			emit(module.Ldsfld, b.field(clone.PreloadListField)).
			emit(module.Call, b.helper("ExtractAll"))
	}
	if v != clone.Plain {
		a.emit(module.Call, b.call(sys("System", "Environment"), "get_Is64BitProcess", 0)).
			branch(module.Brtrue, "x64").
			emit(module.Ldsfld, b.field(tempBasePathField)).
			emit(module.Ldsfld, b.field(clone.Preload32ListField)).
			emit(module.Call, b.helper("PreloadUnmanagedLibraries")).
			branch(module.Br, "register").
			mark("x64").
			emit(module.Ldsfld, b.field(tempBasePathField)).
			emit(module.Ldsfld, b.field(clone.Preload64ListField)).
			emit(module.Call, b.helper("PreloadUnmanagedLibraries")).
			mark("register")
	}
	return a.
		emit(module.Call, b.call(tAppDomain, "get_CurrentDomain", 0)).
		op(module.Ldnull).
		emit(module.Ldftn, resolve).
		emit(module.Newobj, b.call(tHandler, module.CtorName, 2)).
		emit(module.Callvirt, b.call(tAppDomain, "add_AssemblyResolve", 1)).
		op(module.Ret).
		build()
}

// resolveBody loads the requested assembly inside a filtered region so that
// a failure to load yields null instead of an exception.
func (b *loaderBuilder) resolveBody(v clone.Variant) *module.Body {
	a := newAsm(tAsmName, tAssembly).
		emit(module.Ldarg, module.Arg(1)).
		emit(module.Callvirt, b.call(tEventArgs, "get_Name", 0)).
		emit(module.Newobj, b.call(tAsmName, module.CtorName, 1)).
		emit(module.Stloc, module.Local(0)).
		mark("try")
	if v == clone.TempFiles {
		a.emit(module.Ldsfld, b.field(tempBasePathField)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Call, b.helper("ReadFromDisk"))
	} else {
		a.emit(module.Ldsfld, b.field(clone.AssemblyNamesField)).
			emit(module.Ldsfld, b.field(clone.SymbolNamesField)).
			emit(module.Ldloc, module.Local(0)).
			emit(module.Call, b.helper("ReadFromEmbeddedResources"))
	}
	return a.
		emit(module.Stloc, module.Local(1)).
		branch(module.Leave, "done").
		mark("filter").
		emit(module.Isinst, tException).
		op(module.Ldnull, module.Ceq).
		emit(module.LdcI4, module.Int32(0)).
		op(module.Ceq, module.Endfilter).
		mark("handler").
		op(module.Pop).
		branch(module.Leave, "done").
		mark("done").
		emit(module.Ldloc, module.Local(1)).
		op(module.Ret).
		try(module.HandlerFilter, "try", "filter", "handler", "done", "filter", nil).
		build()
}
