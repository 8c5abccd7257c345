package templates

import (
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/runtimelib"
)

const (
	publicStatic   = module.MethodPublic | module.MethodStatic | module.MethodHideBySig
	publicInstance = module.MethodPublic | module.MethodHideBySig
	ctorAttrs      = module.MethodPublic | module.MethodHideBySig | module.MethodSpecialName | module.MethodRTSpecialName
)

func sys(ns, name string) *module.TypeRef {
	return module.NamedType(runtimelib.Name, ns, name)
}

// Runtime library types used by the loader templates.
var (
	tObject     = sys("System", "Object")
	tVoid       = sys("System", "Void")
	tString     = sys("System", "String")
	tBoolean    = sys("System", "Boolean")
	tInt32      = sys("System", "Int32")
	tIntPtr     = sys("System", "IntPtr")
	tByte       = sys("System", "Byte")
	tException  = sys("System", "Exception")
	tAppDomain  = sys("System", "AppDomain")
	tHandler    = sys("System", "ResolveEventHandler")
	tEventArgs  = sys("System", "ResolveEventArgs")
	tAssembly   = sys("System.Reflection", "Assembly")
	tAsmName    = sys("System.Reflection", "AssemblyName")
	tStream     = sys("System.IO", "Stream")
	tMemory     = sys("System.IO", "MemoryStream")
	tDeflate    = sys("System.IO.Compression", "DeflateStream")
	tDictionary = sys("System.Collections.Generic", "Dictionary`2")
	tList       = sys("System.Collections.Generic", "List`1")

	tBytes            = tByte.MakeArray()
	tStringDictionary = tDictionary.MakeGenericInstance(tString, tString)
	tStringList       = tList.MakeGenericInstance(tString)
)

func method(name string, attrs module.MethodAttributes, ret *module.TypeRef, params ...*module.TypeRef) *module.MethodDef {
	m := &module.MethodDef{Name: name, Attributes: attrs, ReturnType: ret}
	for i, p := range params {
		m.Params = append(m.Params, &module.Param{Name: paramName(i), Type: p})
	}
	return m
}

func paramName(i int) string {
	return string(rune('a' + i))
}

func ctor(params ...*module.TypeRef) *module.MethodDef {
	return method(module.CtorName, ctorAttrs, tVoid, params...)
}

func class(ref *module.TypeRef, base *module.TypeRef, methods ...*module.MethodDef) *module.TypeDef {
	return &module.TypeDef{
		Namespace:  ref.Namespace,
		Name:       ref.Name,
		Attributes: module.TypePublic,
		BaseType:   base,
		Methods:    methods,
	}
}

// Corlib builds the surface of the base runtime library that the loader
// templates reference. Only signatures are present; no method has a body.
func Corlib() *module.Module {
	m := module.New(runtimelib.Name, runtimelib.Version)
	types := []*module.TypeDef{
		class(tObject, nil, ctor()),
		class(tVoid, nil),
		class(tString, tObject,
			method("ToLowerInvariant", publicInstance, tString),
			method("EndsWith", publicInstance, tBoolean, tString),
			method("Concat", publicStatic, tString, tString, tString),
			method("Replace", publicInstance, tString, tString, tString),
		),
		class(tBoolean, nil),
		class(tInt32, nil),
		class(tIntPtr, nil),
		class(tByte, nil),
		class(tException, tObject, ctor()),
		class(tAppDomain, tObject,
			method("get_CurrentDomain", publicStatic|module.MethodSpecialName, tAppDomain),
			method("add_AssemblyResolve", publicInstance|module.MethodSpecialName, tVoid, tHandler),
		),
		class(tHandler, tObject, ctor(tObject, tIntPtr)),
		class(tEventArgs, tObject, method("get_Name", publicInstance|module.MethodSpecialName, tString)),
		class(sys("System", "Environment"), tObject,
			method("get_Is64BitProcess", publicStatic|module.MethodSpecialName, tBoolean),
		),
		class(tAssembly, tObject,
			method("GetExecutingAssembly", publicStatic, tAssembly),
			method("GetManifestResourceStream", publicInstance|module.MethodVirtual, tStream, tString),
			method("Load", publicStatic, tAssembly, tBytes),
			method("Load", publicStatic, tAssembly, tBytes, tBytes),
			method("LoadFile", publicStatic, tAssembly, tString),
		),
		class(tAsmName, tObject,
			ctor(tString),
			method("get_Name", publicInstance|module.MethodSpecialName, tString),
		),
		class(tStream, tObject,
			method("CopyTo", publicInstance, tVoid, tStream),
			method("Dispose", publicInstance, tVoid),
		),
		class(tMemory, tStream,
			ctor(),
			method("ToArray", publicInstance|module.MethodVirtual, tBytes),
		),
		class(tDeflate, tStream, ctor(tStream, tInt32)),
		class(sys("System.IO", "Path"), tObject,
			method("GetTempPath", publicStatic, tString),
			method("Combine", publicStatic, tString, tString, tString),
		),
		class(sys("System.IO", "File"), tObject,
			method("Exists", publicStatic, tBoolean, tString),
			method("WriteAllBytes", publicStatic, tVoid, tString, tBytes),
		),
		class(sys("System.IO", "Directory"), tObject,
			method("CreateDirectory", publicStatic, tObject, tString),
		),
		genericClass(tDictionary, []string{"TKey", "TValue"},
			ctor(),
			method("Add", publicInstance, tVoid, module.GenericParam(0), module.GenericParam(1)),
			method("ContainsKey", publicInstance, tBoolean, module.GenericParam(0)),
			method("get_Item", publicInstance|module.MethodSpecialName, module.GenericParam(1), module.GenericParam(0)),
		),
		genericClass(tList, []string{"T"},
			ctor(),
			method("Add", publicInstance, tVoid, module.GenericParam(0)),
			method("get_Count", publicInstance|module.MethodSpecialName, tInt32),
			method("get_Item", publicInstance|module.MethodSpecialName, module.GenericParam(0), tInt32),
		),
		class(sys("System.Runtime.CompilerServices", "CompilerGeneratedAttribute"), tObject, ctor()),
	}
	for _, t := range types {
		if err := m.AddType(t); err != nil {
			panic(err)
		}
	}
	return m
}

func genericClass(ref *module.TypeRef, params []string, methods ...*module.MethodDef) *module.TypeDef {
	t := class(ref, tObject, methods...)
	t.GenericParams = params
	return t
}
