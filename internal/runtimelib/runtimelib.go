// Package runtimelib locates the symbols of the base runtime library that
// woven code imports: the object and void types, the string-keyed dictionary
// and list insertion methods, and the compiler-generated marker attribute.
package runtimelib

import (
	"fmt"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
)

// Identity of the base runtime library.
const (
	Name    = "corlib"
	Version = "4.0"
)

// Refs are references to runtime library symbols, usable from the target module.
type Refs struct {
	Library *module.Module

	Object *module.TypeRef
	Void   *module.TypeRef
	String *module.TypeRef

	// DictionaryAdd is Dictionary`2<string,string>.Add.
	DictionaryAdd *module.MethodRef
	// ListAdd is List`1<string>.Add.
	ListAdd *module.MethodRef
	// CompilerGenerated is the CompilerGeneratedAttribute constructor.
	CompilerGenerated *module.MethodRef
}

// Find resolves the runtime library through r and imports the symbols weaving
// needs into target.
func Find(target *module.Module, r module.Resolver) (*Refs, error) {
	lib, err := r.Resolve(module.Name{Name: Name, Version: Version})
	if err != nil {
		return nil, oerrors.WrapWeaving(err, "resolving the base runtime library %s/%s", Name, Version)
	}
	object := lib.TypeByName("Object")
	if object == nil {
		return nil, oerrors.Weavingf("only compatible with the base runtime library: %s has no Object type", lib.Identity())
	}

	lookup := func(name string) (*module.TypeDef, error) {
		t := lib.TypeByName(name)
		if t == nil {
			return nil, oerrors.Weavingf("base runtime library %s has no %s type", lib.Identity(), name)
		}
		return t, nil
	}
	method := func(t *module.TypeDef, name string) (*module.MethodDef, error) {
		for _, m := range t.Methods {
			if m.Name == name {
				return m, nil
			}
		}
		return nil, oerrors.Weavingf("base runtime library type %s has no %s method", t.FullName(), name)
	}

	refs := &Refs{Library: lib, Object: target.ImportType(lib, object)}

	voidDef, err := lookup("Void")
	if err != nil {
		return nil, err
	}
	refs.Void = target.ImportType(lib, voidDef)

	stringDef, err := lookup("String")
	if err != nil {
		return nil, err
	}
	refs.String = target.ImportType(lib, stringDef)

	dict, err := lookup("Dictionary`2")
	if err != nil {
		return nil, err
	}
	dictAdd, err := method(dict, "Add")
	if err != nil {
		return nil, err
	}
	refs.DictionaryAdd = target.ImportMethod(lib, dict, dictAdd).MakeHostInstanceGeneric(refs.String, refs.String)

	list, err := lookup("List`1")
	if err != nil {
		return nil, err
	}
	listAdd, err := method(list, "Add")
	if err != nil {
		return nil, err
	}
	refs.ListAdd = target.ImportMethod(lib, list, listAdd).MakeHostInstanceGeneric(refs.String)

	attr, err := lookup("CompilerGeneratedAttribute")
	if err != nil {
		return nil, err
	}
	var ctor *module.MethodDef
	for _, m := range attr.Methods {
		if m.IsConstructor() {
			ctor = m
			break
		}
	}
	if ctor == nil {
		return nil, oerrors.Weavingf("base runtime library type %s has no constructor", attr.FullName())
	}
	refs.CompilerGenerated = target.ImportMethod(lib, attr, ctor)

	return refs, nil
}

// Describe renders the references for debug logging.
func (r *Refs) Describe() string {
	return fmt.Sprintf("%s: %s, %s", r.Library.Identity(), r.DictionaryAdd, r.ListAdd)
}
