package module

import (
	"fmt"

	oerrors "github.com/opmodel/weaver/internal/errors"
)

// Resolver locates modules by name and, optionally, version.
type Resolver interface {
	Resolve(name Name) (*Module, error)
}

// Registry is a Resolver over a fixed set of in-memory modules.
type Registry struct {
	modules []*Module
}

// NewRegistry creates a registry holding mods.
func NewRegistry(mods ...*Module) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Add(m)
	}
	return r
}

// Add registers a module, replacing any module with the same name and version.
func (r *Registry) Add(m *Module) {
	for i, existing := range r.modules {
		if existing.Name == m.Name && existing.Version == m.Version {
			r.modules[i] = m
			return
		}
	}
	r.modules = append(r.modules, m)
}

// Resolve returns the module with the given name. An empty version matches
// the first registered module of that name.
func (r *Registry) Resolve(name Name) (*Module, error) {
	for _, m := range r.modules {
		if m.Name == name.Name && (name.Version == "" || m.Version == name.Version) {
			return m, nil
		}
	}
	return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("module %s", name))
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*Module {
	return append([]*Module(nil), r.modules...)
}

// ResolveType finds the definition behind a reference. Arrays and generic
// instances resolve to the definition of the type they are built from.
func ResolveType(r Resolver, t *TypeRef) (*TypeDef, *Module, error) {
	e := t.ElementType()
	if e == nil {
		return nil, nil, fmt.Errorf("resolving nil type reference")
	}
	if e.Kind == KindGenericParam {
		return nil, nil, fmt.Errorf("generic parameter %s has no definition", e.FullName())
	}
	mod, err := r.Resolve(Name{Name: e.Scope})
	if err != nil {
		return nil, nil, fmt.Errorf("resolving %s: %w", t, err)
	}
	def := mod.Type(e.Namespace, e.Name)
	if def == nil {
		return nil, nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("type %s in module %s", e.FullName(), mod.Name))
	}
	return def, mod, nil
}

// ResolveMethod finds the definition behind a method reference, matching on
// name, parameter count and parameter types.
func ResolveMethod(r Resolver, m *MethodRef) (*MethodDef, *TypeDef, *Module, error) {
	decl, mod, err := ResolveType(r, m.DeclaringType)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, def := range decl.Methods {
		if def.Name != m.Name || len(def.Params) != len(m.Params) {
			continue
		}
		if sameSignature(def.ParamTypes(), m.Params) {
			return def, decl, mod, nil
		}
	}
	return nil, nil, nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("method %s", m.FullName()))
}

// ResolveField finds the definition behind a field reference.
func ResolveField(r Resolver, f *FieldRef) (*FieldDef, *TypeDef, *Module, error) {
	decl, mod, err := ResolveType(r, f.DeclaringType)
	if err != nil {
		return nil, nil, nil, err
	}
	def := decl.Field(f.Name)
	if def == nil {
		return nil, nil, nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("field %s", f.FullName()))
	}
	return def, decl, mod, nil
}

func sameSignature(a, b []*TypeRef) bool {
	for i := range a {
		if a[i].FullName() != b[i].FullName() {
			return false
		}
	}
	return true
}

// ImportType returns a reference, usable from m, to def declared in owner.
func (m *Module) ImportType(owner *Module, def *TypeDef) *TypeRef {
	m.AddReference(owner.Name)
	return NamedType(owner.Name, def.Namespace, def.Name)
}

// ImportMethod returns a reference, usable from m, to def declared by decl in owner.
// The declaring type is the open generic definition; callers instantiate it
// with MakeHostInstanceGeneric when needed.
func (m *Module) ImportMethod(owner *Module, decl *TypeDef, def *MethodDef) *MethodRef {
	ref := def.Ref(m.ImportType(owner, decl))
	m.ImportRef(ref.ReturnType)
	for _, p := range ref.Params {
		m.ImportRef(p)
	}
	return ref
}

// ImportRef records every module scope mentioned by t as a reference of m.
func (m *Module) ImportRef(t *TypeRef) {
	for _, s := range t.Scopes() {
		m.AddReference(s)
	}
}

// withSelf resolves m's own name to m before delegating.
type withSelf struct {
	self *Module
	next Resolver
}

func (w withSelf) Resolve(name Name) (*Module, error) {
	if name.Name == w.self.Name {
		return w.self, nil
	}
	return w.next.Resolve(name)
}

// Verify checks that every type, method and field reference used by m's
// definitions resolves, and that it is reachable from m: either declared by m
// or imported from a module listed in m.References.
func Verify(m *Module, r Resolver) error {
	for _, t := range m.Types {
		if err := VerifyType(m, t, r); err != nil {
			return err
		}
	}
	return nil
}

// VerifyType applies the checks of Verify to the definitions of a single type
// declared by m.
func VerifyType(m *Module, t *TypeDef, r Resolver) error {
	res := withSelf{self: m, next: r}
	checkType := func(where string, t *TypeRef) error {
		if t == nil {
			return nil
		}
		for _, s := range t.Scopes() {
			if !m.Reaches(s) {
				return fmt.Errorf("%s: %s is scoped to unreferenced module %q", where, t, s)
			}
		}
		if t.ElementType().Kind == KindGenericParam {
			return nil
		}
		if _, _, err := ResolveType(res, t); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		for _, a := range t.Args {
			if a.ElementType().Kind == KindGenericParam {
				continue
			}
			if _, _, err := ResolveType(res, a); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
		return nil
	}

	if err := checkType(t.FullName()+" base", t.BaseType); err != nil {
		return err
	}
	for _, f := range t.Fields {
		if err := checkType(t.FullName()+"::"+f.Name, f.Type); err != nil {
			return err
		}
	}
	for _, meth := range t.Methods {
		where := t.FullName() + "::" + meth.Name
		if err := checkType(where+" return", meth.ReturnType); err != nil {
			return err
		}
		if meth.PInvoke != nil && !containsModuleRef(m, meth.PInvoke.Module) {
			return fmt.Errorf("%s: native module %q is not referenced", where, meth.PInvoke.Module.Name)
		}
		if meth.Body == nil {
			continue
		}
		if err := meth.Body.Validate(); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		for _, l := range meth.Body.Locals {
			if err := checkType(where+" local", l); err != nil {
				return err
			}
		}
		for _, h := range meth.Body.Handlers {
			if err := checkType(where+" "+h.Kind.String(), h.CatchType); err != nil {
				return err
			}
		}
		for _, in := range meth.Body.Instructions {
			switch v := in.Operand.(type) {
			case *TypeRef:
				if err := checkType(where, v); err != nil {
					return err
				}
			case *MethodRef:
				if err := checkType(where, v.DeclaringType); err != nil {
					return err
				}
				if _, _, _, err := ResolveMethod(res, v); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
			case *FieldRef:
				if err := checkType(where, v.DeclaringType); err != nil {
					return err
				}
				if _, _, _, err := ResolveField(res, v); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
			}
		}
	}
	return nil
}

func containsModuleRef(m *Module, ref *ModuleRef) bool {
	for _, mr := range m.ModuleRefs {
		if mr == ref {
			return true
		}
	}
	return false
}
