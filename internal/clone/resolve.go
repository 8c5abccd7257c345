package clone

import (
	"fmt"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
)

// templateResolver resolves the template module by name before delegating.
type templateResolver struct {
	template *module.Module
	next     module.Resolver
}

func (r templateResolver) Resolve(name module.Name) (*module.Module, error) {
	if name.Name == r.template.Name {
		return r.template, nil
	}
	return r.next.Resolve(name)
}

// templateType returns the template or helper type t names, or nil when t is
// declared elsewhere.
func (e *engine) templateType(t *module.TypeRef) *module.TypeDef {
	el := t.ElementType()
	if el == nil || el.Kind != module.KindNamed || el.Scope != e.template.Name {
		return nil
	}
	for _, def := range []*module.TypeDef{e.source, e.common} {
		if def.Namespace == el.Namespace && def.Name == el.Name {
			return def
		}
	}
	return nil
}

// resolveType rebuilds t in the target's reference space. Arrays and generic
// instances are rebuilt around their resolved element type and arguments.
func (e *engine) resolveType(t *module.TypeRef) (*module.TypeRef, error) {
	if t == nil {
		return nil, nil
	}
	switch t.Kind {
	case module.KindGenericParam:
		cp := *t
		return &cp, nil
	case module.KindArray:
		elem, err := e.resolveType(t.Elem)
		if err != nil {
			return nil, err
		}
		return elem.MakeArray(), nil
	case module.KindGenericInstance:
		elem, err := e.resolveType(t.Elem)
		if err != nil {
			return nil, err
		}
		args, err := e.resolveTypes(t.Args)
		if err != nil {
			return nil, err
		}
		return elem.MakeGenericInstance(args...), nil
	}

	if e.templateType(t) != nil {
		return e.destRef, nil
	}
	def, owner, err := module.ResolveType(e.resolver, t)
	if err != nil {
		return nil, oerrors.WrapWeaving(err, "resolving type %s", t)
	}
	if owner == e.template {
		return nil, e.inconsistent("resolve type", fmt.Sprintf("template type %s is not part of the loader", def.FullName()))
	}
	return e.target.ImportType(owner, def), nil
}

func (e *engine) resolveTypes(ts []*module.TypeRef) ([]*module.TypeRef, error) {
	out := make([]*module.TypeRef, len(ts))
	for i, t := range ts {
		r, err := e.resolveType(t)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// resolveMethod rebuilds a method reference in the target's reference space.
// Methods of the template or helper type are cloned into the target type on
// first use; helper methods become private. Methods of generic instances are
// imported from their definition and instantiated again with the resolved
// arguments.
func (e *engine) resolveMethod(m *module.MethodRef) (*module.MethodRef, error) {
	if decl := e.templateType(m.DeclaringType); decl != nil {
		var src *module.MethodDef
		for _, def := range decl.Methods {
			if def.Name == m.Name && len(def.Params) == len(m.Params) {
				src = def
				break
			}
		}
		if src == nil {
			return nil, e.inconsistent("resolve method", fmt.Sprintf("%s not found on %s", m.Name, decl.FullName()))
		}
		dst, err := e.copyOnDemand(src, decl != e.source)
		if err != nil {
			return nil, err
		}
		return dst.Ref(e.destRef), nil
	}

	def, declDef, owner, err := module.ResolveMethod(e.resolver, m)
	if err != nil {
		return nil, oerrors.WrapWeaving(err, "resolving method %s", m)
	}
	if owner == e.template {
		return nil, e.inconsistent("resolve method", fmt.Sprintf("template method %s is not part of the loader", m.FullName()))
	}
	ref := e.target.ImportMethod(owner, declDef, def)
	if m.DeclaringType.IsGenericInstance() {
		args, err := e.resolveTypes(m.DeclaringType.Args)
		if err != nil {
			return nil, err
		}
		ref = ref.MakeHostInstanceGeneric(args...)
	}
	return ref, nil
}

// resolveField maps a template field to the field of the same name on the
// target type. Fields are copied before any method, so a miss is a defect.
func (e *engine) resolveField(f *module.FieldRef) (*module.FieldRef, error) {
	if e.templateType(f.DeclaringType) != nil {
		nf := e.dest.Field(f.Name)
		if nf == nil {
			return nil, e.inconsistent("resolve field", fmt.Sprintf("field %s was not copied", f.Name))
		}
		return &module.FieldRef{DeclaringType: e.destRef, Name: nf.Name, Type: nf.Type}, nil
	}

	def, _, owner, err := module.ResolveField(e.resolver, f)
	if err != nil {
		return nil, oerrors.WrapWeaving(err, "resolving field %s", f)
	}
	if owner == e.template {
		return nil, e.inconsistent("resolve field", fmt.Sprintf("template field %s is not part of the loader", f.FullName()))
	}
	decl, err := e.resolveType(f.DeclaringType)
	if err != nil {
		return nil, err
	}
	e.target.ImportRef(def.Type)
	return &module.FieldRef{DeclaringType: decl, Name: def.Name, Type: def.Type}, nil
}
