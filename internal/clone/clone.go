// Package clone copies a loader template type from a template module into a
// target module. Every type, method and field reference in the copied code is
// resolved again so that it points at definitions reachable from the target:
// runtime library symbols are imported, references to the template itself are
// redirected to the new type, and helper methods are cloned the first time
// they are referenced.
package clone

import (
	"fmt"
	"slices"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
)

// StampPlaceholder is the string literal in a template that is replaced with
// the build-identity stamp.
const StampPlaceholder = "To be replaced at compile time"

// Fields of a loader template that receive injected entries.
const (
	AssemblyNamesField = "assemblyNames"
	SymbolNamesField   = "symbolNames"
	PreloadListField   = "preloadList"
	Preload32ListField = "preload32List"
	Preload64ListField = "preload64List"
	ChecksumsField     = "checksums"
)

// Methods every loader template provides.
const (
	ResolveMethodName = "ResolveAssembly"
	AttachMethodName  = "Attach"
)

// Default namespace and name of the cloned type.
const (
	DefaultNamespace = "Weaver"
	DefaultName      = "AssemblyLoader"
)

// Options configures a clone.
type Options struct {
	Variant Variant

	// Namespace and Name of the type created in the target module.
	Namespace string
	Name      string

	// Stamp replaces StampPlaceholder in the copied code.
	Stamp string

	// Attribute, when set, is applied to the created type.
	Attribute *module.MethodRef
}

// Fields are references to the well-known fields of the cloned type. A field
// the template does not declare is nil.
type Fields struct {
	AssemblyNames *module.FieldRef
	SymbolNames   *module.FieldRef
	PreloadList   *module.FieldRef
	Preload32List *module.FieldRef
	Preload64List *module.FieldRef
	Checksums     *module.FieldRef
}

// Result describes the cloned type.
type Result struct {
	Type *module.TypeDef
	Ref  *module.TypeRef

	StaticConstructor *module.MethodDef
	Attach            *module.MethodDef
	ResolveAssembly   *module.MethodDef

	Fields Fields

	// StampBound reports whether the template contained the stamp placeholder.
	StampBound bool
}

type engine struct {
	target   *module.Module
	template *module.Module
	resolver module.Resolver

	source *module.TypeDef
	common *module.TypeDef

	dest    *module.TypeDef
	destRef *module.TypeRef

	stamp      string
	stampBound bool

	// memo maps template methods to their copies. A copy is registered before
	// its body is cloned, so recursive references find it.
	memo map[*module.MethodDef]*module.MethodDef

	// method names the template method being copied, for error context.
	method string
}

// Clone copies the template type selected by opts.Variant into target. r must
// resolve the runtime library; the template module itself is resolved
// directly.
func Clone(template, target *module.Module, r module.Resolver, opts Options) (*Result, error) {
	source := template.TypeByName(opts.Variant.TypeName())
	if source == nil {
		return nil, oerrors.Weavingf("template module %s has no %s type", template.Identity(), opts.Variant.TypeName())
	}
	common := template.TypeByName(CommonTypeName)
	if common == nil {
		return nil, oerrors.Weavingf("template module %s has no %s type", template.Identity(), CommonTypeName)
	}

	ns, name := opts.Namespace, opts.Name
	if ns == "" && name == "" {
		ns, name = DefaultNamespace, DefaultName
	}
	if target.Type(ns, name) != nil {
		return nil, oerrors.Weavingf("module %s already contains %s; it has been woven before", target.Name, qualified(ns, name))
	}

	e := &engine{
		target:   target,
		template: template,
		resolver: templateResolver{template: template, next: r},
		source:   source,
		common:   common,
		stamp:    opts.Stamp,
		memo:     make(map[*module.MethodDef]*module.MethodDef),
	}
	e.dest = &module.TypeDef{Namespace: ns, Name: name, Attributes: source.Attributes}
	e.destRef = target.Ref(e.dest)

	base, err := e.resolveType(source.BaseType)
	if err != nil {
		return nil, err
	}
	e.dest.BaseType = base
	if opts.Attribute != nil {
		e.dest.CustomAttributes = append(e.dest.CustomAttributes, &module.CustomAttribute{Ctor: opts.Attribute})
	}
	if err := target.AddType(e.dest); err != nil {
		return nil, oerrors.WrapWeaving(err, "adding loader type")
	}

	res := &Result{Type: e.dest, Ref: e.destRef}
	if err := e.copyFields(&res.Fields); err != nil {
		return nil, err
	}

	output.Debug("cloning loader template", "template", source.FullName(), "into", e.dest.FullName())

	if res.ResolveAssembly, err = e.copyRoot(source.MethodNamed(ResolveMethodName), ResolveMethodName); err != nil {
		return nil, err
	}
	if res.StaticConstructor, err = e.copyRoot(source.StaticConstructor(), module.StaticCtorName); err != nil {
		return nil, err
	}
	if res.Attach, err = e.copyRoot(source.MethodNamed(AttachMethodName), AttachMethodName); err != nil {
		return nil, err
	}

	res.StampBound = e.stampBound
	output.Debug("cloned loader template", "methods", len(e.dest.Methods), "fields", len(e.dest.Fields), "stamp", e.stampBound)
	return res, nil
}

func (e *engine) copyRoot(src *module.MethodDef, name string) (*module.MethodDef, error) {
	if src == nil {
		return nil, oerrors.NewConsistencyError("select method", e.source.FullName(), "template has no "+name+" method")
	}
	return e.copyOnDemand(src, false)
}

func (e *engine) copyFields(handles *Fields) error {
	for _, f := range e.source.Fields {
		typ, err := e.resolveType(f.Type)
		if err != nil {
			return err
		}
		nf := &module.FieldDef{Name: f.Name, Attributes: f.Attributes, Type: typ}
		e.dest.Fields = append(e.dest.Fields, nf)

		ref := &module.FieldRef{DeclaringType: e.destRef, Name: nf.Name, Type: nf.Type}
		switch f.Name {
		case AssemblyNamesField:
			handles.AssemblyNames = ref
		case SymbolNamesField:
			handles.SymbolNames = ref
		case PreloadListField:
			handles.PreloadList = ref
		case Preload32ListField:
			handles.Preload32List = ref
		case Preload64ListField:
			handles.Preload64List = ref
		case ChecksumsField:
			handles.Checksums = ref
		}
	}
	return nil
}

func (e *engine) copyOnDemand(src *module.MethodDef, makePrivate bool) (*module.MethodDef, error) {
	if dst, ok := e.memo[src]; ok {
		return dst, nil
	}
	return e.copyMethod(src, makePrivate)
}

func (e *engine) copyMethod(src *module.MethodDef, makePrivate bool) (*module.MethodDef, error) {
	attrs := src.Attributes
	if makePrivate {
		attrs = attrs&^module.MethodAccessMask | module.MethodPrivate
	}
	dst := &module.MethodDef{
		Name:           src.Name,
		Attributes:     attrs,
		ImplAttributes: src.ImplAttributes,
		GenericParams:  slices.Clone(src.GenericParams),
	}

	outer := e.method
	e.method = src.Name
	defer func() { e.method = outer }()

	// The signature is resolved before the copy is registered so that
	// references to a method still being copied see its parameters.
	var err error
	if dst.ReturnType, err = e.resolveType(src.ReturnType); err != nil {
		return nil, err
	}
	for _, p := range src.Params {
		typ, err := e.resolveType(p.Type)
		if err != nil {
			return nil, err
		}
		dst.Params = append(dst.Params, &module.Param{Name: p.Name, Type: typ})
	}
	e.memo[src] = dst
	e.dest.Methods = append(e.dest.Methods, dst)

	if src.PInvoke != nil {
		if src.PInvoke.Module == nil {
			return nil, e.inconsistent("copy native linkage", "platform invoke without native module")
		}
		dst.PInvoke = &module.PInvokeInfo{
			Attributes: src.PInvoke.Attributes,
			EntryPoint: src.PInvoke.EntryPoint,
			Module:     e.target.ModuleRef(src.PInvoke.Module.Name),
		}
	}
	if src.Body != nil {
		if dst.Body, err = e.copyBody(src.Body); err != nil {
			return nil, err
		}
	}
	output.Debug("cloned method", "method", src.Name, "private", makePrivate)
	return dst, nil
}

func (e *engine) copyBody(src *module.Body) (*module.Body, error) {
	n := len(src.Instructions)
	body := &module.Body{
		InitLocals:   src.InitLocals,
		Instructions: make([]module.Instruction, 0, n),
	}
	for _, l := range src.Locals {
		typ, err := e.resolveType(l)
		if err != nil {
			return nil, err
		}
		body.Locals = append(body.Locals, typ)
	}
	for i, in := range src.Instructions {
		out, err := e.cloneInstruction(in, n)
		if err != nil {
			return nil, fmt.Errorf("IL_%04d: %w", i, err)
		}
		body.Instructions = append(body.Instructions, out)
	}
	for _, h := range src.Handlers {
		nh := module.NewExceptionHandler(h.Kind)
		from, to := h.Labels(), nh.Labels()
		for i := range from {
			l, err := e.relocate(*from[i], n, true)
			if err != nil {
				return nil, err
			}
			*to[i] = l
		}
		if h.CatchType != nil {
			typ, err := e.resolveType(h.CatchType)
			if err != nil {
				return nil, err
			}
			nh.CatchType = typ
		}
		body.Handlers = append(body.Handlers, nh)
	}
	if err := body.Validate(); err != nil {
		return nil, e.inconsistent("validate body", err.Error())
	}
	return body, nil
}

// relocate maps a label of the template body to the same position in the
// copy, which has exactly as many instructions.
func (e *engine) relocate(l module.Label, n int, allowAbsent bool) (module.Label, error) {
	if l == module.NoLabel && allowAbsent {
		return l, nil
	}
	if l < 0 || int(l) >= n {
		return 0, e.inconsistent("relocate label", fmt.Sprintf("label %d outside body of %d instructions", l, n))
	}
	return l, nil
}

func (e *engine) cloneInstruction(in module.Instruction, n int) (module.Instruction, error) {
	if s, ok := in.Operand.(module.String); ok && in.Op == module.Ldstr && string(s) == StampPlaceholder {
		if e.stampBound {
			return in, e.inconsistent("bind stamp", "stamp placeholder appears more than once")
		}
		e.stampBound = true
		return module.Ins(module.Ldstr, module.String(e.stamp)), nil
	}

	out := module.Instruction{Op: in.Op}
	switch v := in.Operand.(type) {
	case nil:
		return out, nil
	case module.String, module.Int32, module.Int64, module.Float64, module.Local, module.Arg:
		out.Operand = v
	case module.Label:
		l, err := e.relocate(v, n, false)
		if err != nil {
			return out, err
		}
		out.Operand = l
	case module.Labels:
		labels := make(module.Labels, len(v))
		for i, l := range v {
			moved, err := e.relocate(l, n, false)
			if err != nil {
				return out, err
			}
			labels[i] = moved
		}
		out.Operand = labels
	case *module.TypeRef:
		t, err := e.resolveType(v)
		if err != nil {
			return out, err
		}
		if t != nil {
			out.Operand = t
		}
	case *module.MethodRef:
		m, err := e.resolveMethod(v)
		if err != nil {
			return out, err
		}
		if m != nil {
			out.Operand = m
		}
	case *module.FieldRef:
		f, err := e.resolveField(v)
		if err != nil {
			return out, err
		}
		if f != nil {
			out.Operand = f
		}
	default:
		return out, e.inconsistent("clone operand", fmt.Sprintf("%s: unsupported operand %T", in.Op, v))
	}
	if out.Operand == nil {
		return out, e.inconsistent("clone operand", fmt.Sprintf("%s operand %v resolved to nothing", in.Op, in.Operand))
	}
	return out, nil
}

func (e *engine) inconsistent(op, detail string) error {
	method := e.method
	if method != "" {
		method = e.source.FullName() + "::" + method
	}
	return oerrors.NewConsistencyError(op, method, detail)
}

func qualified(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}
