package modfile

import (
	"fmt"

	"github.com/opmodel/weaver/internal/module"
)

func fromModule(m *module.Module) (*file, error) {
	f := &file{
		Name:       m.Name,
		Version:    m.Version,
		References: m.References,
	}
	for _, mr := range m.ModuleRefs {
		f.ModuleRefs = append(f.ModuleRefs, mr.Name)
	}
	for _, t := range m.Types {
		td, err := fromTypeDef(t)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", t.FullName(), err)
		}
		f.Types = append(f.Types, td)
	}
	for _, r := range m.Resources {
		f.Resources = append(f.Resources, resource{
			Name:    r.Name,
			Private: r.Attributes == module.ResourcePrivate,
			Data:    r.Data,
		})
	}
	return f, nil
}

func fromTypeDef(t *module.TypeDef) (typeDef, error) {
	td := typeDef{
		Namespace:     t.Namespace,
		Name:          t.Name,
		Attributes:    uint32(t.Attributes),
		BaseType:      fromTypeRef(t.BaseType),
		GenericParams: t.GenericParams,
	}
	for _, fd := range t.Fields {
		td.Fields = append(td.Fields, fieldDef{
			Name:       fd.Name,
			Attributes: uint16(fd.Attributes),
			Type:       fromTypeRef(fd.Type),
		})
	}
	for _, ca := range t.CustomAttributes {
		td.CustomAttributes = append(td.CustomAttributes, fromMethodRef(ca.Ctor))
	}
	for _, md := range t.Methods {
		m := methodDef{
			Name:           md.Name,
			Attributes:     uint16(md.Attributes),
			ImplAttributes: uint16(md.ImplAttributes),
			ReturnType:     fromTypeRef(md.ReturnType),
			GenericParams:  md.GenericParams,
		}
		for _, p := range md.Params {
			m.Params = append(m.Params, param{Name: p.Name, Type: fromTypeRef(p.Type)})
		}
		if md.PInvoke != nil {
			if md.PInvoke.Module == nil {
				return td, fmt.Errorf("method %s: platform invoke without native module", md.Name)
			}
			m.PInvoke = &pinvoke{
				Attributes: uint16(md.PInvoke.Attributes),
				EntryPoint: md.PInvoke.EntryPoint,
				Module:     md.PInvoke.Module.Name,
			}
		}
		if md.Body != nil {
			b, err := fromBody(md.Body)
			if err != nil {
				return td, fmt.Errorf("method %s: %w", md.Name, err)
			}
			m.Body = b
		}
		td.Methods = append(td.Methods, m)
	}
	return td, nil
}

func fromBody(b *module.Body) (*body, error) {
	out := &body{InitLocals: b.InitLocals}
	for _, l := range b.Locals {
		out.Locals = append(out.Locals, fromTypeRef(l))
	}
	for i, in := range b.Instructions {
		enc := instruction{Op: in.Op.String()}
		switch v := in.Operand.(type) {
		case nil:
		case module.String:
			s := string(v)
			enc.Str = &s
		case module.Int32:
			n := int64(v)
			enc.Int = &n
		case module.Int64:
			n := int64(v)
			enc.Int = &n
		case module.Float64:
			x := float64(v)
			enc.Float = &x
		case *module.TypeRef:
			enc.Type = fromTypeRef(v)
		case *module.MethodRef:
			enc.Method = fromMethodRef(v)
		case *module.FieldRef:
			enc.Field = fromFieldRef(v)
		case module.Label:
			l := int(v)
			enc.Label = &l
		case module.Labels:
			enc.Labels = make([]int, len(v))
			for j, l := range v {
				enc.Labels[j] = int(l)
			}
		case module.Local:
			n := int(v)
			enc.Local = &n
		case module.Arg:
			n := int(v)
			enc.Arg = &n
		default:
			return nil, fmt.Errorf("IL_%04d: unsupported operand %T", i, v)
		}
		out.Instructions = append(out.Instructions, enc)
	}
	for _, h := range b.Handlers {
		out.Handlers = append(out.Handlers, handler{
			Kind:         h.Kind.String(),
			TryStart:     int(h.TryStart),
			TryEnd:       int(h.TryEnd),
			HandlerStart: int(h.HandlerStart),
			HandlerEnd:   int(h.HandlerEnd),
			FilterStart:  int(h.FilterStart),
			CatchType:    fromTypeRef(h.CatchType),
		})
	}
	return out, nil
}

func fromTypeRef(t *module.TypeRef) *typeRef {
	if t == nil {
		return nil
	}
	out := &typeRef{
		Scope:     t.Scope,
		Namespace: t.Namespace,
		Name:      t.Name,
		Elem:      fromTypeRef(t.Elem),
		Position:  t.Position,
		Method:    t.MethodParam,
	}
	if t.Kind != module.KindNamed {
		out.Kind = t.Kind.String()
	}
	for _, a := range t.Args {
		out.Args = append(out.Args, fromTypeRef(a))
	}
	return out
}

func fromMethodRef(m *module.MethodRef) *methodRef {
	out := &methodRef{
		DeclaringType: fromTypeRef(m.DeclaringType),
		Name:          m.Name,
		HasThis:       m.HasThis,
		ReturnType:    fromTypeRef(m.ReturnType),
	}
	for _, p := range m.Params {
		out.Params = append(out.Params, fromTypeRef(p))
	}
	return out
}

func fromFieldRef(f *module.FieldRef) *fieldRef {
	return &fieldRef{
		DeclaringType: fromTypeRef(f.DeclaringType),
		Name:          f.Name,
		Type:          fromTypeRef(f.Type),
	}
}

func toModule(f *file) (*module.Module, error) {
	m := module.New(f.Name, f.Version)
	m.References = append(m.References, f.References...)
	for _, name := range f.ModuleRefs {
		m.ModuleRef(name)
	}
	for _, td := range f.Types {
		t, err := toTypeDef(m, td)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
		if err := m.AddType(t); err != nil {
			return nil, err
		}
	}
	for _, r := range f.Resources {
		attrs := module.ResourcePublic
		if r.Private {
			attrs = module.ResourcePrivate
		}
		if err := m.AddResource(&module.Resource{Name: r.Name, Attributes: attrs, Data: r.Data}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func toTypeDef(m *module.Module, td typeDef) (*module.TypeDef, error) {
	base, err := toTypeRef(td.BaseType)
	if err != nil {
		return nil, err
	}
	t := &module.TypeDef{
		Namespace:     td.Namespace,
		Name:          td.Name,
		Attributes:    module.TypeAttributes(td.Attributes),
		BaseType:      base,
		GenericParams: td.GenericParams,
	}
	for _, fd := range td.Fields {
		ft, err := toTypeRef(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		t.Fields = append(t.Fields, &module.FieldDef{
			Name:       fd.Name,
			Attributes: module.FieldAttributes(fd.Attributes),
			Type:       ft,
		})
	}
	for _, ca := range td.CustomAttributes {
		ctor, err := toMethodRef(ca)
		if err != nil {
			return nil, fmt.Errorf("custom attribute: %w", err)
		}
		t.CustomAttributes = append(t.CustomAttributes, &module.CustomAttribute{Ctor: ctor})
	}
	for _, md := range td.Methods {
		meth, err := toMethodDef(m, md)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", md.Name, err)
		}
		t.Methods = append(t.Methods, meth)
	}
	return t, nil
}

func toMethodDef(m *module.Module, md methodDef) (*module.MethodDef, error) {
	ret, err := toTypeRef(md.ReturnType)
	if err != nil {
		return nil, err
	}
	meth := &module.MethodDef{
		Name:           md.Name,
		Attributes:     module.MethodAttributes(md.Attributes),
		ImplAttributes: module.MethodImplAttributes(md.ImplAttributes),
		ReturnType:     ret,
		GenericParams:  md.GenericParams,
	}
	for _, p := range md.Params {
		pt, err := toTypeRef(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		meth.Params = append(meth.Params, &module.Param{Name: p.Name, Type: pt})
	}
	if md.PInvoke != nil {
		meth.PInvoke = &module.PInvokeInfo{
			Attributes: module.PInvokeAttributes(md.PInvoke.Attributes),
			EntryPoint: md.PInvoke.EntryPoint,
			Module:     m.ModuleRef(md.PInvoke.Module),
		}
	}
	if md.Body != nil {
		b, err := toBody(md.Body)
		if err != nil {
			return nil, err
		}
		meth.Body = b
	}
	return meth, nil
}

func toBody(b *body) (*module.Body, error) {
	out := &module.Body{InitLocals: b.InitLocals}
	for _, l := range b.Locals {
		lt, err := toTypeRef(l)
		if err != nil {
			return nil, fmt.Errorf("local: %w", err)
		}
		out.Locals = append(out.Locals, lt)
	}
	for i, enc := range b.Instructions {
		in, err := toInstruction(enc)
		if err != nil {
			return nil, fmt.Errorf("IL_%04d: %w", i, err)
		}
		out.Instructions = append(out.Instructions, in)
	}
	for _, h := range b.Handlers {
		kind, err := parseHandlerKind(h.Kind)
		if err != nil {
			return nil, err
		}
		catchType, err := toTypeRef(h.CatchType)
		if err != nil {
			return nil, err
		}
		out.Handlers = append(out.Handlers, module.ExceptionHandler{
			Kind:         kind,
			TryStart:     module.Label(h.TryStart),
			TryEnd:       module.Label(h.TryEnd),
			HandlerStart: module.Label(h.HandlerStart),
			HandlerEnd:   module.Label(h.HandlerEnd),
			FilterStart:  module.Label(h.FilterStart),
			CatchType:    catchType,
		})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func toInstruction(enc instruction) (module.Instruction, error) {
	op, err := module.ParseOpcode(enc.Op)
	if err != nil {
		return module.Instruction{}, err
	}
	in := module.Instruction{Op: op}
	missing := func() (module.Instruction, error) {
		return in, fmt.Errorf("%s: missing operand", op)
	}
	switch op.OperandKind() {
	case module.OperandNone:
	case module.OperandString:
		if enc.Str == nil {
			return missing()
		}
		in.Operand = module.String(*enc.Str)
	case module.OperandInt32:
		if enc.Int == nil {
			return missing()
		}
		in.Operand = module.Int32(*enc.Int)
	case module.OperandInt64:
		if enc.Int == nil {
			return missing()
		}
		in.Operand = module.Int64(*enc.Int)
	case module.OperandFloat64:
		if enc.Float == nil {
			return missing()
		}
		in.Operand = module.Float64(*enc.Float)
	case module.OperandType, module.OperandMethod, module.OperandField, module.OperandToken:
		switch {
		case enc.Type != nil:
			t, err := toTypeRef(enc.Type)
			if err != nil {
				return in, err
			}
			in.Operand = t
		case enc.Method != nil:
			mr, err := toMethodRef(enc.Method)
			if err != nil {
				return in, err
			}
			in.Operand = mr
		case enc.Field != nil:
			fr, err := toFieldRef(enc.Field)
			if err != nil {
				return in, err
			}
			in.Operand = fr
		default:
			return missing()
		}
	case module.OperandLabel:
		if enc.Label == nil {
			return missing()
		}
		in.Operand = module.Label(*enc.Label)
	case module.OperandLabels:
		labels := make(module.Labels, len(enc.Labels))
		for i, l := range enc.Labels {
			labels[i] = module.Label(l)
		}
		in.Operand = labels
	case module.OperandLocal:
		if enc.Local == nil {
			return missing()
		}
		in.Operand = module.Local(*enc.Local)
	case module.OperandArg:
		if enc.Arg == nil {
			return missing()
		}
		in.Operand = module.Arg(*enc.Arg)
	}
	return in, nil
}

func toTypeRef(t *typeRef) (*module.TypeRef, error) {
	if t == nil {
		return nil, nil
	}
	elem, err := toTypeRef(t.Elem)
	if err != nil {
		return nil, err
	}
	out := &module.TypeRef{
		Scope:       t.Scope,
		Namespace:   t.Namespace,
		Name:        t.Name,
		Elem:        elem,
		Position:    t.Position,
		MethodParam: t.Method,
	}
	switch t.Kind {
	case "", "named":
		out.Kind = module.KindNamed
		if t.Name == "" {
			return nil, fmt.Errorf("named type reference without a name")
		}
	case "array":
		out.Kind = module.KindArray
	case "generic":
		out.Kind = module.KindGenericInstance
	case "param":
		out.Kind = module.KindGenericParam
	default:
		return nil, fmt.Errorf("unknown type reference kind %q", t.Kind)
	}
	if (out.Kind == module.KindArray || out.Kind == module.KindGenericInstance) && elem == nil {
		return nil, fmt.Errorf("%s type reference without an element type", t.Kind)
	}
	for _, a := range t.Args {
		arg, err := toTypeRef(a)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, arg)
	}
	return out, nil
}

func toMethodRef(m *methodRef) (*module.MethodRef, error) {
	decl, err := toTypeRef(m.DeclaringType)
	if err != nil {
		return nil, err
	}
	if decl == nil {
		return nil, fmt.Errorf("method %s without declaring type", m.Name)
	}
	ret, err := toTypeRef(m.ReturnType)
	if err != nil {
		return nil, err
	}
	out := &module.MethodRef{DeclaringType: decl, Name: m.Name, HasThis: m.HasThis, ReturnType: ret}
	for _, p := range m.Params {
		pt, err := toTypeRef(p)
		if err != nil {
			return nil, err
		}
		out.Params = append(out.Params, pt)
	}
	return out, nil
}

func toFieldRef(f *fieldRef) (*module.FieldRef, error) {
	decl, err := toTypeRef(f.DeclaringType)
	if err != nil {
		return nil, err
	}
	if decl == nil {
		return nil, fmt.Errorf("field %s without declaring type", f.Name)
	}
	ft, err := toTypeRef(f.Type)
	if err != nil {
		return nil, err
	}
	return &module.FieldRef{DeclaringType: decl, Name: f.Name, Type: ft}, nil
}

func parseHandlerKind(s string) (module.HandlerKind, error) {
	for _, k := range []module.HandlerKind{module.HandlerCatch, module.HandlerFilter, module.HandlerFinally, module.HandlerFault} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown exception handler kind %q", s)
}
