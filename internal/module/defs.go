package module

import "strings"

// TypeAttributes mirror the ECMA-335 TypeDef flags that weaver cares about.
type TypeAttributes uint32

const (
	TypeNotPublic       TypeAttributes = 0x0
	TypePublic          TypeAttributes = 0x1
	TypeVisibilityMask  TypeAttributes = 0x7
	TypeAbstract        TypeAttributes = 0x80
	TypeSealed          TypeAttributes = 0x100
	TypeBeforeFieldInit TypeAttributes = 0x100000
)

// FieldAttributes mirror the ECMA-335 Field flags.
type FieldAttributes uint16

const (
	FieldPrivate    FieldAttributes = 0x1
	FieldAssembly   FieldAttributes = 0x3
	FieldPublic     FieldAttributes = 0x6
	FieldAccessMask FieldAttributes = 0x7
	FieldStatic     FieldAttributes = 0x10
	FieldInitOnly   FieldAttributes = 0x20
)

// MethodAttributes mirror the ECMA-335 MethodDef flags.
type MethodAttributes uint16

const (
	MethodPrivate       MethodAttributes = 0x1
	MethodAssembly      MethodAttributes = 0x3
	MethodPublic        MethodAttributes = 0x6
	MethodAccessMask    MethodAttributes = 0x7
	MethodStatic        MethodAttributes = 0x10
	MethodVirtual       MethodAttributes = 0x40
	MethodHideBySig     MethodAttributes = 0x80
	MethodSpecialName   MethodAttributes = 0x800
	MethodPInvokeImpl   MethodAttributes = 0x2000
	MethodRTSpecialName MethodAttributes = 0x1000
)

// MethodImplAttributes mirror the ECMA-335 MethodImpl flags.
type MethodImplAttributes uint16

const (
	ImplPreserveSig MethodImplAttributes = 0x80
)

// PInvokeAttributes mirror the ECMA-335 ImplMap flags.
type PInvokeAttributes uint16

const (
	PInvokeNoMangle        PInvokeAttributes = 0x1
	PInvokeCharSetAnsi     PInvokeAttributes = 0x2
	PInvokeCharSetUnicode  PInvokeAttributes = 0x4
	PInvokeSupportsLastErr PInvokeAttributes = 0x40
	PInvokeCallConvWinapi  PInvokeAttributes = 0x100
)

// Constructor names.
const (
	CtorName       = ".ctor"
	StaticCtorName = ".cctor"
)

// CustomAttribute applies an attribute by its constructor.
type CustomAttribute struct {
	Ctor *MethodRef
}

// TypeDef is a type definition owned by a module.
type TypeDef struct {
	Namespace     string
	Name          string
	Attributes    TypeAttributes
	BaseType      *TypeRef
	GenericParams []string

	Fields           []*FieldDef
	Methods          []*MethodDef
	CustomAttributes []*CustomAttribute
}

// FullName returns "Namespace.Name".
func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Field returns the field with the given name, or nil.
func (t *TypeDef) Field(name string) *FieldDef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the first method with the given name and parameter count, or nil.
func (t *TypeDef) Method(name string, params int) *MethodDef {
	for _, m := range t.Methods {
		if m.Name == name && len(m.Params) == params {
			return m
		}
	}
	return nil
}

// MethodNamed returns the first method with the given name, or nil.
func (t *TypeDef) MethodNamed(name string) *MethodDef {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// StaticConstructor returns the type initializer, or nil.
func (t *TypeDef) StaticConstructor() *MethodDef {
	for _, m := range t.Methods {
		if m.IsConstructor() && m.IsStatic() {
			return m
		}
	}
	return nil
}

// FieldDef is a field definition.
type FieldDef struct {
	Name       string
	Attributes FieldAttributes
	Type       *TypeRef
}

// IsStatic reports whether the field is static.
func (f *FieldDef) IsStatic() bool { return f.Attributes&FieldStatic != 0 }

// Param is a method parameter.
type Param struct {
	Name string
	Type *TypeRef
}

// PInvokeInfo links a method to an entry point in a native module.
type PInvokeInfo struct {
	Attributes PInvokeAttributes
	EntryPoint string
	Module     *ModuleRef
}

// MethodDef is a method definition. Body is nil for methods without IL,
// such as platform-invoke stubs.
type MethodDef struct {
	Name           string
	Attributes     MethodAttributes
	ImplAttributes MethodImplAttributes
	ReturnType     *TypeRef
	Params         []*Param
	GenericParams  []string
	PInvoke        *PInvokeInfo
	Body           *Body
}

// IsStatic reports whether the method is static.
func (m *MethodDef) IsStatic() bool { return m.Attributes&MethodStatic != 0 }

// IsPublic reports whether the method is public.
func (m *MethodDef) IsPublic() bool { return m.Attributes&MethodAccessMask == MethodPublic }

// IsConstructor reports whether the method is an instance or type constructor.
func (m *MethodDef) IsConstructor() bool {
	return m.Attributes&MethodRTSpecialName != 0 && (m.Name == CtorName || m.Name == StaticCtorName)
}

// IsPInvokeImpl reports whether the method is implemented in a native module.
func (m *MethodDef) IsPInvokeImpl() bool { return m.Attributes&MethodPInvokeImpl != 0 }

// IsPreserveSig reports whether the signature is passed through unchanged to native code.
func (m *MethodDef) IsPreserveSig() bool { return m.ImplAttributes&ImplPreserveSig != 0 }

// ParamTypes returns the parameter types in order.
func (m *MethodDef) ParamTypes() []*TypeRef {
	out := make([]*TypeRef, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Type
	}
	return out
}

// Ref returns a reference to this method as declared by decl.
func (m *MethodDef) Ref(decl *TypeRef) *MethodRef {
	return &MethodRef{
		DeclaringType: decl,
		Name:          m.Name,
		HasThis:       !m.IsStatic(),
		ReturnType:    m.ReturnType,
		Params:        m.ParamTypes(),
	}
}

// MethodRef is a reference to a method through its declaring type.
// Params and ReturnType are the open signature; for a method of a generic
// instance they mention the type's generic parameters, not the arguments.
type MethodRef struct {
	DeclaringType *TypeRef
	Name          string
	HasThis       bool
	ReturnType    *TypeRef
	Params        []*TypeRef
}

// MakeHostInstanceGeneric returns a copy of the reference whose declaring
// type is instantiated with args.
func (m *MethodRef) MakeHostInstanceGeneric(args ...*TypeRef) *MethodRef {
	cp := *m
	cp.DeclaringType = m.DeclaringType.ElementType().MakeGenericInstance(args...)
	cp.Params = append([]*TypeRef(nil), m.Params...)
	return &cp
}

// FullName renders the method, e.g. "System.Void Weaver.Loader::Attach()".
func (m *MethodRef) FullName() string {
	var b strings.Builder
	if m.ReturnType != nil {
		b.WriteString(m.ReturnType.FullName())
		b.WriteByte(' ')
	}
	b.WriteString(m.DeclaringType.FullName())
	b.WriteString("::")
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.FullName())
	}
	b.WriteByte(')')
	return b.String()
}

// String renders the method with the declaring type's scope.
func (m *MethodRef) String() string {
	return "[" + scopeOf(m.DeclaringType) + "]" + m.FullName()
}

// FieldRef is a reference to a field through its declaring type.
type FieldRef struct {
	DeclaringType *TypeRef
	Name          string
	Type          *TypeRef
}

// FullName renders the field, e.g. "System.Collections.Generic.List`1<System.String> Weaver.Loader::preloadList".
func (f *FieldRef) FullName() string {
	return f.Type.FullName() + " " + f.DeclaringType.FullName() + "::" + f.Name
}

// String renders the field with the declaring type's scope.
func (f *FieldRef) String() string {
	return "[" + scopeOf(f.DeclaringType) + "]" + f.FullName()
}

func scopeOf(t *TypeRef) string {
	if e := t.ElementType(); e != nil {
		return e.Scope
	}
	return ""
}
