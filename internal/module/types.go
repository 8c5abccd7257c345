package module

import (
	"strconv"
	"strings"
)

// TypeKind discriminates the shapes a TypeRef can take.
type TypeKind uint8

const (
	// KindNamed is a reference to a type definition by scope, namespace and name.
	KindNamed TypeKind = iota
	// KindArray is a single-dimensional array of Elem.
	KindArray
	// KindGenericInstance is Elem instantiated with Args.
	KindGenericInstance
	// KindGenericParam is the Position-th generic parameter of the enclosing type or method.
	KindGenericParam
)

// String returns the kind's name.
func (k TypeKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindArray:
		return "array"
	case KindGenericInstance:
		return "generic"
	case KindGenericParam:
		return "param"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// TypeRef is a reference to a type.
type TypeRef struct {
	Kind TypeKind

	// Scope is the name of the module declaring a named type.
	Scope     string
	Namespace string
	Name      string

	// Elem is the array element type or the generic type being instantiated.
	Elem *TypeRef
	// Args are the generic arguments of a generic instance.
	Args []*TypeRef

	// Position is the index of a generic parameter.
	Position int
	// MethodParam marks a generic parameter owned by a method rather than a type.
	MethodParam bool
}

// NamedType creates a reference to a named type declared in scope.
func NamedType(scope, namespace, name string) *TypeRef {
	return &TypeRef{Kind: KindNamed, Scope: scope, Namespace: namespace, Name: name}
}

// GenericParam creates a reference to the position-th type generic parameter.
func GenericParam(position int) *TypeRef {
	return &TypeRef{Kind: KindGenericParam, Position: position}
}

// MethodGenericParam creates a reference to the position-th method generic parameter.
func MethodGenericParam(position int) *TypeRef {
	return &TypeRef{Kind: KindGenericParam, Position: position, MethodParam: true}
}

// MakeArray wraps t in an array type.
func (t *TypeRef) MakeArray() *TypeRef {
	return &TypeRef{Kind: KindArray, Elem: t}
}

// MakeGenericInstance instantiates t with args.
func (t *TypeRef) MakeGenericInstance(args ...*TypeRef) *TypeRef {
	return &TypeRef{Kind: KindGenericInstance, Elem: t, Args: args}
}

// IsArray reports whether t is an array type.
func (t *TypeRef) IsArray() bool { return t != nil && t.Kind == KindArray }

// IsGenericInstance reports whether t is a generic instantiation.
func (t *TypeRef) IsGenericInstance() bool { return t != nil && t.Kind == KindGenericInstance }

// ElementType strips arrays and generic instantiations down to the named type
// they are built from. Generic parameters are returned unchanged.
func (t *TypeRef) ElementType() *TypeRef {
	for t != nil && (t.Kind == KindArray || t.Kind == KindGenericInstance) {
		t = t.Elem
	}
	return t
}

// FullName renders the type without its scope, e.g.
// "System.Collections.Generic.Dictionary`2<System.String,System.String>".
func (t *TypeRef) FullName() string {
	if t == nil {
		return "<nil>"
	}
	var b strings.Builder
	t.writeName(&b)
	return b.String()
}

// String renders the type with its scope, e.g. "[corlib]System.String[]".
func (t *TypeRef) String() string {
	if t == nil {
		return "<nil>"
	}
	if e := t.ElementType(); e != nil && e.Kind == KindNamed && e.Scope != "" {
		return "[" + e.Scope + "]" + t.FullName()
	}
	return t.FullName()
}

func (t *TypeRef) writeName(b *strings.Builder) {
	switch t.Kind {
	case KindNamed:
		if t.Namespace != "" {
			b.WriteString(t.Namespace)
			b.WriteByte('.')
		}
		b.WriteString(t.Name)
	case KindArray:
		t.Elem.writeName(b)
		b.WriteString("[]")
	case KindGenericInstance:
		t.Elem.writeName(b)
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			a.writeName(b)
		}
		b.WriteByte('>')
	case KindGenericParam:
		if t.MethodParam {
			b.WriteString("!!")
		} else {
			b.WriteByte('!')
		}
		b.WriteString(strconv.Itoa(t.Position))
	}
}

// Equal reports whether two references denote the same type, scope included.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindNamed:
		return t.Scope == o.Scope && t.Namespace == o.Namespace && t.Name == o.Name
	case KindArray:
		return t.Elem.Equal(o.Elem)
	case KindGenericInstance:
		if !t.Elem.Equal(o.Elem) || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	default:
		return t.Position == o.Position && t.MethodParam == o.MethodParam
	}
}

// Scopes returns every module scope mentioned by t, element and arguments included.
func (t *TypeRef) Scopes() []string {
	var out []string
	var walk func(*TypeRef)
	walk = func(r *TypeRef) {
		if r == nil {
			return
		}
		switch r.Kind {
		case KindNamed:
			out = append(out, r.Scope)
		case KindArray:
			walk(r.Elem)
		case KindGenericInstance:
			walk(r.Elem)
			for _, a := range r.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}
