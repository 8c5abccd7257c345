// Package module is the in-memory model of a binary module: type, field and
// method definitions, instruction streams with exception regions, native
// module references and the embedded resource table.
//
// Definitions are owned by the module that declares them. Everything that
// points across modules goes through a TypeRef, MethodRef or FieldRef whose
// Scope names the declaring module, so a reference can always be resolved
// again through a Resolver.
package module

import (
	"fmt"
	"slices"
)

// Name identifies a module by name and version.
type Name struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// String renders the name as "name" or "name/version".
func (n Name) String() string {
	if n.Version == "" {
		return n.Name
	}
	return n.Name + "/" + n.Version
}

// ResourceAttributes describes the visibility of an embedded resource.
type ResourceAttributes uint8

const (
	// ResourcePublic resources are visible to other modules.
	ResourcePublic ResourceAttributes = 1
	// ResourcePrivate resources are visible only inside the declaring module.
	ResourcePrivate ResourceAttributes = 2
)

// Resource is a named byte payload embedded in a module.
type Resource struct {
	Name       string
	Attributes ResourceAttributes
	Data       []byte
}

// ModuleRef is a reference to a native library used by platform-invoke methods.
type ModuleRef struct {
	Name string
}

// Module is a unit of type definitions plus a resource table.
type Module struct {
	Name    string
	Version string

	Types []*TypeDef

	// References lists the names of modules this module imports symbols from.
	References []string

	ModuleRefs []*ModuleRef
	Resources  []*Resource
}

// New creates an empty module.
func New(name, version string) *Module {
	return &Module{Name: name, Version: version}
}

// Identity returns the module's name and version.
func (m *Module) Identity() Name {
	return Name{Name: m.Name, Version: m.Version}
}

// Type returns the type definition with the given namespace and name, or nil.
func (m *Module) Type(namespace, name string) *TypeDef {
	for _, t := range m.Types {
		if t.Namespace == namespace && t.Name == name {
			return t
		}
	}
	return nil
}

// TypeByName returns the first type definition with the given simple name, or nil.
func (m *Module) TypeByName(name string) *TypeDef {
	for _, t := range m.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// AddType appends a type definition. Adding a second type with the same full
// name is an error.
func (m *Module) AddType(t *TypeDef) error {
	if m.Type(t.Namespace, t.Name) != nil {
		return fmt.Errorf("type %s already defined in module %s", t.FullName(), m.Name)
	}
	m.Types = append(m.Types, t)
	return nil
}

// Ref returns a reference to a type declared in this module.
func (m *Module) Ref(t *TypeDef) *TypeRef {
	return NamedType(m.Name, t.Namespace, t.Name)
}

// Resource returns the resource with the given name, or nil.
func (m *Module) Resource(name string) *Resource {
	for _, r := range m.Resources {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasResource reports whether a resource with the given name exists.
func (m *Module) HasResource(name string) bool {
	return m.Resource(name) != nil
}

// AddResource appends a resource. Resource names are unique within a module.
func (m *Module) AddResource(r *Resource) error {
	if m.HasResource(r.Name) {
		return fmt.Errorf("resource %q already embedded in module %s", r.Name, m.Name)
	}
	m.Resources = append(m.Resources, r)
	return nil
}

// ResourceNames returns the names of all resources in table order.
func (m *Module) ResourceNames() []string {
	names := make([]string, len(m.Resources))
	for i, r := range m.Resources {
		names[i] = r.Name
	}
	return names
}

// ModuleRef returns the native module reference with the given name, creating
// it when it does not exist yet.
func (m *Module) ModuleRef(name string) *ModuleRef {
	for _, mr := range m.ModuleRefs {
		if mr.Name == name {
			return mr
		}
	}
	mr := &ModuleRef{Name: name}
	m.ModuleRefs = append(m.ModuleRefs, mr)
	return mr
}

// AddReference records that this module imports symbols from the named module.
func (m *Module) AddReference(name string) {
	if name == "" || name == m.Name || slices.Contains(m.References, name) {
		return
	}
	m.References = append(m.References, name)
}

// Reaches reports whether symbols scoped to the named module may be used from m.
func (m *Module) Reaches(scope string) bool {
	return scope == m.Name || slices.Contains(m.References, scope)
}
