// Package modfile reads and writes module images: a YAML rendering of the
// in-memory module model, used for the target module, the loader template and
// runtime libraries on disk.
package modfile

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/opmodel/weaver/internal/module"
)

type file struct {
	Name       string     `json:"name"`
	Version    string     `json:"version,omitempty"`
	References []string   `json:"references,omitempty"`
	ModuleRefs []string   `json:"moduleRefs,omitempty"`
	Types      []typeDef  `json:"types,omitempty"`
	Resources  []resource `json:"resources,omitempty"`
}

type resource struct {
	Name    string `json:"name"`
	Private bool   `json:"private,omitempty"`
	Data    []byte `json:"data"`
}

type typeRef struct {
	Kind      string     `json:"kind,omitempty"`
	Scope     string     `json:"scope,omitempty"`
	Namespace string     `json:"namespace,omitempty"`
	Name      string     `json:"name,omitempty"`
	Elem      *typeRef   `json:"elem,omitempty"`
	Args      []*typeRef `json:"args,omitempty"`
	Position  int        `json:"position,omitempty"`
	Method    bool       `json:"method,omitempty"`
}

type methodRef struct {
	DeclaringType *typeRef   `json:"declaringType"`
	Name          string     `json:"name"`
	HasThis       bool       `json:"hasThis,omitempty"`
	ReturnType    *typeRef   `json:"returnType,omitempty"`
	Params        []*typeRef `json:"params,omitempty"`
}

type fieldRef struct {
	DeclaringType *typeRef `json:"declaringType"`
	Name          string   `json:"name"`
	Type          *typeRef `json:"type"`
}

type typeDef struct {
	Namespace        string       `json:"namespace,omitempty"`
	Name             string       `json:"name"`
	Attributes       uint32       `json:"attributes,omitempty"`
	BaseType         *typeRef     `json:"baseType,omitempty"`
	GenericParams    []string     `json:"genericParams,omitempty"`
	Fields           []fieldDef   `json:"fields,omitempty"`
	Methods          []methodDef  `json:"methods,omitempty"`
	CustomAttributes []*methodRef `json:"customAttributes,omitempty"`
}

type fieldDef struct {
	Name       string   `json:"name"`
	Attributes uint16   `json:"attributes,omitempty"`
	Type       *typeRef `json:"type"`
}

type param struct {
	Name string   `json:"name,omitempty"`
	Type *typeRef `json:"type"`
}

type pinvoke struct {
	Attributes uint16 `json:"attributes,omitempty"`
	EntryPoint string `json:"entryPoint"`
	Module     string `json:"module"`
}

type methodDef struct {
	Name           string   `json:"name"`
	Attributes     uint16   `json:"attributes,omitempty"`
	ImplAttributes uint16   `json:"implAttributes,omitempty"`
	ReturnType     *typeRef `json:"returnType,omitempty"`
	Params         []param  `json:"params,omitempty"`
	GenericParams  []string `json:"genericParams,omitempty"`
	PInvoke        *pinvoke `json:"pinvoke,omitempty"`
	Body           *body    `json:"body,omitempty"`
}

type body struct {
	InitLocals   bool          `json:"initLocals,omitempty"`
	Locals       []*typeRef    `json:"locals,omitempty"`
	Instructions []instruction `json:"instructions,omitempty"`
	Handlers     []handler     `json:"handlers,omitempty"`
}

type instruction struct {
	Op     string     `json:"op"`
	Str    *string    `json:"str,omitempty"`
	Int    *int64     `json:"int,omitempty"`
	Float  *float64   `json:"float,omitempty"`
	Type   *typeRef   `json:"type,omitempty"`
	Method *methodRef `json:"method,omitempty"`
	Field  *fieldRef  `json:"field,omitempty"`
	Label  *int       `json:"label,omitempty"`
	Labels []int      `json:"labels,omitempty"`
	Local  *int       `json:"local,omitempty"`
	Arg    *int       `json:"arg,omitempty"`
}

type handler struct {
	Kind         string   `json:"kind"`
	TryStart     int      `json:"tryStart"`
	TryEnd       int      `json:"tryEnd"`
	HandlerStart int      `json:"handlerStart"`
	HandlerEnd   int      `json:"handlerEnd"`
	FilterStart  int      `json:"filterStart"`
	CatchType    *typeRef `json:"catchType,omitempty"`
}

// Marshal renders a module image.
func Marshal(m *module.Module) ([]byte, error) {
	f, err := fromModule(m)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(f)
}

// Unmarshal parses a module image.
func Unmarshal(data []byte) (*module.Module, error) {
	var f file
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing module image: %w", err)
	}
	return toModule(&f)
}

// ReadFile reads a module image from path.
func ReadFile(path string) (*module.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", path, err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile writes a module image to path.
func WriteFile(path string, m *module.Module) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing module %s: %w", path, err)
	}
	return nil
}
