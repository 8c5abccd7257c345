package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opmodel/weaver/internal/modfile"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
)

// DefaultTemplateName is the template used when --template is not specified.
const DefaultTemplateName = "loader"

// Template is a built-in module image.
type Template struct {
	Name        string
	Description string
	Default     bool

	build func() *module.Module
}

// Build constructs a fresh copy of the template module.
func (t Template) Build() *module.Module {
	return t.build()
}

// FileName is the name Dump writes the image under.
func (t Template) FileName() string {
	return t.Name + ".yaml"
}

// templates is the internal registry of built-in images.
var templates = map[string]Template{
	"corlib": {
		Name:        "corlib",
		Description: "Base runtime library surface referenced by the loader",
		build:       Corlib,
	},
	"loader": {
		Name:        "loader",
		Description: "Assembly loader templates: plain, unmanaged and temp-files",
		Default:     true,
		build:       func() *module.Module { return Loader(Corlib()) },
	},
}

// Get returns a template by name.
// Returns an error if the template is not found.
func Get(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q; valid templates: %s", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// List returns all available templates.
func List() []Template {
	return []Template{
		templates["corlib"],
		templates["loader"],
	}
}

// GetDefault returns the default template.
func GetDefault() Template {
	return templates[DefaultTemplateName]
}

// Names returns all template names.
func Names() []string {
	return []string{"corlib", "loader"}
}

// NewRegistry returns a resolver holding the runtime library surface and the
// loader template module.
func NewRegistry() (*module.Registry, *module.Module) {
	lib := Corlib()
	loader := Loader(lib)
	return module.NewRegistry(lib, loader), loader
}

// Dump writes every built-in image into dir and returns the written paths.
func Dump(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	var paths []string
	for _, t := range List() {
		path := filepath.Join(dir, t.FileName())
		if err := modfile.WriteFile(path, t.Build()); err != nil {
			return nil, fmt.Errorf("writing template %s: %w", t.Name, err)
		}
		output.Debug("wrote template", "name", t.Name, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
