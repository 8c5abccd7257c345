// Package manifest records what a weave embedded, as a YAML document that
// can be kept next to the woven module and compared between builds.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/weaver/internal/checksum"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/resname"
	"github.com/opmodel/weaver/internal/weaver"
)

// Manifest describes a woven module.
type Manifest struct {
	Module    string     `yaml:"module"`
	Version   string     `yaml:"version"`
	Variant   string     `yaml:"variant"`
	Stamp     string     `yaml:"stamp"`
	Loader    string     `yaml:"loader"`
	Resources []Resource `yaml:"resources"`
}

// Resource is one embedded payload.
type Resource struct {
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	Logical    string `yaml:"logical"`
	Extension  string `yaml:"extension"`
	Compressed bool   `yaml:"compressed"`
	Size       int    `yaml:"size"`
	Checksum   string `yaml:"checksum"`

	// Table is the loader table the resource is registered in.
	Table string `yaml:"table,omitempty"`

	// Source is the checksum of the file the payload was read from, when
	// the loader verifies it.
	Source string `yaml:"source,omitempty"`
}

// FromResult builds the manifest of a completed weave.
func FromResult(res *weaver.Result) *Manifest {
	m := &Manifest{
		Module:    res.Module.Name,
		Version:   res.Module.Version,
		Variant:   res.Variant.String(),
		Stamp:     res.Stamp,
		Loader:    res.Loader.FullName(),
		Resources: make([]Resource, 0, len(res.Resources)),
	}

	tables := make(map[string]string, len(res.Plan))
	for _, e := range res.Plan {
		tables[e.Resource] = e.Kind.String()
	}
	sources := make(map[string]string, len(res.Checksums))
	for _, c := range res.Checksums {
		sources[c.Resource] = c.Checksum
	}

	for _, r := range res.Resources {
		entry := Describe(r)
		entry.Table = tables[r.Name]
		entry.Source = sources[r.Name]
		m.Resources = append(m.Resources, entry)
	}
	return m
}

// Describe records a single resource. Names outside the weaver naming
// scheme keep only their name, size and checksum.
func Describe(r *module.Resource) Resource {
	entry := Resource{
		Name:     r.Name,
		Size:     len(r.Data),
		Checksum: checksum.Bytes(r.Data),
	}
	if n, ok := resname.Decode(r.Name); ok {
		entry.Category = n.Category.String()
		entry.Logical = n.Logical
		entry.Extension = n.Extension
		entry.Compressed = n.Compressed
	}
	return entry
}

// Marshal renders the manifest as YAML.
func Marshal(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// Unmarshal parses a manifest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// WriteFile writes the manifest to path.
func WriteFile(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a manifest from path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Unmarshal(data)
}
