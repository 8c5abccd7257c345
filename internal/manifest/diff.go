package manifest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	"gopkg.in/yaml.v3"

	"github.com/opmodel/weaver/internal/output"
)

// Changes are the differences between two manifests, per resource.
type Changes struct {
	Added    []string
	Removed  []string
	Modified []output.ModifiedItem
}

// Empty reports whether the manifests describe the same resources.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// Compare matches resources by name and diffs the ones present in both.
func Compare(old, cur *Manifest, color bool) (*Changes, error) {
	before := make(map[string]Resource, len(old.Resources))
	for _, r := range old.Resources {
		before[r.Name] = r
	}
	seen := make(map[string]bool, len(cur.Resources))

	c := &Changes{}
	for _, r := range cur.Resources {
		seen[r.Name] = true
		prev, ok := before[r.Name]
		if !ok {
			c.Added = append(c.Added, r.Name)
			continue
		}
		if prev == r {
			continue
		}
		diff, err := diffValues(prev, r, color)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", r.Name, err)
		}
		c.Modified = append(c.Modified, output.ModifiedItem{Name: r.Name, Diff: diff})
	}
	for _, r := range old.Resources {
		if !seen[r.Name] {
			c.Removed = append(c.Removed, r.Name)
		}
	}
	return c, nil
}

func diffValues(old, cur any, color bool) (string, error) {
	a, err := yaml.Marshal(old)
	if err != nil {
		return "", err
	}
	b, err := yaml.Marshal(cur)
	if err != nil {
		return "", err
	}
	return Diff(a, b, color)
}

// Diff computes a YAML-aware diff of two manifest documents. It returns an
// empty string when they are equivalent.
func Diff(old, cur []byte, color bool) (string, error) {
	if len(old) == 0 && len(cur) == 0 {
		return "", nil
	}

	from, err := parseYAMLInput("old", old)
	if err != nil {
		return "", fmt.Errorf("parsing old manifest: %w", err)
	}
	to, err := parseYAMLInput("new", cur)
	if err != nil {
		return "", fmt.Errorf("parsing new manifest: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return "", fmt.Errorf("comparing manifests: %w", err)
	}
	if len(report.Diffs) == 0 {
		return "", nil
	}
	return renderReport(report, color)
}

func parseYAMLInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}
	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}
	return ytbx.InputFile{Location: name, Documents: docs}, nil
}

func renderReport(report dyff.Report, color bool) (string, error) {
	var buf bytes.Buffer
	w := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      !color,
		OmitHeader:        true,
	}
	if err := w.WriteReport(io.Writer(&buf)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
