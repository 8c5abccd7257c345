// Package classify orders the embedded resource names, sorts them into the
// loader's lookup tables and injects the table contents into the loader's
// static constructor.
package classify

import (
	"slices"
	"strings"

	"github.com/opmodel/weaver/internal/resname"
)

// Kind is the lookup table an entry is injected into.
type Kind int

const (
	// Assembly entries map a logical name to a managed dependency.
	Assembly Kind = iota
	// Symbols entries map a logical name to debug symbols.
	Symbols
	// Preload entries are extracted to disk before any assembly resolves.
	Preload
	// Preload32 entries are native libraries loaded by 32-bit processes.
	Preload32
	// Preload64 entries are native libraries loaded by 64-bit processes.
	Preload64
)

func (k Kind) String() string {
	switch k {
	case Assembly:
		return "assembly"
	case Symbols:
		return "symbols"
	case Preload:
		return "preload"
	case Preload32:
		return "preload32"
	case Preload64:
		return "preload64"
	default:
		return "unknown"
	}
}

// Entry is one classified resource.
type Entry struct {
	Kind     Kind
	Logical  string
	Resource string
}

// Plan is the classified resources in injection order.
type Plan []Entry

// Filter returns the entries of one kind, in order.
func (p Plan) Filter(kind Kind) []Entry {
	var out []Entry
	for _, e := range p {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Resources returns the resource names of one kind, in order.
func (p Plan) Resources(kind Kind) []string {
	var out []string
	for _, e := range p.Filter(kind) {
		out = append(out, e.Resource)
	}
	return out
}

// Order returns the weaver resources of names in classification order. Names
// whose logical name matches a preload hint come first, in hint order; the
// rest follow sorted by name. Hints match case-insensitively and never filter.
func Order(names, preload []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	add := func(name string) {
		if !seen[name] && resname.HasPrefix(name) {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, hint := range preload {
		for _, name := range names {
			n, ok := resname.Decode(name)
			if ok && strings.EqualFold(n.Logical, hint) {
				add(name)
			}
		}
	}

	sorted := slices.Clone(names)
	slices.Sort(sorted)
	for _, name := range sorted {
		add(name)
	}
	return out
}

// Classify sorts ordered resource names into lookup tables. In temp-files
// mode every managed resource is extracted ahead of time, so managed
// assemblies and symbols share the preload list. Names that do not decode
// are skipped.
func Classify(ordered []string, tempFiles bool) Plan {
	var plan Plan
	for _, name := range ordered {
		n, ok := resname.Decode(name)
		if !ok {
			continue
		}
		e := Entry{Logical: n.Logical, Resource: name}
		switch n.Category {
		case resname.Base:
			switch {
			case tempFiles:
				e.Kind = Preload
			case n.Extension == resname.SymbolsExtension:
				e.Kind = Symbols
			default:
				e.Kind = Assembly
			}
		case resname.Unmanaged32:
			e.Kind = Preload32
		case resname.Unmanaged64:
			e.Kind = Preload64
		default:
			continue
		}
		plan = append(plan, e)
	}
	return plan
}
