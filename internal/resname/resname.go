// Package resname implements the naming scheme of embedded payloads:
//
//	<prefix>.<logical name>.<extension>[.zip]
//
// The prefix selects the category: "weaver" for managed dependencies and
// their debug symbols, "weaver32" and "weaver64" for native libraries of one
// bitness. Satellite resource assemblies use the managed prefix followed by
// their culture. The trailing "zip" segment is present exactly when the
// payload is compressed. Logical names may themselves contain dots.
package resname

import "strings"

// Category is the kind of payload a resource name denotes.
type Category int

const (
	// Other names were not produced by weaver.
	Other Category = iota
	// Base is a managed dependency or its debug symbols.
	Base
	// Unmanaged32 is a native library preloaded by 32-bit processes.
	Unmanaged32
	// Unmanaged64 is a native library preloaded by 64-bit processes.
	Unmanaged64
)

// Leading name segments of each category.
const (
	BasePrefix        = "weaver"
	Unmanaged32Prefix = "weaver32"
	Unmanaged64Prefix = "weaver64"
)

// CompressedExtension is appended to compressed payload names.
const CompressedExtension = "zip"

// SymbolsExtension is the extension of debug symbol files.
const SymbolsExtension = "pdb"

// String returns the category's prefix, or "other".
func (c Category) String() string {
	switch c {
	case Base:
		return BasePrefix
	case Unmanaged32:
		return Unmanaged32Prefix
	case Unmanaged64:
		return Unmanaged64Prefix
	default:
		return "other"
	}
}

// Prefix returns the dotted name prefix for the category.
func (c Category) Prefix() string {
	return c.String() + "."
}

// SatellitePrefix returns the dotted prefix of a satellite resource assembly
// for culture.
func SatellitePrefix(culture string) string {
	return BasePrefix + "." + culture + "."
}

// Encode builds the resource name of fileName under a dotted prefix. The file
// name is lower-cased.
func Encode(prefix, fileName string, compressed bool) string {
	name := prefix + strings.ToLower(fileName)
	if compressed {
		name += "." + CompressedExtension
	}
	return name
}

// HasPrefix reports whether name was produced by weaver, whatever its category.
func HasPrefix(name string) bool {
	return strings.HasPrefix(name, BasePrefix)
}

// Name is a decoded resource name.
type Name struct {
	Category   Category
	Prefix     string
	Logical    string
	Extension  string
	Compressed bool
}

// FileName returns the logical name with its extension.
func (n Name) FileName() string {
	return n.Logical + "." + n.Extension
}

// Decode splits a resource name into its parts. It reports false when the
// name has no logical part or no extension.
func Decode(name string) (Name, bool) {
	parts := strings.Split(name, ".")
	compressed := parts[len(parts)-1] == CompressedExtension
	tail := 1
	if compressed {
		tail = 2
	}
	if len(parts) < tail+2 {
		return Name{}, false
	}
	n := Name{
		Category:   categoryOf(parts[0]),
		Prefix:     parts[0],
		Logical:    strings.Join(parts[1:len(parts)-tail], "."),
		Extension:  parts[len(parts)-tail],
		Compressed: compressed,
	}
	if n.Logical == "" || n.Extension == "" {
		return Name{}, false
	}
	return n, true
}

func categoryOf(prefix string) Category {
	switch prefix {
	case BasePrefix:
		return Base
	case Unmanaged32Prefix:
		return Unmanaged32
	case Unmanaged64Prefix:
		return Unmanaged64
	default:
		return Other
	}
}
