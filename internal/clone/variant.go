package clone

// Variant is the loader template cloned into a module. Exactly one variant is
// cloned per weave.
type Variant int

const (
	// Plain loads embedded dependencies from memory.
	Plain Variant = iota
	// Unmanaged also preloads native libraries before attaching.
	Unmanaged
	// TempFiles writes every embedded dependency to a temporary directory and
	// loads it from there.
	TempFiles
)

// Names of the template types in a template module.
const (
	PlainTypeName     = "LoaderTemplate"
	UnmanagedTypeName = "LoaderTemplateWithUnmanagedHandler"
	TempFilesTypeName = "LoaderTemplateWithTempFiles"
	CommonTypeName    = "Common"
)

// SelectVariant picks the template for a weave. Temporary files win over
// native library support, which wins over the plain loader.
func SelectVariant(createTemporaryAssemblies, hasUnmanaged bool) Variant {
	switch {
	case createTemporaryAssemblies:
		return TempFiles
	case hasUnmanaged:
		return Unmanaged
	default:
		return Plain
	}
}

// TypeName returns the name of the variant's template type.
func (v Variant) TypeName() string {
	switch v {
	case Unmanaged:
		return UnmanagedTypeName
	case TempFiles:
		return TempFilesTypeName
	default:
		return PlainTypeName
	}
}

// String returns the variant's name.
func (v Variant) String() string {
	switch v {
	case Plain:
		return "plain"
	case Unmanaged:
		return "unmanaged"
	case TempFiles:
		return "temp-files"
	default:
		return "unknown"
	}
}
