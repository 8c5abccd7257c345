// Package config provides configuration loading and management.
package config

import (
	"github.com/opmodel/weaver/internal/embed"
)

// LoaderConfig names the loader type created in the woven module.
type LoaderConfig struct {
	// Namespace of the loader type. Default: "Weaver".
	Namespace string

	// Name of the loader type. Default: "AssemblyLoader".
	Name string
}

// SelectionConfig tunes the default dependency selection.
type SelectionConfig struct {
	// LegacyOptOut embeds, when neither include nor exclude is configured,
	// only dependencies listed as both 32-bit and 64-bit native libraries.
	LegacyOptOut bool
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool
}

// Config represents the weaver configuration.
// Loaded from weaver.yaml, validated against the embedded CUE schema.
type Config struct {
	// IncludeDebugSymbols embeds the .pdb next to each dependency.
	// Env: WEAVER_INCLUDE_DEBUG_SYMBOLS, Default: true
	IncludeDebugSymbols bool

	// DisableCompression embeds payloads uncompressed.
	// Env: WEAVER_DISABLE_COMPRESSION, Default: false
	DisableCompression bool

	// CreateTemporaryAssemblies makes the loader extract every dependency to
	// a temporary directory before loading it.
	// Env: WEAVER_CREATE_TEMPORARY_ASSEMBLIES, Default: false
	CreateTemporaryAssemblies bool

	// IncludeAssemblies and ExcludeAssemblies name dependencies without
	// extension. At most one may be set.
	IncludeAssemblies []string
	ExcludeAssemblies []string

	// Unmanaged32Assemblies and Unmanaged64Assemblies name native libraries.
	Unmanaged32Assemblies []string
	Unmanaged64Assemblies []string

	// PreloadOrder lists logical names registered before all others.
	PreloadOrder []string

	// CacheDir is the payload cache root. Resolved by ResolveCacheDir.
	CacheDir string

	Loader    LoaderConfig
	Selection SelectionConfig
	Log       LogConfig

	// File is the config file that was read, empty when none existed.
	File string
}

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *Config {
	return &Config{IncludeDebugSymbols: true}
}

// OptOut reports whether dependencies are embedded unless excluded. It is
// false exactly when an include list is configured.
func (c *Config) OptOut() bool {
	return len(c.IncludeAssemblies) == 0
}

// EmbedOptions converts the configuration for the embedder.
func (c *Config) EmbedOptions() embed.Options {
	return embed.Options{
		IncludeDebugSymbols:       c.IncludeDebugSymbols,
		DisableCompression:        c.DisableCompression,
		CreateTemporaryAssemblies: c.CreateTemporaryAssemblies,
		Include:                   c.IncludeAssemblies,
		Exclude:                   c.ExcludeAssemblies,
		Unmanaged32:               c.Unmanaged32Assemblies,
		Unmanaged64:               c.Unmanaged64Assemblies,
		OptOut:                    c.OptOut(),
		LegacyOptOut:              c.Selection.LegacyOptOut,
	}
}
