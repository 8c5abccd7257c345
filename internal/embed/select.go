package embed

import (
	"path/filepath"
	"slices"
	"strings"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

// Binaries keeps the paths that name a binary module.
func Binaries(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".dll") || strings.HasSuffix(p, ".exe") {
			out = append(out, p)
		}
	}
	return out
}

// Select returns the managed dependencies to embed. Exactly one rule applies,
// checked in this order: an include list embeds the named dependencies,
// looking up the ones that are not copy-local in references; an exclude list
// embeds everything not named; otherwise the opt-out rule embeds every
// binary that is not a native library.
//
// Native libraries are never selected here; EmbedAll handles them separately.
func Select(binaries, references []string, opts Options) ([]string, error) {
	if len(opts.Include) > 0 && len(opts.Exclude) > 0 {
		return nil, oerrors.Weavingf("either configure include OR exclude, not both")
	}

	switch {
	case len(opts.Include) > 0:
		return selectIncluded(binaries, references, opts)
	case len(opts.Exclude) > 0:
		var out []string
		for _, b := range binaries {
			name := baseName(b)
			if contains(opts.Exclude, name) || isUnmanaged(name, opts) {
				continue
			}
			out = append(out, b)
		}
		return out, nil
	case !opts.OptOut:
		return nil, nil
	}

	var all, legacy []string
	for _, b := range binaries {
		name := baseName(b)
		if contains(opts.Unmanaged32, name) && contains(opts.Unmanaged64, name) {
			legacy = append(legacy, b)
		}
		if !isUnmanaged(name, opts) {
			all = append(all, b)
		}
	}
	if opts.LegacyOptOut {
		if !slices.Equal(all, legacy) {
			output.Warn("legacy opt-out skips managed dependencies the default rule embeds",
				"default", len(all), "legacy", len(legacy))
		}
		return legacy, nil
	}
	if !slices.Equal(all, legacy) {
		output.Debug("legacy opt-out rule would select a different set of dependencies",
			"default", len(all), "legacy", len(legacy))
	}
	return all, nil
}

func selectIncluded(binaries, references []string, opts Options) ([]string, error) {
	skipped := append([]string(nil), opts.Include...)
	var out []string
	for _, b := range binaries {
		name := baseName(b)
		if !contains(opts.Include, name) || isUnmanaged(name, opts) {
			continue
		}
		skipped = slices.DeleteFunc(skipped, func(s string) bool { return s == name })
		out = append(out, b)
	}
	if len(skipped) == 0 {
		return out, nil
	}

	if references == nil {
		return nil, oerrors.Weavingf("embedding dependencies that are not copy-local requires the list of references; the calling build tool may be too old")
	}
	for _, name := range skipped {
		i := slices.IndexFunc(references, func(ref string) bool {
			return strings.EqualFold(baseName(ref), name)
		})
		if i < 0 {
			return nil, oerrors.Weavingf("assembly '%s' cannot be found (not even as a non-copy-local reference), please update the configuration", name)
		}
		out = append(out, references[i])
	}
	return out, nil
}

func isUnmanaged(name string, opts Options) bool {
	return contains(opts.Unmanaged32, name) || contains(opts.Unmanaged64, name)
}

// baseName returns the file name without its extension.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
