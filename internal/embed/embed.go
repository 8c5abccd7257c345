// Package embed selects the dependencies of a module and embeds them, with
// their debug symbols, as private resources of the module. Payloads go
// through the checksum-keyed cache so identical files are read and
// compressed once across builds.
package embed

import (
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opmodel/weaver/internal/cache"
	"github.com/opmodel/weaver/internal/checksum"
	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/output"
	"github.com/opmodel/weaver/internal/resname"
)

// Options controls which dependencies are embedded and how.
type Options struct {
	IncludeDebugSymbols       bool
	DisableCompression        bool
	CreateTemporaryAssemblies bool

	// Include and Exclude name dependencies by file name without extension.
	// At most one of them is set.
	Include []string
	Exclude []string

	// Unmanaged32 and Unmanaged64 name native libraries by file name without extension.
	Unmanaged32 []string
	Unmanaged64 []string

	// OptOut embeds dependencies unless told otherwise. It is cleared when
	// an include list is configured.
	OptOut bool

	// LegacyOptOut restricts the opt-out selection to dependencies listed in
	// both Unmanaged32 and Unmanaged64.
	LegacyOptOut bool
}

// Checksum is the checksum of the source file of an embedded resource.
type Checksum struct {
	Resource string
	Checksum string
}

// Embedder adds dependency payloads to a module.
type Embedder struct {
	module  *module.Module
	store   *cache.Store
	opts    Options
	sums    []Checksum
	native  bool
	touched []string

	// hashed holds checksums computed ahead of embedding, by absolute path.
	hashed map[string]string
}

// New creates an embedder for m backed by store.
func New(m *module.Module, store *cache.Store, opts Options) *Embedder {
	return &Embedder{module: m, store: store, opts: opts}
}

// Prefetch checksums every existing file among paths, and the debug symbols
// next to them, concurrently. Embedding then reuses the results instead of
// hashing files one at a time.
func (e *Embedder) Prefetch(ctx context.Context, paths []string) error {
	var todo []string
	for _, p := range Binaries(paths) {
		full, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		for _, candidate := range []string{full, SymbolsPath(full)} {
			if st, err := os.Stat(candidate); err == nil && st.Mode().IsRegular() {
				todo = append(todo, candidate)
			}
		}
	}

	sums, err := checksum.Files(ctx, todo, 0)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return oerrors.WrapWeaving(err, "checksumming dependencies")
	}
	output.Debug("prefetched checksums", "files", len(sums))
	e.hashed = sums
	return nil
}

// fileSum returns the checksum of path, prefetched when available.
func (e *Embedder) fileSum(path string) (string, error) {
	if sum, ok := e.hashed[path]; ok {
		return sum, nil
	}
	return checksum.File(path)
}

// Checksums returns the recorded checksums in the order they were recorded.
func (e *Embedder) Checksums() []Checksum {
	return append([]Checksum(nil), e.sums...)
}

// HasUnmanaged reports whether a native library was embedded.
func (e *Embedder) HasUnmanaged() bool {
	return e.native
}

// Embedded returns the names returned by Embed, in call order, without duplicates.
func (e *Embedder) Embedded() []string {
	return append([]string(nil), e.touched...)
}

// EmbedAll embeds the selected copy-local dependencies followed by every
// native library named in the unmanaged lists. references lists every
// declared reference of the module; it is consulted only for included
// dependencies that are not copy-local. A nil copyLocal list is an error.
func (e *Embedder) EmbedAll(copyLocal, references []string) error {
	if copyLocal == nil {
		return oerrors.Weavingf("the list of copy-local dependencies is required; the calling build tool may be too old")
	}
	binaries := Binaries(copyLocal)

	selected, err := Select(binaries, references, e.opts)
	if err != nil {
		return err
	}

	compress := !e.opts.DisableCompression
	for _, dep := range selected {
		full, err := filepath.Abs(dep)
		if err != nil {
			return oerrors.WrapWeaving(err, "resolving %s", dep)
		}

		if strings.HasSuffix(full, ".resources.dll") {
			culture := filepath.Base(filepath.Dir(full))
			if _, err := e.embedFile(resname.SatellitePrefix(culture), full, compress, e.opts.CreateTemporaryAssemblies); err != nil {
				return err
			}
			continue
		}

		if err := e.embedWithSymbols(resname.Base.Prefix(), full, compress, e.opts.CreateTemporaryAssemblies); err != nil {
			return err
		}
	}

	for _, dep := range binaries {
		var prefix string
		name := baseName(dep)
		if contains(e.opts.Unmanaged32, name) {
			prefix = resname.Unmanaged32.Prefix()
		}
		if contains(e.opts.Unmanaged64, name) {
			prefix = resname.Unmanaged64.Prefix()
		}
		if prefix == "" {
			continue
		}
		e.native = true

		full, err := filepath.Abs(dep)
		if err != nil {
			return oerrors.WrapWeaving(err, "resolving %s", dep)
		}
		if err := e.embedWithSymbols(prefix, full, compress, true); err != nil {
			return err
		}
	}
	return nil
}

func (e *Embedder) embedWithSymbols(prefix, path string, compress, record bool) error {
	if _, err := e.embedFile(prefix, path, compress, record); err != nil {
		return err
	}
	if !e.opts.IncludeDebugSymbols {
		return nil
	}
	pdb := SymbolsPath(path)
	if _, err := os.Stat(pdb); err != nil {
		return nil
	}
	_, err := e.embedFile(prefix, pdb, compress, record)
	return err
}

func (e *Embedder) embedFile(prefix, path string, compress, record bool) (string, error) {
	name, err := e.Embed(prefix, path, compress)
	if err != nil {
		return "", err
	}
	if record {
		sum, err := e.fileSum(path)
		if err != nil {
			return "", oerrors.WrapWeaving(err, "recording checksum of %s", path)
		}
		e.record(name, sum)
	}
	return name, nil
}

func (e *Embedder) record(name, sum string) {
	for i := range e.sums {
		if e.sums[i].Resource == name {
			e.sums[i].Checksum = sum
			return
		}
	}
	e.sums = append(e.sums, Checksum{Resource: name, Checksum: sum})
}

// Embed adds the file at path to the module under prefix and returns the
// resource name. A resource of the same name that is already embedded is
// kept, and its name returned.
func (e *Embedder) Embed(prefix, path string, compress bool) (string, error) {
	name := resname.Encode(prefix, filepath.Base(path), compress)
	if e.module.HasResource(name) {
		output.Info("skipping, already embedded", "path", path, "resource", name)
		e.touch(name)
		return name, nil
	}

	output.Info("embedding", "path", path, "resource", name)

	sum, err := e.fileSum(path)
	if err != nil {
		return "", oerrors.WrapWeaving(err, "embedding %s", path)
	}
	data, err := e.store.Fill(sum, name, func(w io.Writer) error {
		return copyFile(w, path, compress)
	})
	if err != nil {
		return "", oerrors.WrapWeaving(err, "embedding %s", path)
	}

	if err := e.module.AddResource(&module.Resource{
		Name:       name,
		Attributes: module.ResourcePrivate,
		Data:       data,
	}); err != nil {
		return "", oerrors.WrapWeaving(err, "embedding %s", path)
	}
	e.touch(name)
	return name, nil
}

func (e *Embedder) touch(name string) {
	if !contains(e.touched, name) {
		e.touched = append(e.touched, name)
	}
}

func copyFile(w io.Writer, path string, compress bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !compress {
		_, err := io.Copy(w, f)
		return err
	}
	zw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, f); err != nil {
		return err
	}
	return zw.Close()
}

// Decompress inflates a payload written with compression.
func Decompress(data []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(data))
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflating payload: %w", err)
	}
	return out, nil
}

// SymbolsPath returns the debug symbols file that belongs to a binary.
func SymbolsPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + resname.SymbolsExtension
}
