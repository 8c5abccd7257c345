// Package cache is an on-disk store of embedded payloads keyed by the
// checksum of their source file.
//
// An entry is the file "<root>/<checksum>.<resource name>". Entries are
// written once and never modified. Several builds may share a root: a writer
// produces the payload in a temporary file and links it into place, and a
// writer that loses the race reads the winner's entry instead.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opmodel/weaver/internal/output"
)

const tempPrefix = ".tmp-"

// Store is a cache rooted at a directory.
type Store struct {
	root string
}

// Open returns the store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the location of the entry for checksum and resource name.
func (s *Store) Path(checksum, name string) string {
	return filepath.Join(s.root, checksum+"."+name)
}

// Get returns the entry's payload. The boolean is false when the entry does
// not exist.
func (s *Store) Get(checksum, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(checksum, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return data, true, nil
}

// Fill returns the entry's payload, calling produce to write it when the entry
// does not exist yet. Concurrent fills of the same key create one entry; every
// caller gets the bytes of that entry.
func (s *Store) Fill(checksum, name string, produce func(w io.Writer) error) ([]byte, error) {
	if data, ok, err := s.Get(checksum, name); err != nil || ok {
		if ok {
			output.Debug("cache hit", "entry", checksum+"."+name)
		}
		return data, err
	}

	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	var buf bytes.Buffer
	if err := produce(io.MultiWriter(tmp, &buf)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("producing cache entry %s.%s: %w", checksum, name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing cache entry: %w", err)
	}

	final := s.Path(checksum, name)
	published, err := publish(tmp.Name(), final)
	if err != nil {
		return nil, fmt.Errorf("publishing cache entry %s: %w", final, err)
	}
	if !published {
		output.Debug("cache entry written concurrently, reading winner", "entry", checksum+"."+name)
		data, _, err := s.Get(checksum, name)
		return data, err
	}
	output.Debug("cache entry created", "entry", checksum+"."+name, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// publish moves a fully written temporary file to dst without replacing an
// existing entry. It reports false when dst already existed.
func publish(tmp, dst string) (bool, error) {
	err := os.Link(tmp, dst)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	// Filesystems without hard links fall back to rename.
	if _, statErr := os.Stat(dst); statErr == nil {
		return false, nil
	}
	if err := os.Rename(tmp, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Entry describes a cache entry on disk.
type Entry struct {
	Checksum string
	Resource string
	Size     int64
	ModTime  time.Time
}

// FileName returns the entry's file name inside the root.
func (e Entry) FileName() string {
	return e.Checksum + "." + e.Resource
}

// List returns every entry in the store, sorted by file name.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing cache %s: %w", s.root, err)
	}
	var entries []Entry
	for _, d := range dirents {
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			continue
		}
		sum, res, ok := strings.Cut(d.Name(), ".")
		if !ok || sum == "" || res == "" {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("listing cache %s: %w", s.root, err)
		}
		entries = append(entries, Entry{
			Checksum: sum,
			Resource: res,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FileName() < entries[j].FileName()
	})
	return entries, nil
}

// Prune removes entries last modified before cutoff and returns them.
func (s *Store) Prune(cutoff time.Time) ([]Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var removed []Entry
	for _, e := range entries {
		if !e.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.FileName())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("pruning %s: %w", e.FileName(), err)
		}
		output.Debug("pruned cache entry", "entry", e.FileName())
		removed = append(removed, e)
	}
	return removed, nil
}
