// Package checksum computes the content digests weaver relies on: the per-file
// checksum used as a cache key and recorded for materialised dependencies, and
// the aggregate stamp over every embedded payload.
package checksum

import (
	"bufio"
	"context"
	"crypto/md5"  //nolint:gosec // MD5 is used as a build-identity stamp only
	"crypto/sha1" //nolint:gosec // SHA1 is used for content addressing only
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/opmodel/weaver/internal/module"
)

// File returns the checksum of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksumming %s: %w", path, err)
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("checksumming %s: %w", path, err)
	}
	return sum, nil
}

// Files checksums paths concurrently, at most limit files at a time. A limit
// of zero or less uses GOMAXPROCS. The first failure cancels the rest.
func Files(ctx context.Context, paths []string, limit int) (map[string]string, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	sums := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := File(p)
			if err != nil {
				return err
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(paths))
	for i, p := range paths {
		out[p] = sums[i]
	}
	return out, nil
}

// Reader returns the checksum of everything read from r: SHA1 rendered as
// 40 upper-case hex digits.
func Reader(r io.Reader) (string, error) {
	h := sha1.New() //nolint:gosec // not used for security
	if _, err := io.Copy(h, bufio.NewReader(r)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", h.Sum(nil)), nil
}

// Bytes returns the checksum of data.
func Bytes(data []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(data)) //nolint:gosec // not used for security
}

// Aggregate computes the build-identity stamp of a module: the resources whose
// name starts with prefix are sorted by name, their payloads concatenated in
// that order and hashed with MD5, rendered as 32 upper-case hex digits.
//
// The result depends on the payload bytes and on their order, so renaming two
// resources with different contents changes the stamp.
func Aggregate(resources []*module.Resource, prefix string) string {
	selected := make([]*module.Resource, 0, len(resources))
	for _, r := range resources {
		if strings.HasPrefix(r.Name, prefix) {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Name < selected[j].Name
	})

	h := md5.New() //nolint:gosec // not used for security
	for _, r := range selected {
		h.Write(r.Data)
	}
	return fmt.Sprintf("%X", h.Sum(nil))
}
