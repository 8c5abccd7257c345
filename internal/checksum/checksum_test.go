package checksum

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opmodel/weaver/internal/module"
	"github.com/opmodel/weaver/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "a.dll", "abc")

	sum, err := File(path)
	require.NoError(t, err)
	// SHA1("abc")
	assert.Equal(t, "A9993E364706816ABA3E25717850C26C9CD0D89D", sum)
	assert.Equal(t, sum, Bytes([]byte("abc")))

	sum, err = Reader(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "A9993E364706816ABA3E25717850C26C9CD0D89D", sum)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.dll"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.dll")
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		testutil.WriteFile(t, dir, "a.dll", "abc"),
		testutil.WriteFile(t, dir, "b.dll", "def"),
		testutil.WriteFile(t, dir, "c.pdb", "ghi"),
	}

	t.Run("hashes every file", func(t *testing.T) {
		sums, err := Files(context.Background(), paths, 2)
		require.NoError(t, err)
		require.Len(t, sums, 3)
		for _, p := range paths {
			want, err := File(p)
			require.NoError(t, err)
			assert.Equal(t, want, sums[p])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		sums, err := Files(context.Background(), nil, 0)
		require.NoError(t, err)
		assert.Empty(t, sums)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Files(context.Background(), append(paths, filepath.Join(dir, "gone.dll")), 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gone.dll")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Files(ctx, paths, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func res(name, data string) *module.Resource {
	return &module.Resource{Name: name, Attributes: module.ResourcePrivate, Data: []byte(data)}
}

func TestAggregate(t *testing.T) {
	base := []*module.Resource{
		res("weaver.b.dll", "BBBB"),
		res("weaver.a.dll", "AAAA"),
		res("other.txt", "ignored"),
	}

	t.Run("format", func(t *testing.T) {
		got := Aggregate(base, "weaver")
		assert.Len(t, got, 32)
		assert.Equal(t, strings.ToUpper(got), got)
	})

	t.Run("deterministic and order independent", func(t *testing.T) {
		reordered := []*module.Resource{base[2], base[0], base[1]}
		assert.Equal(t, Aggregate(base, "weaver"), Aggregate(reordered, "weaver"))
	})

	t.Run("sorted concatenation", func(t *testing.T) {
		joined := []*module.Resource{res("weaver.x", "AAAABBBB")}
		assert.Equal(t, Aggregate(joined, "weaver"), Aggregate(base, "weaver"))
	})

	t.Run("ignores other prefixes", func(t *testing.T) {
		without := base[:2]
		assert.Equal(t, Aggregate(without, "weaver"), Aggregate(base, "weaver"))
	})

	t.Run("one byte changes the stamp", func(t *testing.T) {
		changed := []*module.Resource{res("weaver.b.dll", "BBBB"), res("weaver.a.dll", "AAAB")}
		assert.NotEqual(t, Aggregate(base, "weaver"), Aggregate(changed, "weaver"))
	})

	t.Run("swapping names changes the stamp", func(t *testing.T) {
		swapped := []*module.Resource{res("weaver.a.dll", "BBBB"), res("weaver.b.dll", "AAAA")}
		assert.NotEqual(t, Aggregate(base, "weaver"), Aggregate(swapped, "weaver"))
	})

	t.Run("empty", func(t *testing.T) {
		// MD5 of no input
		assert.Equal(t, "D41D8CD98F00B204E9800998ECF8427E", Aggregate(nil, "weaver"))
	})
}
