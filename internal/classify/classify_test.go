package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestOrder(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		preload []string
		want    []string
	}{
		{
			name:    "hints first then sorted",
			names:   []string{"weaver.alpha.dll", "weaver.beta.dll", "weaver.zeta.dll"},
			preload: []string{"zeta", "alpha"},
			want:    []string{"weaver.zeta.dll", "weaver.alpha.dll", "weaver.beta.dll"},
		},
		{
			name:    "hints are case-insensitive",
			names:   []string{"weaver.b.dll.zip", "weaver.a.dll.zip"},
			preload: []string{"B"},
			want:    []string{"weaver.b.dll.zip", "weaver.a.dll.zip"},
		},
		{
			name:    "hint matches every resource of the logical name",
			names:   []string{"weaver.b.pdb.zip", "weaver.a.dll", "weaver.b.dll.zip"},
			preload: []string{"b"},
			want:    []string{"weaver.b.pdb.zip", "weaver.b.dll.zip", "weaver.a.dll"},
		},
		{
			name:    "unknown hints are ignored",
			names:   []string{"weaver.b.dll", "weaver.a.dll"},
			preload: []string{"missing"},
			want:    []string{"weaver.a.dll", "weaver.b.dll"},
		},
		{
			name:  "foreign resources excluded",
			names: []string{"App.Resources.resx", "weaver64.native.dll", "weaver.a.dll", "weaver32.native.dll"},
			want:  []string{"weaver.a.dll", "weaver32.native.dll", "weaver64.native.dll"},
		},
		{
			name:    "hinted foreign resource still excluded",
			names:   []string{"other.a.dll", "weaver.a.dll"},
			preload: []string{"a"},
			want:    []string{"weaver.a.dll"},
		},
		{
			name: "empty",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Order(tt.names, tt.preload))
		})
	}
}

func TestClassify(t *testing.T) {
	ordered := []string{
		"weaver.a.dll.zip",
		"weaver.b.dll.zip",
		"weaver.b.pdb.zip",
		"weaver.de.b.resources.dll.zip",
		"weaver32.native.dll",
		"weaver64.native.dll",
		"weaver.broken",
	}

	t.Run("embedded", func(t *testing.T) {
		plan := Classify(ordered, false)
		want := []Entry{
			{Kind: Assembly, Logical: "a", Resource: "weaver.a.dll.zip"},
			{Kind: Assembly, Logical: "b", Resource: "weaver.b.dll.zip"},
			{Kind: Assembly, Logical: "de.b.resources", Resource: "weaver.de.b.resources.dll.zip"},
		}
		if diff := cmp.Diff(want, plan.Filter(Assembly)); diff != "" {
			t.Errorf("assemblies mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []Entry{{Kind: Symbols, Logical: "b", Resource: "weaver.b.pdb.zip"}}, plan.Filter(Symbols))
		assert.Equal(t, []string{"weaver32.native.dll"}, plan.Resources(Preload32))
		assert.Equal(t, []string{"weaver64.native.dll"}, plan.Resources(Preload64))
		assert.Empty(t, plan.Filter(Preload))
	})

	t.Run("temp files", func(t *testing.T) {
		plan := Classify(ordered, true)
		assert.Equal(t, []string{
			"weaver.a.dll.zip",
			"weaver.b.dll.zip",
			"weaver.b.pdb.zip",
			"weaver.de.b.resources.dll.zip",
		}, plan.Resources(Preload))
		assert.Empty(t, plan.Filter(Assembly))
		assert.Empty(t, plan.Filter(Symbols))
		assert.Len(t, plan.Filter(Preload64), 1)
	})
}
