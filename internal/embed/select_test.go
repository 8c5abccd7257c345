package embed

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

func TestBinaries(t *testing.T) {
	got := Binaries([]string{"a/A.dll", "a/A.pdb", "a/tool.exe", "a/A.xml"})
	assert.Equal(t, []string{"a/A.dll", "a/tool.exe"}, got)
}

func TestSelect(t *testing.T) {
	binaries := []string{"out/A.dll", "out/B.dll", "out/Native.dll", "out/Both.dll"}

	tests := []struct {
		name       string
		opts       Options
		references []string
		want       []string
		wantErr    string
	}{
		{
			name: "default embeds every managed dependency",
			opts: Options{OptOut: true, Unmanaged32: []string{"Native"}},
			want: []string{"out/A.dll", "out/B.dll", "out/Both.dll"},
		},
		{
			name: "legacy opt-out embeds only dual-bitness libraries",
			opts: Options{
				OptOut:       true,
				LegacyOptOut: true,
				Unmanaged32:  []string{"Both", "Native"},
				Unmanaged64:  []string{"Both"},
			},
			want: []string{"out/Both.dll"},
		},
		{
			name: "opt-out disabled",
			opts: Options{},
			want: nil,
		},
		{
			name: "exclude",
			opts: Options{Exclude: []string{"B"}, Unmanaged64: []string{"Native"}},
			want: []string{"out/A.dll", "out/Both.dll"},
		},
		{
			name: "include",
			opts: Options{Include: []string{"B", "A"}},
			want: []string{"out/A.dll", "out/B.dll"},
		},
		{
			name:       "include falls back to references",
			opts:       Options{Include: []string{"A", "Remote"}},
			references: []string{"ref/System.dll", "ref/remote.dll"},
			want:       []string{"out/A.dll", "ref/remote.dll"},
		},
		{
			name:    "include without references",
			opts:    Options{Include: []string{"Remote"}},
			wantErr: "requires the list of references",
		},
		{
			name:       "include not found anywhere",
			opts:       Options{Include: []string{"Ghost"}},
			references: []string{"ref/System.dll"},
			wantErr:    "assembly 'Ghost' cannot be found",
		},
		{
			name:    "include and exclude",
			opts:    Options{Include: []string{"A"}, Exclude: []string{"B"}},
			wantErr: "not both",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(binaries, tt.references, tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, oerrors.ErrWeaving)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_LegacyRuleWarning(t *testing.T) {
	binaries := []string{"out/A.dll", "out/B.dll"}

	tests := []struct {
		name     string
		opts     Options
		wantWarn bool
	}{
		{name: "default rule stays quiet", opts: Options{OptOut: true}},
		{name: "legacy rule warns when it skips dependencies", opts: Options{OptOut: true, LegacyOptOut: true}, wantWarn: true},
		{
			name: "legacy rule agrees with default",
			opts: Options{OptOut: true, LegacyOptOut: true, Unmanaged32: []string{"A", "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output.SetupLogging(output.LogConfig{})
			var buf bytes.Buffer
			output.SetOutput(&buf)
			t.Cleanup(func() { output.SetOutput(os.Stderr) })

			_, err := Select(binaries, nil, tt.opts)
			require.NoError(t, err)
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "WARN")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
