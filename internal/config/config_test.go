package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/opmodel/weaver/internal/embed"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IncludeDebugSymbols)
	assert.False(t, cfg.DisableCompression)
	assert.False(t, cfg.CreateTemporaryAssemblies)
	assert.True(t, cfg.OptOut())
}

func TestEmbedOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeAssemblies = []string{"A"}
	cfg.Unmanaged64Assemblies = []string{"N"}
	cfg.Selection.LegacyOptOut = true

	want := embed.Options{
		IncludeDebugSymbols: true,
		Include:             []string{"A"},
		Unmanaged64:         []string{"N"},
		LegacyOptOut:        true,
	}
	if diff := cmp.Diff(want, cfg.EmbedOptions()); diff != "" {
		t.Errorf("EmbedOptions() mismatch (-want +got):\n%s", diff)
	}

	cfg.IncludeAssemblies = nil
	assert.True(t, cfg.EmbedOptions().OptOut)
}
