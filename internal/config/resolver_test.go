package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCacheDir(t *testing.T) {
	modulePath := filepath.Join("build", "App.dll")
	defaultDir := filepath.Join("build", "weaver")

	tests := []struct {
		name         string
		flag         string
		env          string
		config       string
		wantValue    string
		wantSource   ConfigSource
		wantShadowed map[ConfigSource]string
	}{
		{
			name:         "flag wins",
			flag:         "/flag",
			env:          "/env",
			config:       "/config",
			wantValue:    "/flag",
			wantSource:   SourceFlag,
			wantShadowed: map[ConfigSource]string{SourceEnv: "/env", SourceConfig: "/config", SourceDefault: defaultDir},
		},
		{
			name:         "env over config",
			env:          "/env",
			config:       "/config",
			wantValue:    "/env",
			wantSource:   SourceEnv,
			wantShadowed: map[ConfigSource]string{SourceConfig: "/config", SourceDefault: defaultDir},
		},
		{
			name:         "config over default",
			config:       "/config",
			wantValue:    "/config",
			wantSource:   SourceConfig,
			wantShadowed: map[ConfigSource]string{SourceDefault: defaultDir},
		},
		{
			name:         "default next to module",
			wantValue:    defaultDir,
			wantSource:   SourceDefault,
			wantShadowed: map[ConfigSource]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEAVER_CACHE_DIR", tt.env)
			got := ResolveCacheDir(tt.flag, tt.config, modulePath)
			assert.Equal(t, "cacheDir", got.Key)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantShadowed, got.Shadowed)
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("WEAVER_CONFIG", "")
		got := ResolveConfigPath("")
		assert.Equal(t, DefaultConfigFile, got.Value)
		assert.Equal(t, SourceDefault, got.Source)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("WEAVER_CONFIG", "/env/weaver.yaml")
		got := ResolveConfigPath("")
		assert.Equal(t, "/env/weaver.yaml", got.Value)
		assert.Equal(t, SourceEnv, got.Source)
	})

	t.Run("flag", func(t *testing.T) {
		t.Setenv("WEAVER_CONFIG", "/env/weaver.yaml")
		got := ResolveConfigPath("/flag/weaver.yaml")
		assert.Equal(t, "/flag/weaver.yaml", got.Value)
		assert.Equal(t, SourceFlag, got.Source)
		assert.Equal(t, "/env/weaver.yaml", got.Shadowed[SourceEnv])
	})
}
