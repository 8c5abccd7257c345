package config

import (
	"os"

	"github.com/opmodel/weaver/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is a setting and where its value came from.
type ResolvedValue struct {
	Key    string
	Value  string
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// resolve applies the precedence flag > env > config > default. Empty
// candidates are skipped.
func resolve(key, flag, envVar, configValue, defaultValue string) ResolvedValue {
	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, flag},
		{SourceEnv, os.Getenv(envVar)},
		{SourceConfig, configValue},
		{SourceDefault, defaultValue},
	}

	result := ResolvedValue{Key: key, Shadowed: make(map[ConfigSource]string)}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if result.Source == "" {
			result.Value = c.value
			result.Source = c.source
			continue
		}
		result.Shadowed[c.source] = c.value
	}
	return result
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) WEAVER_CONFIG env, (3) ./weaver.yaml
func ResolveConfigPath(flagValue string) ResolvedValue {
	return resolve("config", flagValue, "WEAVER_CONFIG", "", DefaultConfigFile)
}

// ResolveCacheDir resolves the cache root using precedence:
// (1) --cache-dir flag, (2) WEAVER_CACHE_DIR env, (3) cacheDir in the config
// file, (4) a "weaver" directory next to the module.
func ResolveCacheDir(flagValue, configValue, modulePath string) ResolvedValue {
	return resolve("cacheDir", flagValue, "WEAVER_CACHE_DIR", configValue, DefaultCacheDir(modulePath))
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values ...ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
