package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	oerrors "github.com/opmodel/weaver/internal/errors"
	"github.com/opmodel/weaver/internal/output"
)

// Environment variable prefix for weaver configuration.
const envPrefix = "WEAVER"

// Config keys, as folded by viper.
const (
	keyIncludeDebugSymbols       = "includedebugsymbols"
	keyDisableCompression        = "disablecompression"
	keyCreateTemporaryAssemblies = "createtemporaryassemblies"
	keyIncludeAssemblies         = "includeassemblies"
	keyExcludeAssemblies         = "excludeassemblies"
	keyUnmanaged32Assemblies     = "unmanaged32assemblies"
	keyUnmanaged64Assemblies     = "unmanaged64assemblies"
	keyPreloadOrder              = "preloadorder"
	keyCacheDir                  = "cachedir"
	keyLoaderNamespace           = "loader.namespace"
	keyLoaderName                = "loader.name"
	keyLegacyOptOut              = "selection.legacyoptout"
	keyTimestamps                = "log.timestamps"
)

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv(keyIncludeDebugSymbols, "WEAVER_INCLUDE_DEBUG_SYMBOLS")
	_ = v.BindEnv(keyDisableCompression, "WEAVER_DISABLE_COMPRESSION")
	_ = v.BindEnv(keyCreateTemporaryAssemblies, "WEAVER_CREATE_TEMPORARY_ASSEMBLIES")
	_ = v.BindEnv(keyIncludeAssemblies, "WEAVER_INCLUDE_ASSEMBLIES")
	_ = v.BindEnv(keyExcludeAssemblies, "WEAVER_EXCLUDE_ASSEMBLIES")
	_ = v.BindEnv(keyUnmanaged32Assemblies, "WEAVER_UNMANAGED32_ASSEMBLIES")
	_ = v.BindEnv(keyUnmanaged64Assemblies, "WEAVER_UNMANAGED64_ASSEMBLIES")
	_ = v.BindEnv(keyPreloadOrder, "WEAVER_PRELOAD_ORDER")
	_ = v.BindEnv(keyLegacyOptOut, "WEAVER_LEGACY_OPT_OUT")

	return &Loader{v: v}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = ResolveConfigPath("").Value
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	l.v.SetConfigFile(expandedPath)
	l.v.SetConfigType("yaml")

	found := true
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults + env vars
		found = false
	}

	raw := l.v.AllSettings()
	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(raw, expandedPath); err != nil {
		return nil, err
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	if found {
		cfg.File = expandedPath
	}
	output.Debug("loaded config", "file", cfg.File, "include", len(cfg.IncludeAssemblies), "exclude", len(cfg.ExcludeAssemblies))
	return cfg, nil
}

// decode converts the merged settings into a Config.
func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()

	bools := []struct {
		key  string
		dest *bool
	}{
		{keyIncludeDebugSymbols, &cfg.IncludeDebugSymbols},
		{keyDisableCompression, &cfg.DisableCompression},
		{keyCreateTemporaryAssemblies, &cfg.CreateTemporaryAssemblies},
		{keyLegacyOptOut, &cfg.Selection.LegacyOptOut},
	}
	for _, b := range bools {
		if !l.v.IsSet(b.key) {
			continue
		}
		v, err := ParseBool(b.key, l.v.Get(b.key))
		if err != nil {
			return nil, err
		}
		*b.dest = v
	}
	if l.v.IsSet(keyTimestamps) {
		v, err := ParseBool(keyTimestamps, l.v.Get(keyTimestamps))
		if err != nil {
			return nil, err
		}
		cfg.Log.Timestamps = &v
	}

	cfg.IncludeAssemblies = ParseList(l.v.Get(keyIncludeAssemblies))
	cfg.ExcludeAssemblies = ParseList(l.v.Get(keyExcludeAssemblies))
	cfg.Unmanaged32Assemblies = ParseList(l.v.Get(keyUnmanaged32Assemblies))
	cfg.Unmanaged64Assemblies = ParseList(l.v.Get(keyUnmanaged64Assemblies))
	cfg.PreloadOrder = ParseList(l.v.Get(keyPreloadOrder))
	cfg.CacheDir = l.v.GetString(keyCacheDir)
	cfg.Loader.Namespace = l.v.GetString(keyLoaderNamespace)
	cfg.Loader.Name = l.v.GetString(keyLoaderName)

	if len(cfg.IncludeAssemblies) > 0 && len(cfg.ExcludeAssemblies) > 0 {
		return nil, oerrors.Weavingf("either configure includeAssemblies OR excludeAssemblies, not both")
	}
	return cfg, nil
}

// ParseBool accepts a YAML boolean or the strings "true" and "false" in any
// case. key names the setting in the error.
func ParseBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, oerrors.Weavingf("could not parse '%s' from '%v'", key, value)
}

// ParseList accepts a YAML sequence or a string separated by '|' or
// newlines. Entries are trimmed and empty entries dropped.
func ParseList(value any) []string {
	var items []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		items = strings.FieldsFunc(v, func(r rune) bool { return r == '|' || r == '\n' || r == '\r' })
	case []string:
		items = v
	case []any:
		for _, e := range v {
			items = append(items, fmt.Sprint(e))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	if configFile == "" {
		configFile = ResolveConfigPath("").Value
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}
	return fileExists(expandedPath)
}
