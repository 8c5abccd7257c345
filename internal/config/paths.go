package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultConfigFile is the config file read when none is given.
const DefaultConfigFile = "weaver.yaml"

// DefaultCacheDirName is the cache directory created next to the woven module.
const DefaultCacheDirName = "weaver"

// DefaultCacheDir returns the cache directory used for a module at modulePath.
func DefaultCacheDir(modulePath string) string {
	return filepath.Join(filepath.Dir(modulePath), DefaultCacheDirName)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	// Handle ~/path/to/something
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// Handle ~username (not supported, return as-is)
	return path, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
