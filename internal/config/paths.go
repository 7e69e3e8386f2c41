package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath = "~/.config/carillon/config.toml"
	projectConfigName = "carillon.toml"
)

// DefaultConfigPath is where `config init` writes and Load looks first.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// ExpandPath resolves a leading ~ to the home directory and returns a
// cleaned absolute path. The empty string passes through.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return abs, nil
}

// locate picks the config file. An explicit path is used as given, even if
// it does not exist. Otherwise the user config wins over ./carillon.toml,
// and the user config path is reported when neither exists.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := ExpandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(path)
		return path, exists, err
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}
