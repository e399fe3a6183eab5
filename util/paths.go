package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/thrive"
)

// configDirOverride is set by THRIVE_CONFIG_DIR, mostly for tests and
// portable installs.
func configDirOverride() string {
	return os.Getenv("THRIVE_CONFIG_DIR")
}

// GetConfigDir returns the thrive config directory path (~/.config/thrive/)
// and creates it if it doesn't exist
func GetConfigDir() (string, error) {
	configDir := configDirOverride()
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, AppConfigDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ResolveFilePath resolves a file path with the following priority:
// 1. Local working directory (e.g., ./thrive.db)
// 2. User config directory (e.g., ~/.config/thrive/thrive.db)
// 3. Returns the user config directory path if neither exists (for creation)
func ResolveFilePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return filename
	}

	return filepath.Join(configDir, filename)
}

// ResolveFilePathWithSubdir resolves subdir/filename the same way and creates
// the subdirectory in the user config dir when neither location exists.
func ResolveFilePathWithSubdir(subdir, filename string) string {
	localPath := filepath.Join(subdir, filename)

	if _, err := os.Stat(localPath); err == nil {
		return localPath
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return localPath
	}

	userSubdir := filepath.Join(configDir, subdir)
	userPath := filepath.Join(userSubdir, filename)

	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}

	os.MkdirAll(userSubdir, 0755)
	return userPath
}

// ResolveDir returns dir if it exists locally, otherwise the same name under
// the user config dir. Nothing is created.
func ResolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		return dir
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return dir
	}
	return filepath.Join(configDir, dir)
}
