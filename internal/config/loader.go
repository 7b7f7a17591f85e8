package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sak/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/sak"
	configFileName = "config.yaml"

	// ConfigPathEnv overrides the configuration directory.
	ConfigPathEnv = "SAK_CONFIG_PATH"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns the configuration directory, honouring
// SAK_CONFIG_PATH.
func GetDefaultConfigPath() (string, error) {
	if dir := os.Getenv(ConfigPathEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func GetDefaultConfigPathOrPanic() string {
	dir, err := GetDefaultConfigPath()
	if err != nil {
		panic(err)
	}
	return dir
}

// ConfigFilePath returns the path of config.yaml inside configPath.
func ConfigFilePath(configPath string) string {
	return filepath.Join(configPath, configFileName)
}

// LoadConfig loads config.yaml from the specified directory.
// A missing file yields the default (empty) configuration.
func LoadConfig(configPath string) (SakConfig, error) {
	configFilePath := ConfigFilePath(configPath)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return SakConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   "cannot read configuration file",
			Details:   err.Error(),
		}
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return SakConfig{}, newParseError(configFilePath, err)
	}

	if err := config.Validate(); err != nil {
		return SakConfig{}, fmt.Errorf("invalid configuration in %s: %w", configFilePath, err)
	}

	logging.Debug("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}
