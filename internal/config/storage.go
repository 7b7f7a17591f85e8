package config

import (
	"fmt"
	"os"

	"sak/pkg/logging"

	"gopkg.in/yaml.v3"
)

// SaveConfig validates cfg and writes it to config.yaml inside configPath.
// The file is written to a temporary file first and renamed into place, so
// a crash never leaves a truncated configuration behind.
func SaveConfig(configPath string, cfg SakConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", configPath, err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	target := ConfigFilePath(configPath)
	tmp, err := os.CreateTemp(configPath, "."+configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", configPath, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}

	logging.Info("Config", "Saved configuration to %s", target)
	return nil
}
