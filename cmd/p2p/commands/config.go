package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tribpub/p2p-go/internal/constants"
	"gopkg.in/yaml.v3"
)

// CLIConfig is the persisted shape of ~/.p2p/config.yml.
type CLIConfig struct {
	API              string `yaml:"api,omitempty"`
	Token            string `yaml:"token,omitempty"`
	Username         string `yaml:"username,omitempty"`
	AuthURL          string `yaml:"auth_url,omitempty"`
	ImageServicesURL string `yaml:"image_services_url,omitempty"`
	NATSURL          string `yaml:"nats_url,omitempty"`
}

// configFilePath returns the active config file, preferring an explicit
// --config flag over ~/.p2p/config.yml.
func configFilePath() (string, error) {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		return cfgFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	return filepath.Join(home, ".p2p", "config.yml"), nil
}

// loadCLIConfig reads the persisted config. A missing file yields an
// empty config.
func loadCLIConfig() (*CLIConfig, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CLIConfig{}, nil
		}

		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config CLIConfig

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &config, nil
}

// saveCLIConfig writes the config file with restrictive permissions; it
// holds the access token.
func saveCLIConfig(config *CLIConfig) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
