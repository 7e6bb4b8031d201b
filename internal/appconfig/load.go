package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("backend.addr", cfg.Backend.Addr)
	v.SetDefault("backend.username", cfg.Backend.Username)
	v.SetDefault("backend.password", cfg.Backend.Password)
	v.SetDefault("backend.db", cfg.Backend.DB)
	v.SetDefault("backend.tls", cfg.Backend.TLS)
	v.SetDefault("console.prompt", cfg.Console.Prompt)
	v.SetDefault("auth.user_file", cfg.Auth.UserFile)
	v.SetDefault("auth.seed_users", cfg.Auth.SeedUsers)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteDefault writes the default config as YAML to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
