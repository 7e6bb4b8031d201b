package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	StateDir string        `mapstructure:"state_dir" yaml:"state_dir"`
	SSH      SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Backend  BackendConfig `mapstructure:"backend" yaml:"backend"`
	Console  ConsoleConfig `mapstructure:"console" yaml:"console"`
	Auth     AuthConfig    `mapstructure:"auth" yaml:"auth"`
}

// SSHConfig configures the SSH console server.
type SSHConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
}

// BackendConfig describes the key-value backend connection. Password is
// resolved from the encrypted secret store when left empty.
type BackendConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// ConsoleConfig controls per-session console behavior.
type ConsoleConfig struct {
	Prompt string `mapstructure:"prompt" yaml:"prompt"`
}

// AuthConfig configures the SSH user store and optional seed users.
type AuthConfig struct {
	UserFile  string     `mapstructure:"user_file" yaml:"user_file"`
	SeedUsers []SeedUser `mapstructure:"seed_users" yaml:"seed_users"`
}

// SeedUser seeds a user record in the auth store.
type SeedUser struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	TOTPSecret   string `mapstructure:"totp_secret" yaml:"totp_secret"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		StateDir: filepath.Join(home, ".kvterm", "state"),
		SSH: SSHConfig{
			Addr:        ":2279",
			HostKeyPath: filepath.Join(home, ".kvterm", "ssh_host_key"),
		},
		Backend: BackendConfig{
			Addr: "127.0.0.1:6379",
			DB:   0,
		},
		Console: ConsoleConfig{
			Prompt: "> ",
		},
		Auth: AuthConfig{
			UserFile: filepath.Join(home, ".kvterm", "users.json"),
		},
	}, nil
}

// SecretStorePath returns the key store bundle path under the state dir.
func (c Config) SecretStorePath() string {
	return filepath.Join(c.StateDir, "secrets.bundle")
}

// SecretDir returns the encrypted secret directory under the state dir.
func (c Config) SecretDir() string {
	return filepath.Join(c.StateDir, "secrets")
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kvterm", "config.yaml"), nil
}
