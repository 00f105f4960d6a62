// Package config loads arbiter settings from a config file, ARBITER_*
// environment variables and command line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ARBITER_STORAGE_PATH.
const EnvPrefix = "ARBITER"

// Config is the full arbiter configuration.
type Config struct {
	// Authorities lists the identities allowed to create and resolve
	// conflicts.
	Authorities []string      `mapstructure:"authorities"`
	Storage     StorageConfig `mapstructure:"storage"`
	Network     NetworkConfig `mapstructure:"network"`
	Keys        KeysConfig    `mapstructure:"keys"`
	Log         LogConfig     `mapstructure:"log"`
}

type StorageConfig struct {
	// Path of the pebble database. Empty keeps the ledger in memory.
	Path           string `mapstructure:"path"`
	CacheSizeMB    int    `mapstructure:"cache_size_mb"`
	MemTableSizeMB int    `mapstructure:"memtable_size_mb"`
}

type NetworkConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	CertValidity   time.Duration `mapstructure:"cert_validity"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// ServerAddr and ServerIdentity are used by the client commands.
	ServerAddr     string `mapstructure:"server_addr"`
	ServerIdentity string `mapstructure:"server_identity"`
}

type KeysConfig struct {
	// Path of the hex encoded Ed25519 seed.
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Authorities: []string{},
		Storage: StorageConfig{
			Path:           "",
			CacheSizeMB:    64,
			MemTableSizeMB: 32,
		},
		Network: NetworkConfig{
			ListenAddr:     "127.0.0.1:9740",
			CertValidity:   24 * time.Hour,
			RequestTimeout: 10 * time.Second,
			ServerAddr:     "127.0.0.1:9740",
		},
		Keys: KeysConfig{
			Path: "arbiter.key",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("authorities", defaults.Authorities)

	v.SetDefault("storage.path", defaults.Storage.Path)
	v.SetDefault("storage.cache_size_mb", defaults.Storage.CacheSizeMB)
	v.SetDefault("storage.memtable_size_mb", defaults.Storage.MemTableSizeMB)

	v.SetDefault("network.listen_addr", defaults.Network.ListenAddr)
	v.SetDefault("network.cert_validity", defaults.Network.CertValidity)
	v.SetDefault("network.request_timeout", defaults.Network.RequestTimeout)
	v.SetDefault("network.server_addr", defaults.Network.ServerAddr)
	v.SetDefault("network.server_identity", defaults.Network.ServerIdentity)

	v.SetDefault("keys.path", defaults.Keys.Path)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New returns a viper instance with defaults and environment overrides
// wired. When path is set the file is read too, and a missing file is an
// error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}
