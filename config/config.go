// Package config loads the node's TOML configuration file, grounded on the
// teacher's config/config.go (load-or-create-default idiom), adapted from a
// validator key + RPC listener shape to the ledger node's replication and
// mining parameters.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level node configuration (spec.md §6, §9).
type Config struct {
	ListenAddress  string   `toml:"ListenAddress"`
	DataDir        string   `toml:"DataDir"`
	Difficulty     int      `toml:"Difficulty"`
	BootstrapPeers []string `toml:"BootstrapPeers"`
	SeedListPath   string   `toml:"SeedListPath"`
	LogEnvironment string   `toml:"LogEnvironment"`
}

// Load reads the configuration at path, creating a default file there if
// none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":4000"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./govledger-data"
	}
	if cfg.Difficulty <= 0 {
		cfg.Difficulty = 2
	}
	if cfg.BootstrapPeers == nil {
		cfg.BootstrapPeers = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
