package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"escrowd/escrow"
)

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	Owner              string `toml:"Owner"`
	PlatformFeePercent uint64 `toml:"PlatformFeePercent"`
	Env                string `toml:"Env"`
}

const defaultRPCAddress = ":8645"

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded values against the ledger's bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	owner := strings.TrimSpace(c.Owner)
	if owner == "" {
		return fmt.Errorf("Owner address is required")
	}
	if !common.IsHexAddress(owner) {
		return fmt.Errorf("Owner is not a valid hex address: %s", owner)
	}
	if common.HexToAddress(owner) == (common.Address{}) {
		return fmt.Errorf("Owner must not be the zero address")
	}
	if c.PlatformFeePercent > escrow.MaxPlatformFeePercent {
		return fmt.Errorf("PlatformFeePercent must be <= %d", escrow.MaxPlatformFeePercent)
	}
	return nil
}

// OwnerAddress returns the parsed owner identity. Validate must have passed.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Owner))
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./escrowd-data"
	}
	if cfg.PlatformFeePercent == 0 {
		cfg.PlatformFeePercent = escrow.DefaultPlatformFeePercent
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	// The default file deliberately omits Owner so the operator is forced to
	// fill it in before the daemon starts.
	return cfg, fmt.Errorf("created default config at %s; set Owner and restart", path)
}
