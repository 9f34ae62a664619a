package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Tier maps a minimum price (inclusive, in cents) to an installment count.
type Tier struct {
	MinCents int64 `yaml:"min_cents"`
	Count    int   `yaml:"count"`
}

// InstallmentsConfig holds the price-tier table that decides how many
// installments a checkout is split into.
type InstallmentsConfig struct {
	Tiers []Tier `yaml:"tiers"`
}

// InventoryConfig defines the stock counter's configured starting point.
type InventoryConfig struct {
	InitialStock int `yaml:"initial_stock"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config defines the full service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Inventory    InventoryConfig    `yaml:"inventory"`
	Installments InstallmentsConfig `yaml:"installments"`
}

// Load builds the configuration from defaults, an optional YAML file pointed
// at by CONFIG_PATH, and env-var overrides, in that order.
func Load() (Config, error) {
	cfg := Config{
		Server:    ServerConfig{Addr: ":8080"},
		Inventory: InventoryConfig{InitialStock: 10},
		Installments: InstallmentsConfig{
			Tiers: []Tier{
				{MinCents: 0, Count: 1},
				{MinCents: 10000, Count: 3},
			},
		},
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("INITIAL_STOCK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: INITIAL_STOCK: %w", err)
		}
		cfg.Inventory.InitialStock = n
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server addr required")
	}
	if c.Inventory.InitialStock < 0 {
		return errors.New("config: initial stock must not be negative")
	}
	if len(c.Installments.Tiers) == 0 {
		return errors.New("config: at least one installment tier required")
	}
	if !sort.SliceIsSorted(c.Installments.Tiers, func(i, j int) bool {
		return c.Installments.Tiers[i].MinCents < c.Installments.Tiers[j].MinCents
	}) {
		return errors.New("config: installment tiers must be sorted by min_cents")
	}
	for _, t := range c.Installments.Tiers {
		if t.Count < 1 {
			return fmt.Errorf("config: tier min_cents=%d: count must be at least 1", t.MinCents)
		}
		if t.MinCents < 0 {
			return fmt.Errorf("config: tier count=%d: min_cents must not be negative", t.Count)
		}
	}
	return nil
}
