package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-ledgerflow/core"
	"gopkg.in/yaml.v3"
)

const (
	defaultDriver   = "sqlite3"
	defaultDSN      = "file:ledgerflow.db?_foreign_keys=on"
	defaultCacheTTL = 30 * time.Second
)

// fileConfig is the on-disk layout. The ledgerflow section is handed to the
// engine config provider as-is.
type fileConfig struct {
	Database   databaseConfig `yaml:"database"`
	AMQP       amqpConfig     `yaml:"amqp"`
	Ledgerflow map[string]any `yaml:"ledgerflow"`
}

type databaseConfig struct {
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	Debug       bool          `yaml:"debug"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	// RetryLease is how long a relay pass may hold claimed retries.
	RetryLease  time.Duration `yaml:"retry_lease"`
}

// amqpConfig enables the RabbitMQ retry queue when URL is set.
type amqpConfig struct {
	URL            string        `yaml:"url"`
	Exchange       string        `yaml:"exchange"`
	RoutingKey     string        `yaml:"routing_key"`
	Queue          string        `yaml:"queue"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
}

func (c amqpConfig) enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Database: databaseConfig{
			Driver:      defaultDriver,
			DSN:         defaultDSN,
			PingTimeout: 5 * time.Second,
			CacheTTL:    defaultCacheTTL,
		},
		Ledgerflow: map[string]any{},
	}
}

// loadFileConfig reads path over the defaults. An empty path yields the
// defaults.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Ledgerflow == nil {
		cfg.Ledgerflow = map[string]any{}
	}
	if cfg.AMQP.enabled() && strings.TrimSpace(cfg.AMQP.Queue) == "" {
		cfg.AMQP.Queue = cfg.AMQP.RoutingKey
	}
	return cfg, nil
}

func (c fileConfig) configProvider() *core.CfgxConfigProvider {
	return core.NewCfgxConfigProvider(core.NewStaticRawConfigLoader(c.Ledgerflow))
}

func (c fileConfig) serviceConfig(ctx context.Context) (core.Config, error) {
	return c.configProvider().Load(ctx, core.DefaultConfig())
}
