package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Node)
	assert.NotNil(cfg.Genesis)
	assert.NotNil(cfg.PriceFeeder)
	assert.Equal("admin", cfg.Genesis.ValidatorAccount)
	assert.Equal("12kii", cfg.Genesis.StartingBalance)
	assert.Equal("10kii", cfg.Genesis.SelfDelegation)
	assert.Equal("2000ukii", cfg.PriceFeeder.Fees)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	assert.Equal("/foo/config", cfg.ConfigDir())
	assert.Equal("/foo/config/config.toml", cfg.NodeConfigFile())
	assert.Equal("/foo/config/admin_key_info.txt", cfg.KeyInfoFile("admin"))
	assert.Equal("/foo/oracle-price-feeder.toml", cfg.PriceFeeder.OutputFile(cfg.RootDir))
	assert.Equal("/ws/oracle/price-feeder/config.example.toml", cfg.PriceFeeder.TemplateFile("/ws"))

	cfg.PriceFeeder.Output = "/etc/feeder.toml"
	assert.Equal("/etc/feeder.toml", cfg.PriceFeeder.OutputFile(cfg.RootDir))
}

func TestBackupDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetRoot("/home/user/.kiichain3/")

	at := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	require.Equal(t, "/home/user/.kiichain3_backup_20240305_140709", cfg.BackupDir(at))
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateBasic())

	testCases := map[string]func(*Config){
		"bad log format":       func(c *Config) { c.LogFormat = "xml" },
		"empty home":           func(c *Config) { c.RootDir = " " },
		"filesystem root home": func(c *Config) { c.RootDir = string(filepath.Separator) },
		"empty binary":         func(c *Config) { c.Node.Binary = "" },
		"unknown mode":         func(c *Config) { c.Node.Mode = "archive" },
		"empty validator":      func(c *Config) { c.Genesis.ValidatorAccount = "" },
		"flag-like account":    func(c *Config) { c.PriceFeeder.Account = "--from" },
		"path-like account":    func(c *Config) { c.Genesis.ValidatorAccount = "../admin" },
		"empty balance":        func(c *Config) { c.Genesis.StartingBalance = "" },
		"empty delegation":     func(c *Config) { c.Genesis.SelfDelegation = "" },
		"empty fees":           func(c *Config) { c.PriceFeeder.Fees = "" },
		"empty template":       func(c *Config) { c.PriceFeeder.Template = "" },
		"same accounts":        func(c *Config) { c.PriceFeeder.Account = c.Genesis.ValidatorAccount },
	}

	for name, tamper := range testCases {
		tamper := tamper
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			tamper(cfg)
			assert.Error(t, cfg.ValidateBasic())
		})
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	require.NoError(t, cfg.ValidateBasic())
	require.True(t, cfg.Node.SkipBuild)
	require.Equal(t, "testnet-1", cfg.ChainID)
	require.Equal(t, "node0", cfg.Moniker)
}
