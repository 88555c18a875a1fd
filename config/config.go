package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// LogFormatPlain is a format for human readable text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// ModeValidator is the node mode written into config.toml once the
	// validator key has been provisioned.
	ModeValidator = "validator"
)

// NOTE: libs/cli must know to look in the home dir for the tool config!
var (
	DefaultNodeDir = ".kiichain3"
	// DefaultToolDir holds the optional kiisetup.toml of the operator.
	DefaultToolDir = ".kiisetup"

	defaultConfigDir      = "config"
	defaultConfigFileName = "config.toml"
	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)

	defaultKeyInfoSuffix = "_key_info.txt"
	backupTimeLayout     = "20060102_150405"
)

// Config defines the top level configuration of a bootstrap run.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	Node        *NodeConfig        `mapstructure:"node"`
	Genesis     *GenesisConfig     `mapstructure:"genesis"`
	PriceFeeder *PriceFeederConfig `mapstructure:"price-feeder"`
}

// DefaultConfig returns a default configuration for a bootstrap run
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:  DefaultBaseConfig(),
		Node:        DefaultNodeConfig(),
		Genesis:     DefaultGenesisConfig(),
		PriceFeeder: DefaultPriceFeederConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.ChainID = "testnet-1"
	cfg.Moniker = "node0"
	cfg.Node.SkipBuild = true
	return cfg
}

// SetRoot sets the node home directory.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Node.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [node] section")
	}
	if err := cfg.Genesis.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [genesis] section")
	}
	if err := cfg.PriceFeeder.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [price-feeder] section")
	}
	if cfg.PriceFeeder.Account == cfg.Genesis.ValidatorAccount {
		return errors.New("price-feeder.account must differ from genesis.validator-account")
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig holds the operator supplied arguments and the location of the
// node home.
type BaseConfig struct {
	// The node home directory, backed up and recreated by setup-validator.
	RootDir string `mapstructure:"home"`

	// Repository root used to build binaries and find the price feeder
	// template. Resolved through git when empty.
	Workspace string `mapstructure:"workspace"`

	// ID of the blockchain network
	ChainID string `mapstructure:"chain-id"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Version of the node software expected after the run. The check is
	// skipped when empty.
	Version string `mapstructure:"version"`

	// Extra arguments forwarded to gentx, e.g. "--ip kiinetwork.io --port 123"
	GentxArgs string `mapstructure:"gentx-args"`

	// Wallet address of the oracle feeder account. Accepted for
	// compatibility; the feeder account is always provisioned by the run.
	FeederAddr string `mapstructure:"feeder-addr"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		RootDir:   DefaultNodeHome(),
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
	}
}

// DefaultLogLevel is the log level used when none is configured.
const DefaultLogLevel = "info"

// DefaultNodeHome returns $HOME/.kiichain3.
func DefaultNodeHome() string {
	return os.ExpandEnv(filepath.Join("$HOME", DefaultNodeDir))
}

// ConfigDir returns the full path to the node config directory
func (cfg BaseConfig) ConfigDir() string {
	return filepath.Join(cfg.RootDir, defaultConfigDir)
}

// NodeConfigFile returns the full path to the node config.toml file
func (cfg BaseConfig) NodeConfigFile() string {
	return filepath.Join(cfg.RootDir, defaultConfigFilePath)
}

// KeyInfoFile returns the file the key creation output of account is
// persisted to.
func (cfg BaseConfig) KeyInfoFile(account string) string {
	return filepath.Join(cfg.ConfigDir(), account+defaultKeyInfoSuffix)
}

// BackupDir returns the backup path for the node home taken at t.
func (cfg BaseConfig) BackupDir(t time.Time) string {
	return fmt.Sprintf("%s_backup_%s", filepath.Clean(cfg.RootDir), t.Format(backupTimeLayout))
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	if strings.TrimSpace(cfg.RootDir) == "" {
		return errors.New("home can't be empty")
	}
	if filepath.Clean(cfg.RootDir) == string(filepath.Separator) {
		return errors.New("home can't be the filesystem root")
	}
	return nil
}

//-----------------------------------------------------------------------------
// NodeConfig

// NodeConfig describes the node binary driven by the run.
type NodeConfig struct {
	// Name or path of the node executable
	Binary string `mapstructure:"binary"`

	// Skip the `make install` steps, e.g. when binaries are prebuilt
	SkipBuild bool `mapstructure:"skip-build"`

	// Value written to the mode field of config.toml after setup-validator
	Mode string `mapstructure:"mode"`
}

// DefaultNodeConfig returns a default configuration for the node binary
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Binary: "kiichaind",
		Mode:   ModeValidator,
	}
}

// ValidateBasic performs basic validation.
func (cfg *NodeConfig) ValidateBasic() error {
	if cfg.Binary == "" {
		return errors.New("binary can't be empty")
	}
	switch cfg.Mode {
	case "full", "validator", "seed":
	default:
		return fmt.Errorf("unknown mode %q (must be 'full', 'validator' or 'seed')", cfg.Mode)
	}
	return nil
}

//-----------------------------------------------------------------------------
// GenesisConfig

// GenesisConfig holds the amounts used to fund and bond the validator.
type GenesisConfig struct {
	// Account created by setup-validator and used for gentx
	ValidatorAccount string `mapstructure:"validator-account"`

	// Balance credited to the validator account in genesis
	StartingBalance string `mapstructure:"starting-balance"`

	// Amount self-delegated by the gentx
	SelfDelegation string `mapstructure:"self-delegation"`
}

// DefaultGenesisConfig returns the default genesis amounts
func DefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{
		ValidatorAccount: "admin",
		StartingBalance:  "12kii",
		SelfDelegation:   "10kii",
	}
}

// ValidateBasic performs basic validation.
func (cfg *GenesisConfig) ValidateBasic() error {
	if err := validateAccountName(cfg.ValidatorAccount); err != nil {
		return errors.Wrap(err, "validator-account")
	}
	if cfg.StartingBalance == "" {
		return errors.New("starting-balance can't be empty")
	}
	if cfg.SelfDelegation == "" {
		return errors.New("self-delegation can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------
// PriceFeederConfig

// PriceFeederConfig configures the oracle price feeder setup.
type PriceFeederConfig struct {
	// Account authorized to submit prices on behalf of the validator
	Account string `mapstructure:"account"`

	// Fees paid by the set-feeder transaction
	Fees string `mapstructure:"fees"`

	// Template path, relative to the workspace unless absolute
	Template string `mapstructure:"template"`

	// Rendered config path, relative to the node home unless absolute
	Output string `mapstructure:"output"`
}

// DefaultPriceFeederConfig returns the default price feeder configuration
func DefaultPriceFeederConfig() *PriceFeederConfig {
	return &PriceFeederConfig{
		Account:  "oracle-price-feeder",
		Fees:     "2000ukii",
		Template: filepath.Join("oracle", "price-feeder", "config.example.toml"),
		Output:   "oracle-price-feeder.toml",
	}
}

// ValidateBasic performs basic validation.
func (cfg *PriceFeederConfig) ValidateBasic() error {
	if err := validateAccountName(cfg.Account); err != nil {
		return errors.Wrap(err, "account")
	}
	if cfg.Fees == "" {
		return errors.New("fees can't be empty")
	}
	if cfg.Template == "" {
		return errors.New("template can't be empty")
	}
	if cfg.Output == "" {
		return errors.New("output can't be empty")
	}
	return nil
}

// TemplateFile returns the template path resolved against workspace.
func (cfg *PriceFeederConfig) TemplateFile(workspace string) string {
	return rootify(cfg.Template, workspace)
}

// OutputFile returns the rendered config path resolved against the node home.
func (cfg *PriceFeederConfig) OutputFile(home string) string {
	return rootify(cfg.Output, home)
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// account names end up in file names and node command lines
func validateAccountName(name string) error {
	if name == "" {
		return errors.New("can't be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, "-") || strings.TrimSpace(name) != name {
		return fmt.Errorf("invalid account name %q", name)
	}
	return nil
}
