package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"

	tmos "github.com/kiichain/kiisetup/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

// ConfigFileName is the name of the tool config file.
const ConfigFileName = "kiisetup.toml"

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"quote": quoteString,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// quoteString renders s as a TOML basic string.
func quoteString(s string) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]string{"v": s}); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(buf.String(), "v = ")), nil
}

// DefaultConfigFile returns $HOME/.kiisetup/kiisetup.toml.
func DefaultConfigFile(home string) string {
	return filepath.Join(home, DefaultToolDir, ConfigFileName)
}

// WriteConfigFile renders config using the template and writes it to path.
// An existing file is only replaced when overwrite is set.
func WriteConfigFile(path string, config *Config, overwrite bool) error {
	if !overwrite && tmos.FileExists(path) {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := tmos.EnsureDir(filepath.Dir(path), defaultDirPerm); err != nil {
		return err
	}

	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, config); err != nil {
		return err
	}
	_, err := atomicfile.WriteAll(path, strings.NewReader(buffer.String()), 0644)
	return err
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# Every key below can also be given as a flag (e.g. --chain-id) or as an
# environment variable prefixed with KIISETUP_ (e.g. KIISETUP_CHAIN_ID).

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# The node home directory. setup-validator backs it up to
# <home>_backup_<timestamp> and starts over.
home = {{ quote .BaseConfig.RootDir }}

# Repository root used for builds and the price feeder template.
# Found with git when empty.
workspace = {{ quote .BaseConfig.Workspace }}

# ID of the blockchain network
chain-id = {{ quote .BaseConfig.ChainID }}

# A custom human readable name for this node
moniker = {{ quote .BaseConfig.Moniker }}

# Node version expected once the action completed. Empty skips the check.
version = {{ quote .BaseConfig.Version }}

# Extra arguments for gentx, e.g. "--ip kiinetwork.io --port 123"
gentx-args = {{ quote .BaseConfig.GentxArgs }}

# Output level for logging: debug | info | error
log-level = {{ quote .BaseConfig.LogLevel }}

# Output format: 'plain' (text) or 'json'
log-format = {{ quote .BaseConfig.LogFormat }}

#######################################################################
###                       Node Configuration                        ###
#######################################################################
[node]

# Name or path of the node executable
binary = {{ quote .Node.Binary }}

# Skip the make install steps
skip-build = {{ .Node.SkipBuild }}

# Mode written to config.toml by setup-validator: full | validator | seed
mode = {{ quote .Node.Mode }}

#######################################################################
###                     Genesis Configuration                       ###
#######################################################################
[genesis]

# Account created by setup-validator and bonded by prepare-genesis
validator-account = {{ quote .Genesis.ValidatorAccount }}

# Balance credited to the validator account in genesis
starting-balance = {{ quote .Genesis.StartingBalance }}

# Amount self-delegated by the gentx
self-delegation = {{ quote .Genesis.SelfDelegation }}

#######################################################################
###                   Price Feeder Configuration                    ###
#######################################################################
[price-feeder]

# Account authorized to submit prices on behalf of the validator
account = {{ quote .PriceFeeder.Account }}

# Fees of the set-feeder transaction
fees = {{ quote .PriceFeeder.Fees }}

# Template, relative to the workspace unless absolute
template = {{ quote .PriceFeeder.Template }}

# Rendered config, relative to the node home unless absolute
output = {{ quote .PriceFeeder.Output }}
`
