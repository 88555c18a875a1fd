package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiichain/kiisetup/config"
	"github.com/kiichain/kiisetup/internal/bootstrap"
	"github.com/kiichain/kiisetup/internal/credentials"
	"github.com/kiichain/kiisetup/internal/runner"
	"github.com/kiichain/kiisetup/libs/cli"
	"github.com/kiichain/kiisetup/libs/log"
)

// EnvPrefix is the prefix of the environment variables read by kiisetup.
const EnvPrefix = "KIISETUP"

// flags bound to nested config keys
var nestedFlags = map[string]string{
	"skip-build": "node.skip-build",
	"binary":     "node.binary",
}

// RunFunc performs action with the parsed configuration.
type RunFunc func(ctx context.Context, conf *config.Config, action string) error

// SessionRunner returns the RunFunc used in production: node commands run
// as subprocesses and passwords are read from the terminal.
func SessionRunner(logger log.Logger) RunFunc {
	return func(ctx context.Context, conf *config.Config, action string) error {
		s := bootstrap.NewSession(conf, runner.NewExecRunner(logger), credentials.NewTerminal(), logger)
		return s.Run(ctx, action)
	}
}

// ParseConfig retrieves the default environment configuration and
// validates it.
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point of kiisetup.
func RootCommand(conf *config.Config, logger log.Logger, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kiisetup <action>",
		Short: "Prepare the local state of a kiichain validator node",
		Long: `Prepare the local state of a kiichain validator node.

Actions:
  setup-validator     back up and reset the node home, initialize it and create the validator key
  prepare-genesis     setup-validator, then fund the validator in genesis and write its gentx
  setup-price-feeder  install the oracle price feeder, authorize its account and write its config`,
		ValidArgs: bootstrap.Actions,
		Args:      cobra.ExactValidArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			if err := cli.BindFlagsLoadViper(cmd, cli.DefaultToolDir(config.DefaultToolDir)); err != nil {
				return err
			}
			for flag, key := range nestedFlags {
				if f := cmd.Flags().Lookup(flag); f != nil {
					if err := viper.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			logger.Info("starting kiisetup",
				"action", action,
				"chain-id", conf.ChainID,
				"version", conf.Version,
				"moniker", conf.Moniker,
			)
			if conf.FeederAddr != "" {
				logger.Info("ignoring feeder address, the feeder account is created by the run",
					"feeder-addr", conf.FeederAddr)
			}
			return run(cmd.Context(), conf, action)
		},
	}

	cmd.PersistentFlags().StringP(cli.HomeFlag, "", conf.RootDir, "node home directory")
	cmd.PersistentFlags().Bool(cli.TraceFlag, false, "print out full stack trace on errors")
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format (plain|json)")

	cmd.Flags().String(cli.WorkspaceFlag, conf.Workspace, "repository root (default: git top level of the working directory)")
	cmd.Flags().String("chain-id", conf.ChainID, "chain ID of the network")
	cmd.Flags().String("moniker", conf.Moniker, "node moniker")
	cmd.Flags().String("version", conf.Version, "expected node version, checked after the action")
	cmd.Flags().String("gentx-args", conf.GentxArgs, "extra arguments for gentx, e.g. \"--ip kiinetwork.io --port 123\"")
	cmd.Flags().String("feeder-addr", conf.FeederAddr, "wallet address of the price feeder")
	cmd.Flags().Bool("skip-build", conf.Node.SkipBuild, "do not run make install")
	cmd.Flags().String("binary", conf.Node.Binary, "node executable")

	cobra.OnInitialize(func() { cli.InitEnv(EnvPrefix) })
	return cmd
}
