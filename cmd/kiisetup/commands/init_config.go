package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiichain/kiisetup/config"
	"github.com/kiichain/kiisetup/libs/log"
)

// MakeInitConfigCommand returns the command that writes the effective
// configuration to a kiisetup.toml, to be edited and reused by later runs.
func MakeInitConfigCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the current configuration to " + config.ConfigFileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("finding the home directory: %w", err)
				}
				path = config.DefaultConfigFile(home)
			}

			if err := config.WriteConfigFile(path, conf, force); err != nil {
				return err
			}
			logger.Info("wrote config file", "path", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "file to write (default $HOME/"+config.DefaultToolDir+"/"+config.ConfigFileName+")")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
