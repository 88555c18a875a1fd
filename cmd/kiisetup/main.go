package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiichain/kiisetup/cmd/kiisetup/commands"
	"github.com/kiichain/kiisetup/config"
	"github.com/kiichain/kiisetup/libs/cli"
	"github.com/kiichain/kiisetup/libs/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := config.DefaultConfig()
	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rootCmd := commands.RootCommand(conf, logger, commands.SessionRunner(logger))
	rootCmd.AddCommand(
		commands.VersionCmd,
		commands.MakeInitConfigCommand(conf, logger),
	)

	if err := cli.RunWithTrace(ctx, rootCmd); err != nil {
		stop()
		os.Exit(1)
	}
}
