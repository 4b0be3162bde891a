package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tef/packrat/cmd/packrat/commands"
	"github.com/tef/packrat/config"
	"github.com/tef/packrat/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := config.DefaultConfig()
	logger := log.MustNewDefaultLogger(conf.LogFormat, conf.LogLevel)

	rcmd := commands.AddCommands(commands.RootCommand(conf, logger), conf, logger)
	if err := rcmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
