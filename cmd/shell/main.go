package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"valutatrade/internal/app"
	"valutatrade/internal/cli"

	"github.com/sirupsen/logrus"
)

func main() {
	c, err := app.Build(false)
	if err != nil {
		logrus.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	defer c.Exchange.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if stopErr := c.Scheduler.Stop(); stopErr != nil {
			logrus.Errorf("Scheduler stop error: %v", stopErr)
		}
	}()

	shell := cli.New(cli.Deps{
		Registry:   c.Registry,
		Exchange:   c.Exchange,
		Users:      c.Users,
		Portfolios: c.Portfolios,
		Updater:    c.Coordinator,
		Cache:      c.Cache,
		History:    c.History,
		Scheduler:  c.Scheduler,
		Base:       c.Cfg.Currencies.Base,
	}, os.Stdin, os.Stdout)

	if err := shell.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Shell exited with error")
		os.Exit(1)
	}
}
