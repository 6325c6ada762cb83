package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/minechat/internal/client"
	"github.com/omochice/minechat/internal/cmdutil"
	"github.com/omochice/minechat/internal/history"
	"github.com/urfave/cli/v2"
)

func main() {
	flags := cmdutil.ConnectionFlags()
	flags = append(flags, cmdutil.HistoryFlags()...)

	app := &cli.App{
		Name:   "minechat-listen",
		Usage:  "follow the minechat stream and keep its history",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(client.ExitFailure)
	}
}

func run(c *cli.Context) error {
	cfg, err := cmdutil.Setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := history.NewFile(cfg.HistoryPath)
	emit := func(r history.Record) {
		fmt.Fprintln(os.Stdout, history.Format(r))
	}

	err = client.Listen(ctx, cfg, sink, emit)
	if errors.Is(err, context.Canceled) {
		// Interrupting a follower is the normal way to stop it.
		return nil
	}
	return cmdutil.Exit(err)
}
