package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/minechat/internal/client"
	"github.com/omochice/minechat/internal/cmdutil"
	"github.com/urfave/cli/v2"
)

const flagMessage = "message"

func main() {
	flags := cmdutil.ConnectionFlags()
	flags = append(flags, cmdutil.IdentityFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:    flagMessage,
		Aliases: []string{"m"},
		Usage:   "message to post; read from stdin when omitted",
	})

	app := &cli.App{
		Name:   "minechat-send",
		Usage:  "post a message to minechat",
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

	message := c.String(flagMessage)
	if !c.IsSet(flagMessage) {
		message, err = composeMessage()
		if err != nil {
			return cmdutil.Exit(err)
		}
	}

	result, err := client.Post(ctx, cfg, message)
	if result.Registered {
		// Printed even on failure: the account exists from now on.
		fmt.Fprintf(os.Stderr, "registered as %q, token: %s\n", result.Account.Nickname, result.Token)
	}
	return cmdutil.Exit(err)
}
