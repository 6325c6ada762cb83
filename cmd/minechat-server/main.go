package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/omochice/minechat/internal/client"
	"github.com/omochice/minechat/internal/cmdutil"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/logging"
	"github.com/omochice/minechat/internal/server"
	"github.com/urfave/cli/v2"
)

const flagBind = "bind"

func main() {
	app := &cli.App{
		Name:  "minechat-server",
		Usage: "run a local minechat-compatible chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagBind,
				Value: "127.0.0.1",
				Usage: "address to listen on",
			},
			&cli.IntFlag{
				Name:    cmdutil.FlagListenPort,
				Value:   config.DefaultListenPort,
				Usage:   "port of the chat stream",
				EnvVars: []string{"CHAT_INCOME_MSG_PORT"},
			},
			&cli.IntFlag{
				Name:    cmdutil.FlagPostPort,
				Value:   config.DefaultPostPort,
				Usage:   "port that accepts messages",
				EnvVars: []string{"CHAT_PUBLISH_MSG_PORT"},
			},
			&cli.StringFlag{
				Name:    cmdutil.FlagNetwork,
				Value:   string(config.NetworkTCP),
				Usage:   "transport: tcp or websocket",
				EnvVars: []string{"CHAT_NETWORK"},
			},
			&cli.StringFlag{
				Name:    cmdutil.FlagLogLevel,
				Value:   config.DefaultLogLevel,
				Usage:   "DEBUG, INFO, WARN or ERROR",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(client.ExitFailure)
	}
}

func run(c *cli.Context) error {
	if _, err := logging.Setup(os.Stderr, c.String(cmdutil.FlagLogLevel)); err != nil {
		return cmdutil.ConfigError(err)
	}

	network := config.Network(c.String(cmdutil.FlagNetwork))
	if !network.IsValid() {
		return cmdutil.ConfigError(fmt.Errorf("%w: %q", config.ErrInvalidNetwork, network))
	}

	bind := c.String(flagBind)
	srv := server.New(server.Options{
		ListenAddress: net.JoinHostPort(bind, strconv.Itoa(c.Int(cmdutil.FlagListenPort))),
		PostAddress:   net.JoinHostPort(bind, strconv.Itoa(c.Int(cmdutil.FlagPostPort))),
		Network:       network,
	})
	if err := srv.Listen(); err != nil {
		return cli.Exit(err.Error(), client.ExitFailure)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("chat server started",
			"network", network, "listen", srv.ListenAddr(), "post", srv.PostAddr())
		errChan <- srv.Serve()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.Exit(err.Error(), client.ExitFailure)
		}
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig.String())
		srv.Stop()
	}

	slog.Info("chat server stopped")
	return nil
}
