// Package cmdutil holds the command-line plumbing shared by the minechat
// commands: flag definitions, configuration loading and exit codes.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/omochice/minechat/internal/client"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/logging"
	"github.com/urfave/cli/v2"
)

// Flag names.
const (
	FlagConfig      = "config"
	FlagHost        = "host"
	FlagListenPort  = "listen-port"
	FlagPostPort    = "post-port"
	FlagNetwork     = "network"
	FlagTimeout     = "connect-timeout"
	FlagToken       = "token"
	FlagUsername    = "username"
	FlagHistoryPath = "history"
	FlagLogLevel    = "log-level"
)

// ConnectionFlags describe where the chat server is and how to log.
func ConnectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Usage:   "YAML or TOML file with defaults for every other flag",
			EnvVars: []string{"MINECHAT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    FlagHost,
			Value:   config.DefaultHost,
			Usage:   "chat server host",
			EnvVars: []string{"CHAT_HOST"},
		},
		&cli.IntFlag{
			Name:    FlagListenPort,
			Value:   config.DefaultListenPort,
			Usage:   "port of the chat stream",
			EnvVars: []string{"CHAT_INCOME_MSG_PORT"},
		},
		&cli.IntFlag{
			Name:    FlagPostPort,
			Value:   config.DefaultPostPort,
			Usage:   "port that accepts messages",
			EnvVars: []string{"CHAT_PUBLISH_MSG_PORT"},
		},
		&cli.StringFlag{
			Name:    FlagNetwork,
			Value:   string(config.NetworkTCP),
			Usage:   "transport: tcp or websocket",
			EnvVars: []string{"CHAT_NETWORK"},
		},
		&cli.DurationFlag{
			Name:    FlagTimeout,
			Value:   config.DefaultConnectTimeout,
			Usage:   "limit for each connection attempt",
			EnvVars: []string{"CHAT_CONNECT_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Value:   config.DefaultLogLevel,
			Usage:   "DEBUG, INFO, WARN or ERROR",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}
}

// IdentityFlags select the account messages are posted under.
func IdentityFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagToken,
			Usage:   "account hash; a new account is registered when empty",
			EnvVars: []string{"CHAT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    FlagUsername,
			Value:   config.DefaultUsername,
			Usage:   "nickname for a new account",
			EnvVars: []string{"USER_NAME"},
		},
	}
}

// HistoryFlags locate the chat history file.
func HistoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagHistoryPath,
			Value:   config.DefaultHistoryPath,
			Usage:   "file the chat is appended to",
			EnvVars: []string{"HISTORY_PATH"},
		},
	}
}

// Load builds the configuration: defaults, then the config file, then any
// flag or environment variable that was set explicitly.
func Load(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(FlagConfig); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet(FlagHost) {
		cfg.Host = c.String(FlagHost)
	}
	if c.IsSet(FlagListenPort) {
		cfg.ListenPort = c.Int(FlagListenPort)
	}
	if c.IsSet(FlagPostPort) {
		cfg.PostPort = c.Int(FlagPostPort)
	}
	if c.IsSet(FlagNetwork) {
		cfg.Network = config.Network(c.String(FlagNetwork))
	}
	if c.IsSet(FlagTimeout) {
		cfg.ConnectTimeout = c.Duration(FlagTimeout)
	}
	if c.IsSet(FlagToken) {
		cfg.Token = c.String(FlagToken)
	}
	if c.IsSet(FlagUsername) {
		cfg.Username = c.String(FlagUsername)
	}
	if c.IsSet(FlagHistoryPath) {
		cfg.HistoryPath = c.String(FlagHistoryPath)
	}
	if c.IsSet(FlagLogLevel) {
		cfg.LogLevel = c.String(FlagLogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Setup loads the configuration and installs the default logger.
func Setup(c *cli.Context) (*config.Config, error) {
	cfg, err := Load(c)
	if err != nil {
		return nil, ConfigError(err)
	}
	if _, err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
		return nil, ConfigError(err)
	}
	return cfg, nil
}

// ConfigError reports an unusable configuration.
func ConfigError(err error) error {
	return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), client.ExitConfig)
}

// Exit turns an error from a client flow into a diagnostic and exit code.
func Exit(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(client.Describe(err), client.ExitCode(err))
}
