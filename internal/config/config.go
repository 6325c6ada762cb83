// Package config provides the minechat client configuration: defaults,
// loading from YAML or TOML files and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Network selects how the client reaches the chat server.
type Network string

const (
	NetworkTCP       Network = "tcp"
	NetworkWebSocket Network = "websocket"
)

// IsValid reports whether the network is supported.
func (n Network) IsValid() bool {
	return n == NetworkTCP || n == NetworkWebSocket
}

// Defaults of the public minechat server.
const (
	DefaultHost           = "minechat.dvmn.org"
	DefaultListenPort     = 5000
	DefaultPostPort       = 5050
	DefaultConnectTimeout = 3 * time.Second
	DefaultHistoryPath    = "minechat.history"
	DefaultUsername       = "anonymous"
	DefaultLogLevel       = "INFO"
)

// Config holds everything the client commands need.
type Config struct {
	// Host is the chat server hostname.
	Host string `yaml:"host" toml:"host"`

	// ListenPort serves the read-only chat stream.
	ListenPort int `yaml:"listen_port" toml:"listen_port"`

	// PostPort accepts registration, authentication and messages.
	PostPort int `yaml:"post_port" toml:"post_port"`

	Network Network `yaml:"network" toml:"network"`

	// Token is the account hash. When empty a new account is registered
	// under Username.
	Token    string `yaml:"token" toml:"token"`
	Username string `yaml:"username" toml:"username"`

	// ConnectTimeout bounds each connection attempt, not the dialogs after it.
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`

	HistoryPath string `yaml:"history_path" toml:"history_path"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
}

// Default returns the configuration for the public minechat server.
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		ListenPort:     DefaultListenPort,
		PostPort:       DefaultPostPort,
		Network:        NetworkTCP,
		Username:       DefaultUsername,
		ConnectTimeout: DefaultConnectTimeout,
		HistoryPath:    DefaultHistoryPath,
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFile reads path on top of the defaults. The format follows the file
// extension: .yaml/.yml or .toml.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s: unknown keys %v", ErrConfigParse, path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return cfg, nil
}

// Validate checks the configuration at the process boundary.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrInvalidHost
	}
	if !validPort(c.ListenPort) {
		return fmt.Errorf("%w: listen port %d", ErrInvalidPort, c.ListenPort)
	}
	if !validPort(c.PostPort) {
		return fmt.Errorf("%w: post port %d", ErrInvalidPort, c.PostPort)
	}
	if !c.Network.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidNetwork, c.Network)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, c.ConnectTimeout)
	}
	if c.Token == "" && strings.TrimSpace(c.Username) == "" {
		return ErrMissingIdentity
	}
	if c.HistoryPath == "" {
		return ErrInvalidHistoryPath
	}
	return nil
}

// ListenAddress is the host:port of the read-only stream.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ListenPort))
}

// PostAddress is the host:port that accepts messages.
func (c *Config) PostAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.PostPort))
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
