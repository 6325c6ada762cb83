package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidHost        = errors.New("invalid chat host")
	ErrInvalidPort        = errors.New("invalid port number")
	ErrInvalidNetwork     = errors.New("invalid network")
	ErrInvalidTimeout     = errors.New("invalid connect timeout")
	ErrMissingIdentity    = errors.New("either a chat token or a username is required")
	ErrInvalidHistoryPath = errors.New("invalid history path")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParse        = errors.New("configuration parse error")
	ErrUnsupportedFormat  = errors.New("unsupported configuration format")
)
