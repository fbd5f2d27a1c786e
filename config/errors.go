// Copyright (c) 2026 The Cardano Tools developers
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\" or \"testnet\")")

	// ErrInvalidEra indicates the era name is not recognized.
	ErrInvalidEra = errors.New("config: invalid era (must be \"byron\", \"shelley\", \"allegra\" or \"mary\")")

	// ErrMissingCLIPath indicates no cardano-cli executable was configured.
	ErrMissingCLIPath = errors.New("config: cli path must not be empty")

	// ErrEmptyWorkingDir indicates the working directory path is empty.
	ErrEmptyWorkingDir = errors.New("config: working directory must not be empty")

	// ErrInvalidTTLBuffer indicates the TTL buffer is zero.
	ErrInvalidTTLBuffer = errors.New("config: ttl buffer must be positive")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
