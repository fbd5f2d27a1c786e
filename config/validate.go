// Copyright (c) 2026 The Cardano Tools developers
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

// validEras lists the eras build-raw accepts, oldest first.
var validEras = map[string]bool{
	"byron":   true,
	"shelley": true,
	"allegra": true,
	"mary":    true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.CLIPath == "" {
		return ErrMissingCLIPath
	}

	if cfg.WorkingDir == "" {
		return ErrEmptyWorkingDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return ErrInvalidNetwork
	}

	if !validEras[cfg.Era] {
		return ErrInvalidEra
	}

	if cfg.TTLBuffer == 0 {
		return ErrInvalidTTLBuffer
	}

	return nil
}
