// Package config holds the settings shared by every component that talks to
// the Cardano node: where the cardano-cli binary lives, which network and era
// to address, and where transaction artifacts are written.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// EnvSocketPath is the environment variable the node itself honours for the
// IPC socket; an unset SocketPath falls back to it.
const EnvSocketPath = "CARDANO_NODE_SOCKET_PATH"

// Config carries the node-facing settings for one client instance.
type Config struct {
	// CLIPath is the cardano-cli executable, resolved via PATH when bare.
	CLIPath string

	// SocketPath is the node IPC socket, exported to every CLI invocation.
	SocketPath string

	// WorkingDir is the directory on the node host where draft bodies,
	// signed transactions, keys and certificates are written.
	WorkingDir string

	// Network selects the target network ("mainnet" or "testnet").
	Network string

	// TestnetMagic is the protocol magic used when Network is "testnet".
	TestnetMagic uint32

	// Era names the transaction era for build-raw
	// ("byron", "shelley", "allegra" or "mary").
	Era string

	// TTLBuffer is the number of slots past the current tip after which an
	// assembled transaction expires.
	TTLBuffer uint64
}

// DefaultTestnetMagic is the protocol magic of the public testnet.
const DefaultTestnetMagic = 1097911063

// DefaultConfig returns a mainnet configuration rooted in the user's home
// directory. SocketPath is taken from CARDANO_NODE_SOCKET_PATH when set.
func DefaultConfig() Config {
	return Config{
		CLIPath:      "cardano-cli",
		SocketPath:   os.Getenv(EnvSocketPath),
		WorkingDir:   DefaultWorkingDir(),
		Network:      "mainnet",
		TestnetMagic: DefaultTestnetMagic,
		Era:          "mary",
		TTLBuffer:    1000,
	}
}

// DefaultWorkingDir returns the default artifact directory under the user's
// home directory, or a relative fallback if the home directory is unknown.
func DefaultWorkingDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cardano-tools"
	}
	return filepath.Join(home, ".cardano-tools")
}

// ConfigPath returns the path of the configuration file inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, "config")
}

// LoadConfig reads a key = value configuration file, starting from
// DefaultConfig for any key the file does not set. Blank lines and lines
// beginning with '#' are ignored; unknown keys are ignored for forward
// compatibility.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d", ErrInvalidConfigLine, i+1)
		}
		if err := applyKey(&cfg, key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %v", ErrInvalidConfigLine, i+1, err)
		}
	}

	return cfg, nil
}

// parseKeyValue splits a configuration line on its first '='.
func parseKeyValue(line string) (key, value string, err error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("missing '='")
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), nil
}

// applyKey sets a single configuration key. Unknown keys are a no-op.
func applyKey(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "cli":
		cfg.CLIPath = value
	case "socket":
		cfg.SocketPath = value
	case "workdir":
		cfg.WorkingDir = value
	case "network":
		cfg.Network = value
	case "magic":
		magic, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("magic %q: %v", value, err)
		}
		cfg.TestnetMagic = uint32(magic)
	case "era":
		cfg.Era = value
	case "ttlbuffer":
		ttl, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("ttlbuffer %q: %v", value, err)
		}
		cfg.TTLBuffer = ttl
	}
	return nil
}

// SaveConfig writes cfg to path in key = value form, creating parent
// directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Cardano Tools Configuration\n\n")
	entries := map[string]string{
		"cli":       cfg.CLIPath,
		"socket":    cfg.SocketPath,
		"workdir":   cfg.WorkingDir,
		"network":   cfg.Network,
		"magic":     strconv.FormatUint(uint64(cfg.TestnetMagic), 10),
		"era":       cfg.Era,
		"ttlbuffer": strconv.FormatUint(cfg.TTLBuffer, 10),
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, entries[k])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
