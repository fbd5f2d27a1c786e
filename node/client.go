package node

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
)

// Client drives cardano-cli through an Executor. It is safe for sequential
// use; concurrent builds against the same address race on UTXOs and the node
// arbitrates by rejecting the loser at submission.
type Client struct {
	exec    Executor
	cliPath string
	network []string
	era     string
	log     zerolog.Logger
}

// Compile-time interface check.
var _ LedgerService = (*Client)(nil)

// NewClient validates cfg and returns a client running commands on exec.
// Pass zerolog.Nop() to silence logging.
func NewClient(cfg config.Config, exec Executor, log zerolog.Logger) (*Client, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Client{
		exec:    exec,
		cliPath: cfg.CLIPath,
		network: NetworkArgs(cfg),
		era:     "--" + cfg.Era + "-era",
		log:     log,
	}, nil
}

// Executor exposes the underlying executor for artifact file management.
func (c *Client) Executor() Executor { return c.exec }

// NetworkArgs renders the network selection flags every network-aware
// cardano-cli subcommand takes.
func NetworkArgs(cfg config.Config) []string {
	if cfg.Network == "testnet" {
		return []string{"--testnet-magic", strconv.FormatUint(uint64(cfg.TestnetMagic), 10)}
	}
	return []string{"--mainnet"}
}

// run executes one cardano-cli invocation. Any non-empty stderr is a
// failure, independent of exit status; when both an exit error and stderr
// are present the stderr text is attached for diagnosis.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := Command{Path: c.cliPath, Args: args}
	c.log.Debug().Str("cmd", cmd.String()).Msg("exec")

	stdout, stderr, err := c.exec.Run(ctx, cmd)
	stderr = strings.TrimSpace(stderr)
	if err != nil {
		if stderr != "" {
			return "", fmt.Errorf("%v: %s", err, stderr)
		}
		return "", err
	}
	if stderr != "" {
		return "", fmt.Errorf("%s", stderr)
	}
	return stdout, nil
}
