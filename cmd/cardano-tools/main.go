// Package main is the cardano-tools command line: chain queries and
// wallet operations against a local or SSH-reachable Cardano node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
	"github.com/Canuckz-NFT/Cardano-Tools/keys"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
	"github.com/Canuckz-NFT/Cardano-Tools/txlog"
	"github.com/Canuckz-NFT/Cardano-Tools/wallet"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cardano-tools",
		Usage: "Operate a Cardano wallet and stake pool through cardano-cli",
		Before: func(c *cli.Context) error {
			// .env is optional; variables already in the environment win.
			if _, err := os.Stat(".env"); err == nil {
				if err := godotenv.Load(); err != nil {
					return fmt.Errorf("load .env: %w", err)
				}
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "configuration file",
				Value: config.ConfigPath(config.DefaultWorkingDir()),
			},
			&cli.StringFlag{
				Name:    "cli",
				Usage:   "cardano-cli executable",
				EnvVars: []string{"CARDANO_TOOLS_CLI"},
			},
			&cli.StringFlag{
				Name:    "socket",
				Usage:   "node IPC socket path on the node host",
				EnvVars: []string{config.EnvSocketPath},
			},
			&cli.StringFlag{
				Name:    "workdir",
				Usage:   "artifact directory on the node host",
				EnvVars: []string{"CARDANO_TOOLS_WORKDIR"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "mainnet or testnet",
				EnvVars: []string{"CARDANO_TOOLS_NETWORK"},
			},
			&cli.UintFlag{
				Name:    "magic",
				Usage:   "testnet protocol magic",
				EnvVars: []string{"CARDANO_TOOLS_MAGIC"},
			},
			&cli.StringFlag{
				Name:    "era",
				Usage:   "transaction era",
				EnvVars: []string{"CARDANO_TOOLS_ERA"},
			},
			&cli.Uint64Flag{
				Name:  "ttl-buffer",
				Usage: "slots past the tip before transactions expire",
			},
			&cli.StringFlag{
				Name:    "ssh",
				Usage:   "node host to reach over SSH (host:port); empty means local",
				EnvVars: []string{"CARDANO_TOOLS_SSH"},
			},
			&cli.StringFlag{
				Name:    "ssh-user",
				Usage:   "SSH login name",
				EnvVars: []string{"CARDANO_TOOLS_SSH_USER"},
			},
			&cli.StringFlag{
				Name:    "ssh-key",
				Usage:   "SSH private key file",
				EnvVars: []string{"CARDANO_TOOLS_SSH_KEY"},
			},
			&cli.StringFlag{
				Name:    "ssh-password",
				Usage:   "SSH password, used when no key file is given",
				EnvVars: []string{"CARDANO_TOOLS_SSH_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "ssh-known-hosts",
				Usage:   "known_hosts file for host key verification",
				EnvVars: []string{"CARDANO_TOOLS_SSH_KNOWN_HOSTS"},
			},
			&cli.StringFlag{
				Name:    "journal",
				Usage:   "transaction journal database; empty disables the journal",
				EnvVars: []string{"CARDANO_TOOLS_JOURNAL"},
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "sign but do not submit; keep the signed file",
			},
			&cli.BoolFlag{
				Name:  "no-cleanup",
				Usage: "keep intermediate transaction files",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug logging",
			},
		},
		Commands: []*cli.Command{
			tipCommand(),
			balanceCommand(),
			utxosCommand(),
			sendCommand(),
			registerStakeCommand(),
			registerPoolCommand(),
			retirePoolCommand(),
			claimRewardsCommand(),
			sweepCommand(),
			historyCommand(),
		},
	}
}

// resolveConfig layers the settings: file values over defaults, then
// any flag or environment value that was explicitly set.
func resolveConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return config.Config{}, err
	}
	if c.IsSet("cli") {
		cfg.CLIPath = c.String("cli")
	}
	if c.IsSet("socket") {
		cfg.SocketPath = c.String("socket")
	}
	if c.IsSet("workdir") {
		cfg.WorkingDir = c.String("workdir")
	}
	if c.IsSet("network") {
		cfg.Network = c.String("network")
	}
	if c.IsSet("magic") {
		cfg.TestnetMagic = uint32(c.Uint("magic"))
	}
	if c.IsSet("era") {
		cfg.Era = c.String("era")
	}
	if c.IsSet("ttl-buffer") {
		cfg.TTLBuffer = c.Uint64("ttl-buffer")
	}
	return cfg, nil
}

func newLogger(c *cli.Context) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// toolbox holds the wired-up components behind one invocation.
type toolbox struct {
	cfg     config.Config
	client  *node.Client
	wallet  *wallet.Wallet
	closers []func() error
}

func (t *toolbox) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		_ = t.closers[i]()
	}
}

func openToolbox(c *cli.Context) (*toolbox, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}
	log := newLogger(c)

	var (
		exec    node.Executor
		closers []func() error
	)
	if host := c.String("ssh"); host != "" {
		sshExec, err := node.DialSSH(node.SSHConfig{
			Host:           host,
			User:           c.String("ssh-user"),
			KeyFile:        c.String("ssh-key"),
			Password:       c.String("ssh-password"),
			KnownHostsFile: c.String("ssh-known-hosts"),
		}, cfg.SocketPath)
		if err != nil {
			return nil, err
		}
		exec = sshExec
		closers = append(closers, sshExec.Close)
	} else {
		exec = node.NewLocal(cfg.SocketPath)
	}

	fail := func(err error) (*toolbox, error) {
		for _, close := range closers {
			_ = close()
		}
		return nil, err
	}

	client, err := node.NewClient(cfg, exec, log)
	if err != nil {
		return fail(err)
	}
	issuer, err := keys.NewIssuer(cfg, client, exec, log)
	if err != nil {
		return fail(err)
	}

	var journal *txlog.Journal
	if path := c.String("journal"); path != "" {
		if journal, err = txlog.Open(path); err != nil {
			return fail(err)
		}
		closers = append(closers, journal.Close)
	}

	w, err := wallet.New(cfg, client, exec, issuer, journal, log)
	if err != nil {
		return fail(err)
	}

	return &toolbox{cfg: cfg, client: client, wallet: w, closers: closers}, nil
}

func withTools(c *cli.Context, fn func(ctx context.Context, t *toolbox) error) error {
	t, err := openToolbox(c)
	if err != nil {
		return err
	}
	defer t.Close()
	return fn(c.Context, t)
}

func printResult(res *wallet.Result) {
	fmt.Printf("state: %s\n", res.State)
	fmt.Printf("fee:   %d\n", res.Fee)
	if res.State == wallet.StatePersistedOffline {
		fmt.Printf("signed transaction: %s\n", res.SignedFile)
	}
}

func tipCommand() *cli.Command {
	return &cli.Command{
		Name:  "tip",
		Usage: "Show the current chain tip",
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				tip, err := t.client.QueryTip(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("slot:  %d\n", tip.Slot)
				fmt.Printf("block: %d\n", tip.Block)
				fmt.Printf("epoch: %d\n", tip.Epoch)
				return nil
			})
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the lovelace balance of an address",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			addr := c.Args().First()
			if addr == "" {
				return fmt.Errorf("an address argument is required")
			}
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				total, err := t.wallet.Balance(ctx, addr)
				if err != nil {
					return err
				}
				fmt.Println(total)
				return nil
			})
		},
	}
}

func utxosCommand() *cli.Command {
	return &cli.Command{
		Name:      "utxos",
		Usage:     "List the unspent outputs at an address",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			addr := c.Args().First()
			if addr == "" {
				return fmt.Errorf("an address argument is required")
			}
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				utxos, err := t.client.QueryUTXOs(ctx, addr, nil)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TXHASH\tIX\tLOVELACE\tASSETS")
				for _, u := range utxos {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", u.TxHash, u.TxIx, u.Amount(), assetSummary(u))
				}
				return tw.Flush()
			})
		},
	}
}

// assetSummary renders the native assets of an output, lovelace
// excluded, in a stable order.
func assetSummary(u *node.UTXO) string {
	var parts []string
	for id, qty := range u.Value {
		if id == node.AssetLovelace {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d %s", qty, id))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send lovelace from one address to another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "source address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "destination address", Required: true},
			&cli.Uint64Flag{Name: "amount", Usage: "payment in lovelace", Required: true},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				res, err := t.wallet.SendPayment(ctx, wallet.SendPaymentParams{
					FromAddr:       c.String("from"),
					ToAddr:         c.String("to"),
					AmountLovelace: c.Uint64("amount"),
					PaymentKeyFile: c.String("key"),
					Offline:        c.Bool("offline"),
					Cleanup:        !c.Bool("no-cleanup"),
				})
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func registerStakeCommand() *cli.Command {
	return &cli.Command{
		Name:  "register-stake",
		Usage: "Register a stake address on chain",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "payment address funding the registration", Required: true},
			&cli.StringFlag{Name: "stake-vkey", Usage: "stake verification key file", Required: true},
			&cli.StringFlag{Name: "stake-skey", Usage: "stake signing key file", Required: true},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				res, err := t.wallet.RegisterStakeAddress(ctx, wallet.RegisterStakeAddressParams{
					Addr:           c.String("addr"),
					StakeVKeyFile:  c.String("stake-vkey"),
					StakeKeyFile:   c.String("stake-skey"),
					PaymentKeyFile: c.String("key"),
					Offline:        c.Bool("offline"),
					Cleanup:        !c.Bool("no-cleanup"),
				})
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func registerPoolCommand() *cli.Command {
	return &cli.Command{
		Name:  "register-pool",
		Usage: "Register or re-register a stake pool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "pool name for artifact naming", Required: true},
			&cli.Uint64Flag{Name: "pledge", Usage: "pledge in lovelace", Required: true},
			&cli.Uint64Flag{Name: "cost", Usage: "fixed cost per epoch in lovelace", Required: true},
			&cli.Float64Flag{Name: "margin", Usage: "variable fee as a fraction between 0 and 1", Required: true},
			&cli.StringFlag{Name: "cold-vkey", Usage: "cold verification key file", Required: true},
			&cli.StringFlag{Name: "cold-skey", Usage: "cold signing key file", Required: true},
			&cli.StringFlag{Name: "vrf-vkey", Usage: "VRF verification key file", Required: true},
			&cli.StringFlag{Name: "reward-vkey", Usage: "reward account stake verification key file", Required: true},
			&cli.StringSliceFlag{Name: "owner-vkey", Usage: "owner stake verification key file (repeatable)", Required: true},
			&cli.StringSliceFlag{Name: "owner-skey", Usage: "owner stake signing key file (repeatable)", Required: true},
			&cli.StringSliceFlag{Name: "relay", Usage: "pool relay as kind:host[:port], kind one of ipv4, ipv6, dns, srv"},
			&cli.StringFlag{Name: "metadata-url", Usage: "published pool metadata URL"},
			&cli.StringFlag{Name: "metadata-hash", Usage: "pool metadata hash; downloaded and hashed when omitted"},
			&cli.StringFlag{Name: "payment-addr", Usage: "address paying the deposit and fee", Required: true},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
			&cli.StringFlag{Name: "genesis", Usage: "genesis file supplying the pool deposit"},
			&cli.BoolFlag{Name: "update", Usage: "re-register an existing pool; no deposit is due"},
		},
		Action: func(c *cli.Context) error {
			relays, err := parseRelays(c.StringSlice("relay"))
			if err != nil {
				return err
			}
			params := wallet.PoolRegistrationParams{
				Pool: keys.PoolCertParams{
					PoolName:            c.String("name"),
					Pledge:              c.Uint64("pledge"),
					Cost:                c.Uint64("cost"),
					Margin:              c.Float64("margin"),
					ColdVKeyFile:        c.String("cold-vkey"),
					VRFVKeyFile:         c.String("vrf-vkey"),
					RewardStakeVKeyFile: c.String("reward-vkey"),
					OwnerStakeVKeyFiles: c.StringSlice("owner-vkey"),
					Relays:              relays,
					MetadataURL:         c.String("metadata-url"),
					MetadataHash:        c.String("metadata-hash"),
				},
				OwnerStakeKeyFiles: c.StringSlice("owner-skey"),
				ColdKeyFile:        c.String("cold-skey"),
				PaymentAddr:        c.String("payment-addr"),
				PaymentKeyFile:     c.String("key"),
				GenesisFile:        c.String("genesis"),
				Offline:            c.Bool("offline"),
				Cleanup:            !c.Bool("no-cleanup"),
			}
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				var (
					res *wallet.Result
					err error
				)
				if c.Bool("update") {
					res, err = t.wallet.UpdateStakePoolRegistration(ctx, params)
				} else {
					res, err = t.wallet.RegisterStakePool(ctx, params)
				}
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func retirePoolCommand() *cli.Command {
	return &cli.Command{
		Name:  "retire-pool",
		Usage: "Schedule a stake pool's retirement",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "pool name for artifact naming", Required: true},
			&cli.Uint64Flag{Name: "epochs", Usage: "epochs from now until retirement", Value: 1},
			&cli.StringFlag{Name: "genesis", Usage: "genesis file supplying the epoch length", Required: true},
			&cli.StringFlag{Name: "cold-vkey", Usage: "cold verification key file", Required: true},
			&cli.StringFlag{Name: "cold-skey", Usage: "cold signing key file", Required: true},
			&cli.StringFlag{Name: "payment-addr", Usage: "address paying the fee", Required: true},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				res, err := t.wallet.RetireStakePool(ctx, wallet.RetirePoolParams{
					PoolName:        c.String("name"),
					RemainingEpochs: c.Uint64("epochs"),
					GenesisFile:     c.String("genesis"),
					ColdVKeyFile:    c.String("cold-vkey"),
					ColdKeyFile:     c.String("cold-skey"),
					PaymentAddr:     c.String("payment-addr"),
					PaymentKeyFile:  c.String("key"),
					Offline:         c.Bool("offline"),
					Cleanup:         !c.Bool("no-cleanup"),
				})
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func claimRewardsCommand() *cli.Command {
	return &cli.Command{
		Name:  "claim-rewards",
		Usage: "Withdraw staking rewards to a spending address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "stake-addr", Usage: "stake address holding the rewards", Required: true},
			&cli.StringFlag{Name: "stake-skey", Usage: "stake signing key file", Required: true},
			&cli.StringFlag{Name: "receive-addr", Usage: "address receiving the rewards", Required: true},
			&cli.StringFlag{Name: "payment-addr", Usage: "separate address paying the fee; empty means the receive address pays"},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				res, err := t.wallet.ClaimRewards(ctx, wallet.ClaimRewardsParams{
					StakeAddr:      c.String("stake-addr"),
					StakeKeyFile:   c.String("stake-skey"),
					ReceiveAddr:    c.String("receive-addr"),
					PaymentAddr:    c.String("payment-addr"),
					PaymentKeyFile: c.String("key"),
					Offline:        c.Bool("offline"),
					Cleanup:        !c.Bool("no-cleanup"),
				})
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Send an address's entire balance to another address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "source address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "destination address", Required: true},
			&cli.StringFlag{Name: "key", Usage: "payment signing key file", Required: true},
		},
		Action: func(c *cli.Context) error {
			return withTools(c, func(ctx context.Context, t *toolbox) error {
				res, err := t.wallet.SweepAccount(ctx, wallet.SweepParams{
					FromAddr:       c.String("from"),
					ToAddr:         c.String("to"),
					PaymentKeyFile: c.String("key"),
					Offline:        c.Bool("offline"),
					Cleanup:        !c.Bool("no-cleanup"),
				})
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List journaled transactions",
		Action: func(c *cli.Context) error {
			path := c.String("journal")
			if path == "" {
				return fmt.Errorf("the history command needs --journal")
			}
			journal, err := txlog.Open(path)
			if err != nil {
				return err
			}
			defer journal.Close()

			recs, err := journal.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tOP\tSTATE\tFEE\tSIGNED FILE")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
					rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Op, rec.State, rec.Fee, rec.SignedFile)
			}
			return tw.Flush()
		},
	}
}

// parseRelays converts repeated --relay flags into certificate relays.
func parseRelays(specs []string) ([]keys.Relay, error) {
	relays := make([]keys.Relay, 0, len(specs))
	for _, s := range specs {
		r, err := parseRelay(s)
		if err != nil {
			return nil, err
		}
		relays = append(relays, r)
	}
	return relays, nil
}

// parseRelay turns kind:host[:port] into a relay. The port splits off
// the right-hand side so IPv6 hosts keep their colons; srv relays
// carry no port at all.
func parseRelay(s string) (keys.Relay, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return keys.Relay{}, fmt.Errorf("relay %q: want kind:host[:port]", s)
	}
	r := keys.Relay{Kind: keys.RelayKind(kind)}
	if r.Kind == keys.RelaySRV {
		r.Host = rest
		return r, nil
	}

	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return keys.Relay{}, fmt.Errorf("relay %q: %s relays need a port", s, kind)
	}
	host := rest[:idx]
	if host == "" {
		return keys.Relay{}, fmt.Errorf("relay %q: want kind:host[:port]", s)
	}
	port, err := strconv.ParseUint(rest[idx+1:], 10, 16)
	if err != nil {
		return keys.Relay{}, fmt.Errorf("relay %q: invalid port: %v", s, err)
	}
	r.Host = host
	r.Port = uint16(port)
	return r, nil
}
