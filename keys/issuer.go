// Package keys issues addresses, key pairs and certificates by driving
// cardano-cli on the node host. Every operation is a thin pass-through: the
// CLI holds the cryptography, this package holds the file plumbing and the
// argument conventions.
//
// Generated artifacts land under the configured working directory on the
// execution host, which is assumed to speak forward-slash paths.
package keys

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Canuckz-NFT/Cardano-Tools/config"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
)

// Issuer creates keys and certificates through an Executor, querying the
// ledger only for the chain constants some certificates embed.
type Issuer struct {
	ledger  node.LedgerService
	exec    node.Executor
	cliPath string
	network []string
	workDir string
	log     zerolog.Logger
}

// NewIssuer validates cfg and returns an Issuer running commands on exec.
func NewIssuer(cfg config.Config, ledger node.LedgerService, exec node.Executor, log zerolog.Logger) (*Issuer, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Issuer{
		ledger:  ledger,
		exec:    exec,
		cliPath: cfg.CLIPath,
		network: node.NetworkArgs(cfg),
		workDir: cfg.WorkingDir,
		log:     log,
	}, nil
}

// run executes one cardano-cli invocation, treating any stderr output as a
// failure the same way the node client does.
func (i *Issuer) run(ctx context.Context, args ...string) (string, error) {
	cmd := node.Command{Path: i.cliPath, Args: args}
	i.log.Debug().Str("cmd", cmd.String()).Msg("exec")

	stdout, stderr, err := i.exec.Run(ctx, cmd)
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

// workPath joins name onto the working directory on the execution host.
func (i *Issuer) workPath(name string) string {
	return path.Join(i.workDir, name)
}

// readText reads a small text artifact, such as an address file, from the
// execution host.
func (i *Issuer) readText(ctx context.Context, p string) (string, error) {
	data, err := i.exec.ReadFile(ctx, p)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Address is a freshly issued payment/stake key set with its derived
// addresses. The file fields are paths on the execution host.
type Address struct {
	PaymentAddr string
	StakeAddr   string

	PaymentVKeyFile string
	PaymentSKeyFile string
	StakeVKeyFile   string
	StakeSKeyFile   string
}

// NewAddress generates a payment key pair, a stake key pair and the two
// addresses derived from them, all named after name under the working
// directory.
func (i *Issuer) NewAddress(ctx context.Context, name string) (*Address, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: address name is empty", ErrInvalidCertificateParams)
	}
	if err := i.exec.MkdirAll(ctx, i.workDir); err != nil {
		return nil, err
	}

	addr := &Address{
		PaymentVKeyFile: i.workPath(name + ".vkey"),
		PaymentSKeyFile: i.workPath(name + ".skey"),
		StakeVKeyFile:   i.workPath(name + "_stake.vkey"),
		StakeSKeyFile:   i.workPath(name + "_stake.skey"),
	}
	paymentAddrFile := i.workPath(name + ".addr")
	stakeAddrFile := i.workPath(name + "_stake.addr")

	_, err := i.run(ctx, "address", "key-gen",
		"--verification-key-file", addr.PaymentVKeyFile,
		"--signing-key-file", addr.PaymentSKeyFile)
	if err != nil {
		return nil, err
	}
	_, err = i.run(ctx, "stake-address", "key-gen",
		"--verification-key-file", addr.StakeVKeyFile,
		"--signing-key-file", addr.StakeSKeyFile)
	if err != nil {
		return nil, err
	}

	args := []string{"address", "build",
		"--payment-verification-key-file", addr.PaymentVKeyFile,
		"--stake-verification-key-file", addr.StakeVKeyFile,
		"--out-file", paymentAddrFile}
	if _, err := i.run(ctx, append(args, i.network...)...); err != nil {
		return nil, err
	}

	args = []string{"stake-address", "build",
		"--stake-verification-key-file", addr.StakeVKeyFile,
		"--out-file", stakeAddrFile}
	if _, err := i.run(ctx, append(args, i.network...)...); err != nil {
		return nil, err
	}

	if addr.PaymentAddr, err = i.readText(ctx, paymentAddrFile); err != nil {
		return nil, err
	}
	if addr.StakeAddr, err = i.readText(ctx, stakeAddrFile); err != nil {
		return nil, err
	}

	i.log.Info().Str("name", name).Str("addr", addr.PaymentAddr).Msg("address issued")
	return addr, nil
}

// KeyHash returns the hash of a payment verification key.
func (i *Issuer) KeyHash(ctx context.Context, vkeyFile string) (string, error) {
	out, err := i.run(ctx, "address", "key-hash",
		"--payment-verification-key-file", vkeyFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PoolID returns the stake pool ID derived from a cold verification key.
func (i *Issuer) PoolID(ctx context.Context, coldVKeyFile string) (string, error) {
	out, err := i.run(ctx, "stake-pool", "id",
		"--cold-verification-key-file", coldVKeyFile)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
