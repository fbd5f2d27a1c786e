package wallet

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Canuckz-NFT/Cardano-Tools/keys"
	"github.com/Canuckz-NFT/Cardano-Tools/node"
	"github.com/Canuckz-NFT/Cardano-Tools/tx"
)

// RegisterStakeAddressParams describes putting a stake key on chain.
type RegisterStakeAddressParams struct {
	// Addr is the payment address funding the registration and the
	// key deposit.
	Addr string

	StakeVKeyFile  string
	StakeKeyFile   string
	PaymentKeyFile string

	Offline bool
	Cleanup bool
}

func (p *RegisterStakeAddressParams) validate() error {
	if p.Addr == "" {
		return fmt.Errorf("%w: funding address is required", ErrInvalidParams)
	}
	if p.StakeVKeyFile == "" || p.StakeKeyFile == "" || p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: stake key pair and payment signing key are required", ErrInvalidParams)
	}
	return nil
}

// stakeCertPath places the registration certificate next to the stake
// verification key it registers.
func stakeCertPath(stakeVKeyFile string) string {
	return strings.TrimSuffix(stakeVKeyFile, path.Ext(stakeVKeyFile)) + ".cert"
}

// RegisterStakeAddress registers a stake address on chain, paying the
// key deposit from the funding address.
func (w *Wallet) RegisterStakeAddress(ctx context.Context, p RegisterStakeAddressParams) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return w.execute(ctx, operation{
		op:      "register-stake",
		name:    txName("reg_stake_key_"),
		signing: []string{p.PaymentKeyFile, p.StakeKeyFile},
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		certFile := stakeCertPath(p.StakeVKeyFile)
		if err := w.issuer.StakeRegistrationCert(ctx, p.StakeVKeyFile, certFile); err != nil {
			return nil, err
		}
		return w.assembler.Assemble(ctx, params, tx.Request{
			Address:      p.Addr,
			Certificates: []string{certFile},
			Deposit:      params.StakeAddressDeposit,
			WitnessCount: 2,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		})
	})
}

// PoolRegistrationParams describes registering or re-registering a
// stake pool.
type PoolRegistrationParams struct {
	// Pool describes the registration certificate.
	Pool keys.PoolCertParams

	// OwnerStakeKeyFiles are the owner stake signing keys, one per
	// entry in Pool.OwnerStakeVKeyFiles.
	OwnerStakeKeyFiles []string

	// ColdKeyFile is the pool's cold signing key.
	ColdKeyFile string

	// PaymentAddr funds the deposit and the fee; PaymentKeyFile is its
	// signing key.
	PaymentAddr    string
	PaymentKeyFile string

	// GenesisFile supplies the pool deposit for first-time
	// registrations. Updates do not read it.
	GenesisFile string

	Offline bool
	Cleanup bool
}

func (p *PoolRegistrationParams) validate(payDeposit bool) error {
	if p.PaymentAddr == "" || p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: payment address and signing key are required", ErrInvalidParams)
	}
	if p.ColdKeyFile == "" {
		return fmt.Errorf("%w: cold signing key is required", ErrInvalidParams)
	}
	if len(p.OwnerStakeKeyFiles) != len(p.Pool.OwnerStakeVKeyFiles) {
		return fmt.Errorf("%w: %d owner signing keys for %d owner stake keys",
			ErrInvalidParams, len(p.OwnerStakeKeyFiles), len(p.Pool.OwnerStakeVKeyFiles))
	}
	if payDeposit && p.GenesisFile == "" {
		return fmt.Errorf("%w: genesis file is required to pay the pool deposit", ErrInvalidParams)
	}
	return nil
}

// RegisterStakePool registers a new stake pool: registration
// certificate, one delegation certificate per owner, and the pool
// deposit from the genesis parameters, all in a single transaction
// signed by the payment key, every owner stake key and the cold key.
func (w *Wallet) RegisterStakePool(ctx context.Context, p PoolRegistrationParams) (*Result, error) {
	return w.registerPool(ctx, p, true)
}

// UpdateStakePoolRegistration re-registers an existing pool. The shape
// matches RegisterStakePool but no deposit is due.
func (w *Wallet) UpdateStakePoolRegistration(ctx context.Context, p PoolRegistrationParams) (*Result, error) {
	return w.registerPool(ctx, p, false)
}

func (w *Wallet) registerPool(ctx context.Context, p PoolRegistrationParams, payDeposit bool) (*Result, error) {
	if err := p.validate(payDeposit); err != nil {
		return nil, err
	}

	op := "register-pool"
	if !payDeposit {
		op = "update-pool"
	}

	signing := make([]string, 0, len(p.OwnerStakeKeyFiles)+2)
	signing = append(signing, p.PaymentKeyFile)
	signing = append(signing, p.OwnerStakeKeyFiles...)
	signing = append(signing, p.ColdKeyFile)

	return w.execute(ctx, operation{
		op:      op,
		name:    txName("reg_pool_"),
		signing: signing,
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		poolCert, err := w.issuer.StakePoolCert(ctx, p.Pool)
		if err != nil {
			return nil, err
		}
		delCerts, err := w.issuer.DelegationCerts(ctx, p.Pool.OwnerStakeVKeyFiles, p.Pool.ColdVKeyFile)
		if err != nil {
			return nil, err
		}

		var deposit uint64
		if payDeposit {
			genesis, err := w.ledger.GenesisParameters(ctx, p.GenesisFile)
			if err != nil {
				return nil, err
			}
			deposit = genesis.PoolDeposit
		}

		return w.assembler.Assemble(ctx, params, tx.Request{
			Address:      p.PaymentAddr,
			Certificates: append([]string{poolCert}, delCerts...),
			Deposit:      deposit,
			WitnessCount: len(p.Pool.OwnerStakeVKeyFiles) + 2,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		})
	})
}

// RetirePoolParams describes scheduling a pool's retirement.
type RetirePoolParams struct {
	PoolName string

	// RemainingEpochs is how many epochs from now the pool retires.
	// Values below 1 are raised to 1; values above the protocol's eMax
	// are rejected.
	RemainingEpochs uint64

	GenesisFile  string
	ColdVKeyFile string
	ColdKeyFile  string

	PaymentAddr    string
	PaymentKeyFile string

	Offline bool
	Cleanup bool
}

func (p *RetirePoolParams) validate() error {
	if p.PoolName == "" {
		return fmt.Errorf("%w: pool name is required", ErrInvalidParams)
	}
	if p.PaymentAddr == "" || p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: payment address and signing key are required", ErrInvalidParams)
	}
	if p.ColdVKeyFile == "" || p.ColdKeyFile == "" {
		return fmt.Errorf("%w: cold key pair is required", ErrInvalidParams)
	}
	if p.GenesisFile == "" {
		return fmt.Errorf("%w: genesis file is required", ErrInvalidParams)
	}
	return nil
}

// RetireStakePool schedules the pool's retirement a number of epochs in
// the future and submits the deregistration certificate, signed by the
// payment and cold keys.
func (w *Wallet) RetireStakePool(ctx context.Context, p RetirePoolParams) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return w.execute(ctx, operation{
		op:      "retire-pool",
		name:    txName("retire_pool_"),
		signing: []string{p.PaymentKeyFile, p.ColdKeyFile},
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		remaining := p.RemainingEpochs
		if remaining < 1 {
			remaining = 1
		}
		if remaining > params.EMax {
			return nil, fmt.Errorf("%w: %d remaining epochs exceeds eMax %d",
				ErrInvalidEpoch, remaining, params.EMax)
		}

		genesis, err := w.ledger.GenesisParameters(ctx, p.GenesisFile)
		if err != nil {
			return nil, err
		}
		if genesis.EpochLength == 0 {
			return nil, fmt.Errorf("%w: epoch length is zero", keys.ErrInvalidGenesis)
		}
		tip, err := w.ledger.QueryTip(ctx)
		if err != nil {
			return nil, err
		}
		epoch := tip.Slot/genesis.EpochLength + remaining

		certFile, err := w.issuer.DeregistrationCert(ctx, p.ColdVKeyFile, epoch, p.PoolName)
		if err != nil {
			return nil, err
		}

		return w.assembler.Assemble(ctx, params, tx.Request{
			Address:      p.PaymentAddr,
			Certificates: []string{certFile},
			WitnessCount: 2,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		})
	})
}
