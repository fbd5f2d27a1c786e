package wallet

import (
	"context"
	"fmt"

	"github.com/Canuckz-NFT/Cardano-Tools/node"
	"github.com/Canuckz-NFT/Cardano-Tools/tx"
)

// SendPaymentParams describes a plain lovelace transfer.
type SendPaymentParams struct {
	FromAddr       string
	ToAddr         string
	AmountLovelace uint64

	// PaymentKeyFile is the signing key of the source address.
	PaymentKeyFile string

	Offline bool
	Cleanup bool
}

func (p *SendPaymentParams) validate() error {
	if p.FromAddr == "" || p.ToAddr == "" {
		return fmt.Errorf("%w: source and destination addresses are required", ErrInvalidParams)
	}
	if p.AmountLovelace == 0 {
		return fmt.Errorf("%w: payment amount is zero", ErrInvalidParams)
	}
	if p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: payment signing key is required", ErrInvalidParams)
	}
	return nil
}

// SendPayment transfers lovelace from one address to another, returning
// change to the source.
func (w *Wallet) SendPayment(ctx context.Context, p SendPaymentParams) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return w.execute(ctx, operation{
		op:      "send",
		name:    txName("tx_"),
		signing: []string{p.PaymentKeyFile},
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		return w.assembler.Assemble(ctx, params, tx.Request{
			Address:      p.FromAddr,
			Payments:     []node.TxOut{{Address: p.ToAddr, Amount: p.AmountLovelace}},
			WitnessCount: 1,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		})
	})
}

// SweepParams describes draining one address into another.
type SweepParams struct {
	FromAddr string
	ToAddr   string

	// PaymentKeyFile is the signing key of the source address.
	PaymentKeyFile string

	Offline bool
	Cleanup bool
}

func (p *SweepParams) validate() error {
	if p.FromAddr == "" || p.ToAddr == "" {
		return fmt.Errorf("%w: source and destination addresses are required", ErrInvalidParams)
	}
	if p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: payment signing key is required", ErrInvalidParams)
	}
	return nil
}

// SweepAccount sends the entire lovelace balance of the source address,
// minus the fee, to the destination in a single output.
func (w *Wallet) SweepAccount(ctx context.Context, p SweepParams) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return w.execute(ctx, operation{
		op:      "sweep",
		name:    txName("empty_acct_"),
		signing: []string{p.PaymentKeyFile},
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		return w.assembler.AssembleSweep(ctx, params, tx.SweepRequest{
			From:         p.FromAddr,
			To:           p.ToAddr,
			WitnessCount: 1,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		})
	})
}

// ClaimRewardsParams describes withdrawing staking rewards.
type ClaimRewardsParams struct {
	StakeAddr    string
	StakeKeyFile string

	// ReceiveAddr receives the rewards.
	ReceiveAddr string

	// PaymentAddr optionally names a second account to pay the fee.
	// Empty means the receive address pays its own way.
	PaymentAddr    string
	PaymentKeyFile string

	Offline bool
	Cleanup bool
}

func (p *ClaimRewardsParams) validate() error {
	if p.StakeAddr == "" || p.ReceiveAddr == "" {
		return fmt.Errorf("%w: stake and receive addresses are required", ErrInvalidParams)
	}
	if p.StakeKeyFile == "" || p.PaymentKeyFile == "" {
		return fmt.Errorf("%w: stake and payment signing keys are required", ErrInvalidParams)
	}
	return nil
}

// ClaimRewards withdraws the full rewards balance of a stake address.
// When the fee payer and the receiver are the same account the rewards
// ride home in the change output; otherwise they become a dedicated
// output to the receive address.
func (w *Wallet) ClaimRewards(ctx context.Context, p ClaimRewardsParams) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return w.execute(ctx, operation{
		op:      "claim-rewards",
		name:    txName("claim_rewards_"),
		signing: []string{p.PaymentKeyFile, p.StakeKeyFile},
		offline: p.Offline,
		cleanup: p.Cleanup,
	}, func(ctx context.Context, params *node.ProtocolParameters, files txFiles) (*tx.Draft, error) {
		rewards, err := w.RewardsBalance(ctx, p.StakeAddr)
		if err != nil {
			return nil, err
		}
		if rewards == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoRewards, p.StakeAddr)
		}

		paymentAddr := p.PaymentAddr
		if paymentAddr == "" {
			paymentAddr = p.ReceiveAddr
		}

		req := tx.Request{
			Address:      paymentAddr,
			Withdrawals:  []node.Withdrawal{{StakeAddress: p.StakeAddr, Amount: rewards}},
			WitnessCount: 2,
			DraftFile:    files.draft,
			BodyFile:     files.body,
		}
		if paymentAddr != p.ReceiveAddr {
			req.Payments = []node.TxOut{{Address: p.ReceiveAddr, Amount: rewards}}
		}
		return w.assembler.Assemble(ctx, params, req)
	})
}
