// Package tx assembles balanced, unsigned Cardano transactions.
//
// Assembly selects inputs largest-first and re-estimates the fee after every
// input it adds, because each additional input grows the serialized body and
// with it the minimum fee. The loop runs until the selected total covers the
// required total and the change left over is either zero or large enough to
// be a legal output on its own.
package tx

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Canuckz-NFT/Cardano-Tools/node"
)

// Assembler builds transaction bodies against a ledger.
type Assembler struct {
	ledger    node.LedgerService
	ttlBuffer uint64
	log       zerolog.Logger
}

// NewAssembler returns an Assembler whose transactions stay valid for
// ttlBuffer slots past the tip observed at build time.
func NewAssembler(ledger node.LedgerService, ttlBuffer uint64, log zerolog.Logger) *Assembler {
	return &Assembler{
		ledger:    ledger,
		ttlBuffer: ttlBuffer,
		log:       log.With().Str("component", "assembler").Logger(),
	}
}

// byAmountDesc sorts outputs largest first. It is applied with sort.Stable
// so outputs of equal value keep the order the node returned them in.
type byAmountDesc []*node.UTXO

func (s byAmountDesc) Len() int           { return len(s) }
func (s byAmountDesc) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s byAmountDesc) Less(i, j int) bool { return s[i].Amount() > s[j].Amount() }

// Assemble selects inputs for req, converges on a fee and writes the final
// body to req.BodyFile. The draft written to req.DraftFile is an estimation
// artifact and can be discarded afterwards.
//
// Selection failures are classified: ErrEmptyAccount when the address has no
// pure-lovelace outputs at all, InsufficientFundsError when every output
// together cannot cover the required total, and DustChangeError when the
// account covers the total but the leftover is too small to be an output.
func (a *Assembler) Assemble(ctx context.Context, params *node.ProtocolParameters, req Request) (*Draft, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: protocol parameters are nil", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	utxos, err := a.ledger.QueryUTXOs(ctx, req.Address, node.LovelaceOnly)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAccount, req.Address)
	}
	sort.Stable(byAmountDesc(utxos))

	payments := req.paymentTotal()
	withdrawals := req.withdrawalTotal()

	// Draft bodies carry a placeholder change output plus one zero-value
	// placeholder per payment, so the estimated fee prices the same output
	// count as the final body.
	placeholders := make([]node.TxOut, 0, len(req.Payments)+1)
	placeholders = append(placeholders, node.TxOut{Address: req.Address})
	for _, p := range req.Payments {
		placeholders = append(placeholders, node.TxOut{Address: p.Address})
	}

	// --- Select inputs ---

	var (
		inputs    []node.TxIn
		total     uint64
		fee       uint64
		required  int64
		change    int64
		converged bool
	)
	for _, u := range utxos {
		inputs = append(inputs, u.TxIn())
		total += u.Amount()

		err := a.ledger.BuildRaw(ctx, node.BuildRawParams{
			Inputs:       inputs,
			Outputs:      placeholders,
			Certificates: req.Certificates,
			Withdrawals:  req.Withdrawals,
			OutFile:      req.DraftFile,
		})
		if err != nil {
			return nil, err
		}
		fee, err = a.ledger.CalculateMinFee(ctx, req.DraftFile, len(inputs), len(placeholders), req.WitnessCount, 0, params.File)
		if err != nil {
			return nil, err
		}

		// Withdrawals fund the transaction without being inputs, so the
		// required total can go negative. Signed arithmetic keeps the
		// comparison honest.
		required = int64(fee) + int64(req.Deposit) + int64(payments) - int64(withdrawals)
		change = int64(total) - required

		a.log.Debug().
			Int("inputs", len(inputs)).
			Uint64("selected", total).
			Uint64("fee", fee).
			Int64("required", required).
			Int64("change", change).
			Msg("selection step")

		if int64(total) > required+int64(req.Tolerance) && (change > int64(params.MinUTxOValue) || change == 0) {
			converged = true
			break
		}
	}
	if !converged {
		if int64(total) <= required {
			return nil, &InsufficientFundsError{
				Account:   req.Address,
				Required:  uint64(required),
				Available: total,
			}
		}
		// Covered, but the leftover is stuck between zero and the
		// minimum output value.
		return nil, &DustChangeError{
			Amount:  uint64(change),
			Minimum: params.MinUTxOValue,
		}
	}

	// --- Build the final body ---

	tip, err := a.ledger.QueryTip(ctx)
	if err != nil {
		return nil, err
	}
	ttl := tip.Slot + a.ttlBuffer

	outputs := make([]node.TxOut, 0, len(req.Payments)+1)
	if change > 0 {
		outputs = append(outputs, node.TxOut{Address: req.Address, Amount: uint64(change)})
	}
	outputs = append(outputs, req.Payments...)

	err = a.ledger.BuildRaw(ctx, node.BuildRawParams{
		Inputs:       inputs,
		Outputs:      outputs,
		Certificates: req.Certificates,
		Withdrawals:  req.Withdrawals,
		TTL:          ttl,
		Fee:          fee,
		OutFile:      req.BodyFile,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().
		Int("inputs", len(inputs)).
		Int("outputs", len(outputs)).
		Uint64("fee", fee).
		Uint64("change", uint64(change)).
		Uint64("ttl", ttl).
		Msg("transaction assembled")

	return &Draft{
		Inputs:       inputs,
		Outputs:      outputs,
		Certificates: req.Certificates,
		Withdrawals:  req.Withdrawals,
		Fee:          fee,
		TTL:          ttl,
		Change:       uint64(change),
		Total:        total,
		BodyFile:     req.BodyFile,
	}, nil
}

// AssembleSweep drains every pure-lovelace output of req.From into a single
// output at req.To. The destination receives the full balance minus the fee,
// so there is never change.
func (a *Assembler) AssembleSweep(ctx context.Context, params *node.ProtocolParameters, req SweepRequest) (*Draft, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: protocol parameters are nil", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	utxos, err := a.ledger.QueryUTXOs(ctx, req.From, node.LovelaceOnly)
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAccount, req.From)
	}

	inputs := make([]node.TxIn, 0, len(utxos))
	var total uint64
	for _, u := range utxos {
		inputs = append(inputs, u.TxIn())
		total += u.Amount()
	}

	// Every input is spent regardless of the fee, so one estimation pass
	// is enough.
	err = a.ledger.BuildRaw(ctx, node.BuildRawParams{
		Inputs:  inputs,
		Outputs: []node.TxOut{{Address: req.To}},
		OutFile: req.DraftFile,
	})
	if err != nil {
		return nil, err
	}
	fee, err := a.ledger.CalculateMinFee(ctx, req.DraftFile, len(inputs), 1, req.WitnessCount, 0, params.File)
	if err != nil {
		return nil, err
	}
	if fee >= total {
		return nil, &InsufficientFundsError{Account: req.From, Required: fee, Available: total}
	}
	amount := total - fee
	if amount < params.MinUTxOValue {
		return nil, &DustChangeError{Amount: amount, Minimum: params.MinUTxOValue}
	}

	tip, err := a.ledger.QueryTip(ctx)
	if err != nil {
		return nil, err
	}
	ttl := tip.Slot + a.ttlBuffer

	outputs := []node.TxOut{{Address: req.To, Amount: amount}}
	err = a.ledger.BuildRaw(ctx, node.BuildRawParams{
		Inputs:  inputs,
		Outputs: outputs,
		TTL:     ttl,
		Fee:     fee,
		OutFile: req.BodyFile,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().
		Int("inputs", len(inputs)).
		Uint64("amount", amount).
		Uint64("fee", fee).
		Str("to", req.To).
		Msg("sweep assembled")

	return &Draft{
		Inputs:   inputs,
		Outputs:  outputs,
		Fee:      fee,
		TTL:      ttl,
		Total:    total,
		BodyFile: req.BodyFile,
	}, nil
}
