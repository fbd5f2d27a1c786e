package tx

import (
	"fmt"

	"github.com/Canuckz-NFT/Cardano-Tools/node"
)

// Request describes a transaction to assemble. Payments, certificates and
// withdrawals may all be empty, in which case the transaction simply
// consolidates the account into a single change output.
type Request struct {
	// Address is the payment address whose outputs fund the transaction
	// and which receives any change.
	Address string

	// Payments are the outputs to third parties.
	Payments []node.TxOut

	// Certificates are paths to certificate files to embed.
	Certificates []string

	// Withdrawals drain reward accounts into the transaction.
	Withdrawals []node.Withdrawal

	// Deposit is the key or pool deposit the certificates require.
	// Use zero for updates and plain payments.
	Deposit uint64

	// WitnessCount is the number of signatures the transaction will carry.
	WitnessCount int

	// Tolerance widens the stop condition: selection keeps adding inputs
	// until the selected total exceeds the required total by more than
	// this amount. Zero is correct for all standard transactions.
	Tolerance uint64

	// DraftFile receives the zero-fee draft bodies used for fee
	// estimation. BodyFile receives the final unsigned body.
	DraftFile string
	BodyFile  string
}

func (r *Request) validate() error {
	if r.Address == "" {
		return fmt.Errorf("%w: source address is empty", ErrInvalidRequest)
	}
	if r.DraftFile == "" || r.BodyFile == "" {
		return fmt.Errorf("%w: draft and body file paths are required", ErrInvalidRequest)
	}
	if r.WitnessCount < 1 {
		return fmt.Errorf("%w: witness count must be at least 1", ErrInvalidRequest)
	}
	for _, p := range r.Payments {
		if p.Address == "" {
			return fmt.Errorf("%w: payment output has no address", ErrInvalidRequest)
		}
	}
	return nil
}

// paymentTotal sums the third-party outputs.
func (r *Request) paymentTotal() uint64 {
	var total uint64
	for _, p := range r.Payments {
		total += p.Amount
	}
	return total
}

// withdrawalTotal sums the reward-account withdrawals.
func (r *Request) withdrawalTotal() uint64 {
	var total uint64
	for _, w := range r.Withdrawals {
		total += w.Amount
	}
	return total
}

// SweepRequest describes draining one address into another.
type SweepRequest struct {
	From         string
	To           string
	WitnessCount int
	DraftFile    string
	BodyFile     string
}

func (r *SweepRequest) validate() error {
	if r.From == "" || r.To == "" {
		return fmt.Errorf("%w: sweep needs both a source and a destination address", ErrInvalidRequest)
	}
	if r.DraftFile == "" || r.BodyFile == "" {
		return fmt.Errorf("%w: draft and body file paths are required", ErrInvalidRequest)
	}
	if r.WitnessCount < 1 {
		return fmt.Errorf("%w: witness count must be at least 1", ErrInvalidRequest)
	}
	return nil
}

// Draft is an assembled, balanced, unsigned transaction. The body has been
// written to BodyFile and satisfies
//
//	sum(inputs) == sum(outputs) + fee + deposit - sum(withdrawals)
type Draft struct {
	Inputs       []node.TxIn
	Outputs      []node.TxOut
	Certificates []string
	Withdrawals  []node.Withdrawal

	Fee    uint64
	TTL    uint64
	Change uint64

	// Total is the sum of the selected inputs.
	Total uint64

	BodyFile string
}

// OutputTotal sums the draft's outputs, change included.
func (d *Draft) OutputTotal() uint64 {
	var total uint64
	for _, o := range d.Outputs {
		total += o.Amount
	}
	return total
}
