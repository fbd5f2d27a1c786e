package tx

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyAccount indicates the source address has no spendable outputs.
	ErrEmptyAccount = errors.New("tx: account has no spendable outputs")

	// ErrInsufficientFunds indicates the available outputs cannot cover the
	// payments, deposit and fee.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrDustChange indicates selection left change too small to be a legal
	// standalone output.
	ErrDustChange = errors.New("tx: change below minimum output value")

	// ErrInvalidRequest indicates an assembly request is missing required
	// fields.
	ErrInvalidRequest = errors.New("tx: invalid request")
)

// InsufficientFundsError reports how far short the account fell.
type InsufficientFundsError struct {
	Account   string
	Required  uint64
	Available uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("tx: insufficient funds in %s: need %d lovelace, have %d lovelace",
		e.Account, e.Required, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// DustChangeError reports change that no legal output can carry.
type DustChangeError struct {
	Amount  uint64
	Minimum uint64
}

func (e *DustChangeError) Error() string {
	return fmt.Sprintf("tx: change of %d lovelace is below the minimum output value of %d",
		e.Amount, e.Minimum)
}

// Unwrap lets errors.Is match ErrDustChange.
func (e *DustChangeError) Unwrap() error { return ErrDustChange }
