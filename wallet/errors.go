package wallet

import "errors"

var (
	// ErrInvalidParams indicates an operation was called with missing or
	// contradictory parameters. Nothing has touched the node.
	ErrInvalidParams = errors.New("wallet: invalid operation parameters")

	// ErrNoRewards indicates the stake address has nothing to withdraw.
	ErrNoRewards = errors.New("wallet: no rewards to claim")

	// ErrInvalidEpoch indicates the requested retirement horizon exceeds
	// the protocol's eMax.
	ErrInvalidEpoch = errors.New("wallet: retirement epoch out of range")
)
