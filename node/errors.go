package node

import "errors"

var (
	// ErrNodeQuery indicates the node interface failed or returned
	// unparseable data for a query or build step.
	ErrNodeQuery = errors.New("node: query failed")

	// ErrSigning indicates the node interface reported an error while
	// signing a transaction body.
	ErrSigning = errors.New("node: signing failed")

	// ErrSubmission indicates the node interface rejected a signed
	// transaction at broadcast.
	ErrSubmission = errors.New("node: submission failed")

	// ErrExecFailed indicates a command could not be executed at all
	// (missing binary, dead transport).
	ErrExecFailed = errors.New("node: command execution failed")
)
