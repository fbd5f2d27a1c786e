package keys

import "errors"

var (
	// ErrInvalidCertificateParams indicates certificate inputs that the
	// chain would reject, caught before any command runs.
	ErrInvalidCertificateParams = errors.New("keys: invalid certificate parameters")

	// ErrUnsupportedKeyFormat indicates an ITN key whose prefix matches no
	// known conversion.
	ErrUnsupportedKeyFormat = errors.New("keys: unsupported key format")

	// ErrInvalidGenesis indicates a genesis document missing a constant an
	// operation needs.
	ErrInvalidGenesis = errors.New("keys: invalid genesis document")
)
