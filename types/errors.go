package types

import "errors"

var (
	// ErrNoRoute indicates no path exists between two chains within the hop
	// bound. Fatal to that route request, never retried automatically.
	ErrNoRoute = errors.New("no route between chains within hop bound")

	// ErrUnknownChain indicates a chain identifier outside the supported set.
	// This is a configuration mistake and fails fast.
	ErrUnknownChain = errors.New("unknown chain identifier")

	// ErrContributorNotFound indicates no active wallet connections exist for
	// a contributor. Treated as potentially transient.
	ErrContributorNotFound = errors.New("contributor has no active wallet connections")

	// ErrNoValidWallets indicates every supplied wallet proof failed
	// verification during initialization.
	ErrNoValidWallets = errors.New("no valid wallet connections could be established")

	// ErrInsufficientFunds indicates the required amount could not be met and
	// partial payment was disallowed.
	ErrInsufficientFunds = errors.New("insufficient funds across connected chains")

	// ErrProofVerification indicates an oracle call returned invalid or failed.
	ErrProofVerification = errors.New("proof verification failed")

	// ErrDecryption indicates a payment record could not be decrypted with the
	// supplied credential. Always surfaced, never downgraded to wrong data.
	ErrDecryption = errors.New("unable to decrypt payment record")

	// ErrMalformedRequest indicates a collection request failed validation.
	ErrMalformedRequest = errors.New("malformed collection request")
)
