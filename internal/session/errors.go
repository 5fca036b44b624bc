package session

import (
	"errors"
	"fmt"
)

var (
	ErrWalletUnavailable   = errors.New("wallet unavailable")
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrMintInProgress      = errors.New("mint already in progress")
	ErrMintFailed          = errors.New("mint failed")
)

// MintFailedError carries the runtime's reason for a failed submission or inclusion.
type MintFailedError struct {
	Reason string
	cause  error
}

func newMintFailed(cause error) *MintFailedError {
	return &MintFailedError{Reason: cause.Error(), cause: cause}
}

func (e *MintFailedError) Error() string {
	return fmt.Sprintf("mint failed: %s", e.Reason)
}

func (e *MintFailedError) Is(target error) bool {
	return target == ErrMintFailed
}

func (e *MintFailedError) Unwrap() error {
	return e.cause
}
