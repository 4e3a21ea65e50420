/**
 * @description
 * Sentinel error kinds shared by the application services. The API layer
 * maps them onto HTTP status codes with errors.Is; anything unwrapped falls
 * through as an internal error.
 */
package app

import "errors"

var (
	// ErrInvalidArgument marks malformed or missing input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a duplicate active subscription.
	ErrConflict = errors.New("conflict")
	// ErrPreconditionFailed marks an incomplete creator payout setup.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrNotFound marks an unresolvable GPT listing.
	ErrNotFound = errors.New("not found")
)
