package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/joboost/internal/client/store"
)

var (
	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = store.ErrNoSession

	// ErrVerificationTimeout means the payment could not be confirmed
	// within the polling bound. It is distinct from an expired checkout.
	ErrVerificationTimeout = errors.New("payment verification timed out")

	// ErrPaymentExpired means the provider reported the checkout as expired.
	ErrPaymentExpired = errors.New("payment session expired")
)

// SyncError reports a failed application operation. Any optimistic change
// has already been reverted when it is returned.
type SyncError struct {
	Op  string
	ID  string
	Err error
}

func (e *SyncError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
