package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrFetchBudgetExceeded = errors.New("fetch budget exceeded")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrInvalidInput        = errors.New("invalid input")
	ErrRefreshInProgress   = errors.New("refresh already in progress")
)

// RemoteRequestFailedError is a non-2xx, non-429 provider response. It is never retried.
type RemoteRequestFailedError struct {
	Status int
	Body   string
}

func (e *RemoteRequestFailedError) Error() string {
	return fmt.Sprintf("remote request failed: status=%d body=%s", e.Status, e.Body)
}

func IsRemoteStatus(err error, status int) bool {
	var remote *RemoteRequestFailedError
	return errors.As(err, &remote) && remote.Status == status
}
