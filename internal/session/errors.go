package session

import (
	"errors"
	"fmt"
)

// Session error kinds. Causes are wrapped alongside them, so both the kind
// and the underlying radio error match with errors.Is.
var (
	ErrRadioUnavailable              = errors.New("bluetooth unavailable")
	ErrConnectFailed                 = errors.New("connect failed")
	ErrServiceDiscoveryFailed        = errors.New("service discovery failed")
	ErrCharacteristicDiscoveryFailed = errors.New("characteristic discovery failed")
	ErrNotificationSubscribeFailed   = errors.New("notification subscribe failed")
	ErrValueDecode                   = errors.New("invalid value")
	ErrValueUpdateFailed             = errors.New("value update failed")
	ErrWriteFailed                   = errors.New("write failed")
	ErrCommandRange                  = errors.New("command out of range")
	ErrNoActiveSession               = errors.New("no ready session")
)

var (
	errStepTimeout          = errors.New("timed out")
	errServiceAbsent        = errors.New("service not found")
	errCharacteristicAbsent = errors.New("characteristic not found")
)

// wrap tags cause with an error kind.
func wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
