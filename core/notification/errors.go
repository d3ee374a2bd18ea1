package notification

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrPublisherNotFound  = errors.New("publisher not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrNoHandler          = errors.New("no handler registered for resource type")
	ErrContextNotFound    = errors.New("context not found")
)

// ResourceGoneError is returned by handlers when the resource behind a publisher no longer exists.
type ResourceGoneError struct {
	Context SubscriptionContext
	Reason  string
}

func NewResourceGoneError(sc SubscriptionContext, reason string) error {
	return &ResourceGoneError{Context: sc, Reason: reason}
}

func (e *ResourceGoneError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("resource %s is gone", e.Context)
	}
	return fmt.Sprintf("resource %s is gone: %s", e.Context, e.Reason)
}

func IsResourceGone(err error) bool {
	var gone *ResourceGoneError
	return errors.As(err, &gone)
}

// HandlerTimeoutError is reported when a handler did not answer in time.
type HandlerTimeoutError struct {
	ResourceType string
	Timeout      time.Duration
}

func (e *HandlerTimeoutError) Error() string {
	return fmt.Sprintf("%s handler timed out after %s", e.ResourceType, e.Timeout)
}

func IsHandlerTimeout(err error) bool {
	var timeout *HandlerTimeoutError
	return errors.As(err, &timeout)
}

// UnknownMimeTypeError is a programming error: rendering panics with it.
type UnknownMimeTypeError struct {
	MimeType string
}

func (e *UnknownMimeTypeError) Error() string {
	return fmt.Sprintf("unknown mime type %q", e.MimeType)
}
