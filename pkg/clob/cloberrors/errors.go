// Package cloberrors classifies exchange API failures so the adapter's retry
// policy can branch without string-matching scattered through the codebase.
package cloberrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/vmbbz/betmirror-sub005/pkg/transport"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrOrderNotFound         = errors.New("order not found")
	ErrMarketNotFound        = errors.New("market not found")
	ErrMarketClosed          = errors.New("market closed")
	ErrInternalServerError   = errors.New("internal server error")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrBadRequest            = errors.New("bad request")
)

// Classify maps a transport error to a sentinel error if possible.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *transport.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	// Map by Code if available (most reliable)
	switch strings.ToUpper(apiErr.Code) {
	case "INSUFFICIENT_FUNDS":
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, apiErr.Message)
	case "INSUFFICIENT_ALLOWANCE":
		return fmt.Errorf("%w: %s", ErrInsufficientAllowance, apiErr.Message)
	case "INVALID_SIGNATURE":
		return fmt.Errorf("%w: %s", ErrInvalidSignature, apiErr.Message)
	case "ORDER_NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrOrderNotFound, apiErr.Message)
	case "MARKET_NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrMarketNotFound, apiErr.Message)
	case "MARKET_CLOSED":
		return fmt.Errorf("%w: %s", ErrMarketClosed, apiErr.Message)
	}

	// Map by Status
	switch apiErr.Status {
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case 400:
		return fmt.Errorf("%w: %s", ErrBadRequest, apiErr.Message)
	case 404:
		return fmt.Errorf("%w: %s", ErrMarketNotFound, apiErr.Message)
	case 429:
		return ErrRateLimitExceeded
	case 500, 502, 503, 504:
		return fmt.Errorf("%w: %s", ErrInternalServerError, apiErr.Message)
	}

	return err
}

// IsAuth reports whether err is a signature/authorization failure eligible
// for the one-shot credential re-derivation retry.
func IsAuth(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrUnauthorized)
}

// IsAllowance reports whether err indicates a missing on-chain spending
// allowance, eligible for the one-shot re-approval retry.
func IsAllowance(err error) bool {
	return errors.Is(err, ErrInsufficientAllowance)
}

// IsInsufficientFunds reports whether err is a funds-class rejection.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound reports whether err means the market no longer exists on the
// exchange; callers treat this as resolved, not as a transient error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMarketNotFound) || errors.Is(err, ErrOrderNotFound)
}

// IsTransient reports whether err is a retryable network-class failure.
func IsTransient(err error) bool {
	if errors.Is(err, ErrInternalServerError) || errors.Is(err, ErrRateLimitExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
