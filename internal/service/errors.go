package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPayload marks a vote that failed validation. Not retryable.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrRateLimited marks a vote rejected by the cooldown or the daily cap.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps failures of the backing vote store.
	ErrStoreUnavailable = errors.New("vote store unavailable")
)

// Rate limit reasons.
const (
	ReasonCooldown = "cooldown"
	ReasonDailyCap = "daily_cap"
)

// RateLimitError describes why a vote was throttled. It matches
// ErrRateLimited under errors.Is.
type RateLimitError struct {
	Reason string
	// RetryAfter is the remaining wait, zero when unknown.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	switch e.Reason {
	case ReasonCooldown:
		mins := int(e.RetryAfter.Round(time.Minute) / time.Minute)
		if mins < 1 {
			mins = 1
		}
		return fmt.Sprintf("Rate limit: try again in ~%d minutes.", mins)
	case ReasonDailyCap:
		return "Daily limit reached."
	default:
		return "Rate limited."
	}
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
