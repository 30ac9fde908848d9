// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes provider errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeHTTPStatus
	ErrTypeInvalidResponse
	ErrTypeMissingKey
	ErrTypeCancelled
)

// Error represents a failure from a provider driver.
type Error struct {
	Provider Name
	Type     ErrorType
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := string(e.Provider) + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrMissingAPIKey = errors.New("API key not configured")
	ErrEmptyBody     = errors.New("response body missing")
)

// IsCancelled reports whether an error stems from request cancellation.
func IsCancelled(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Type == ErrTypeCancelled
	}
	return errors.Is(err, context.Canceled)
}
