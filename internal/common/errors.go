// Package common defines sentinel errors and small helpers shared by the
// transfer engine, its collaborators and the development server. Callers
// should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrWrongPassphrase = errors.New("wrong passphrase")

	// Transfer errors.
	ErrIntegrityMismatch    = errors.New("integrity mismatch")
	ErrTemporaryUnavailable = errors.New("temporarily unavailable")
	ErrRateLimited          = errors.New("rate limited")
	ErrTokenDecode          = errors.New("malformed upload token")

	// Tempurl errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// StatusRateLimited is the HTTP status the storage backend answers with when
// it throttles a client (509 Bandwidth Limit Exceeded). net/http has no name
// for it.
const StatusRateLimited = 509

// Backend error codes carried in response bodies.
const (
	CodeInternal  = -1
	CodeArgs      = -2
	CodeRateLimit = -4
	CodeNotFound  = -9
	CodeAccess    = -11
)

// ServerError is an error code reported by the storage backend in a response
// body. Body keeps the raw text when it could not be parsed as a code.
type ServerError struct {
	Code int
	Body string
	Err  error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("server error %d", e.Code)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
