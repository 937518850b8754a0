// Package common defines shared constants and sentinel errors used across
// the taskledger server, its repositories and the gRPC layer. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorForbidden      = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrorValidation     = errors.New("validation error")

	// Work session state errors.
	ErrAlreadyStarted = errors.New("task already started")
	ErrNotStarted     = errors.New("task start time not found")

	// Auth errors.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
