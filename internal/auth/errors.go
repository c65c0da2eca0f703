package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrEmailTaken         = errors.New("email address is already registered")
	ErrInvalidCode        = errors.New("invalid or expired token")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrScope              = errors.New("token not valid for this endpoint")
)
