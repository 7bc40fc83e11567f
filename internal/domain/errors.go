package domain

import "errors"

// Auth errors returned by the service layer
var (
	ErrEmailTaken            = errors.New("user with this email already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUnauthorized          = errors.New("user is not authorized")
	ErrInvalidActivationLink = errors.New("invalid activation link")
)

// Token errors
var (
	// ErrInvalidToken covers every verification failure: malformed, expired,
	// wrong signature or bad claims.
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenNotFound = errors.New("refresh token not found")
)

// Storage errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyActivated    = errors.New("account already activated")
	ErrPendingMailNotFound = errors.New("pending mail not found")
)
