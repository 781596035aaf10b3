package services

import "errors"

// Operation failures surfaced to the handler boundary. Handlers recover
// every one of these into a uniform {success: false, message} envelope;
// none propagate as uncaught faults.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrSessionNotExpired  = errors.New("session token not yet expired")
	ErrRefreshExpired     = errors.New("refresh token expired")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrResetExpired       = errors.New("reset token expired")
	ErrProvider           = errors.New("external provider error")
	ErrEmptyProfile       = errors.New("external profile has no email")
)
