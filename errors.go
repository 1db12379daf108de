package goSession

import "errors"

var (
	// ErrManagerNotReady is an exported constant or variable used by the session client.
	ErrManagerNotReady = errors.New("manager not ready")
	// ErrIdentityRequired is an exported constant or variable used by the session client.
	ErrIdentityRequired = errors.New("identity required")
	// ErrCodeRequired is an exported constant or variable used by the session client.
	ErrCodeRequired = errors.New("verification code required")
	// ErrProviderTokenRequired is an exported constant or variable used by the session client.
	ErrProviderTokenRequired = errors.New("provider token required")
	// ErrNotAuthenticated is an exported constant or variable used by the session client.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrOTPNotPending is an exported constant or variable used by the session client.
	ErrOTPNotPending = errors.New("no pending otp challenge")
	// ErrSessionIncomplete is an exported constant or variable used by the session client.
	ErrSessionIncomplete = errors.New("login response missing user or tokens")
	// ErrPersistFailed is an exported constant or variable used by the session client.
	ErrPersistFailed = errors.New("session persistence failed")
	// ErrTokenInvalid is an exported constant or variable used by the session client.
	ErrTokenInvalid = errors.New("invalid token")
)
