package goSession

import (
	"context"
	"time"
)

// State defines a public type used by goSession APIs.
//
// State instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type State uint8

const (
	// StateRestoring is an exported constant or variable used by the session client.
	StateRestoring State = iota
	// StateUnauthenticated is an exported constant or variable used by the session client.
	StateUnauthenticated
	// StateOTPPending is an exported constant or variable used by the session client.
	StateOTPPending
	// StateAuthenticated is an exported constant or variable used by the session client.
	StateAuthenticated
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateOTPPending:
		return "otp_pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User defines a public type used by goSession APIs.
//
// User instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type User struct {
	ID                    string `json:"id"`
	Identity              string `json:"identity"`
	Name                  string `json:"name,omitempty"`
	IsNewUser             bool   `json:"isNewUser"`
	BusinessSetupComplete bool   `json:"isBusinessSetupComplete"`
	Plan                  string `json:"plan,omitempty"`
}

// Session defines a public type used by goSession APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// A Session is either fully present or fully absent; no partially-authenticated
// shape is ever observable.
type Session struct {
	User         User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Snapshot defines a public type used by goSession APIs.
//
// Snapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Snapshot is the externally observed session state: screens render from it and
// route on it, but never mutate it.
type Snapshot struct {
	State         State
	User          *User
	Authenticated bool
	Loading       bool
	Err           error
}

// TokenPair defines a public type used by goSession APIs.
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// LoginResult defines a public type used by goSession APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// LoginResult is the collaborator payload returned by the verification and
// provider-token endpoints.
type LoginResult struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// VerifyResult defines a public type used by goSession APIs.
//
// VerifyResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// IsNewUser tells the caller whether to route to the setup flow; the routing
// decision itself is the caller's.
type VerifyResult struct {
	User      User
	IsNewUser bool
}

// AuthProvider is the collaborator contract for the authentication endpoints.
// The default implementation talks HTTP through [transport.Client]; tests and
// embedded integrations may substitute their own.
type AuthProvider interface {
	// SendOTP initiates a login for the given identity and returns the
	// server's acknowledgement message.
	SendOTP(ctx context.Context, identity string) (string, error)

	// VerifyOTP exchanges identity+code for a fresh session payload.
	VerifyOTP(ctx context.Context, identity, code string) (*LoginResult, error)

	// LoginWithProviderToken exchanges an externally issued identity token
	// for a fresh session payload.
	LoginWithProviderToken(ctx context.Context, providerToken string) (*LoginResult, error)

	// Refresh exchanges the stored refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)

	// Revoke invalidates the server-side session identified by refreshToken.
	// Best-effort: logout never waits on it.
	Revoke(ctx context.Context, refreshToken string) error
}
