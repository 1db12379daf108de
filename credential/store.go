package credential

import "context"

// Keys under which the session material is persisted. Callers outside the
// module treat these as opaque; they are exported so alternate Store
// implementations can reserve them.
const (
	// KeyAccessToken is an exported constant or variable used by the session client.
	KeyAccessToken = "access_token"
	// KeyRefreshToken is an exported constant or variable used by the session client.
	KeyRefreshToken = "refresh_token"
	// KeyUserProfile is an exported constant or variable used by the session client.
	KeyUserProfile = "user_profile"
	// KeyDeviceID is an exported constant or variable used by the session client.
	KeyDeviceID = "device_id"
)

// SessionKeys lists every key cleared when a session is destroyed. The device
// ID survives logout deliberately: it identifies the install, not the user.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserProfile}

// Store defines a public type used by goSession APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Each operation is atomic per key. Get swallows backend failures and reports
// the value as absent; Set and Delete surface errors so callers can log
// best-effort writes, but no caller may treat a Store error as fatal.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Clear removes every session key from the store. Removal keeps going past
// individual failures; the first error is returned after all keys were tried.
func Clear(ctx context.Context, s Store) error {
	var first error
	for _, key := range SessionKeys {
		if err := s.Delete(ctx, key); err != nil && first == nil {
			first = err
		}
	}
	return first
}
