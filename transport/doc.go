// Package transport executes authenticated API requests and coordinates
// access-token refresh for the session client.
//
// # Request path
//
// [Client] attaches the access token read from the credential store at send
// time — never cached in a closure — so a token refreshed mid-session is picked
// up by the next request with no caller-side plumbing. Every failure is
// normalized to [ErrNetwork], [ErrAuthExpired], or [*APIError].
//
// # Refresh coordination
//
// [Coordinator] guarantees at most one refresh call in flight system-wide.
// The check-and-set on the in-flight cycle happens under one mutex hold with no
// blocking call inside the critical section. Requests that 401 during a cycle
// wait on that cycle's broadcast channel and replay once; a replayed request
// that 401s again fails permanently.
//
// # What this package must NOT do
//
//   - Decide what a session is. Teardown is signalled upward through a
//     callback; state transitions belong to the Manager.
//   - Retry anything other than the single post-refresh replay. 5xx responses
//     are returned to the caller, never auto-retried.
//   - Import goSession (no upward imports).
package transport
