// Package goSession provides the client-side session core for an authenticated
// API client: OTP and provider-token login, durable credential persistence,
// optimistic session restore across process restarts, and transparent
// single-flight access-token refresh under concurrent request load.
//
// The package is designed for concurrent callers: Manager methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config],
// and value types (Snapshot, User, VerifyResult, etc.). Credential persistence
// lives in the credential subpackage behind [credential.Store]; request
// execution and refresh coordination live in the transport subpackage. Feature
// code talks to the server exclusively through [transport.Client] and never
// sees refresh logic.
//
// # What this package must NOT do
//
//   - Render anything, navigate anywhere, or validate business input shapes;
//     those belong to the application on top.
//   - Validate token signatures. The client holds no verification key; token
//     inspection is limited to reading the expiry claim.
//   - Block logout on the network. Local state is cleared synchronously and the
//     server-side revoke call is best-effort.
//
// # Refresh contract
//
// At most one refresh call is in flight at any instant. Requests that hit a 401
// while a refresh is underway wait for that cycle and replay once with the new
// token; if the cycle fails, every waiter fails together and the session is
// torn down to Unauthenticated.
package goSession
