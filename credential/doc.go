// Package credential provides durable key-value persistence for session
// material (access token, refresh token, serialized user profile, device ID)
// behind one platform-agnostic capability interface.
//
// # Fail-open contract
//
// Backend failures never propagate out of a read: [Store] implementations
// report a missing value instead, so a broken platform store resolves to
// logged-out rather than a crash or a stuck startup.
//
// # Backends
//
//   - MemoryStore — process-local, for tests and ephemeral embedding.
//   - FileStore — encrypted at rest (argon2id key derivation, XChaCha20-Poly1305
//     sealing), for desktop and mobile-shell targets.
//   - RedisStore — shared store for headless agents that run several processes
//     against one identity.
//
// # What this package must NOT do
//
//   - Interpret the values it stores. Tokens and profiles are opaque strings.
//   - Import goSession or transport (no upward imports).
//   - Decide session policy; clearing on logout or refresh failure is the
//     caller's call.
package credential
