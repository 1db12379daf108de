package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef defines a public type used by goSession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSession APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session client.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricOTPSent, Name: "gosession_otp_sent_total", Help: "Verification codes requested."},
	{ID: goSession.MetricOTPSendFailure, Name: "gosession_otp_send_failure_total", Help: "Failed verification code requests."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed login attempts."},
	{ID: goSession.MetricSessionRestored, Name: "gosession_session_restored_total", Help: "Sessions restored from the credential store."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions created from a fresh login."},
	{ID: goSession.MetricSessionCleared, Name: "gosession_session_cleared_total", Help: "Sessions cleared by logout or expiry."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful token refresh cycles."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed token refresh cycles."},
	{ID: goSession.MetricRefreshCoalesced, Name: "gosession_refresh_coalesced_total", Help: "Callers queued behind an in-flight refresh."},
	{ID: goSession.MetricAuthExpired, Name: "gosession_auth_expired_total", Help: "Sessions torn down after unrecoverable refresh failure."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout operations."},
	{ID: goSession.MetricRevokeFailure, Name: "gosession_revoke_failure_total", Help: "Failed best-effort server-side revocations."},
	{ID: goSession.MetricReplayRetried, Name: "gosession_replay_retried_total", Help: "Requests replayed after a refresh cycle."},
}

// HistogramDefs is an exported constant or variable used by the session client.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh cycle latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session client.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session client.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
