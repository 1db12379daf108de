package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/transport"
)

// storedProfile is the durable shape written under the user_profile key.
type storedProfile struct {
	User      User  `json:"user"`
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// Manager defines a public type used by goSession APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Manager owns the session lifecycle. Every state change flows through the
// reducer under one mutex; subscribers are notified outside all locks.
type Manager struct {
	config   Config
	store    credential.Store
	client   *transport.Client
	coord    *transport.Coordinator
	provider AuthProvider
	metrics  *Metrics
	audit    *auditDispatcher
	deviceID string

	mu   sync.Mutex
	snap Snapshot

	restoreOnce   sync.Once
	restoreResult bool

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

func (m *Manager) dispatch(act action) Snapshot {
	m.mu.Lock()
	m.snap = reduce(m.snap, act)
	next := m.snap
	m.mu.Unlock()

	m.notify(next)
	return next
}

func (m *Manager) notify(snap Snapshot) {
	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn for every state change after the current one. The
// returned cancel func removes the subscription; it is safe to call more than
// once.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// RestoreSession describes the restoresession operation and its observable behavior.
//
// RestoreSession may return an error when input validation, dependency calls, or security checks fail.
// RestoreSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The restore is optimistic: stored credentials are presented as a live
// session without a network round trip. A stale token surfaces on the first
// API call as a 401, which the refresh path resolves or tears down.
// RestoreSession runs at most once per Manager; later calls return the first
// outcome.
func (m *Manager) RestoreSession(ctx context.Context) bool {
	m.restoreOnce.Do(func() {
		m.restoreResult = m.restore(ctx)
	})
	return m.restoreResult
}

func (m *Manager) restore(ctx context.Context) bool {
	access, ok := m.store.Get(ctx, credential.KeyAccessToken)
	if !ok || access == "" {
		m.dispatch(action{kind: actRestoreMiss})
		m.emitAudit(ctx, auditEventRestoreMiss, false, "", "", nil, nil)
		return false
	}

	raw, ok := m.store.Get(ctx, credential.KeyUserProfile)
	if !ok || raw == "" {
		m.dispatch(action{kind: actRestoreMiss})
		m.emitAudit(ctx, auditEventRestoreMiss, false, "", "", nil, nil)
		return false
	}

	var profile storedProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil || profile.User.ID == "" {
		// A corrupt profile is indistinguishable from an absent one.
		log.Print("goSession: stored profile unreadable, treating as logged out")
		m.dispatch(action{kind: actRestoreMiss})
		m.emitAudit(ctx, auditEventRestoreMiss, false, "", "", nil, nil)
		return false
	}

	user := profile.User
	m.dispatch(action{kind: actRestoreHit, user: &user})
	m.metrics.Inc(MetricSessionRestored)
	m.emitAudit(ctx, auditEventSessionRestored, true, user.ID, user.Identity, nil, nil)
	return true
}

// SendOTP describes the sendotp operation and its observable behavior.
//
// SendOTP may return an error when input validation, dependency calls, or security checks fail.
// SendOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) SendOTP(ctx context.Context, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		m.dispatch(action{kind: actOTPFailed, err: ErrIdentityRequired})
		return "", ErrIdentityRequired
	}

	m.dispatch(action{kind: actLoadingStart})

	msg, err := m.provider.SendOTP(ctx, identity)
	if err != nil {
		m.dispatch(action{kind: actOTPFailed, err: err})
		m.metrics.Inc(MetricOTPSendFailure)
		m.emitAudit(ctx, auditEventOTPSendFailure, false, "", identity, err, nil)
		return "", err
	}

	m.dispatch(action{kind: actOTPSent})
	m.metrics.Inc(MetricOTPSent)
	m.emitAudit(ctx, auditEventOTPSent, true, "", identity, nil, nil)
	return msg, nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP may return an error when input validation, dependency calls, or security checks fail.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) VerifyOTP(ctx context.Context, identity, code string) (*VerifyResult, error) {
	identity = strings.TrimSpace(identity)
	code = strings.TrimSpace(code)
	if identity == "" {
		m.dispatch(action{kind: actLoginFailed, err: ErrIdentityRequired})
		return nil, ErrIdentityRequired
	}
	if code == "" {
		m.dispatch(action{kind: actLoginFailed, err: ErrCodeRequired})
		return nil, ErrCodeRequired
	}
	if m.Snapshot().State != StateOTPPending {
		return nil, ErrOTPNotPending
	}

	m.dispatch(action{kind: actLoadingStart})

	res, err := m.provider.VerifyOTP(ctx, identity, code)
	if err != nil {
		m.dispatch(action{kind: actLoginFailed, err: err})
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", identity, err, nil)
		return nil, err
	}

	user, err := m.installSession(ctx, res, identity)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{User: user, IsNewUser: user.IsNewUser}, nil
}

// LoginWithProviderToken describes the loginwithprovidertoken operation and its observable behavior.
//
// LoginWithProviderToken may return an error when input validation, dependency calls, or security checks fail.
// LoginWithProviderToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) LoginWithProviderToken(ctx context.Context, providerToken string) (*User, error) {
	providerToken = strings.TrimSpace(providerToken)
	if providerToken == "" {
		m.dispatch(action{kind: actLoginFailed, err: ErrProviderTokenRequired})
		return nil, ErrProviderTokenRequired
	}

	m.dispatch(action{kind: actLoadingStart})

	res, err := m.provider.LoginWithProviderToken(ctx, providerToken)
	if err != nil {
		m.dispatch(action{kind: actLoginFailed, err: err})
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		return nil, err
	}

	user, err := m.installSession(ctx, res, "")
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// installSession persists the login payload and flips the state machine to
// Authenticated. Persistence happens before the transition so no subscriber
// ever observes an authenticated snapshot backed by an empty store.
func (m *Manager) installSession(ctx context.Context, res *LoginResult, identity string) (User, error) {
	if res == nil || res.User.ID == "" || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		m.dispatch(action{kind: actLoginFailed, err: ErrSessionIncomplete})
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", identity, ErrSessionIncomplete, nil)
		return User{}, ErrSessionIncomplete
	}

	user := res.User
	if user.Identity == "" {
		user.Identity = identity
	}

	var expiresAt int64
	if res.Tokens.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(res.Tokens.ExpiresIn) * time.Second).Unix()
	} else if exp, err := tokenExpiry(res.Tokens.AccessToken); err == nil {
		expiresAt = exp.Unix()
	}

	profile, err := json.Marshal(storedProfile{User: user, ExpiresAt: expiresAt})
	if err == nil {
		err = m.store.Set(ctx, credential.KeyAccessToken, res.Tokens.AccessToken)
	}
	if err == nil {
		err = m.store.Set(ctx, credential.KeyRefreshToken, res.Tokens.RefreshToken)
	}
	if err == nil {
		err = m.store.Set(ctx, credential.KeyUserProfile, string(profile))
	}
	if err != nil {
		// Half-written credentials would restore as a broken session; roll
		// the store back to fully absent.
		if cerr := credential.Clear(ctx, m.store); cerr != nil {
			log.Print("goSession: credential rollback failed after persist error")
		}
		perr := fmt.Errorf("%w: %v", ErrPersistFailed, err)
		m.dispatch(action{kind: actLoginFailed, err: perr})
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, user.ID, identity, perr, nil)
		return User{}, perr
	}

	m.dispatch(action{kind: actLoginSucceeded, user: &user})
	m.metrics.Inc(MetricLoginSuccess)
	m.metrics.Inc(MetricSessionCreated)
	m.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Identity, nil, func() map[string]string {
		if !user.IsNewUser {
			return nil
		}
		return map[string]string{"new_user": "true"}
	})
	return user, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The local teardown is synchronous and unconditional: credentials are cleared
// and the state flips to Unauthenticated before Logout returns, whatever the
// server or the network does. Server-side revocation runs in the background
// and is best-effort only.
func (m *Manager) Logout(ctx context.Context) error {
	snap := m.Snapshot()

	// The refresh token identifies the server-side session; grab it before
	// the local clear makes it unreachable.
	refreshToken, _ := m.store.Get(ctx, credential.KeyRefreshToken)

	clearErr := credential.Clear(ctx, m.store)
	m.dispatch(action{kind: actLoggedOut})
	m.metrics.Inc(MetricLogout)
	m.metrics.Inc(MetricSessionCleared)

	var userID, identity string
	if snap.User != nil {
		userID = snap.User.ID
		identity = snap.User.Identity
	}
	m.emitAudit(ctx, auditEventLogout, clearErr == nil, userID, identity, clearErr, nil)

	go func() {
		if refreshToken == "" {
			return
		}
		rctx, cancel := context.WithTimeout(context.Background(), m.config.API.RevokeTimeout)
		defer cancel()
		if err := m.provider.Revoke(rctx, refreshToken); err != nil {
			log.Print("goSession: server-side revoke failed, session already cleared locally")
			m.metrics.Inc(MetricRevokeFailure)
			m.emitAudit(rctx, auditEventRevokeFailure, false, userID, identity, err, nil)
		}
	}()

	if clearErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, clearErr)
	}
	return nil
}

// handleAuthExpired is the coordinator's teardown hook. By the time it runs
// the credential store has already been cleared.
func (m *Manager) handleAuthExpired(err error) {
	if !errors.Is(err, transport.ErrAuthExpired) {
		err = errors.Join(transport.ErrAuthExpired, err)
	}
	m.dispatch(action{kind: actAuthExpired, err: err})
	m.metrics.Inc(MetricAuthExpired)
	m.metrics.Inc(MetricSessionCleared)
	m.emitAudit(context.Background(), auditEventAuthExpired, false, "", "", err, nil)
}

// ClearError describes the clearerror operation and its observable behavior.
//
// ClearError may return an error when input validation, dependency calls, or security checks fail.
// ClearError does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) ClearError() {
	m.dispatch(action{kind: actClearError})
}

// TokenExpiry reports when the stored access token expires, read from its exp
// claim without signature verification.
func (m *Manager) TokenExpiry(ctx context.Context) (time.Time, error) {
	token, ok := m.store.Get(ctx, credential.KeyAccessToken)
	if !ok || token == "" {
		return time.Time{}, ErrNotAuthenticated
	}
	return tokenExpiry(token)
}

// Client returns the request executor for feature calls made on behalf of the
// authenticated user. Its 401 handling is wired to this manager.
func (m *Manager) Client() *transport.Client {
	return m.client
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// MetricValue describes the metricvalue operation and its observable behavior.
//
// MetricValue may return an error when input validation, dependency calls, or security checks fail.
// MetricValue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) MetricValue(id MetricID) uint64 {
	return m.metrics.Value(id)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Close() {
	m.audit.Close()
}
