package transport

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credential"
)

// RefreshFunc exchanges the stored refresh token for a new access token. It is
// expected to run over a client view that bypasses 401 interception.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

// CoordinatorConfig defines a public type used by goSession APIs.
//
// CoordinatorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CoordinatorConfig struct {
	Store   credential.Store
	Refresh RefreshFunc

	// Timeout bounds the refresh network call itself. A hung refresh would
	// otherwise hold the cycle open and stall every queued waiter.
	Timeout time.Duration

	// OnTeardown is invoked after an unrecoverable refresh failure, once the
	// credential store has been cleared. The session manager uses it to
	// transition to Unauthenticated.
	OnTeardown func(err error)

	// OnWait is invoked each time a caller queues behind an in-flight cycle.
	// Optional; used for metrics.
	OnWait func()
}

// refreshCycle is one refresh attempt shared by every caller that observed a
// 401 while it ran. err is written exactly once, before done is closed.
type refreshCycle struct {
	done chan struct{}
	err  error
}

// Coordinator defines a public type used by goSession APIs.
//
// Coordinator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Coordinator enforces the at-most-one-refresh invariant. The mutex covers
// only the cycle pointer check-and-set; no network or store call ever happens
// while it is held.
type Coordinator struct {
	store      credential.Store
	refresh    RefreshFunc
	timeout    time.Duration
	onTeardown func(err error)
	onWait     func()

	mu    sync.Mutex
	cycle *refreshCycle
}

// NewCoordinator describes the newcoordinator operation and its observable behavior.
//
// NewCoordinator may return an error when input validation, dependency calls, or security checks fail.
// NewCoordinator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("credential store required")
	}
	if cfg.Refresh == nil {
		return nil, errors.New("refresh func required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Coordinator{
		store:      cfg.Store,
		refresh:    cfg.Refresh,
		timeout:    timeout,
		onTeardown: cfg.OnTeardown,
		onWait:     cfg.OnWait,
	}, nil
}

// Refresh resolves a 401: either by joining the refresh cycle already in
// flight or by starting one. It returns nil once a new access token has been
// persisted, at which point the caller replays its original request.
//
// Waiters are released by closing the cycle's broadcast channel; release order
// is unspecified, but every waiter observes the cycle's outcome exactly once.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if cycle := c.cycle; cycle != nil {
		c.mu.Unlock()

		if c.onWait != nil {
			c.onWait()
		}
		select {
		case <-cycle.done:
			return cycle.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cycle := &refreshCycle{done: make(chan struct{})}
	c.cycle = cycle
	c.mu.Unlock()

	err := c.run(ctx)

	c.mu.Lock()
	c.cycle = nil
	c.mu.Unlock()

	cycle.err = err
	close(cycle.done)

	return err
}

func (c *Coordinator) run(ctx context.Context) error {
	token, ok := c.store.Get(ctx, credential.KeyRefreshToken)
	if !ok || token == "" {
		// Nothing to exchange; skip the network attempt entirely.
		return c.fail(ctx, ErrAuthExpired)
	}

	// The refresh runs detached from the triggering request so one caller's
	// cancellation cannot strand the queue behind it.
	rctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	access, err := c.refresh(rctx, token)
	if err != nil {
		return c.fail(ctx, errors.Join(ErrAuthExpired, err))
	}
	if access == "" {
		return c.fail(ctx, errors.Join(ErrAuthExpired, errors.New("refresh returned empty token")))
	}

	if err := c.store.Set(ctx, credential.KeyAccessToken, access); err != nil {
		// An unpersisted token would leave replayed requests on the old
		// credential; treat it as a failed cycle.
		return c.fail(ctx, errors.Join(ErrAuthExpired, err))
	}

	return nil
}

// expire tears the session down outside a refresh cycle. The client calls it
// when a request is rejected again after replaying with a freshly refreshed
// token: the server has revoked the session outright, so another refresh
// cannot help and the stored credentials are dead weight.
func (c *Coordinator) expire(ctx context.Context) error {
	return c.fail(ctx, ErrAuthExpired)
}

// fail is the single teardown path: clear the session, signal the manager,
// propagate to every caller of the cycle. The failure is never swallowed.
func (c *Coordinator) fail(ctx context.Context, err error) error {
	if cerr := credential.Clear(ctx, c.store); cerr != nil {
		log.Print("goSession: credential clear failed during refresh teardown")
	}
	if c.onTeardown != nil {
		c.onTeardown(err)
	}
	return err
}
