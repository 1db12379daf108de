package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goSession/credential"
)

func seedSession(t *testing.T, store credential.Store) {
	t.Helper()

	ctx := context.Background()
	for key, value := range map[string]string{
		credential.KeyAccessToken:  "stale",
		credential.KeyRefreshToken: "refresh-1",
		credential.KeyUserProfile:  `{"user":{"id":"u1"}}`,
	} {
		if err := store.Set(ctx, key, value); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}
}

func TestCoordinatorRequiresStoreAndRefresh(t *testing.T) {
	refresh := func(context.Context, string) (string, error) { return "", nil }

	if _, err := NewCoordinator(CoordinatorConfig{Refresh: refresh}); err == nil {
		t.Fatal("expected error for missing store")
	}
	if _, err := NewCoordinator(CoordinatorConfig{Store: credential.NewMemoryStore()}); err == nil {
		t.Fatal("expected error for missing refresh func")
	}
}

func TestCoordinatorPersistsNewToken(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	seedSession(t, store)

	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			return "fresh", nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	if err := coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if tok, _ := store.Get(ctx, credential.KeyAccessToken); tok != "fresh" {
		t.Fatalf("expected fresh token persisted, got %q", tok)
	}
	if tok, _ := store.Get(ctx, credential.KeyRefreshToken); tok != "refresh-1" {
		t.Fatal("refresh token must survive a successful cycle")
	}
}

func TestCoordinatorNoRefreshTokenShortCircuits(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	if err := store.Set(ctx, credential.KeyAccessToken, "stale"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var refreshCalls atomic.Int64
	var teardowns atomic.Int64
	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			refreshCalls.Add(1)
			return "fresh", nil
		},
		OnTeardown: func(error) { teardowns.Add(1) },
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	if err := coord.Refresh(ctx); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatal("expected no network attempt without a refresh token")
	}
	if teardowns.Load() != 1 {
		t.Fatalf("expected 1 teardown, got %d", teardowns.Load())
	}
	if _, ok := store.Get(ctx, credential.KeyAccessToken); ok {
		t.Fatal("expected access token cleared on teardown")
	}
}

func TestCoordinatorFailurePropagatesToAllWaiters(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	seedSession(t, store)

	const callers = 8
	wantErr := errors.New("refresh endpoint says no")

	var waiting atomic.Int64
	allQueued := make(chan struct{})
	var teardowns atomic.Int64
	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			<-allQueued
			return "", wantErr
		},
		OnTeardown: func(error) { teardowns.Add(1) },
		OnWait: func() {
			if waiting.Add(1) == callers-1 {
				close(allQueued)
			}
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = coord.Refresh(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrAuthExpired) {
			t.Fatalf("caller %d: expected ErrAuthExpired, got %v", i, err)
		}
		if !errors.Is(err, wantErr) {
			t.Fatalf("caller %d: expected underlying cause preserved, got %v", i, err)
		}
	}
	if teardowns.Load() != 1 {
		t.Fatalf("expected 1 teardown for the shared cycle, got %d", teardowns.Load())
	}
	for _, key := range credential.SessionKeys {
		if _, ok := store.Get(ctx, key); ok {
			t.Fatalf("expected %s cleared on teardown", key)
		}
	}
}

func TestCoordinatorWaiterCancellation(t *testing.T) {
	store := credential.NewMemoryStore()
	seedSession(t, store)

	started := make(chan struct{})
	queued := make(chan struct{})
	release := make(chan struct{})
	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			close(started)
			<-release
			return "fresh", nil
		},
		OnWait: func() { close(queued) },
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	runnerDone := make(chan error, 1)
	go func() { runnerDone <- coord.Refresh(context.Background()) }()

	waiterCtx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		// The cycle is provably in flight once the refresh func has started,
		// so this call queues behind it.
		<-started
		waiterDone <- coord.Refresh(waiterCtx)
	}()

	<-queued
	cancel()

	if err := <-waiterDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled waiter to get ctx error, got %v", err)
	}

	// The cycle itself is unaffected by the waiter's cancellation.
	close(release)
	if err := <-runnerDone; err != nil {
		t.Fatalf("runner failed: %v", err)
	}
	if tok, _ := store.Get(context.Background(), credential.KeyAccessToken); tok != "fresh" {
		t.Fatalf("expected fresh token despite canceled waiter, got %q", tok)
	}
}

func TestCoordinatorRunsDetachedFromCallerContext(t *testing.T) {
	store := credential.NewMemoryStore()
	seedSession(t, store)

	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "fresh", nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The network call runs on a detached context, so the already-canceled
	// caller cannot poison the cycle for everyone queued behind it.
	if err := coord.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
}

func TestCoordinatorNewCycleAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	seedSession(t, store)

	var refreshCalls atomic.Int64
	coord, err := NewCoordinator(CoordinatorConfig{
		Store: store,
		Refresh: func(ctx context.Context, refreshToken string) (string, error) {
			refreshCalls.Add(1)
			return "fresh", nil
		},
	})
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}

	if err := coord.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}
	if err := coord.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if refreshCalls.Load() != 2 {
		t.Fatalf("expected sequential cycles to each run, got %d", refreshCalls.Load())
	}
}
