package credential

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok := s.Get(ctx, KeyAccessToken); ok {
		t.Fatal("expected absent key on fresh store")
	}

	if err := s.Set(ctx, KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok := s.Get(ctx, KeyAccessToken)
	if !ok || v != "tok" {
		t.Fatalf("expected tok, got %q ok=%v", v, ok)
	}

	if err := s.Delete(ctx, KeyAccessToken); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := s.Get(ctx, KeyAccessToken); ok {
		t.Fatal("expected key gone after delete")
	}
}

func TestClearRemovesSessionKeysOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, key := range SessionKeys {
		if err := s.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}
	if err := s.Set(ctx, KeyDeviceID, "device-1"); err != nil {
		t.Fatalf("Set device id failed: %v", err)
	}

	if err := Clear(ctx, s); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for _, key := range SessionKeys {
		if _, ok := s.Get(ctx, key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}
	if v, ok := s.Get(ctx, KeyDeviceID); !ok || v != "device-1" {
		t.Fatal("expected device id to survive clear")
	}
}

type flakyStore struct {
	*MemoryStore
	failKey string
	err     error
	deletes []string
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	if key == f.failKey {
		return f.err
	}
	return f.MemoryStore.Delete(ctx, key)
}

func TestClearContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	for _, key := range SessionKeys {
		if err := inner.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	wantErr := context.DeadlineExceeded
	s := &flakyStore{MemoryStore: inner, failKey: KeyAccessToken, err: wantErr}

	if err := Clear(ctx, s); err != wantErr {
		t.Fatalf("expected first delete error, got %v", err)
	}
	if len(s.deletes) != len(SessionKeys) {
		t.Fatalf("expected all %d keys attempted, got %d", len(SessionKeys), len(s.deletes))
	}
	if _, ok := inner.Get(ctx, KeyRefreshToken); ok {
		t.Fatal("expected refresh token deleted despite earlier failure")
	}
}
