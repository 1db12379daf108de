package goSession

import (
	"context"
	"testing"

	"github.com/MrEthical07/goSession/credential"
)

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without base URL")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().
		WithBaseURL("https://api.example.com").
		WithStore(credential.NewMemoryStore()).
		WithProvider(&mockProvider{})

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestBuilderMintsAndReusesDeviceID(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()

	m1, err := New().
		WithBaseURL("https://api.example.com").
		WithStore(store).
		WithProvider(&mockProvider{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m1.Close)

	id, ok := store.Get(ctx, credential.KeyDeviceID)
	if !ok || id == "" {
		t.Fatal("expected device id minted and persisted")
	}

	m2, err := New().
		WithBaseURL("https://api.example.com").
		WithStore(store).
		WithProvider(&mockProvider{}).
		Build()
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	t.Cleanup(m2.Close)

	if m2.deviceID != id {
		t.Fatalf("expected stable device id %q, got %q", id, m2.deviceID)
	}
}

func TestBuilderDeviceDisabledMintsNothing(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()

	cfg := defaultConfig()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.Device.Enabled = false

	m, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithProvider(&mockProvider{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)

	if _, ok := store.Get(ctx, credential.KeyDeviceID); ok {
		t.Fatal("expected no device id when device identity is disabled")
	}
}

func TestBuilderFileStoreFallback(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.Credential.FilePath = t.TempDir() + "/credentials"
	cfg.Credential.FileSecret = []byte("0123456789abcdef")

	m, err := New().
		WithConfig(cfg).
		WithProvider(&mockProvider{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)

	if _, ok := m.store.(*credential.FileStore); !ok {
		t.Fatalf("expected file-backed store, got %T", m.store)
	}
}
