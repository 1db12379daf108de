package credential

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credentials")
	s, err := NewFileStore(path, testSecret)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return s, path
}

func TestFileStoreRejectsMissingInputs(t *testing.T) {
	if _, err := NewFileStore("", testSecret); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileStore("/tmp/x", nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := s.Set(ctx, KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, KeyUserProfile, `{"user":{"id":"u1"}}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A second store over the same file sees the first one's writes.
	reopened, err := NewFileStore(path, testSecret)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	v, ok := reopened.Get(ctx, KeyAccessToken)
	if !ok || v != "tok" {
		t.Fatalf("expected persisted token, got %q ok=%v", v, ok)
	}
}

func TestFileStoreCiphertextNotPlaintext(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := s.Set(ctx, KeyRefreshToken, "very-secret-refresh-token"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if bytes.Contains(raw, []byte("very-secret-refresh-token")) {
		t.Fatal("refresh token visible in plaintext on disk")
	}
}

func TestFileStoreCorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := s.Set(ctx, KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reopened, err := NewFileStore(path, testSecret)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, ok := reopened.Get(ctx, KeyAccessToken); ok {
		t.Fatal("expected corrupt blob to read as empty store")
	}

	// The store stays usable after the corrupt load.
	if err := reopened.Set(ctx, KeyAccessToken, "tok2"); err != nil {
		t.Fatalf("Set after corrupt load failed: %v", err)
	}
	if v, ok := reopened.Get(ctx, KeyAccessToken); !ok || v != "tok2" {
		t.Fatalf("expected tok2, got %q ok=%v", v, ok)
	}
}

func TestFileStoreWrongSecretStartsEmpty(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := s.Set(ctx, KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	other, err := NewFileStore(path, []byte("ffffffffffffffffffffffffffffffff"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, ok := other.Get(ctx, KeyAccessToken); ok {
		t.Fatal("expected wrong secret to read as empty store")
	}
}

func TestFileStoreDeleteAbsentKeyNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)

	if err := s.Delete(ctx, KeyAccessToken); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}
