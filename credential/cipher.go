package credential

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Key-derivation parameters. Matched to the interactive argon2id profile; a
// credential blob is decrypted once per process start, so the cost is paid off
// the request path.
const (
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 2
	kdfKeyLen  = chacha20poly1305.KeySize

	saltSize = 16
)

var errCipherTooShort = errors.New("sealed blob too short")

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func newAEAD(secret, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(secret, salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
	return chacha20poly1305.NewX(key)
}

// seal encrypts plaintext with a key derived from secret and a fresh salt.
// Layout: salt || nonce || ciphertext.
func seal(secret, plaintext []byte) ([]byte, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(secret, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// open reverses seal. Any structural or authentication failure is an error;
// the caller decides whether that means "absent".
func open(secret, blob []byte) ([]byte, error) {
	if len(blob) < saltSize {
		return nil, errCipherTooShort
	}
	salt := blob[:saltSize]

	aead, err := newAEAD(secret, salt)
	if err != nil {
		return nil, err
	}
	rest := blob[saltSize:]
	if len(rest) < aead.NonceSize() {
		return nil, errCipherTooShort
	}

	return aead.Open(nil, rest[:aead.NonceSize()], rest[aead.NonceSize():], nil)
}
