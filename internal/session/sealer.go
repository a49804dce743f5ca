package session

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealerSalt binds derived keys to this application.
var sealerSalt = []byte("dealfinder/session/v1")

// argon2id parameters for deriving the sealing key. Derivation runs once at
// startup.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
)

// Sealer encrypts persisted values with XChaCha20-Poly1305 under a key
// derived from the configured secret.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the sealing key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer secret is empty")
	}
	key := argon2.IDKey([]byte(secret), sealerSalt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext for key. The key name is authenticated so a value
// cannot be moved to another key. Output is a JSON string so every backend
// still stores valid JSON.
func (s *Sealer) Seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	// Nonce is prepended to ciphertext: [nonce][ciphertext+tag]
	sealed := s.aead.Seal(nonce, nonce, plaintext, []byte(key))
	return json.Marshal(base64.RawStdEncoding.EncodeToString(sealed))
}

// Open reverses Seal.
func (s *Sealer) Open(key string, value []byte) ([]byte, error) {
	var encoded string
	if err := json.Unmarshal(value, &encoded); err != nil {
		return nil, fmt.Errorf("sealed value is not a string: %w", err)
	}
	sealed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding sealed value: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("sealed value too short")
	}
	nonce, ct := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}

// sealedBackend seals values on the way into another Backend.
type sealedBackend struct {
	inner  Backend
	sealer *Sealer
}

// Sealed wraps inner so every value is encrypted at rest.
func Sealed(inner Backend, sealer *Sealer) Backend {
	return &sealedBackend{inner: inner, sealer: sealer}
}

func (b *sealedBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := b.inner.Load(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plaintext, err := b.sealer.Open(key, value)
	if err != nil {
		return nil, false, fmt.Errorf("opening session key %s: %w", key, err)
	}
	return plaintext, true, nil
}

func (b *sealedBackend) Save(ctx context.Context, key string, value []byte) error {
	sealed, err := b.sealer.Seal(key, value)
	if err != nil {
		return err
	}
	return b.inner.Save(ctx, key, sealed)
}

func (b *sealedBackend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}
