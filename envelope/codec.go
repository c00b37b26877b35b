// Package envelope implements the engine's secret codec: AES-256-GCM
// envelope encryption keyed by a logical key-id, one key per secret-bearing
// factor type so a compromised key is scoped to a single factor type.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/strandauth/secondfactor"
)

const (
	nonceByteLength = 16
	// Nonces are hex-encoded, 2 characters per byte.
	encodedNonceLength = nonceByteLength * 2
	keyByteLength      = 32
)

// Codec holds the key ring and performs encryption and decryption. Tokens
// have the shape hex(nonce) || base64(ciphertext): a single opaque string
// safe to store in a factor's Context. Safe for concurrent use.
type Codec struct {
	mu    sync.RWMutex
	raw   map[string]string
	aeads map[string]cipher.AEAD
}

// New imports every supplied key eagerly so misconfigured key material
// fails at construction, not at first use. Keys are hex-encoded 32-byte
// values, keyed by key-id.
func New(keys map[string]string) (*Codec, error) {
	c := &Codec{
		raw:   make(map[string]string, len(keys)),
		aeads: make(map[string]cipher.AEAD, len(keys)),
	}
	for keyID, rawHex := range keys {
		aead, err := importKey(rawHex)
		if err != nil {
			return nil, fmt.Errorf("import key %q: %w", keyID, err)
		}
		c.raw[keyID] = rawHex
		c.aeads[keyID] = aead
	}
	return c, nil
}

// CurrentKeys returns a snapshot clone of the raw key material for external
// rotation bookkeeping. Imported key objects are never exposed.
func (c *Codec) CurrentKeys() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.raw))
	for keyID, rawHex := range c.raw {
		out[keyID] = rawHex
	}
	return out
}

// Update imports and registers a new key-id. The key ring is append-only:
// overwriting an existing key-id would silently invalidate everything
// already encrypted under it, so it fails with ErrKeyExists.
func (c *Codec) Update(keyID, rawKeyHex string) error {
	aead, err := importKey(rawKeyHex)
	if err != nil {
		return fmt.Errorf("import key %q: %w", keyID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.raw[keyID]; ok {
		return fmt.Errorf("update key %q: %w", keyID, secondfactor.ErrKeyExists)
	}
	c.raw[keyID] = rawKeyHex
	c.aeads[keyID] = aead
	return nil
}

// EncodeSecret encrypts plaintext under the key for keyID with a fresh
// random nonce.
func (c *Codec) EncodeSecret(keyID, plaintext string) (string, error) {
	aead, err := c.aead(keyID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceByteLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecodeSecret splits the fixed-width nonce from the ciphertext and
// decrypts. Authentication failure and malformed tokens surface as
// ErrCiphertextInvalid; callers decide whether that is a user mistake (a
// garbled magic link) or corrupted stored state. A missing key is always a
// configuration fault, reported as ErrKeyNotFound.
func (c *Codec) DecodeSecret(keyID, encrypted string) (string, error) {
	aead, err := c.aead(keyID)
	if err != nil {
		return "", err
	}

	if len(encrypted) < encodedNonceLength {
		return "", fmt.Errorf("token shorter than nonce: %w", secondfactor.ErrCiphertextInvalid)
	}
	nonce, err := hex.DecodeString(encrypted[:encodedNonceLength])
	if err != nil {
		return "", fmt.Errorf("malformed nonce: %w", secondfactor.ErrCiphertextInvalid)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted[encodedNonceLength:])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", secondfactor.ErrCiphertextInvalid)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", secondfactor.ErrCiphertextInvalid)
	}
	return string(plaintext), nil
}

// GenerateSecret returns n cryptographically secure random bytes.
func (c *Codec) GenerateSecret(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return out, nil
}

// GenerateSecretEncoded returns n random bytes hex-encoded, the format
// Update expects as raw key material.
func (c *Codec) GenerateSecretEncoded(n int) (string, error) {
	raw, err := c.GenerateSecret(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func (c *Codec) aead(keyID string) (cipher.AEAD, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	aead, ok := c.aeads[keyID]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", keyID, secondfactor.ErrKeyNotFound)
	}
	return aead, nil
}

func importKey(rawHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("key material is not hex: %w", err)
	}
	if len(key) != keyByteLength {
		return nil, fmt.Errorf("key must be exactly %d bytes, got %d", keyByteLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, nonceByteLength)
}
