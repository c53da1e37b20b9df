// Package encryption seals validated payment values for the payment gateway
// using its RSA public key.
package encryption

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"

	"payment-workers/internal/common/errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

type parsedKey struct {
	key *rsa.PublicKey
	err error
}

// GatewayPublicKey holds the gateway's key id and its Base64 X.509
// SubjectPublicKeyInfo. The key is parsed on first use and the outcome is
// published once; concurrent first callers may both parse but all observe the
// first published result.
type GatewayPublicKey struct {
	KeyID string

	encoded string
	parsed  atomic.Pointer[parsedKey]
}

func NewGatewayPublicKey(keyID, encoded string) *GatewayPublicKey {
	return &GatewayPublicKey{KeyID: keyID, encoded: encoded}
}

// RSAPublicKey returns the parsed key, or a KEY_UNAVAILABLE error when the
// material is absent, not Base64, not SPKI, or not RSA.
func (k *GatewayPublicKey) RSAPublicKey() (*rsa.PublicKey, error) {
	if k == nil {
		return nil, errors.NewKeyUnavailableError("", fmt.Errorf("no gateway key"))
	}
	if p := k.parsed.Load(); p != nil {
		return p.key, p.err
	}

	k.parsed.CompareAndSwap(nil, parsePublicKey(k.KeyID, k.encoded))
	p := k.parsed.Load()
	return p.key, p.err
}

func parsePublicKey(keyID, encoded string) *parsedKey {
	encoded = strings.TrimSpace(encoded)
	if keyID == "" {
		return &parsedKey{err: errors.NewKeyUnavailableError(keyID, fmt.Errorf("key id is empty"))}
	}
	if encoded == "" {
		return &parsedKey{err: errors.NewKeyUnavailableError(keyID, fmt.Errorf("key material is empty"))}
	}

	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return &parsedKey{err: errors.NewKeyUnavailableError(keyID, fmt.Errorf("decode base64: %w", err))}
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return &parsedKey{err: errors.NewKeyUnavailableError(keyID, fmt.Errorf("parse subject public key info: %w", err))}
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return &parsedKey{err: errors.NewKeyUnavailableError(keyID, fmt.Errorf("unsupported key type %T", pub))}
	}
	return &parsedKey{key: rsaKey}
}

// DefaultKeyringCapacity bounds the keyring when no capacity is configured.
const DefaultKeyringCapacity = 16

type keyringEntry struct {
	keyID   string
	encoded string
}

// Keyring hands out one GatewayPublicKey per (key id, material) pair so the
// parse-once cell is shared across requests carrying the same key. It keeps
// the most recently used pairs only; an evicted pair is parsed again on its
// next use.
type Keyring struct {
	keys *lru.Cache[keyringEntry, *GatewayPublicKey]
}

// NewKeyring returns a keyring holding at most capacity keys. A capacity of
// zero or less selects DefaultKeyringCapacity.
func NewKeyring(capacity int) *Keyring {
	if capacity <= 0 {
		capacity = DefaultKeyringCapacity
	}
	keys, _ := lru.New[keyringEntry, *GatewayPublicKey](capacity)
	return &Keyring{keys: keys}
}

func (r *Keyring) Get(keyID, encoded string) *GatewayPublicKey {
	entry := keyringEntry{keyID: keyID, encoded: strings.TrimSpace(encoded)}
	if k, ok := r.keys.Get(entry); ok {
		return k
	}
	candidate := NewGatewayPublicKey(entry.keyID, entry.encoded)
	if prev, ok, _ := r.keys.PeekOrAdd(entry, candidate); ok {
		return prev
	}
	return candidate
}

// Len returns the number of keys currently held.
func (r *Keyring) Len() int {
	return r.keys.Len()
}
