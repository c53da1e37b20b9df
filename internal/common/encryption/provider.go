package encryption

import (
	"context"
	"fmt"

	"payment-workers/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// KeyProvider exposes the gateway's current public key. Fetching the key from
// the gateway happens elsewhere; providers only hold or look up what was fetched.
type KeyProvider interface {
	CurrentKey(ctx context.Context) (*GatewayPublicKey, error)
}

// StaticKeyProvider serves a key fixed at construction, typically from config.
type StaticKeyProvider struct {
	key *GatewayPublicKey
}

func NewStaticKeyProvider(keyID, encoded string) *StaticKeyProvider {
	return &StaticKeyProvider{key: NewGatewayPublicKey(keyID, encoded)}
}

func (p *StaticKeyProvider) CurrentKey(_ context.Context) (*GatewayPublicKey, error) {
	return p.key, nil
}

// Redis hash fields written by the key fetcher.
const (
	RedisFieldKeyID     = "keyId"
	RedisFieldPublicKey = "publicKey"
)

// RedisKeyProvider reads the key the fetcher published into a Redis hash.
// Keys are memoized through a Keyring, so a rotation is picked up on the next
// call while an unchanged key is parsed only once.
type RedisKeyProvider struct {
	client  redis.Cmdable
	hashKey string
	keyring *Keyring
}

func NewRedisKeyProvider(client redis.Cmdable, hashKey string, keyring *Keyring) *RedisKeyProvider {
	if keyring == nil {
		keyring = NewKeyring(DefaultKeyringCapacity)
	}
	return &RedisKeyProvider{client: client, hashKey: hashKey, keyring: keyring}
}

func (p *RedisKeyProvider) CurrentKey(ctx context.Context) (*GatewayPublicKey, error) {
	vals, err := p.client.HGetAll(ctx, p.hashKey).Result()
	if err != nil {
		return nil, errors.NewKeySourceFailedError("redis", err)
	}

	keyID, encoded := vals[RedisFieldKeyID], vals[RedisFieldPublicKey]
	if keyID == "" || encoded == "" {
		return nil, errors.NewKeyUnavailableError(keyID, fmt.Errorf("no key published at %s", p.hashKey))
	}
	return p.keyring.Get(keyID, encoded), nil
}
