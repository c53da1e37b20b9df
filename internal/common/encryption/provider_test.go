package encryption

import (
	"context"
	stderrors "errors"
	"testing"

	apperrors "payment-workers/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHashKey = "gateway:public-key"

func TestStaticKeyProvider(t *testing.T) {
	provider := NewStaticKeyProvider("kid-1", gatewayPublicKeyMaterial(t))

	first, err := provider.CurrentKey(context.Background())
	require.NoError(t, err)
	second, err := provider.CurrentKey(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "kid-1", first.KeyID)
	assert.Same(t, first, second)
}

func TestRedisKeyProvider_ReadsPublishedKey(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	material := gatewayPublicKeyMaterial(t)
	mr.HSet(testHashKey, RedisFieldKeyID, "kid-1", RedisFieldPublicKey, material)

	provider := NewRedisKeyProvider(client, testHashKey, nil)
	ctx := context.Background()

	first, err := provider.CurrentKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kid-1", first.KeyID)

	pub, err := first.RSAPublicKey()
	require.NoError(t, err)
	assert.Equal(t, gatewayPrivateKey(t).PublicKey.N, pub.N)

	again, err := provider.CurrentKey(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again, "unchanged key should reuse the parsed cell")

	// Rotation is picked up on the next read.
	mr.HSet(testHashKey, RedisFieldKeyID, "kid-2")
	rotated, err := provider.CurrentKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kid-2", rotated.KeyID)
	assert.NotSame(t, first, rotated)
}

func TestRedisKeyProvider_NothingPublished(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	provider := NewRedisKeyProvider(client, testHashKey, NewKeyring(DefaultKeyringCapacity))

	key, err := provider.CurrentKey(context.Background())
	assert.Nil(t, key)
	assert.True(t, stderrors.Is(err, apperrors.ErrKeyUnavailable))
}

func TestRedisKeyProvider_SourceFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectHGetAll(testHashKey).SetErr(stderrors.New("connection refused"))

	provider := NewRedisKeyProvider(client, testHashKey, nil)

	key, err := provider.CurrentKey(context.Background())
	assert.Nil(t, key)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrKeySourceFailed))

	code, ok := apperrors.CodeOf(err)
	require.True(t, ok)
	assert.True(t, apperrors.IsRetryableErrorCode(code))
	assert.NoError(t, mock.ExpectationsWereMet())
}
