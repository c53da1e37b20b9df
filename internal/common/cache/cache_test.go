package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"payment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseKey() Key {
	return Key{
		AmountInMinorUnits: 1000,
		CountryCode:        "NL",
		CurrencyCode:       "EUR",
		IsRecurring:        false,
		PaymentProductID:   "1",
	}
}

func product(id string) models.PaymentProduct {
	return models.PaymentProduct{
		ID:          id,
		DisplayName: "Product " + id,
		Fields:      json.RawMessage(`{"fields":[]}`),
	}
}

func TestNew(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, c.Capacity())

	c, err = New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Capacity())

	_, err = New(-1)
	assert.Error(t, err)
}

func TestPutThenGet(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	c, err := New(10, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	c.Put(baseKey(), product("1"))

	entry, ok := c.Get(baseKey())
	require.True(t, ok)
	assert.Equal(t, "1", entry.Value.ID)
	assert.Equal(t, fixed, entry.InsertedAt)
}

func TestGet_OneFieldDiffers(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	c.Put(baseKey(), product("1"))

	tests := []struct {
		name   string
		mutate func(k *Key)
	}{
		{"amount", func(k *Key) { k.AmountInMinorUnits = 1001 }},
		{"country", func(k *Key) { k.CountryCode = "BE" }},
		{"currency", func(k *Key) { k.CurrencyCode = "USD" }},
		{"recurring", func(k *Key) { k.IsRecurring = true }},
		{"product", func(k *Key) { k.PaymentProductID = "2" }},
		{"currency casing", func(k *Key) { k.CurrencyCode = "eur" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := baseKey()
			tt.mutate(&k)
			_, ok := c.Get(k)
			assert.False(t, ok)
		})
	}
}

func TestPut_ReplacesValue(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	c.Put(baseKey(), product("old"))
	c.Put(baseKey(), product("new"))

	entry, ok := c.Get(baseKey())
	require.True(t, ok)
	assert.Equal(t, "new", entry.Value.ID)
	assert.Equal(t, 1, c.Len())
}

func TestEviction_LeastRecentlyUsed(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)

	keys := make([]Key, 4)
	for i := range keys {
		keys[i] = baseKey()
		keys[i].PaymentProductID = fmt.Sprintf("%d", i)
	}

	c.Put(keys[0], product("0"))
	c.Put(keys[1], product("1"))
	c.Put(keys[2], product("2"))

	// Touch key 0 so key 1 becomes the least recently used.
	_, ok := c.Get(keys[0])
	require.True(t, ok)

	c.Put(keys[3], product("3"))

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get(keys[1])
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, i := range []int{0, 2, 3} {
		_, ok := c.Get(keys[i])
		assert.True(t, ok, "key %d should remain", i)
	}
}

func TestInvalidateAll(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	c.Put(baseKey(), product("1"))
	other := baseKey()
	other.CurrencyCode = "USD"
	c.Put(other, product("2"))

	c.InvalidateAll()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(baseKey())
	assert.False(t, ok)
	_, ok = c.Get(other)
	assert.False(t, ok)
}

func TestEntriesAreIsolated(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	minAmount := int64(100)
	p := product("1")
	p.MinAmount = &minAmount
	c.Put(baseKey(), p)

	// Mutating the caller's value does not leak into the cache.
	p.Fields[0] = 'X'
	*p.MinAmount = 1

	entry, ok := c.Get(baseKey())
	require.True(t, ok)
	assert.Equal(t, `{"fields":[]}`, string(entry.Value.Fields))
	assert.Equal(t, int64(100), *entry.Value.MinAmount)

	// Nor does mutating a returned view.
	entry.Value.Fields[0] = 'Y'
	again, _ := c.Get(baseKey())
	assert.Equal(t, `{"fields":[]}`, string(again.Value.Fields))
}

func TestKey_Normalized(t *testing.T) {
	k := Key{AmountInMinorUnits: 5, CountryCode: " nl", CurrencyCode: "", PaymentProductID: ""}.Normalized()

	assert.Equal(t, "NL", k.CountryCode)
	assert.Equal(t, UnknownDimension, k.CurrencyCode)
	assert.Equal(t, UnknownDimension, k.PaymentProductID)
	assert.Equal(t, int64(5), k.AmountInMinorUnits)

	assert.Equal(t, baseKey(), Key{
		AmountInMinorUnits: 1000, CountryCode: "nl", CurrencyCode: "eur", PaymentProductID: "1",
	}.Normalized())
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := baseKey()
				k.AmountInMinorUnits = int64((g*200 + i) % 40)
				c.Put(k, product(fmt.Sprintf("%d", i)))
				if entry, ok := c.Get(k); ok {
					assert.NotEmpty(t, entry.Value.ID)
				}
				if i%50 == 0 {
					c.InvalidateAll()
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
