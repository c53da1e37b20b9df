package products

import (
	"context"
	stderrors "errors"
	"testing"

	"payment-workers/internal/common/cache"
	apperrors "payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/validation"
	"payment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context, key cache.Key) (models.PaymentProduct, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(models.PaymentProduct), args.Error(1)
}

func productFor(key cache.Key, p models.PaymentProduct) models.PaymentProduct {
	p.ID = key.PaymentProductID
	return p
}

func newTestService(t *testing.T, source Source) *Service {
	c, err := cache.New(4)
	require.NoError(t, err)
	return NewService(c, source, logger.NewTestLogger(t))
}

func TestService_Get_CacheAside(t *testing.T) {
	visa := models.PaymentProduct{DisplayName: "Visa", Fields: []byte(`{"fields":[]}`)}
	other := visaKey()
	other.CountryCode = "BE"

	source := new(MockSource)
	source.On("Fetch", mock.Anything, visaKey()).Return(productFor(visaKey(), visa), nil).Once()
	source.On("Fetch", mock.Anything, other).Return(productFor(other, visa), nil).Once()
	svc := newTestService(t, source)
	ctx := context.Background()

	first, err := svc.Get(ctx, visaKey())
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, "Visa", first.Product.DisplayName)

	second, err := svc.Get(ctx, visaKey())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Product, second.Product)
	source.AssertNumberOfCalls(t, "Fetch", 1)

	third, err := svc.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
	source.AssertExpectations(t)
}

func TestService_Get_FailuresAreNotCached(t *testing.T) {
	source := new(MockSource)
	source.On("Fetch", mock.Anything, visaKey()).
		Return(models.PaymentProduct{}, apperrors.NewProductLookupFailedError("1", stderrors.New("timeout")))
	svc := newTestService(t, source)

	for i := 0; i < 2; i++ {
		lookup, err := svc.Get(context.Background(), visaKey())
		assert.Nil(t, lookup)
		assert.True(t, stderrors.Is(err, apperrors.ErrProductLookupFailed))
	}
	source.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestService_Invalidate(t *testing.T) {
	source := new(MockSource)
	source.On("Fetch", mock.Anything, visaKey()).
		Return(productFor(visaKey(), models.PaymentProduct{Fields: []byte(`{"fields":[]}`)}), nil)
	svc := newTestService(t, source)
	ctx := context.Background()

	_, err := svc.Get(ctx, visaKey())
	require.NoError(t, err)
	svc.Invalidate()

	lookup, err := svc.Get(ctx, visaKey())
	require.NoError(t, err)
	assert.False(t, lookup.CacheHit)
	source.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestService_RuleSet(t *testing.T) {
	source := new(MockSource)
	source.On("Fetch", mock.Anything, visaKey()).Return(productFor(visaKey(), models.PaymentProduct{
		Fields: []byte(`{"fields":[{"id":"cardNumber","dataRestrictions":{"isRequired":true,"validators":{"luhn":{}}}}]}`),
	}), nil)
	svc := newTestService(t, source)

	rules, lookup, err := svc.RuleSet(context.Background(), visaKey())
	require.NoError(t, err)
	assert.Equal(t, "1", lookup.Product.ID)
	assert.Equal(t, []validation.Rule{validation.Required(), validation.Luhn()}, rules["cardNumber"])
}

func TestService_RuleSet_BadDefinitions(t *testing.T) {
	source := new(MockSource)
	source.On("Fetch", mock.Anything, visaKey()).
		Return(productFor(visaKey(), models.PaymentProduct{Fields: []byte(`{"fields":[{"id":""}]}`)}), nil)
	svc := newTestService(t, source)

	_, _, err := svc.RuleSet(context.Background(), visaKey())
	assert.True(t, stderrors.Is(err, apperrors.ErrConfiguration))
}
