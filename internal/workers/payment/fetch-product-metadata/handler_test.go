package fetchproductmetadata

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"

	"payment-workers/internal/common/cache"
	apperrors "payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/products"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{
	"id", "display_name", "allows_recurring", "allows_tokenization", "min_amount", "max_amount", "fields",
}

const productQueryPrefix = `SELECT id, display_name, allows_recurring, allows_tokenization, min_amount, max_amount, fields
FROM payment_products`

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	t.Helper()
	productCache, err := cache.New(10)
	require.NoError(t, err)
	log := logger.NewTestLogger(t)
	return NewHandler(LoadConfig(), products.NewService(productCache, products.NewPostgresSource(db), log), log)
}

func createValidInput() *Input {
	return &Input{
		PaymentProductID:   "1",
		AmountInMinorUnits: 1000,
		CountryCode:        "nl",
		CurrencyCode:       "eur",
	}
}

func TestHandler_Execute_CacheAside(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(productQueryPrefix)).
		WithArgs("1", "NL", "EUR", false, int64(1000)).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("1", "Visa", true, true, nil, nil, []byte(`{"fields":[]}`)))

	handler := createTestHandler(t, db)

	first, err := handler.Execute(context.Background(), createValidInput())
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, "Visa", first.Product.DisplayName)

	second, err := handler.Execute(context.Background(), createValidInput())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Product.ID, second.Product.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Invalidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(productQueryPrefix)).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow("1", "Visa", false, false, int64(100), int64(900000), []byte(`{"fields":[]}`)))
	}

	handler := createTestHandler(t, db)

	_, err = handler.Execute(context.Background(), createValidInput())
	require.NoError(t, err)

	input := createValidInput()
	input.Invalidate = true
	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, output.CacheHit)
	require.NotNil(t, output.Product.MaxAmount)
	assert.Equal(t, int64(900000), *output.Product.MaxAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    func() *Input
		setup    func(mock sqlmock.Sqlmock)
		sentinel error
	}{
		{
			name: "missing product id",
			input: func() *Input {
				in := createValidInput()
				in.PaymentProductID = ""
				return in
			},
			setup:    func(sqlmock.Sqlmock) {},
			sentinel: apperrors.ErrInvalidInput,
		},
		{
			name: "negative amount",
			input: func() *Input {
				in := createValidInput()
				in.AmountInMinorUnits = -5
				return in
			},
			setup:    func(sqlmock.Sqlmock) {},
			sentinel: apperrors.ErrInvalidInput,
		},
		{
			name:  "not offered",
			input: createValidInput,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(productQueryPrefix)).
					WillReturnRows(sqlmock.NewRows(productColumns))
			},
			sentinel: apperrors.ErrProductNotFound,
		},
		{
			name:  "database down",
			input: createValidInput,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(productQueryPrefix)).
					WillReturnError(stderrors.New("connection refused"))
			},
			sentinel: apperrors.ErrProductLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			output, err := createTestHandler(t, db).Execute(context.Background(), tt.input())
			assert.Nil(t, output)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
