package products

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"payment-workers/internal/common/cache"
	"payment-workers/internal/common/errors"
	"payment-workers/internal/models"
	"payment-workers/pkg/registry"
)

// Source is the origin of product metadata consulted on a cache miss.
// Implementations return PRODUCT_NOT_FOUND when no product is offered in the
// context and PRODUCT_LOOKUP_FAILED when the origin itself fails.
type Source interface {
	Fetch(ctx context.Context, key cache.Key) (models.PaymentProduct, error)
}

const productQuery = `SELECT id, display_name, allows_recurring, allows_tokenization, min_amount, max_amount, fields
FROM payment_products
WHERE id = $1
  AND country_code IN ($2, '*')
  AND currency_code IN ($3, '*')
  AND (NOT $4 OR allows_recurring)
  AND (min_amount IS NULL OR min_amount <= $5)
  AND (max_amount IS NULL OR max_amount >= $5)
ORDER BY country_code = '*', currency_code = '*'
LIMIT 1`

// PostgresSource reads products from the payment_products table. Exact
// country and currency rows win over '*' rows.
type PostgresSource struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db, now: time.Now}
}

func (s *PostgresSource) Fetch(ctx context.Context, key cache.Key) (models.PaymentProduct, error) {
	var (
		p      models.PaymentProduct
		minAmt sql.NullInt64
		maxAmt sql.NullInt64
		fields []byte
	)

	err := s.db.QueryRowContext(ctx, productQuery,
		key.PaymentProductID,
		key.CountryCode,
		key.CurrencyCode,
		key.IsRecurring,
		key.AmountInMinorUnits,
	).Scan(&p.ID, &p.DisplayName, &p.AllowsRecurring, &p.AllowsTokenization, &minAmt, &maxAmt, &fields)

	if stderrors.Is(err, sql.ErrNoRows) {
		return models.PaymentProduct{}, errors.NewProductNotFoundError(key.PaymentProductID)
	}
	if err != nil {
		return models.PaymentProduct{}, errors.NewProductLookupFailedError(key.PaymentProductID, err)
	}

	if minAmt.Valid {
		v := minAmt.Int64
		p.MinAmount = &v
	}
	if maxAmt.Valid {
		v := maxAmt.Int64
		p.MaxAmount = &v
	}
	p.Fields = fields
	p.FetchedAt = s.now().UTC()
	return p, nil
}

// RegistrySource serves products from a registry file loaded at startup.
type RegistrySource struct {
	reg *registry.ProductRegistry
	now func() time.Time
}

func NewRegistrySource(reg *registry.ProductRegistry) *RegistrySource {
	return &RegistrySource{reg: reg, now: time.Now}
}

// LoadRegistrySource reads and validates the registry at path.
func LoadRegistrySource(path string) (*RegistrySource, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, errors.NewConfigurationError("products.registry_path", err.Error())
	}
	if err := reg.Validate(); err != nil {
		return nil, errors.NewConfigurationError("products.registry_path", err.Error())
	}
	return NewRegistrySource(reg), nil
}

func (s *RegistrySource) Fetch(_ context.Context, key cache.Key) (models.PaymentProduct, error) {
	entry, ok := s.reg.Find(key.PaymentProductID, key.CountryCode, key.CurrencyCode, key.AmountInMinorUnits, key.IsRecurring)
	if !ok {
		return models.PaymentProduct{}, errors.NewProductNotFoundError(key.PaymentProductID)
	}

	p := models.PaymentProduct{
		ID:                 entry.ID,
		DisplayName:        entry.DisplayName,
		AllowsRecurring:    entry.AllowsRecurring,
		AllowsTokenization: entry.AllowsTokenization,
		MinAmount:          entry.MinAmount,
		MaxAmount:          entry.MaxAmount,
		Fields:             entry.Fields,
		FetchedAt:          s.now().UTC(),
	}
	return p.Clone(), nil
}
