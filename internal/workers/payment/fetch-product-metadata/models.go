// internal/workers/payment/fetch-product-metadata/models.go
package fetchproductmetadata

import "payment-workers/internal/models"

type Input struct {
	PaymentProductID   string `json:"paymentProductId"`
	AmountInMinorUnits int64  `json:"amountInMinorUnits"`
	CountryCode        string `json:"countryCode"`
	CurrencyCode       string `json:"currencyCode"`
	IsRecurring        bool   `json:"isRecurring"`
	// Invalidate drops every cached product before the lookup, e.g. after the
	// shopper changed locale or currency.
	Invalidate bool `json:"invalidate"`
}

type Output struct {
	Product  models.PaymentProduct `json:"product"`
	CacheHit bool                  `json:"cacheHit"`
}
