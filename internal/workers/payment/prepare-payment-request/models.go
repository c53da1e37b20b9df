// internal/workers/payment/prepare-payment-request/models.go
package preparepaymentrequest

import "payment-workers/internal/common/validation"

// ProductContext identifies the purchase context the product rules are
// fetched for.
type ProductContext struct {
	PaymentProductID   string `json:"paymentProductId"`
	AmountInMinorUnits int64  `json:"amountInMinorUnits"`
	CountryCode        string `json:"countryCode"`
	CurrencyCode       string `json:"currencyCode"`
	IsRecurring        bool   `json:"isRecurring"`
}

type GatewayKey struct {
	KeyID     string `json:"keyId"`
	PublicKey string `json:"publicKey"`
}

type Input struct {
	ProductContext  ProductContext    `json:"productContext"`
	PaymentValues   map[string]string `json:"paymentValues"`
	ClientSessionID string            `json:"clientSessionId"`
	AccountOnFileID *string           `json:"accountOnFileId,omitempty"`
	Tokenize        bool              `json:"tokenize"`
	GatewayKey      *GatewayKey       `json:"gatewayKey,omitempty"`
}

// Output never carries payment values; only the sealed blob leaves the worker.
type Output struct {
	IsValid          bool                      `json:"isValid"`
	EncryptedFields  string                    `json:"encryptedFields,omitempty"`
	KeyID            string                    `json:"keyId,omitempty"`
	ProductCacheHit  bool                      `json:"productCacheHit"`
	ValidationErrors []validation.ErrorMessage `json:"validationErrors"`
}
