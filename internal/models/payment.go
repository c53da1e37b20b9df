package models

import (
	"encoding/json"
	"time"
)

// EncryptData is the payload sealed for the payment gateway.
type EncryptData struct {
	AccountOnFileID  *string           `json:"accountOnFileId,omitempty"`
	ClientSessionID  string            `json:"clientSessionId"`
	Nonce            string            `json:"nonce"`
	PaymentProductID *int              `json:"paymentProductId,omitempty"`
	Tokenize         bool              `json:"tokenize"`
	PaymentValues    map[string]string `json:"paymentValues"`
}

// PaymentProduct is the gateway-supplied metadata for one payment product in
// one purchase context. Fields holds the server-declared field definitions,
// including their validation rules.
type PaymentProduct struct {
	ID                 string          `json:"id" db:"id"`
	DisplayName        string          `json:"displayName" db:"display_name"`
	AllowsRecurring    bool            `json:"allowsRecurring" db:"allows_recurring"`
	AllowsTokenization bool            `json:"allowsTokenization" db:"allows_tokenization"`
	MinAmount          *int64          `json:"minAmount,omitempty" db:"min_amount"`
	MaxAmount          *int64          `json:"maxAmount,omitempty" db:"max_amount"`
	Fields             json.RawMessage `json:"fields" db:"fields"`
	FetchedAt          time.Time       `json:"fetchedAt"`
}

// Clone returns a deep copy so cached products cannot be mutated through a view.
func (p PaymentProduct) Clone() PaymentProduct {
	out := p
	if p.MinAmount != nil {
		v := *p.MinAmount
		out.MinAmount = &v
	}
	if p.MaxAmount != nil {
		v := *p.MaxAmount
		out.MaxAmount = &v
	}
	if p.Fields != nil {
		out.Fields = append(json.RawMessage(nil), p.Fields...)
	}
	return out
}
