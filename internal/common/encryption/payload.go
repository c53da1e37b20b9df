package encryption

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"payment-workers/internal/common/errors"
	"payment-workers/internal/models"
)

type keyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// payload is the wire form of EncryptData. Field order is fixed by the struct
// and payment values are sorted by key, so equal inputs give equal bytes.
type payload struct {
	AccountOnFileID  *string        `json:"accountOnFileId,omitempty"`
	ClientSessionID  string         `json:"clientSessionId"`
	Nonce            string         `json:"nonce"`
	PaymentProductID *int           `json:"paymentProductId,omitempty"`
	Tokenize         bool           `json:"tokenize"`
	PaymentValues    []keyValuePair `json:"paymentValues"`
}

// Serialize renders data in its canonical compact form. Input that cannot be
// represented faithfully is a PAYLOAD_ENCODING_ERROR.
func Serialize(data models.EncryptData) ([]byte, error) {
	if data.ClientSessionID == "" {
		return nil, errors.NewPayloadEncodingError("clientSessionId is empty")
	}
	if data.Nonce == "" {
		return nil, errors.NewPayloadEncodingError("nonce is empty")
	}
	if !utf8.ValidString(data.ClientSessionID) || !utf8.ValidString(data.Nonce) {
		return nil, errors.NewPayloadEncodingError("session metadata is not valid UTF-8")
	}
	if data.AccountOnFileID != nil && !utf8.ValidString(*data.AccountOnFileID) {
		return nil, errors.NewPayloadEncodingError("accountOnFileId is not valid UTF-8")
	}

	p := payload{
		AccountOnFileID:  data.AccountOnFileID,
		ClientSessionID:  data.ClientSessionID,
		Nonce:            data.Nonce,
		PaymentProductID: data.PaymentProductID,
		Tokenize:         data.Tokenize,
		PaymentValues:    make([]keyValuePair, 0, len(data.PaymentValues)),
	}
	for k, v := range data.PaymentValues {
		if k == "" {
			return nil, errors.NewPayloadEncodingError("payment value with empty field id")
		}
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return nil, errors.NewPayloadEncodingError(fmt.Sprintf("payment value %q is not valid UTF-8", k))
		}
		p.PaymentValues = append(p.PaymentValues, keyValuePair{Key: k, Value: v})
	}
	sort.Slice(p.PaymentValues, func(i, j int) bool {
		return p.PaymentValues[i].Key < p.PaymentValues[j].Key
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, errors.NewPayloadEncodingError(fmt.Sprintf("encode payload: %v", err))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
