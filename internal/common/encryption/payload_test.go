package encryption

import (
	stderrors "errors"
	"testing"

	apperrors "payment-workers/internal/common/errors"
	"payment-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_CanonicalForm(t *testing.T) {
	aof := "aof-7"
	productID := 1
	data := models.EncryptData{
		AccountOnFileID:  &aof,
		ClientSessionID:  "session-123",
		Nonce:            "n-1",
		PaymentProductID: &productID,
		Tokenize:         true,
		PaymentValues: map[string]string{
			"expiryDate": "1230",
			"cardNumber": "4111111111111111",
			"note":       "<a&b>",
		},
	}

	out, err := Serialize(data)
	require.NoError(t, err)

	expected := `{"accountOnFileId":"aof-7","clientSessionId":"session-123","nonce":"n-1",` +
		`"paymentProductId":1,"tokenize":true,"paymentValues":[` +
		`{"key":"cardNumber","value":"4111111111111111"},` +
		`{"key":"expiryDate","value":"1230"},` +
		`{"key":"note","value":"<a&b>"}]}`
	assert.Equal(t, expected, string(out))
}

func TestSerialize_OmitsAbsentOptionals(t *testing.T) {
	out, err := Serialize(models.EncryptData{
		ClientSessionID: "session-123",
		Nonce:           "n-1",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"clientSessionId":"session-123","nonce":"n-1","tokenize":false,"paymentValues":[]}`, string(out))
}

func TestSerialize_Deterministic(t *testing.T) {
	data := sampleEncryptData("n-1")
	first, err := Serialize(data)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := Serialize(data)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSerialize_Rejects(t *testing.T) {
	badAOF := string([]byte{0xc3, 0x28})

	tests := []struct {
		name string
		data models.EncryptData
	}{
		{"empty session", models.EncryptData{Nonce: "n"}},
		{"empty nonce", models.EncryptData{ClientSessionID: "s"}},
		{"invalid session", models.EncryptData{ClientSessionID: string([]byte{0xff}), Nonce: "n"}},
		{"invalid account on file", models.EncryptData{ClientSessionID: "s", Nonce: "n", AccountOnFileID: &badAOF}},
		{"empty field id", models.EncryptData{ClientSessionID: "s", Nonce: "n", PaymentValues: map[string]string{"": "x"}}},
		{"invalid value", models.EncryptData{ClientSessionID: "s", Nonce: "n", PaymentValues: map[string]string{"cvv": string([]byte{0xff})}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Serialize(tt.data)
			assert.Nil(t, out)
			assert.True(t, stderrors.Is(err, apperrors.ErrPayloadEncoding))
		})
	}
}
