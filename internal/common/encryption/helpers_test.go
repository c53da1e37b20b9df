package encryption

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"sync"
	"testing"

	"payment-workers/internal/models"

	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// gatewayPrivateKey plays the gateway's side in tests.
func gatewayPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

func encodeSPKI(t *testing.T, pub interface{}) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(der)
}

func gatewayPublicKeyMaterial(t *testing.T) string {
	t.Helper()
	return encodeSPKI(t, &gatewayPrivateKey(t).PublicKey)
}

func sampleEncryptData(nonce string) models.EncryptData {
	productID := 1
	return models.EncryptData{
		ClientSessionID:  "session-123",
		Nonce:            nonce,
		PaymentProductID: &productID,
		Tokenize:         false,
		PaymentValues: map[string]string{
			"cardNumber": "4111111111111111",
			"expiryDate": "1230",
			"cvv":        "123",
		},
	}
}
