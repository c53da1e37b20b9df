package encryption

import (
	"payment-workers/internal/common/errors"
	"payment-workers/internal/models"

	"github.com/go-jose/go-jose/v4"
)

// Algorithms fixed by the gateway.
const (
	KeyAlgorithm      = jose.RSA_OAEP
	ContentEncryption = jose.A256CBC_HS512
)

// Pipeline produces JWE compact blobs: protected header (alg, enc, kid), the
// RSA-OAEP wrapped content key, the IV, the ciphertext and the authentication
// tag, Base64URL encoded and joined by periods. A fresh content key and IV are
// drawn for every call. The pipeline performs no I/O and keeps no state; it
// does not track nonces.
type Pipeline struct{}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Encrypt seals data for key. It returns either a complete blob or an error
// with code KEY_UNAVAILABLE, PAYLOAD_ENCODING_ERROR or CIPHER_ERROR.
func (p *Pipeline) Encrypt(data models.EncryptData, key *GatewayPublicKey) (string, error) {
	pub, err := key.RSAPublicKey()
	if err != nil {
		return "", err
	}

	plaintext, err := Serialize(data)
	if err != nil {
		return "", err
	}

	encrypter, err := jose.NewEncrypter(ContentEncryption, jose.Recipient{
		Algorithm: KeyAlgorithm,
		Key:       pub,
		KeyID:     key.KeyID,
	}, nil)
	if err != nil {
		return "", errors.NewCipherError("initialize encrypter", err)
	}

	obj, err := encrypter.Encrypt(plaintext)
	if err != nil {
		return "", errors.NewCipherError("encrypt payload", err)
	}

	blob, err := obj.CompactSerialize()
	if err != nil {
		return "", errors.NewCipherError("serialize", err)
	}
	return blob, nil
}
