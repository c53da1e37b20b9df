package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `{
  "version": "1.0.0",
  "lastUpdated": "2026-10-01T00:00:00Z",
  "products": [
    {
      "id": "1",
      "displayName": "Visa",
      "countries": ["NL", "BE"],
      "currencies": ["EUR"],
      "allowsRecurring": true,
      "allowsTokenization": true,
      "minAmount": 100,
      "maxAmount": 500000,
      "fields": {"fields": [{"id": "cardNumber", "dataRestrictions": {"isRequired": true, "validators": {"luhn": {}}}}]}
    },
    {
      "id": "1",
      "displayName": "Visa (US)",
      "countries": ["US"],
      "currencies": ["*"],
      "fields": {"fields": []}
    },
    {
      "id": "809",
      "displayName": "iDEAL",
      "fields": {"fields": []}
    }
  ]
}`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", reg.Version)
	require.Len(t, reg.Products, 3)
	assert.Equal(t, []string{"1", "809"}, reg.IDs())
	// Per-country variants of one id are allowed.
	assert.NoError(t, reg.Validate())
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	_, err = LoadRegistry(writeRegistry(t, `{"products": [`))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, sampleRegistry))
	require.NoError(t, err)

	tests := []struct {
		name      string
		id        string
		country   string
		currency  string
		amount    int64
		recurring bool
		wantName  string
	}{
		{"eu context", "1", "NL", "EUR", 1000, true, "Visa"},
		{"us wildcard currency", "1", "US", "USD", 1000, false, "Visa (US)"},
		{"no restrictions", "809", "DE", "EUR", 1, false, "iDEAL"},
		{"below minimum", "1", "NL", "EUR", 99, false, ""},
		{"above maximum", "1", "NL", "EUR", 500001, false, ""},
		{"recurring not allowed", "1", "US", "USD", 1000, true, ""},
		{"wrong currency", "1", "NL", "USD", 1000, false, ""},
		{"case sensitive country", "1", "nl", "EUR", 1000, false, ""},
		{"unknown id", "2", "NL", "EUR", 1000, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := reg.Find(tt.id, tt.country, tt.currency, tt.amount, tt.recurring)
			if tt.wantName == "" {
				assert.False(t, ok)
				assert.Nil(t, p)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantName, p.DisplayName)
		})
	}
}

func TestValidate(t *testing.T) {
	low, high := int64(10), int64(5)
	reg := &ProductRegistry{Products: []Product{
		{ID: "", Fields: []byte(`{}`)},
		{ID: "a", Fields: []byte(`{}`)},
		{ID: "a", Fields: []byte(`{}`), Countries: []string{Wildcard}},
		{ID: "d", Fields: []byte(`{}`), Countries: []string{"NL", "BE"}, Currencies: []string{"EUR"}},
		{ID: "d", Fields: []byte(`{}`), Countries: []string{"BE", "NL"}, Currencies: []string{"EUR"}},
		{ID: "e", Fields: []byte(`{}`), Countries: []string{"NL"}},
		{ID: "e", Fields: []byte(`{}`), Countries: []string{"US"}},
		{ID: "b"},
		{ID: "c", Fields: []byte(`{}`), MinAmount: &low, MaxAmount: &high},
	}}

	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products[0]: id is required")
	assert.Contains(t, err.Error(), "products[2]: duplicate id a for countries=* currencies=*")
	assert.Contains(t, err.Error(), "products[4]: duplicate id d for countries=BE,NL currencies=EUR")
	assert.NotContains(t, err.Error(), "duplicate id e")
	assert.Contains(t, err.Error(), "product b: fields are required")
	assert.Contains(t, err.Error(), "product c: minAmount 10 exceeds maxAmount 5")
}
