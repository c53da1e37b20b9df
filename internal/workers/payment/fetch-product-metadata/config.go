// internal/workers/payment/fetch-product-metadata/config.go
package fetchproductmetadata

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
