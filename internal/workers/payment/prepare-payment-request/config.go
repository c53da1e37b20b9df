// internal/workers/payment/prepare-payment-request/config.go
package preparepaymentrequest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
