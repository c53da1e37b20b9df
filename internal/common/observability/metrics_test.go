package observability

import (
	"context"
	"testing"
	"time"

	"payment-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestRecordJob(t *testing.T) {
	obs := New("payment-workers-test", logger.NewTestLogger(t))
	defer obs.Shutdown()

	assert.NotPanics(t, func() {
		obs.RecordJob(context.Background(), "prepare-payment-request", 12*time.Millisecond)
		obs.RecordJob(context.Background(), "fetch-product-metadata", time.Millisecond)
	})
}

func TestZeroValueIsInert(t *testing.T) {
	obs := &Observability{logger: logger.NewNoOpLogger()}
	assert.NotPanics(t, func() {
		obs.RecordJob(context.Background(), "fetch-product-metadata", time.Second)
		obs.Shutdown()
	})
}
