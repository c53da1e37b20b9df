// internal/workers/payment/fetch-product-metadata/handler.go
package fetchproductmetadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"payment-workers/internal/common/cache"
	"payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/metrics"
	"payment-workers/internal/common/products"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "fetch-product-metadata"
)

type Handler struct {
	config       *Config
	products     *products.Service
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, productService *products.Service, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		products:     productService,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.PaymentProductID) == "" {
		return nil, errors.NewInvalidInputError("paymentProductId is required")
	}
	if input.AmountInMinorUnits < 0 {
		return nil, errors.NewInvalidInputError("amountInMinorUnits must not be negative")
	}

	if input.Invalidate {
		h.products.Invalidate()
	}

	key := cache.Key{
		AmountInMinorUnits: input.AmountInMinorUnits,
		CountryCode:        input.CountryCode,
		CurrencyCode:       input.CurrencyCode,
		IsRecurring:        input.IsRecurring,
		PaymentProductID:   input.PaymentProductID,
	}.Normalized()

	lookup, err := h.products.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	h.logger.Info("product metadata resolved", map[string]interface{}{
		"productId": lookup.Product.ID,
		"cacheHit":  lookup.CacheHit,
	})

	return &Output{
		Product:  lookup.Product,
		CacheHit: lookup.CacheHit,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
