// internal/workers/payment/prepare-payment-request/handler.go
package preparepaymentrequest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"payment-workers/internal/common/cache"
	"payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/metrics"
	"payment-workers/internal/common/preparation"
	"payment-workers/internal/common/products"
	"payment-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "prepare-payment-request"
)

type Handler struct {
	config       *Config
	products     *products.Service
	orchestrator *preparation.Orchestrator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, productService *products.Service, orchestrator *preparation.Orchestrator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		products:     productService,
		orchestrator: orchestrator,
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

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	productID, err := h.validateInput(input)
	if err != nil {
		return nil, err
	}

	key := cache.Key{
		AmountInMinorUnits: input.ProductContext.AmountInMinorUnits,
		CountryCode:        input.ProductContext.CountryCode,
		CurrencyCode:       input.ProductContext.CurrencyCode,
		IsRecurring:        input.ProductContext.IsRecurring,
		PaymentProductID:   input.ProductContext.PaymentProductID,
	}.Normalized()

	rules, lookup, err := h.products.RuleSet(ctx, key)
	if err != nil {
		return nil, err
	}

	req := preparation.Request{
		FieldRules:       rules,
		Values:           input.PaymentValues,
		ClientSessionID:  input.ClientSessionID,
		AccountOnFileID:  input.AccountOnFileID,
		PaymentProductID: &productID,
		Tokenize:         input.Tokenize,
	}
	if input.GatewayKey != nil {
		req.GatewayKey = &preparation.KeyMaterial{
			KeyID:     input.GatewayKey.KeyID,
			PublicKey: input.GatewayKey.PublicKey,
		}
	}

	outcome, err := h.orchestrator.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	output := &Output{
		IsValid:          outcome.IsValid(),
		ProductCacheHit:  lookup.CacheHit,
		ValidationErrors: outcome.Errors(),
	}
	if output.ValidationErrors == nil {
		output.ValidationErrors = []validation.ErrorMessage{}
	}
	if outcome.Prepared != nil {
		output.EncryptedFields = outcome.Prepared.EncryptedFields
		output.KeyID = outcome.Prepared.KeyID
	}

	h.logger.Info("payment request prepared", map[string]interface{}{
		"isValid":         output.IsValid,
		"errorCount":      len(output.ValidationErrors),
		"productId":       key.PaymentProductID,
		"productCacheHit": lookup.CacheHit,
	})
	return output, nil
}

func (h *Handler) validateInput(input *Input) (int, error) {
	if strings.TrimSpace(input.ClientSessionID) == "" {
		return 0, errors.NewInvalidInputError("clientSessionId is required")
	}
	productID, err := strconv.Atoi(strings.TrimSpace(input.ProductContext.PaymentProductID))
	if err != nil || productID <= 0 {
		return 0, errors.NewInvalidInputError(fmt.Sprintf("productContext.paymentProductId must be a positive integer, got %q", input.ProductContext.PaymentProductID))
	}
	if input.ProductContext.AmountInMinorUnits < 0 {
		return 0, errors.NewInvalidInputError("productContext.amountInMinorUnits must not be negative")
	}
	if input.GatewayKey != nil && (input.GatewayKey.KeyID == "" || input.GatewayKey.PublicKey == "") {
		return 0, errors.NewInvalidInputError("gatewayKey requires keyId and publicKey")
	}
	return productID, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := errors.Normalize(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
