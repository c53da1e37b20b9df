// Package preparation turns user-entered payment values into an encrypted
// payload for the gateway: validate first, encrypt only when every field passes.
package preparation

import (
	"context"
	"fmt"
	"time"

	"payment-workers/internal/common/encryption"
	"payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/metrics"
	"payment-workers/internal/common/validation"
	"payment-workers/internal/models"

	"github.com/google/uuid"
)

// KeyMaterial is gateway key material passed with a request, as fetched by the
// caller from the gateway's public key endpoint.
type KeyMaterial struct {
	KeyID     string
	PublicKey string
}

type Request struct {
	FieldRules       validation.RuleSet
	Values           map[string]string
	ClientSessionID  string
	AccountOnFileID  *string
	PaymentProductID *int
	Tokenize         bool
	// GatewayKey overrides the configured key provider when set.
	GatewayKey *KeyMaterial
}

type PreparedPaymentRequest struct {
	EncryptedFields string
	KeyID           string
}

// Outcome carries the per-field validation results and, when every field is
// valid and encryption succeeded, the prepared request.
type Outcome struct {
	Prepared   *PreparedPaymentRequest
	Validation map[string]*validation.Result
}

func (o *Outcome) IsValid() bool {
	return validation.AllValid(o.Validation)
}

func (o *Outcome) Errors() []validation.ErrorMessage {
	return validation.Flatten(o.Validation)
}

// Completion receives the result of an asynchronous preparation. Exactly one
// of outcome and err is non-nil.
type Completion func(outcome *Outcome, err error)

type Option func(*Orchestrator)

// WithNonceSource replaces the per-call nonce generator.
func WithNonceSource(next func() string) Option {
	return func(o *Orchestrator) {
		o.nonce = next
	}
}

// WithKeyring shares a key cache with other components.
func WithKeyring(keyring *encryption.Keyring) Option {
	return func(o *Orchestrator) {
		o.keyring = keyring
	}
}

type Orchestrator struct {
	engine   *validation.Engine
	pipeline *encryption.Pipeline
	keys     encryption.KeyProvider
	keyring  *encryption.Keyring
	logger   logger.Logger
	nonce    func() string
}

// NewOrchestrator wires the engine and pipeline together. keys may be nil when
// every request carries its own key material.
func NewOrchestrator(
	engine *validation.Engine,
	pipeline *encryption.Pipeline,
	keys encryption.KeyProvider,
	log logger.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		pipeline: pipeline,
		keys:     keys,
		keyring:  encryption.NewKeyring(encryption.DefaultKeyringCapacity),
		logger:   log,
		nonce:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare validates req and, when valid, encrypts its values. Invalid input is
// not an error: the returned Outcome holds the violations and no blob.
// Configuration, key, and encryption failures are returned as errors.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.PreparationDuration.Observe(time.Since(start).Seconds())
	}()

	log := o.logger.WithFields(map[string]interface{}{
		"clientSessionId": logger.Mask(req.ClientSessionID),
		"fieldCount":      len(req.Values),
	})

	results, err := o.engine.ValidateAll(req.FieldRules, req.Values)
	if err != nil {
		o.recordFailure(err)
		log.WithError(err).Error("invalid field rule definitions", nil)
		return nil, err
	}

	if !validation.AllValid(results) {
		violations := validation.Flatten(results)
		for _, v := range violations {
			metrics.ValidationViolations.WithLabelValues(string(v.RuleType)).Inc()
		}
		metrics.PreparationOutcomes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		log.Info("payment values failed validation", map[string]interface{}{
			"violations": describeViolations(violations),
		})
		return &Outcome{Validation: results}, nil
	}

	key, err := o.resolveKey(ctx, req.GatewayKey)
	if err != nil {
		o.recordFailure(err)
		log.WithError(err).Warn("gateway key unavailable", nil)
		return nil, err
	}

	data := models.EncryptData{
		AccountOnFileID:  req.AccountOnFileID,
		ClientSessionID:  req.ClientSessionID,
		Nonce:            o.nonce(),
		PaymentProductID: req.PaymentProductID,
		Tokenize:         req.Tokenize,
		PaymentValues:    copyValues(req.Values),
	}

	blob, err := o.pipeline.Encrypt(data, key)
	if err != nil {
		o.recordFailure(err)
		log.WithError(err).Error("failed to encrypt payment values", map[string]interface{}{
			"keyId": key.KeyID,
		})
		return nil, err
	}

	metrics.PreparationOutcomes.WithLabelValues(metrics.OutcomePrepared).Inc()
	log.Debug("payment values encrypted", map[string]interface{}{
		"keyId":  key.KeyID,
		"fields": logger.FieldIDs(req.Values),
	})

	return &Outcome{
		Prepared: &PreparedPaymentRequest{
			EncryptedFields: blob,
			KeyID:           key.KeyID,
		},
		Validation: results,
	}, nil
}

// PrepareAsync runs Prepare on its own goroutine and calls done exactly once.
// A nil done discards the result.
func (o *Orchestrator) PrepareAsync(ctx context.Context, req Request, done Completion) {
	go o.complete(ctx, req, done)
}

// complete runs Prepare and hands the result to done, turning a panic into an
// INTERNAL_ERROR.
func (o *Orchestrator) complete(ctx context.Context, req Request, done Completion) {
	if done == nil {
		done = func(*Outcome, error) {}
	}

	var (
		outcome *Outcome
		err     error
	)
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = errors.NewInternalError(fmt.Sprintf("payment preparation panicked: %v", r))
			o.logger.Error("payment preparation panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
		}
		done(outcome, err)
	}()
	outcome, err = o.Prepare(ctx, req)
}

func (o *Orchestrator) resolveKey(ctx context.Context, material *KeyMaterial) (*encryption.GatewayPublicKey, error) {
	if material != nil {
		return o.keyring.Get(material.KeyID, material.PublicKey), nil
	}
	if o.keys == nil {
		return nil, errors.NewKeyUnavailableError("", fmt.Errorf("no key material and no key provider"))
	}
	return o.keys.CurrentKey(ctx)
}

func (o *Orchestrator) recordFailure(err error) {
	outcome := metrics.OutcomeFailed
	if code, ok := errors.CodeOf(err); ok {
		switch code {
		case errors.ErrCodeConfiguration:
			outcome = metrics.OutcomeConfiguration
		case errors.ErrCodeKeyUnavailable, errors.ErrCodeKeySourceFailed:
			outcome = metrics.OutcomeKeyUnavailable
		case errors.ErrCodePayloadEncodingError:
			outcome = metrics.OutcomePayload
		case errors.ErrCodeCipherError:
			outcome = metrics.OutcomeCipher
		}
	}
	metrics.PreparationOutcomes.WithLabelValues(outcome).Inc()
}

func describeViolations(violations []validation.ErrorMessage) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.FieldID+":"+string(v.RuleType))
	}
	return out
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
