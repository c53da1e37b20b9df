// Package camunda connects to the Zeebe gateway and runs job workers.
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"payment-workers/internal/common/errors"
	"payment-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect dials the gateway and checks the topology, retrying transient
// failures with exponential backoff.
func Connect(ctx context.Context, config *ClientConfig, log logger.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	var client *Client
	err := Retry(ctx, config.RetryConfig, log, "zeebe connection", func(ctx context.Context) error {
		c, err := dial(ctx, config)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func dial(ctx context.Context, config *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, MapZeebeError(err, "topology")
	}

	return &Client{client: zeebeClient, config: config}, nil
}

// Retry runs op until it succeeds, the error is not retryable, the attempts
// are exhausted or ctx is done.
func Retry(ctx context.Context, rc *RetryConfig, log logger.Logger, operation string, op func(context.Context) error) error {
	delay := rc.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == rc.MaxRetries {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying", operation), map[string]interface{}{
			"error":       lastErr.Error(),
			"attempt":     attempt,
			"maxRetries":  rc.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, ctx.Err())
		}

		delay *= 2
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}

	return fmt.Errorf("%s failed: %w", operation, lastErr)
}

func isRetryable(err error) bool {
	if code, ok := errors.CodeOf(err); ok {
		return errors.IsRetryableErrorCode(code)
	}
	return isTransientMessage(err.Error())
}

func isTransientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// MapZeebeError classifies a gateway error into the service error taxonomy.
func MapZeebeError(err error, operation string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	wrapped := fmt.Errorf("zeebe operation '%s' failed: %s", operation, msg)

	switch {
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", wrapped)

	case strings.Contains(lower, "not found"):
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())

	case strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "unauthorized"):
		return errors.NewAuthenticationError(wrapped.Error())

	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
