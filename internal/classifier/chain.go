package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/platform/logger"
)

// ErrNoProviderAvailable is returned when every provider in the chain failed.
var ErrNoProviderAvailable = errors.New("no classification provider available")

const defaultProviderTimeout = 30 * time.Second

// Chain tries each provider in order and returns the first successful,
// normalized result.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	log       *logger.Logger
}

// NewChain creates a classification chain. Providers are tried in the
// given order; timeout bounds each individual provider call.
func NewChain(providers []Provider, timeout time.Duration, log *logger.Logger) *Chain {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Chain{providers: providers, timeout: timeout, log: log}
}

// Classify runs the payload through the chain. On success the result is
// normalized and stamped with the answering provider's name and the
// triggering message text. If all providers fail, the returned error wraps
// ErrNoProviderAvailable and aggregates every provider error.
func (c *Chain) Classify(ctx context.Context, payload Payload) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, fmt.Errorf("%w: chain is empty", ErrNoProviderAvailable)
	}

	failures := make([]string, 0, len(c.providers))
	for _, provider := range c.providers {
		res, err := c.classifyWith(ctx, provider, payload)
		if err != nil {
			if c.log != nil {
				c.log.Warn("classification provider failed",
					"provider", provider.Name(), "error", err)
			}
			failures = append(failures, provider.Name()+": "+err.Error())
			continue
		}

		res = Normalize(res)
		res.Provider = provider.Name()
		if res.Details == nil {
			res.Details = make(map[string]string, 2)
		}
		res.Details["provider"] = provider.Name()
		res.Details["message"] = payload.MessageText
		return res, nil
	}

	return Result{}, fmt.Errorf("%w: %s", ErrNoProviderAvailable, strings.Join(failures, "; "))
}

func (c *Chain) classifyWith(ctx context.Context, provider Provider, payload Payload) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return provider.Classify(callCtx, payload)
}
