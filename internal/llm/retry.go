package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
)

// maxAttempts bounds the total number of tries per completion, including the
// first one.
const maxAttempts = 3

// completeWithRetry runs fn with bounded exponential backoff. Transient
// failures (rate limiting, timeouts, server errors, connection resets) are
// retried; everything else is permanent and surfaces immediately. All
// failures come back wrapped in ErrModel.
func completeWithRetry(ctx context.Context, fn func() (*CompletionResponse, error)) (*CompletionResponse, error) {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1),
		ctx,
	)

	var resp *CompletionResponse
	op := func() error {
		r, err := fn()
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}
	return resp, nil
}

// isTransient classifies provider errors. Rate limits, timeouts and server
// errors are worth another attempt; auth and malformed requests are not.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return anthErr.StatusCode == 429 || anthErr.StatusCode == 408 || anthErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}
