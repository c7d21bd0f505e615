package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// StatusError is returned by HTTP backends for non-2xx replies
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.Code)
}

// complete calls the backend, pacing each attempt and retrying transient
// failures until the context expires or the retry budget is spent
func (d *Detector) complete(ctx context.Context, p Prompt) (string, error) {
	operation := func() (string, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		out, err := d.backend.Complete(ctx, p)
		if err != nil && !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.opts.Retries)), ctx)
	notify := func(err error, wait time.Duration) {
		log.Printf("detect: provider=%s transient error, retrying in %v: %v", d.backend.Name(), wait, err)
	}

	return backoff.RetryNotifyWithData(operation, policy, notify)
}

// IsTransient reports whether err is a provider error worth retrying
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return shouldRetry(statusCode(err))
}

func shouldRetry(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// statusCode digs the HTTP status out of the provider SDK error types
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.Code
	}
	return 0
}
