// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across connectors.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-provided Retry-After may stall a fetch.
const maxRetryAfter = 30 * time.Second

const defaultMaxRetries = 3

// Retrier executes HTTP requests and retries on HTTP 429 (Too Many
// Requests) and 503 (Service Unavailable).
type Retrier struct {
	Client     *http.Client
	MaxRetries int
	Logger     logrus.FieldLogger
}

// Do sends req and retries retryable statuses with exponential backoff
// starting at RetryBaseDelay. A Retry-After header in seconds overrides the
// computed backoff, capped at 30s.
//
// When MaxRetries is 0 the default (3) is used. Each retryable response body
// is drained and closed before sleeping. If the context is cancelled during a
// backoff wait Do returns ctx.Err(). After exhausting retries the last
// response is returned so the caller can inspect it. Requests with a body
// must set GetBody so the body can be replayed.
func (r *Retrier) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replaying request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := backoffFor(attempt, resp.Header.Get("Retry-After"))
		if r.Logger != nil {
			r.Logger.WithFields(logrus.Fields{
				"status":  resp.StatusCode,
				"host":    req.URL.Host,
				"attempt": attempt + 1,
				"backoff": backoff.String(),
			}).Warn("upstream throttled, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

func backoffFor(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	return RetryBaseDelay << attempt
}
