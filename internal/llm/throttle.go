package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledClient spaces calls to the wrapped client at least interval apart.
type ThrottledClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// Throttle wraps c so calls are spaced by interval. A non-positive interval
// returns c unchanged.
func Throttle(c LLMClient, interval time.Duration) LLMClient {
	if interval <= 0 {
		return c
	}
	return &ThrottledClient{
		inner:   c,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (t *ThrottledClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.inner.Generate(ctx, req)
}
