package genai

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request attempt.
const DefaultTimeout = 300 * time.Second

// RequestContext describes one logical call for diagnostics. It is attached
// to AuthorizationError and BackendError.
type RequestContext struct {
	ID      string
	Adapter string
	Task    Task
	Params  Params
	Prompt  string
}

// Dispatcher performs a backend call with a single best-effort retry.
//
// Any failure of the first attempt is logged with full context and the call
// is re-issued exactly once, without backoff and regardless of error class.
type Dispatcher struct {
	Adapter string
	Logger  zerolog.Logger
	Metrics *Metrics
	Timeout time.Duration
}

func (d *Dispatcher) newRequest(task Task, params Params, prompt string) RequestContext {
	return RequestContext{
		ID:      uuid.New().String(),
		Adapter: d.Adapter,
		Task:    task,
		Params:  params,
		Prompt:  prompt,
	}
}

// dispatch runs call, retrying once on failure. The returned error is always
// an *AuthorizationError or *BackendError wrapping the second failure.
func dispatch[T any](ctx context.Context, d *Dispatcher, rc RequestContext, call func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	result, err := attempt(ctx, d, rc, call)
	if err == nil {
		d.Metrics.observe(d.Adapter, "ok", time.Since(start))
		return result, nil
	}

	d.Logger.Error().
		Err(err).
		Str("request_id", rc.ID).
		Str("adapter", rc.Adapter).
		Str("task", string(rc.Task)).
		Interface("params", rc.Params).
		Str("prompt", rc.Prompt).
		Msg("backend call failed, retrying once")
	d.Metrics.retry(d.Adapter)

	result, err = attempt(ctx, d, rc, call)
	if err == nil {
		d.Logger.Info().Str("request_id", rc.ID).Str("adapter", rc.Adapter).Msg("retry succeeded")
		d.Metrics.observe(d.Adapter, "retried_ok", time.Since(start))
		return result, nil
	}

	final := classifyFailure(rc, err)
	outcome := "backend_error"
	if IsAuthorization(final) {
		outcome = "unauthorized"
	}
	d.Metrics.observe(d.Adapter, outcome, time.Since(start))
	var zero T
	return zero, final
}

func attempt[T any](ctx context.Context, d *Dispatcher, rc RequestContext, call func(ctx context.Context) (T, error)) (T, error) {
	d.Metrics.attempt(d.Adapter, rc.Task)
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return call(ctx)
}
