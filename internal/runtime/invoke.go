package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/agentloom/loom/pkg/domain"
)

// invokeResult is what one bounded invocation attempt produced.
type invokeResult struct {
	env *domain.Envelope
	err error
}

// invoke calls fn with the node's effective timeout and retry policy. The
// backoff between attempts is a fixed interval, not exponential. The last
// envelope (or invocation error) is returned after the final attempt; a
// non-nil error means the invocation layer itself failed or the run context
// expired.
func (r *run) invoke(ctx context.Context, timeout time.Duration, retry *domain.RetryPolicy, fn func(context.Context) (*domain.Envelope, error)) (*domain.Envelope, error) {
	attempts := 1
	var backoff time.Duration
	if retry != nil {
		if retry.MaxAttempts > attempts {
			attempts = retry.MaxAttempts
		}
		backoff = retry.Backoff
	}

	var last invokeResult
	for attempt := 1; attempt <= attempts; attempt++ {
		env, err := r.invokeOnce(ctx, timeout, fn)
		if err == nil && !env.Failed() {
			return env, nil
		}
		if ctx.Err() != nil {
			// The run-level deadline expired; no point retrying.
			return nil, ctx.Err()
		}
		last = invokeResult{env: env, err: err}
		if attempt < attempts && backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return last.env, last.err
}

// invokeOnce bounds a single call with the node timeout. Exceeding the node
// timeout yields a failed envelope with a "timeout" error kind, which flows
// through retry and error policy like any other failure; an expired run
// context surfaces as an error instead.
func (r *run) invokeOnce(ctx context.Context, timeout time.Duration, fn func(context.Context) (*domain.Envelope, error)) (*domain.Envelope, error) {
	cctx := ctx
	cancel := func() {}
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan invokeResult, 1)
	go func() {
		env, err := fn(cctx)
		done <- invokeResult{env: env, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && res.env == nil {
			return nil, fmt.Errorf("invocation returned neither envelope nor error")
		}
		return res.env, res.err
	case <-cctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &domain.Envelope{Error: &domain.InvokeError{
			Type:    "timeout",
			Message: fmt.Sprintf("invocation exceeded %s", timeout),
		}}, nil
	}
}

// resolveRetry picks the effective retry policy: node, then tool handle,
// then meta defaults.
func (r *run) resolveRetry(nodeRetry, handleRetry *domain.RetryPolicy) *domain.RetryPolicy {
	if nodeRetry != nil {
		return nodeRetry
	}
	if handleRetry != nil {
		return handleRetry
	}
	return r.rt.Defaults.Retry
}

// resolveTimeout picks the effective per-invocation timeout with the same
// precedence as resolveRetry.
func (r *run) resolveTimeout(nodeTimeout, handleTimeout time.Duration) time.Duration {
	if nodeTimeout > 0 {
		return nodeTimeout
	}
	if handleTimeout > 0 {
		return handleTimeout
	}
	return r.rt.Defaults.Timeout
}
