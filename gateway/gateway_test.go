package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finsight/core"
)

func transientErr() error {
	return &core.TransientServiceError{Service: "llm", Err: assert.AnError}
}

func TestCompleteWithRetry(t *testing.T) {
	ctx := context.Background()
	req := Request{System: "s", Turns: []core.Turn{core.NewUserTurn("hi")}}

	t.Run("succeeds first try", func(t *testing.T) {
		mock := NewMockGateway(MockStep{Completion: &Completion{Text: "done"}})
		comp, err := CompleteWithRetry(ctx, mock, req, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "done", comp.Text)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		mock := NewMockGateway(
			MockStep{Err: transientErr()},
			MockStep{Err: transientErr()},
			MockStep{Completion: &Completion{Text: "third time lucky"}},
		)
		comp, err := CompleteWithRetry(ctx, mock, req, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "third time lucky", comp.Text)
		assert.Equal(t, 3, mock.Calls())
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		mock := NewMockGateway(
			MockStep{Err: transientErr()},
			MockStep{Err: transientErr()},
			MockStep{Err: transientErr()},
		)
		_, err := CompleteWithRetry(ctx, mock, req, 3, time.Millisecond)
		require.Error(t, err)
		assert.True(t, core.IsRetryable(err))
		assert.Equal(t, 3, mock.Calls())
	})

	t.Run("quota errors are never retried", func(t *testing.T) {
		mock := NewMockGateway(MockStep{Err: &core.QuotaExceededError{Service: "llm", Err: assert.AnError}})
		_, err := CompleteWithRetry(ctx, mock, req, 3, time.Millisecond)
		var quota *core.QuotaExceededError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("invalid requests are never retried", func(t *testing.T) {
		mock := NewMockGateway(MockStep{Err: &core.InvalidRequestError{Reason: "bad prompt"}})
		_, err := CompleteWithRetry(ctx, mock, req, 3, time.Millisecond)
		var invalid *core.InvalidRequestError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("cancellation interrupts backoff wait", func(t *testing.T) {
		mock := NewMockGateway(
			MockStep{Err: transientErr()},
			MockStep{Completion: &Completion{Text: "never reached"}},
		)
		cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := CompleteWithRetry(cancelCtx, mock, req, 3, time.Hour)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, 1, mock.Calls())
	})
}

func TestMockGateway(t *testing.T) {
	t.Run("falls back to canned answer when script exhausted", func(t *testing.T) {
		mock := NewMockGateway()
		comp, err := mock.Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "mock answer", comp.Text)
	})

	t.Run("delay honors cancellation", func(t *testing.T) {
		mock := NewMockGateway(MockStep{Delay: time.Hour, Completion: &Completion{Text: "slow"}})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := mock.Complete(ctx, Request{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("records requests in order", func(t *testing.T) {
		mock := NewMockGateway()
		mock.Complete(context.Background(), Request{System: "a"})
		mock.Complete(context.Background(), Request{System: "b"})

		reqs := mock.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "a", reqs[0].System)
		assert.Equal(t, "b", reqs[1].System)
	})
}
