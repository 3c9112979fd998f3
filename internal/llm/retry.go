package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Retry wraps next so failed calls are retried up to maxAttempts times with
// exponential backoff from baseDelay. Permanent errors and cancellation stop early.
func Retry(next Summarizer, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) Summarizer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrying{next: next, max: maxAttempts, base: baseDelay, logger: logger}
}

type retrying struct {
	next   Summarizer
	max    int
	base   time.Duration
	logger *zap.Logger
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Complete(ctx context.Context, req Request) (Completion, error) {
	var out Completion
	err := r.do(ctx, req, func() error {
		var err error
		out, err = r.next.Complete(ctx, req)
		return err
	})
	return out, err
}

// Stream retries opening the stream only; chunk errors reach the consumer.
func (r *retrying) Stream(ctx context.Context, req Request) (*Stream, error) {
	var out *Stream
	err := r.do(ctx, req, func() error {
		var err error
		out, err = r.next.Stream(ctx, req)
		return err
	})
	return out, err
}

func (r *retrying) do(ctx context.Context, req Request, call func() error) error {
	var last error
	for i := 0; i < r.max; i++ {
		err := call()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		last = err
		if i+1 == r.max {
			break
		}
		delay := r.base * time.Duration(1<<i)
		r.logger.Debug("retrying provider call",
			zap.String("directory", req.Directory),
			zap.Int("attempt", i+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return last
}
