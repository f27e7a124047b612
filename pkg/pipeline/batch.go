package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchLimit is the concurrency used when ExecuteBatch gets a
// non-positive limit.
const DefaultBatchLimit = 4

// BatchOption configures ExecuteBatch.
type BatchOption func(*batchOptions)

type batchOptions struct {
	onResult func(BatchResult)
}

// OnResult registers fn to be called as each item finishes. fn is called
// from the worker goroutines and must be safe for concurrent use.
func OnResult(fn func(BatchResult)) BatchOption {
	return func(o *batchOptions) { o.onResult = fn }
}

// ExecuteBatch runs items concurrently, at most limit at a time. Items are
// independent: a failure is reported in its BatchResult and never cancels
// the others. Results are in item order.
func (p *Pipeline) ExecuteBatch(ctx context.Context, items []BatchItem, limit int, opts ...BatchOption) []BatchResult {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			res, err := p.Execute(ctx, item.Request, item.Provider)
			results[i] = BatchResult{Index: i, Result: res, Err: err}
			if o.onResult != nil {
				o.onResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
