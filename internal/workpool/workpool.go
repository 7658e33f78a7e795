// Package workpool runs bounded fan-outs whose results keep input order.
package workpool

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Map applies fn to every item with at most limit goroutines and returns
// the results in input order. The first error cancels the remaining work
// and is returned.
func Map[In, Out any](ctx context.Context, limit int, items []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	results := make([]Out, len(items))
	if len(items) == 0 {
		return results, nil
	}

	p := pool.New().WithMaxGoroutines(clamp(limit, len(items))).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			out, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Result is the settled outcome of one item.
type Result[Out any] struct {
	Value Out
	Err   error
}

// Settle applies fn to every item with at most limit goroutines and waits
// for all of them. Failures do not cancel the other items; each outcome is
// reported in input order.
func Settle[In, Out any](ctx context.Context, limit int, items []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(items))
	if len(items) == 0 {
		return results
	}

	p := pool.New().WithMaxGoroutines(clamp(limit, len(items))).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			out, err := fn(ctx, item)
			results[i] = Result[Out]{Value: out, Err: err}
			return nil
		})
	}
	_ = p.Wait()
	return results
}

// Each runs fn for every item with at most limit goroutines. The first
// error cancels the rest and is returned.
func Each[In any](ctx context.Context, limit int, items []In, fn func(context.Context, In) error) error {
	_, err := Map(ctx, limit, items, func(ctx context.Context, item In) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}

func clamp(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}
