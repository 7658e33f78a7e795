// Package retry repeats store operations that fail with recoverable errors,
// most often optimistic concurrency conflicts.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Task runs one attempt.
type Task func(ctx context.Context) error

// Recover inspects a failed attempt. It returns the task for the next
// attempt, or an error to stop retrying.
type Recover func(ctx context.Context, err error) (Task, error)

// Repeater runs a task up to Attempts times.
type Repeater struct {
	Attempts int           // Total attempts, including the first
	Delay    time.Duration // Pause before the second attempt
	Backoff  float64       // Delay multiplier per attempt; values below 1 keep the delay constant
}

// New returns a repeater with the default delay.
func New(attempts int) Repeater {
	return Repeater{Attempts: attempts, Delay: constants.RetryDelay, Backoff: 1}
}

// Execute runs task. After each failure rec decides whether and how to
// retry. The last error is returned once attempts are exhausted.
func (r Repeater) Execute(ctx context.Context, task Task, rec Recover) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if werr := r.wait(ctx, attempt); werr != nil {
				return werr
			}
		}

		if err = task(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 || rec == nil {
			break
		}

		next, rerr := rec(ctx, err)
		if rerr != nil {
			return rerr
		}
		if next != nil {
			task = next
		}
	}
	if attempts > 1 {
		return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}
	return err
}

func (r Repeater) wait(ctx context.Context, attempt int) error {
	delay := r.Delay
	if r.Backoff > 1 {
		delay = time.Duration(float64(r.Delay) * math.Pow(r.Backoff, float64(attempt-1)))
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ConflictOnly retries version conflicts with the task built by refetch.
// Any other error stops the repeater.
func ConflictOnly(refetch func(ctx context.Context) (Task, error)) Recover {
	return func(ctx context.Context, err error) (Task, error) {
		if !errors.IsConflict(err) {
			return nil, err
		}
		return refetch(ctx)
	}
}

// ProductUpdater applies an update request to one product.
type ProductUpdater interface {
	Update(ctx context.Context, id string, req catalog.UpdateRequest) (*catalog.Product, error)
}

// UpdateInBatches sends req in sequential requests of at most maxActions
// actions. Each request uses the version returned by the previous one and
// the product returned by the last request is the result.
func UpdateInBatches(ctx context.Context, updater ProductUpdater, id string, req catalog.UpdateRequest, maxActions int) (*catalog.Product, error) {
	if maxActions <= 0 {
		maxActions = constants.MaxUpdateActions
	}
	if len(req.Actions) == 0 {
		return nil, errors.NewValidationError("actions", 0, "update request without actions")
	}

	version := req.Version
	var last *catalog.Product
	for start := 0; start < len(req.Actions); start += maxActions {
		end := min(start+maxActions, len(req.Actions))
		out, err := updater.Update(ctx, id, catalog.UpdateRequest{
			Version: version,
			Actions: req.Actions[start:end],
		})
		if err != nil {
			return nil, err
		}
		last = out
		version = out.Version
	}
	return last, nil
}
