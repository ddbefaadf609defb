// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fixedpool runs a fixed set of tasks, one goroutine each, and waits for all of them.
package fixedpool

import (
	"context"
	"errors"
	"sync"

	"github.com/z5labs/lambdawrap/internal/try"
)

// Task is a unit of work run on its own goroutine.
type Task func(context.Context) error

// Wait runs every task and blocks until all of them have returned.
// Unlike an errgroup, a failing task never cancels its siblings: every
// task settles and all failures, panics included, are joined together.
func Wait(ctx context.Context, tasks ...Task) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, t Task) {
			defer wg.Done()
			errs[i] = run(ctx, t)
		}(i, task)
	}

	wg.Wait()
	return errors.Join(errs...)
}

func run(ctx context.Context, t Task) (err error) {
	defer try.Recover(&err)
	return t(ctx)
}
