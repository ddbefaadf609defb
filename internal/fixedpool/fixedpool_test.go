// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fixedpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/lambdawrap/internal/try"

	"github.com/stretchr/testify/assert"
)

func TestWait_AllTasksSucceed(t *testing.T) {
	var counter atomic.Int32
	task := func(ctx context.Context) error {
		counter.Add(1)
		return nil
	}

	err := Wait(context.Background(), task, task, task)
	if !assert.Nil(t, err) {
		return
	}
	if !assert.Equal(t, int32(3), counter.Load()) {
		return
	}
}

func TestWait_EmptyTasks(t *testing.T) {
	err := Wait(context.Background())
	if !assert.Nil(t, err) {
		return
	}
}

func TestWait_FailureDoesNotCancelSiblings(t *testing.T) {
	taskErr := errors.New("task error")

	var slowFinished atomic.Bool
	tasks := []Task{
		func(ctx context.Context) error {
			return taskErr
		},
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
			slowFinished.Store(true)
			return nil
		},
	}

	err := Wait(context.Background(), tasks...)
	if !assert.ErrorIs(t, err, taskErr) {
		return
	}
	if !assert.True(t, slowFinished.Load()) {
		return
	}
}

func TestWait_MultipleTasksReturnErrors(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	err := Wait(
		context.Background(),
		func(ctx context.Context) error { return err1 },
		func(ctx context.Context) error { return err2 },
	)
	if !assert.ErrorIs(t, err, err1) {
		return
	}
	if !assert.ErrorIs(t, err, err2) {
		return
	}
}

func TestWait_TaskPanics(t *testing.T) {
	t.Run("with an error value", func(t *testing.T) {
		panicErr := errors.New("panic error")

		err := Wait(context.Background(), func(ctx context.Context) error {
			panic(panicErr)
		})
		if !assert.ErrorIs(t, err, panicErr) {
			return
		}
	})

	t.Run("with a non-error value", func(t *testing.T) {
		err := Wait(context.Background(), func(ctx context.Context) error {
			panic("panic string")
		})

		var perr try.PanicError
		if !assert.ErrorAs(t, err, &perr) {
			return
		}
		if !assert.Equal(t, "panic string", perr.Value) {
			return
		}
	})
}
