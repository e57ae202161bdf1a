// The MIT License (MIT)

// Copyright (c) 2017-2020 Uber Technologies Inc.

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrQueueClosed is returned when submitting to a queue that has been shut down.
var ErrQueueClosed = errors.New("event queue has already shutdown")

type (
	// Callback is a unit of work run by a Queue or an AsyncLoop.
	Callback interface {
		Execute(ctx context.Context) error
	}

	// CallbackFunc adapts a function to Callback.
	CallbackFunc func(ctx context.Context) error

	// Intervaler is implemented by callbacks that decide how long an AsyncLoop
	// sleeps between two runs.
	Intervaler interface {
		Interval() time.Duration
	}

	// KillFunc reacts to a failure that the owning daemon cannot recover from.
	KillFunc func(err error)

	// PanicError wraps a value recovered from a panicking callback.
	PanicError struct {
		Value any
		Stack []byte
	}
)

// Execute calls f.
func (f CallbackFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// safeExecute runs cb, converting a panic into a *PanicError.
func safeExecute(ctx context.Context, cb Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return cb.Execute(ctx)
}
