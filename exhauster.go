/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package exhauster reproduces resource exhaustion on purpose: it creates
// sleeping workers until either the requested count is reached or the
// process is about to run out of memory or OS threads, and reports which
// of the two happened.
package exhauster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Exhauster drives the worker creation loop.
type Exhauster struct {
	opts  *options
	guard *guard

	outMu sync.Mutex // serializes writes to opts.Output

	live int64
	wg   sync.WaitGroup
}

// New creates an Exhauster. Without options it behaves like the command
// line default: 60s sleepers, a progress line every 100 workers, output
// on stderr.
func New(opts ...Option) (*Exhauster, error) {
	e := &Exhauster{opts: newOptions()}
	for _, opt := range opts {
		if err := opt.apply(e.opts); err != nil {
			return nil, err
		}
	}
	if e.opts.Logger == nil {
		e.opts.Logger = NewStdLogger()
	}

	probe := e.opts.GuardOpts.Probe
	if probe == nil {
		p, err := newProcessProbe(e.opts.GuardOpts.UseCGroup, e.opts.Logger)
		if err != nil {
			return nil, err
		}
		probe = p
	}
	e.guard = newGuard(e.opts.GuardOpts, e.opts.Mode, probe, e.opts.Logger)
	return e, nil
}

// Run tries to create maxThreads workers. A non-positive maxThreads does
// nothing. When the guard refuses a worker the returned error wraps
// ErrResourceExhausted and the result outcome is OutcomeExhausted.
func (e *Exhauster) Run(ctx context.Context, maxThreads int) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		Mode:      e.opts.Mode,
		Requested: maxThreads,
		Started:   time.Now(),
	}
	if maxThreads <= 0 {
		res.Outcome = OutcomeSkipped
		res.Finished = res.Started
		return res, nil
	}

	e.guard.prepare()
	e.logf("Starting test with max threads=%d ...", maxThreads)

	err := e.exhaust(ctx, maxThreads, res)
	switch {
	case err == nil:
		res.Outcome = OutcomeCompleted
		e.logf("Finished creating %d threads", res.Created)
	case errors.Is(err, ErrResourceExhausted):
		res.Outcome = OutcomeExhausted
		res.Reason = err.Error()
		e.writeString(fmt.Sprintf("%+v\n", err))
		e.writeString(goroutineDump(e.opts.DumpFullStack) + "\n")
		res.FreeMemory = e.guard.freeMemory()
		e.logf("Completed test. (Free Mem: %d)", res.FreeMemory)
	default:
		res.Outcome = OutcomeInterrupted
		res.Reason = err.Error()
	}
	res.Finished = time.Now()

	e.report(res)
	return res, err
}

func (e *Exhauster) exhaust(ctx context.Context, maxThreads int, res *Result) error {
	for i := 0; i < maxThreads; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "interrupted after %d workers", i)
		}
		if i%e.opts.ProgressEvery == 0 {
			e.logf("Creating thread %d", i)
		}
		if err := e.guard.admit(i, e.Live()); err != nil {
			return err
		}
		e.spawn(ctx, i)
		res.Created++
	}
	return nil
}

func (e *Exhauster) report(res *Result) {
	if e.opts.Reporter == nil {
		return
	}
	if err := e.opts.Reporter.Report(res); err != nil {
		// the diagnostic logger writes asynchronously and the CLI may exit
		// right after Run returns
		e.logf("Report of run %s failed: %v", res.RunID, err)
	}
}

// Hold blocks until every worker finished sleeping. Once ctx is done it
// waits a short grace period for interrupted workers to log, then returns
// ctx.Err().
func (e *Exhauster) Hold(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	select {
	case <-done:
	case <-time.After(holdGrace):
		e.debugf("[exhauster] %d workers still live after grace period", e.Live())
	}
	return ctx.Err()
}
