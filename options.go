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

package exhauster

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

type options struct {
	Output        io.Writer // timestamped progress lines, default os.Stderr
	Logger        Logger    // internal diagnostics, default NewStdLogger()
	Sleep         time.Duration
	ProgressEvery int        // log a progress line every N workers
	Mode          WorkerMode // default ModeGoroutine
	DumpFullStack bool       // only dump top 10 goroutine groups if set to false
	Reporter      OutcomeReporter

	GuardOpts *guardOptions
}

type Option interface {
	apply(*options) error
}

type optionFunc func(*options) error

func (f optionFunc) apply(opts *options) error {
	return f(opts)
}

func newOptions() *options {
	return &options{
		Output:        os.Stderr,
		Sleep:         defaultSleep,
		ProgressEvery: defaultProgressEvery,
		Mode:          ModeGoroutine,
		GuardOpts:     newGuardOptions(),
	}
}

func WithOutput(w io.Writer) Option {
	return optionFunc(func(opts *options) (err error) {
		if w == nil {
			return errors.New("output writer is nil")
		}
		opts.Output = w
		return
	})
}

func WithLogger(logger Logger) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.Logger = logger
		return
	})
}

// sleep must be valid time duration string,
// eg. "ns", "us" (or "µs"), "ms", "s", "m", "h".
func WithSleep(sleep string) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.Sleep, err = time.ParseDuration(sleep)
		if err == nil && opts.Sleep <= 0 {
			err = errors.Errorf("sleep must be positive, got %s", sleep)
		}
		return
	})
}

func WithProgressEvery(n int) Option {
	return optionFunc(func(opts *options) (err error) {
		if n <= 0 {
			return errors.Errorf("progress interval must be positive, got %d", n)
		}
		opts.ProgressEvery = n
		return
	})
}

func WithWorkerMode(mode WorkerMode) Option {
	return optionFunc(func(opts *options) (err error) {
		if _, ok := mode2name[mode]; !ok {
			return errors.Errorf("unknown worker mode %d", mode)
		}
		opts.Mode = mode
		return
	})
}

func WithFullStack(isFull bool) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.DumpFullStack = isFull
		return
	})
}

func WithReporter(r OutcomeReporter) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.Reporter = r
		return
	})
}

type guardOptions struct {
	// refuse a new worker when one of the following is matched
	//   1. memory headroom - avg worker cost * ProbeEvery < MemoryReserve
	//   2. (thread mode) threads + ThreadReserve >= thread ceiling
	ProbeEvery    int   // sample resources every N workers
	MemoryReserve int64 // bytes
	ThreadReserve int

	MaxOSThreads int   // passed to debug.SetMaxThreads, 0 keeps the runtime value
	MemoryLimit  int64 // passed to debug.SetMemoryLimit, 0 keeps the runtime value
	UseCGroup    bool  // read the memory limit of the enclosing cgroup
	Probe        Probe // nil means the process probe
}

func newGuardOptions() *guardOptions {
	return &guardOptions{
		ProbeEvery:    defaultProbeEvery,
		MemoryReserve: defaultMemoryReserve,
		ThreadReserve: defaultThreadReserve,
		UseCGroup:     true,
	}
}

func WithProbeEvery(n int) Option {
	return optionFunc(func(opts *options) (err error) {
		if n <= 0 {
			return errors.Errorf("probe interval must be positive, got %d", n)
		}
		opts.GuardOpts.ProbeEvery = n
		return
	})
}

func WithMemoryReserve(bytes int64) Option {
	return optionFunc(func(opts *options) (err error) {
		if bytes < 0 {
			return errors.Errorf("memory reserve must not be negative, got %d", bytes)
		}
		opts.GuardOpts.MemoryReserve = bytes
		return
	})
}

func WithThreadReserve(n int) Option {
	return optionFunc(func(opts *options) (err error) {
		if n < 0 {
			return errors.Errorf("thread reserve must not be negative, got %d", n)
		}
		opts.GuardOpts.ThreadReserve = n
		return
	})
}

// WithMaxOSThreads changes the process wide limit of the Go runtime.
func WithMaxOSThreads(n int) Option {
	return optionFunc(func(opts *options) (err error) {
		if n < 0 {
			return errors.Errorf("max os threads must not be negative, got %d", n)
		}
		opts.GuardOpts.MaxOSThreads = n
		return
	})
}

// WithMemoryLimit sets the soft memory limit of the Go runtime.
func WithMemoryLimit(bytes int64) Option {
	return optionFunc(func(opts *options) (err error) {
		if bytes < 0 {
			return errors.Errorf("memory limit must not be negative, got %d", bytes)
		}
		opts.GuardOpts.MemoryLimit = bytes
		return
	})
}

func WithCGroup(useCGroup bool) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.GuardOpts.UseCGroup = useCGroup
		return
	})
}

func WithProbe(p Probe) Option {
	return optionFunc(func(opts *options) (err error) {
		opts.GuardOpts.Probe = p
		return
	})
}
