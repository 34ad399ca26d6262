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
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxThreads is the number of workers attempted when none is given.
	DefaultMaxThreads = 100000
	// ExitCodeExhausted is the process status reported after resource exhaustion.
	ExitCodeExhausted = 100

	defaultSleep         = 60 * time.Second
	defaultProgressEvery = 100
	defaultProbeEvery    = 100
	defaultMemoryReserve = 64 << 20 // 64MB
	defaultThreadReserve = 64       // threads kept for the runtime itself
	defaultCostSamples   = 10       // probes averaged for the per-worker cost

	// interrupted workers get this long to log before Hold gives up
	holdGrace = time.Second

	timestampLayout = "2006-01-02 15:04:05.000"
)

// WorkerMode selects how a worker occupies resources while it sleeps.
type WorkerMode int

const (
	// ModeGoroutine parks a goroutine on a timer.
	ModeGoroutine WorkerMode = iota
	// ModeThread additionally pins one OS thread per worker.
	ModeThread
)

var mode2name = map[WorkerMode]string{
	ModeGoroutine: "goroutine",
	ModeThread:    "thread",
}

func (m WorkerMode) String() string {
	if name, ok := mode2name[m]; ok {
		return name
	}
	return "unknown"
}

// ParseWorkerMode converts "goroutine" or "thread" to a WorkerMode.
func ParseWorkerMode(name string) (WorkerMode, error) {
	for mode, n := range mode2name {
		if n == name {
			return mode, nil
		}
	}
	return ModeGoroutine, errors.Errorf("unknown worker mode %q", name)
}

const (
	resourceMemory  = "memory"
	resourceThreads = "threads"
)
