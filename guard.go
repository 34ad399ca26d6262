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
	"runtime"
	"runtime/debug"
	"runtime/pprof"

	"github.com/pkg/errors"
)

// guard decides whether one more worker can be created. Running out of
// memory or OS threads is fatal for a Go process, so the guard refuses
// before the runtime would fail and the refusal becomes a regular error.
type guard struct {
	opts   *guardOptions
	mode   WorkerMode
	probe  Probe
	logger Logger

	costs ring // bytes per worker, measured between probes

	lastRSS     int64
	lastSpawned int

	// threads in use before the first worker, thread mode only
	baseThreads   int64
	threadCeiling int64
}

func newGuard(opts *guardOptions, mode WorkerMode, probe Probe, logger Logger) *guard {
	return &guard{
		opts:          opts,
		mode:          mode,
		probe:         probe,
		logger:        logger,
		costs:         newRing(defaultCostSamples),
		lastRSS:       -1,
		baseThreads:   -1,
		threadCeiling: -1,
	}
}

// prepare applies the runtime limits and resets the measurements of a
// previous run.
func (g *guard) prepare() {
	g.costs = newRing(defaultCostSamples)
	g.lastRSS, g.lastSpawned, g.baseThreads = -1, 0, -1

	if g.opts.MemoryLimit > 0 {
		debug.SetMemoryLimit(g.opts.MemoryLimit)
	}

	var maxThreads int
	if g.opts.MaxOSThreads > 0 {
		debug.SetMaxThreads(g.opts.MaxOSThreads)
		maxThreads = g.opts.MaxOSThreads
	} else {
		// the runtime only reports its limit when setting a new one
		maxThreads = debug.SetMaxThreads(1 << 20)
		debug.SetMaxThreads(maxThreads)
	}

	g.threadCeiling = int64(maxThreads)
	if nproc, ok := threadRlimit(); ok && nproc < g.threadCeiling {
		g.threadCeiling = nproc
	}
	if g.mode == ModeThread {
		g.baseThreads = g.sampleThreads()
	}
	g.logger.Debugf("[exhauster] thread ceiling %d, base threads %d, memory reserve %d, probe every %d workers",
		g.threadCeiling, g.baseThreads, g.opts.MemoryReserve, g.opts.ProbeEvery)
}

// sampleThreads returns the OS threads of the process, falling back to the
// threads the runtime has created so far.
func (g *guard) sampleThreads() int64 {
	s, err := g.probe.Sample()
	if err != nil {
		g.logger.Debugf("[exhauster] partial sample for base threads: %v", err)
	}
	if s.Threads > 0 {
		return int64(s.Threads)
	}
	return int64(pprof.Lookup("threadcreate").Count())
}

// admit is called before the worker with index spawned is created.
func (g *guard) admit(spawned int, live int64) error {
	if spawned%g.opts.ProbeEvery == 0 {
		if err := g.checkMemory(spawned); err != nil {
			return err
		}
	}

	if g.mode == ModeThread {
		return g.checkThreads(spawned, live)
	}
	return nil
}

func (g *guard) checkMemory(spawned int) error {
	s, err := g.probe.Sample()
	if err != nil {
		g.logger.Debugf("[exhauster] partial sample at %d workers: %v", spawned, err)
	}

	if s.RSS >= 0 && g.lastRSS >= 0 && spawned > g.lastSpawned {
		cost := (s.RSS - g.lastRSS) / int64(spawned-g.lastSpawned)
		if cost < 0 {
			// the GC returned memory in between
			cost = 0
		}
		g.costs.push(cost)
	}
	g.lastRSS, g.lastSpawned = s.RSS, spawned

	headroom, ok := s.Headroom()
	if !ok {
		return nil
	}

	need := g.costs.avg()*int64(g.opts.ProbeEvery) + g.opts.MemoryReserve
	g.logger.Debugf("[exhauster] workers %d, rss %d, threads %d, headroom %d, need %d",
		spawned, s.RSS, s.Threads, headroom, need)
	if headroom < need {
		return errors.WithStack(&ExhaustedError{
			Resource: resourceMemory,
			Created:  spawned,
			Headroom: headroom,
			Limit:    need,
		})
	}
	return nil
}

func (g *guard) checkThreads(spawned int, live int64) error {
	if g.threadCeiling <= 0 {
		return nil
	}

	// a launched worker pins its thread once it gets scheduled, which a
	// sample taken right after the launch does not see yet
	base := g.baseThreads
	if base < 0 {
		base = int64(runtime.GOMAXPROCS(0))
	}
	threads := base + live

	headroom := g.threadCeiling - threads
	if headroom <= int64(g.opts.ThreadReserve) {
		return errors.WithStack(&ExhaustedError{
			Resource: resourceThreads,
			Created:  spawned,
			Headroom: headroom,
			Limit:    int64(g.opts.ThreadReserve) + 1,
		})
	}
	return nil
}

// freeMemory is a best-effort figure for the final report. Memory may have
// been reclaimed since the refusal, so it is for display only.
func (g *guard) freeMemory() int64 {
	s, err := g.probe.Sample()
	if err != nil {
		g.logger.Debugf("[exhauster] partial sample for free memory: %v", err)
	}
	if headroom, ok := s.Headroom(); ok {
		return headroom
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapIdle - ms.HeapReleased)
}
