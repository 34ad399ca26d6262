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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(sampler Probe, mode WorkerMode) *guard {
	opts := newGuardOptions()
	opts.ProbeEvery = 10
	opts.MemoryReserve = 1000
	opts.ThreadReserve = 2
	return newGuard(opts, mode, sampler, nopLogger{})
}

func TestGuardSamplesOnInterval(t *testing.T) {
	sampler := &fakeSampler{samples: []Sample{memSample(0, 1<<20)}}
	g := newTestGuard(sampler, ModeGoroutine)

	for i := 0; i < 25; i++ {
		require.NoError(t, g.admit(i, int64(i)))
	}
	// 0, 10 and 20
	assert.Equal(t, 3, sampler.Calls())
}

func TestGuardEstimatesWorkerCost(t *testing.T) {
	sampler := &fakeSampler{samples: []Sample{
		memSample(0, 100000),
		memSample(1000, 100000), // 100 bytes per worker, need 100*10+1000
		memSample(2000, 1999),   // below 2000
	}}
	g := newTestGuard(sampler, ModeGoroutine)

	require.NoError(t, g.admit(0, 0))
	require.NoError(t, g.admit(10, 10))
	assert.Equal(t, int64(100), g.costs.avg())

	err := g.admit(20, 20)
	require.Error(t, err)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, &ExhaustedError{
		Resource: resourceMemory,
		Created:  20,
		Headroom: 1999,
		Limit:    2000,
	}, exhausted)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
}

func TestGuardIgnoresShrinkingRSS(t *testing.T) {
	sampler := &fakeSampler{samples: []Sample{
		memSample(5000, 100000),
		memSample(1000, 100000),
	}}
	g := newTestGuard(sampler, ModeGoroutine)

	require.NoError(t, g.admit(0, 0))
	require.NoError(t, g.admit(10, 10))
	assert.Equal(t, int64(0), g.costs.avg())
}

func TestGuardThreadCeiling(t *testing.T) {
	g := newTestGuard(&fakeSampler{samples: []Sample{memSample(0, 1<<30)}}, ModeThread)
	g.baseThreads = 10
	g.threadCeiling = 20

	// 10 + live + 2 must stay below 20
	for live := int64(0); live < 8; live++ {
		require.NoError(t, g.admit(int(live), live), "live %d", live)
	}

	err := g.admit(8, 8)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, resourceThreads, exhausted.Resource)
	assert.Equal(t, int64(2), exhausted.Headroom)
	assert.Equal(t, 8, exhausted.Created)
}

func TestGuardCountsWorkersNotYetPinned(t *testing.T) {
	// launched workers have not locked their threads yet, so every sample
	// keeps reporting the threads of an idle process
	s := memSample(0, 1<<30)
	s.Threads = 10
	sampler := &fakeSampler{samples: []Sample{s}}
	g := newTestGuard(sampler, ModeThread)
	g.prepare()
	assert.Equal(t, int64(10), g.baseThreads)
	g.threadCeiling = 50

	var err error
	live := int64(0)
	for ; live < 200; live++ {
		if err = g.admit(int(live), live); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	// 10 + 38 + 2 reaches the ceiling
	assert.Equal(t, int64(38), live)
}

func TestGuardBaseThreadsFallback(t *testing.T) {
	g := newTestGuard(&fakeSampler{samples: []Sample{unknownSample()}}, ModeThread)
	g.prepare()
	assert.Greater(t, g.baseThreads, int64(0))

	g = newTestGuard(&fakeSampler{samples: []Sample{memSample(0, 1<<30)}}, ModeGoroutine)
	g.prepare()
	assert.Equal(t, int64(-1), g.baseThreads)
}

func TestGuardGoroutineModeSkipsThreads(t *testing.T) {
	s := memSample(0, 1<<30)
	s.Threads = 100
	g := newTestGuard(&fakeSampler{samples: []Sample{s}}, ModeGoroutine)
	g.threadCeiling = 20

	for i := 0; i < 50; i++ {
		require.NoError(t, g.admit(i, int64(i)))
	}
}

func TestGuardPrepareResets(t *testing.T) {
	g := newTestGuard(&fakeSampler{samples: []Sample{memSample(0, 1<<30)}}, ModeGoroutine)
	g.costs.push(42)
	g.lastRSS = 7

	g.prepare()
	assert.Equal(t, int64(0), g.costs.avg())
	assert.Equal(t, int64(-1), g.lastRSS)
	assert.Greater(t, g.threadCeiling, int64(0))
}

func TestGuardFreeMemory(t *testing.T) {
	g := newTestGuard(&fakeSampler{samples: []Sample{memSample(0, 12345)}}, ModeGoroutine)
	assert.Equal(t, int64(12345), g.freeMemory())

	// falls back to the runtime heap when nothing is known
	g = newTestGuard(&fakeSampler{samples: []Sample{unknownSample()}}, ModeGoroutine)
	assert.GreaterOrEqual(t, g.freeMemory(), int64(0))
}
