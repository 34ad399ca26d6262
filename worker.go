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
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// spawn launches worker id without waiting for it.
func (e *Exhauster) spawn(ctx context.Context, id int) {
	atomic.AddInt64(&e.live, 1)
	e.wg.Add(1)
	go e.work(ctx, id)
}

// work sleeps for the configured duration. Only an interruption is logged.
func (e *Exhauster) work(ctx context.Context, id int) {
	defer e.wg.Done()
	defer atomic.AddInt64(&e.live, -1)

	if e.opts.Mode == ModeThread {
		// never unlocked: the thread is terminated together with the goroutine
		runtime.LockOSThread()
	}

	timer := time.NewTimer(e.opts.Sleep)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		e.logf("Interrupted worker-%d", id)
	}
}

// Live returns the number of workers still sleeping.
func (e *Exhauster) Live() int64 {
	return atomic.LoadInt64(&e.live)
}
