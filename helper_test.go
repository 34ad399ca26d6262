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
	"bytes"
	"strings"
	"sync"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// lockedBuffer collects output written by the driver and the workers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Lines() []string {
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// fakeSampler replays samples; the last one repeats once the script is used up.
type fakeSampler struct {
	mu      sync.Mutex
	samples []Sample
	err     error
	calls   int
}

func (p *fakeSampler) Sample() (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.samples) {
		i = len(p.samples) - 1
	}
	p.calls++
	return p.samples[i], p.err
}

func (p *fakeSampler) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func memSample(rss, available int64) Sample {
	s := unknownSample()
	s.RSS = rss
	s.Available = available
	return s
}

type recordingReporter struct {
	mu      sync.Mutex
	results []Result
	err     error
}

func (r *recordingReporter) Report(res *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, *res)
	return r.err
}
