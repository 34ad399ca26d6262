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

import "time"

// OutcomeReporter receives the result of every run that created workers.
type OutcomeReporter interface {
	Report(r *Result) error
}

type Outcome uint8

const (
	// OutcomeSkipped means maxThreads was not positive, nothing ran.
	OutcomeSkipped Outcome = iota
	// OutcomeCompleted means every requested worker was created.
	OutcomeCompleted
	// OutcomeExhausted means the guard refused a worker.
	OutcomeExhausted
	// OutcomeInterrupted means the run context was cancelled.
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCompleted:
		return "completed"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Result is the outcome of one Run.
type Result struct {
	RunID     string
	Outcome   Outcome
	Mode      WorkerMode
	Requested int
	Created   int
	// FreeMemory is only set on exhaustion and is approximate.
	FreeMemory int64
	Reason     string
	Started    time.Time
	Finished   time.Time
}

// ExitCode maps the outcome to a process exit status.
func (r *Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeSkipped, OutcomeCompleted:
		return 0
	case OutcomeExhausted:
		return ExitCodeExhausted
	}
	return 1
}
