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

package main

import (
	"context"
	"os"
	"time"

	"mosn.io/exhauster"
)

// Pins one OS thread per worker and stops well before the Go runtime
// aborts with "thread exhaustion".
func main() {
	e, err := exhauster.New(
		exhauster.WithSleep("30s"),
		exhauster.WithWorkerMode(exhauster.ModeThread),
		exhauster.WithMaxOSThreads(2000),
		exhauster.WithProgressEvery(500),
	)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, _ := e.Run(ctx, 5000)
	e.Hold(ctx) // nolint: errcheck
	os.Exit(res.ExitCode())
}
