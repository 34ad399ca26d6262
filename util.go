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
	"runtime/pprof"
	"strings"
)

// only reserve the top 10
func trimResult(buffer bytes.Buffer) string {
	arr := strings.Split(buffer.String(), "\n\n")
	if len(arr) > 10 {
		arr = arr[:10]
	}
	return strings.Join(arr, "\n\n")
}

// goroutineDump renders the goroutine profile grouped by stack.
func goroutineDump(full bool) string {
	var buf bytes.Buffer
	pprof.Lookup("goroutine").WriteTo(&buf, 1) // nolint: errcheck
	if full {
		return buf.String()
	}
	return trimResult(buf)
}
