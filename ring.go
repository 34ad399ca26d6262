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

// ring keeps the last maxLen per-worker cost samples.
type ring struct {
	data   []int64
	idx    int
	maxLen int
}

func newRing(maxLen int) ring {
	return ring{
		data:   make([]int64, 0, maxLen),
		maxLen: maxLen,
	}
}

func (r *ring) push(v int64) {
	if r.maxLen == 0 {
		return
	}

	// the first round
	if len(r.data) < r.maxLen {
		r.data = append(r.data, v)
		return
	}

	if r.idx >= r.maxLen {
		r.idx = 0
	}
	r.data[r.idx] = v
	r.idx++
}

func (r *ring) avg() int64 {
	if len(r.data) == 0 {
		return 0
	}

	var sum int64
	for _, v := range r.data {
		sum += v
	}
	return sum / int64(len(r.data))
}
