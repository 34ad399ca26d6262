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
	"fmt"

	"github.com/pkg/errors"
)

// ErrResourceExhausted is in the chain of every error returned when the
// guard refuses to create another worker.
var ErrResourceExhausted = errors.New("resource exhausted")

// ExhaustedError describes which resource ran out and when.
type ExhaustedError struct {
	Resource string // "memory" or "threads"
	Created  int    // workers launched before the refusal
	Headroom int64  // bytes or threads still available
	Limit    int64  // minimum headroom needed to continue
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted after %d workers: headroom %d below required %d",
		e.Resource, e.Created, e.Headroom, e.Limit)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrResourceExhausted
}
