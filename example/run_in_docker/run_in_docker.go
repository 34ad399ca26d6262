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
	"fmt"
	"net/http"
	"strconv"
	"time"

	mlog "mosn.io/pkg/log"

	"mosn.io/exhauster"
)

// Run inside a memory limited container, e.g.
//
//	docker run -m 256m ...
//
// then curl localhost:10003/docker?n=1000000 and watch the cgroup limit stop it.
func main() {
	http.HandleFunc("/docker", exhaust)
	if err := http.ListenAndServe(":10003", nil); err != nil {
		fmt.Println(err)
	}
}

func exhaust(wr http.ResponseWriter, req *http.Request) {
	n, err := strconv.Atoi(req.URL.Query().Get("n"))
	if err != nil {
		n = exhauster.DefaultMaxThreads
	}

	e, err := exhauster.New(
		exhauster.WithSleep("5m"),
		exhauster.WithCGroup(true),
		exhauster.WithLogger(exhauster.NewFileLog("/tmp/exhauster.log", mlog.DEBUG)),
	)
	if err != nil {
		http.Error(wr, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), time.Minute)
	defer cancel()
	res, err := e.Run(ctx, n)
	fmt.Fprintf(wr, "%s: created %d of %d, free mem %d, err %v\n",
		res.Outcome, res.Created, res.Requested, res.FreeMemory, err)
}
