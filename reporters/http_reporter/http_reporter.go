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

package http_reporter

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"mosn.io/exhauster"
)

const defaultTimeout = 10 * time.Second

type HttpReporter struct {
	token  string
	url    string
	client *http.Client
}

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewReporter(token string, url string) exhauster.OutcomeReporter {
	return &HttpReporter{
		token:  token,
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Report uploads the run result as a multipart form.
func (r *HttpReporter) Report(res *exhauster.Result) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	writer.WriteField("token", r.token)                                   // nolint: errcheck
	writer.WriteField("run_id", res.RunID)                                // nolint: errcheck
	writer.WriteField("outcome", res.Outcome.String())                    // nolint: errcheck
	writer.WriteField("mode", res.Mode.String())                          // nolint: errcheck
	writer.WriteField("requested", strconv.Itoa(res.Requested))           // nolint: errcheck
	writer.WriteField("created", strconv.Itoa(res.Created))               // nolint: errcheck
	writer.WriteField("free_mem", strconv.FormatInt(res.FreeMemory, 10))  // nolint: errcheck
	writer.WriteField("reason", res.Reason)                               // nolint: errcheck
	writer.WriteField("duration", res.Finished.Sub(res.Started).String()) // nolint: errcheck
	writer.Close()                                                        // nolint: errcheck

	request, err := http.NewRequest("POST", r.url, body)
	if err != nil {
		return errors.Wrap(err, "NewRequest err")
	}
	request.Header.Add("Content-Type", writer.FormDataContentType())

	response, err := r.client.Do(request)
	if err != nil {
		return errors.Wrap(err, "do Request err")
	}
	defer response.Body.Close() // nolint: errcheck

	respContent, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "read response err")
	}

	rsp := &Response{}
	if err := json.Unmarshal(respContent, rsp); err != nil {
		return errors.Wrapf(err, "failed to decode resp json, status %d", response.StatusCode)
	}

	if rsp.Code != 1 {
		return errors.Errorf("code: %d, msg: %s", rsp.Code, rsp.Message)
	}
	return nil
}
