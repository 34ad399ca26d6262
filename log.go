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
	"time"

	mlog "mosn.io/pkg/log"
)

// Logger receives internal diagnostics. mlog.ErrorLogger satisfies it.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// NewStdLogger logs diagnostics at info level to stderr.
func NewStdLogger() mlog.ErrorLogger {
	return NewFileLog("stderr", mlog.INFO)
}

// NewFileLog logs diagnostics at the given level to path.
// "stdout" and "stderr" are accepted as well.
func NewFileLog(path string, level mlog.Level) mlog.ErrorLogger {
	logger, err := mlog.GetOrCreateLogger(path, nil)
	if err != nil {
		fmt.Printf("create logger %s failed: %v, fallback to default logger\n", path, err)
		return mlog.DefaultLogger
	}
	return &mlog.SimpleErrorLog{
		Logger: logger,
		Level:  level,
	}
}

// logf writes a timestamped line to the output.
func (e *Exhauster) logf(pattern string, args ...interface{}) {
	timestamp := "[" + time.Now().Format(timestampLayout) + "] "
	e.writeString(fmt.Sprintf(timestamp+pattern+"\n", args...))
}

func (e *Exhauster) debugf(pattern string, args ...interface{}) {
	e.opts.Logger.Debugf(pattern, args...)
}

// writeString is called from workers concurrently with the driver.
func (e *Exhauster) writeString(content string) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	if _, err := e.opts.Output.Write([]byte(content)); err != nil {
		e.opts.Logger.Errorf("write output failed: %v", err)
	}
}
