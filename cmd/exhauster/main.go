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
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	mlog "mosn.io/pkg/log"

	"mosn.io/exhauster"
	"mosn.io/exhauster/reporters/http_reporter"
)

func main() {
	app := newApp(os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(output io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "exhauster"
	app.Usage = "spawn sleeping workers until the process runs out of memory or threads"
	app.ArgsUsage = `[maxThreads]

Where "maxThreads" is the number of workers to create, 100000 by default.
Exit status is 0 when every worker was created, 100 when resources ran
out first and 1 on any other failure.`
	app.Writer = output
	app.ErrWriter = output

	app.Flags = []cli.Flag{
		cli.DurationFlag{
			Name:  "sleep",
			Usage: "how long each worker sleeps",
			Value: time.Minute,
		},
		cli.IntFlag{
			Name:  "progress",
			Usage: "log a progress line every N workers",
			Value: 100,
		},
		cli.StringFlag{
			Name:  "mode",
			Usage: "worker kind: goroutine, or thread to pin one OS thread per worker",
			Value: exhauster.ModeGoroutine.String(),
		},
		cli.Int64Flag{
			Name:  "memory-reserve",
			Usage: "stop when less than this many bytes would be left",
			Value: 64 << 20,
		},
		cli.IntFlag{
			Name:  "thread-reserve",
			Usage: "OS threads left for the Go runtime in thread mode",
			Value: 64,
		},
		cli.IntFlag{
			Name:  "max-os-threads",
			Usage: "Go runtime thread limit, 0 keeps the default",
		},
		cli.Int64Flag{
			Name:  "memory-limit",
			Usage: "Go runtime soft memory limit in bytes, 0 keeps the default",
		},
		cli.BoolTFlag{
			Name:  "cgroup",
			Usage: "honour the memory limit of the enclosing cgroup",
		},
		cli.BoolFlag{
			Name:  "full-stack",
			Usage: "dump every goroutine group on exhaustion instead of the top 10",
		},
		cli.BoolFlag{
			Name:  "wait",
			Usage: "keep the process alive until every worker finished sleeping",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "diagnostic log destination",
			Value: "stderr",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "diagnostic log level: info or debug",
			Value: "info",
		},
		cli.StringFlag{
			Name:  "report-url",
			Usage: "post the outcome of the run to this URL",
		},
		cli.StringFlag{
			Name:  "report-token",
			Usage: "token sent along with the outcome",
		},
	}

	app.Action = func(c *cli.Context) error {
		return run(c, output)
	}
	return app
}

func run(c *cli.Context, output io.Writer) error {
	maxThreads, err := parseMaxThreads(c)
	if err != nil {
		return err
	}

	opts, err := buildOptions(c, output)
	if err != nil {
		return err
	}

	e, err := exhauster.New(opts...)
	if err != nil {
		return err
	}

	ctx := interruptContext()
	res, err := e.Run(ctx, maxThreads)
	switch res.Outcome {
	case exhauster.OutcomeExhausted:
		return cli.NewExitError("", res.ExitCode())
	case exhauster.OutcomeInterrupted:
		e.Hold(ctx) // nolint: errcheck
		return err
	}

	if c.Bool("wait") {
		if err := e.Hold(ctx); err != nil {
			return errors.Wrap(err, "waiting for workers")
		}
	}
	return nil
}

// interruptContext is cancelled by SIGINT or SIGTERM and by nothing else:
// workers still sleeping when run returns must not see a cancellation.
func interruptContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func parseMaxThreads(c *cli.Context) (int, error) {
	if c.NArg() > 1 {
		return 0, errors.Errorf("%s: expects at most one argument, got %d", c.App.Name, c.NArg())
	}
	if c.NArg() == 0 {
		return exhauster.DefaultMaxThreads, nil
	}
	n, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return 0, errors.Wrapf(err, "invalid maxThreads %q", c.Args().First())
	}
	return n, nil
}

func buildOptions(c *cli.Context, output io.Writer) ([]exhauster.Option, error) {
	mode, err := exhauster.ParseWorkerMode(c.String("mode"))
	if err != nil {
		return nil, err
	}

	var level mlog.Level
	switch c.String("log-level") {
	case "info":
		level = mlog.INFO
	case "debug":
		level = mlog.DEBUG
	default:
		return nil, errors.Errorf("invalid log level %q", c.String("log-level"))
	}

	opts := []exhauster.Option{
		exhauster.WithOutput(output),
		exhauster.WithLogger(exhauster.NewFileLog(c.String("log-file"), level)),
		exhauster.WithSleep(c.Duration("sleep").String()),
		exhauster.WithProgressEvery(c.Int("progress")),
		exhauster.WithWorkerMode(mode),
		exhauster.WithMemoryReserve(c.Int64("memory-reserve")),
		exhauster.WithThreadReserve(c.Int("thread-reserve")),
		exhauster.WithMaxOSThreads(c.Int("max-os-threads")),
		exhauster.WithMemoryLimit(c.Int64("memory-limit")),
		exhauster.WithCGroup(c.BoolT("cgroup")),
		exhauster.WithFullStack(c.Bool("full-stack")),
	}
	if url := c.String("report-url"); url != "" {
		opts = append(opts, exhauster.WithReporter(http_reporter.NewReporter(c.String("report-token"), url)))
	}
	return opts, nil
}
