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
	"math"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"

	"mosn.io/exhauster/internal/cg/cgroups"
)

// Sample is one reading of process and host memory. Fields that could not
// be read are -1.
type Sample struct {
	RSS          int64 // resident set of this process
	Threads      int   // OS threads of this process
	Available    int64 // memory the host can still hand out
	CGroupLimit  int64
	CGroupUsage  int64
	RuntimeLimit int64 // Go soft memory limit
	RuntimeSys   int64 // bytes obtained from the OS by the Go runtime
}

func unknownSample() Sample {
	return Sample{
		RSS:          -1,
		Threads:      -1,
		Available:    -1,
		CGroupLimit:  -1,
		CGroupUsage:  -1,
		RuntimeLimit: -1,
		RuntimeSys:   -1,
	}
}

// Headroom returns the smallest amount of memory left under any known
// limit. ok is false when no source yielded a figure.
func (s Sample) Headroom() (headroom int64, ok bool) {
	consider := func(v int64) {
		if !ok || v < headroom {
			headroom, ok = v, true
		}
	}

	if s.Available >= 0 {
		consider(s.Available)
	}
	if s.CGroupLimit > 0 {
		usage := s.CGroupUsage
		if usage < 0 {
			usage = s.RSS
		}
		if usage >= 0 {
			consider(s.CGroupLimit - usage)
		}
	}
	if s.RuntimeLimit > 0 && s.RuntimeSys >= 0 {
		consider(s.RuntimeLimit - s.RuntimeSys)
	}
	return
}

// Probe reads the current resource state.
type Probe interface {
	Sample() (Sample, error)
}

type processProbe struct {
	proc   *process.Process
	cgroup cgroups.ICGroups // nil outside a memory cgroup
}

func newProcessProbe(useCGroup bool, logger Logger) (*processProbe, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "open current process")
	}

	probe := &processProbe{proc: p}
	if !useCGroup {
		return probe, nil
	}

	// is this a docker environment or physical?
	cg, err := cgroups.LoadCGroupsForCurrentProcess()
	if err != nil {
		logger.Debugf("[exhauster] cgroup not loaded, using host memory only: %v", err)
		return probe, nil
	}
	if _, defined, err := cg.MemLimit(); err != nil || !defined {
		logger.Debugf("[exhauster] %s has no memory limit, using host memory only", cg.Version())
		return probe, nil
	}
	probe.cgroup = cg
	return probe, nil
}

// Sample never fails as a whole; every unreadable source is reported in the
// returned error while the rest of the sample stays usable.
func (p *processProbe) Sample() (Sample, error) {
	var result *multierror.Error
	s := unknownSample()

	if mi, err := p.proc.MemoryInfo(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "process memory"))
	} else {
		s.RSS = int64(mi.RSS)
	}

	if n, err := p.proc.NumThreads(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "process threads"))
	} else {
		s.Threads = int(n)
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "host memory"))
	} else {
		s.Available = int64(vm.Available)
	}

	if p.cgroup != nil {
		if limit, defined, err := p.cgroup.MemLimit(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "cgroup memory limit"))
		} else if defined {
			s.CGroupLimit = limit
		}
		if usage, err := p.cgroup.MemUsage(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "cgroup memory usage"))
		} else {
			s.CGroupUsage = usage
		}
	}

	// a negative input reads the limit without changing it
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		s.RuntimeLimit = limit
		s.RuntimeSys = int64(ms.Sys)
	}

	return s, result.ErrorOrNil()
}
