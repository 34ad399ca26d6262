// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux
// +build linux

package cgroups

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	_cgroupv2MEMMax     = "memory.max"
	_cgroupv2MEMCurrent = "memory.current"
	// _cgroupv2FSType is the Linux CGroup-V2 file system type used in
	// `/proc/$PID/mountinfo`.
	_cgroupv2FSType = "cgroup2"

	_cgroupV2MEMMaxDefault = "max"
)

// ErrNotV2 indicates that the system is not using cgroups2.
var ErrNotV2 = errors.New("not using cgroups2")

// CGroups2 provides access to cgroups data for systems using cgroups2.
type CGroups2 struct {
	group *CGroup
}

func newCGroups2(mountInfo *MountPoint, subsystems map[string]*CGroupSubsys) (*CGroups2, error) {
	// the unified hierarchy is the entry with id 0
	var v2subsys *CGroupSubsys
	for _, subsys := range subsystems {
		if subsys.ID == 0 {
			v2subsys = subsys
			break
		}
	}

	if v2subsys == nil {
		return nil, ErrNotV2
	}

	return &CGroups2{
		group: NewCGroup(filepath.Join(mountInfo.MountPoint, v2subsys.Name)),
	}, nil
}

// MemLimit returns the memory limit with memory cgroup controller.
// If `memory.max` was not set, the method returns `(-1, false, nil)`.
func (cg *CGroups2) MemLimit() (int64, bool, error) {
	text, err := cg.group.readFirstLine(_cgroupv2MEMMax)
	if err != nil {
		if os.IsNotExist(err) {
			return -1, false, nil
		}
		return -1, false, err
	}
	if text == _cgroupV2MEMMaxDefault {
		return -1, false, nil
	}
	max, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return -1, false, fmt.Errorf("parse max memory failed, invalid format. %w", err)
	}
	return max, true, nil
}

// MemUsage returns `memory.current` of the group.
func (cg *CGroups2) MemUsage() (int64, error) {
	return cg.group.readInt64(_cgroupv2MEMCurrent)
}

// Version return version of cgroupfs.
func (cg *CGroups2) Version() string {
	return _cgroupv2FSType
}
