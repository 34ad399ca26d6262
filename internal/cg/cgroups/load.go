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

import "errors"

const (
	_procPathCGroup    = "/proc/self/cgroup"
	_procPathMountInfo = "/proc/self/mountinfo"
)

var (
	// ErrCGroupFSNotFound indicates that the system is not using cgroups.
	ErrCGroupFSNotFound = errors.New("cgroupfs not found")
	// ErrNoMemoryController indicates the memory controller is not mounted.
	ErrNoMemoryController = errors.New("memory cgroup controller not mounted")
)

type ICGroups interface {
	// MemLimit returns the memory limit with memory cgroup controller.
	// When no limit is set, the method returns `(-1, false, nil)`.
	MemLimit() (int64, bool, error)
	// MemUsage returns the bytes currently charged to the group.
	MemUsage() (int64, error)
	// Version returns CGroup version.
	Version() string
}

func LoadCGroupsForCurrentProcess() (ICGroups, error) {
	return loadCGroups(_procPathMountInfo, _procPathCGroup)
}

func loadCGroups(mountInfoPath, procCGroupPath string) (ICGroups, error) {
	mps, err := parseMountInfo(mountInfoPath)
	if err != nil {
		return nil, err
	}
	subsystems, err := parseCGroupSubsystems(procCGroupPath)
	if err != nil {
		return nil, err
	}

	for _, mp := range mps {
		switch mp.FSType {
		case _cgroupv2FSType:
			return newCGroups2(mp, subsystems)
		case _cgroupFSType:
			return newCGroups(mps, subsystems)
		}
	}
	return nil, ErrCGroupFSNotFound
}
