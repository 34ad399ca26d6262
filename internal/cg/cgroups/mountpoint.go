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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	_mountInfoSep      = " "
	_mountInfoOptsSep  = ","
	_mountInfoHalfSep  = " - "
	_miFieldsFirstHalf = 6 // id, parent, device, root, mount point, options
	_miFieldsLastHalf  = 3 // fs type, source, super options
)

type mountPointFormatInvalidError struct {
	line string
}

func (err mountPointFormatInvalidError) Error() string {
	return fmt.Sprintf("invalid format for MountPoint: %q", err.line)
}

type pathNotExposedFromMountPointError struct {
	mountPoint string
	root       string
	path       string
}

func (err pathNotExposedFromMountPointError) Error() string {
	return fmt.Sprintf("path %q is not a descendant of mount point root %q and cannot be exposed from %q", err.path, err.root, err.mountPoint)
}

// MountPoint is the part of a `/proc/$PID/mountinfo` entry needed to locate
// a cgroup hierarchy. See also proc(5).
type MountPoint struct {
	Root         string
	MountPoint   string
	FSType       string
	SuperOptions []string
}

// NewMountPointFromLine parses a line read from `/proc/$PID/mountinfo`.
func NewMountPointFromLine(line string) (*MountPoint, error) {
	halves := strings.SplitN(line, _mountInfoHalfSep, 2)
	if len(halves) != 2 {
		return nil, mountPointFormatInvalidError{line}
	}

	// optional fields sit between the options and the separator
	first := strings.Split(halves[0], _mountInfoSep)
	last := strings.Split(halves[1], _mountInfoSep)
	if len(first) < _miFieldsFirstHalf || len(last) != _miFieldsLastHalf {
		return nil, mountPointFormatInvalidError{line}
	}

	return &MountPoint{
		Root:         first[3],
		MountPoint:   first[4],
		FSType:       last[0],
		SuperOptions: strings.Split(last[2], _mountInfoOptsSep),
	}, nil
}

// Translate converts an absolute path inside the *MountPoint's file system to
// the host file system path in the mount namespace the *MountPoint belongs to.
func (mp *MountPoint) Translate(absPath string) (string, error) {
	relPath, err := filepath.Rel(mp.Root, absPath)
	if err != nil {
		return "", err
	}
	if relPath == ".." || strings.HasPrefix(relPath, "../") {
		return "", pathNotExposedFromMountPointError{
			mountPoint: mp.MountPoint,
			root:       mp.Root,
			path:       absPath,
		}
	}

	return filepath.Join(mp.MountPoint, relPath), nil
}

func parseMountInfo(procPathMountInfo string) ([]*MountPoint, error) {
	mountInfoFile, err := os.Open(procPathMountInfo)
	if err != nil {
		return nil, err
	}
	defer mountInfoFile.Close() // nolint: errcheck

	var mps []*MountPoint
	scanner := bufio.NewScanner(mountInfoFile)
	for scanner.Scan() {
		mp, err := NewMountPointFromLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		mps = append(mps, mp)
	}
	return mps, scanner.Err()
}
