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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCGroupsV1(t *testing.T) {
	dir := t.TempDir()
	memRoot := filepath.Join(dir, "memory")
	mountInfo := writeFixture(t, dir, "mountinfo",
		"1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n"+
			"31 23 0:24 /docker "+memRoot+" rw,nosuid shared:1 - cgroup cgroup rw,memory\n")
	procCGroup := writeFixture(t, dir, "cgroup", "4:memory:/docker/abc\n")
	writeFixture(t, memRoot, "abc/memory.limit_in_bytes", "536870912\n")
	writeFixture(t, memRoot, "abc/memory.usage_in_bytes", "1048576\n")

	cg, err := loadCGroups(mountInfo, procCGroup)
	require.NoError(t, err)
	assert.Equal(t, "cgroup", cg.Version())

	limit, ok, err := cg.MemLimit()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(512<<20), limit)

	usage, err := cg.MemUsage()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), usage)
}

func TestLoadCGroupsV1Unlimited(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "memory.limit_in_bytes", "9223372036854771712\n")

	cg := CGroups{_cgroupSubsysMemory: NewCGroup(dir)}
	limit, ok, err := cg.MemLimit()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), limit)

	limit, ok, err = CGroups{}.MemLimit()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), limit)

	_, err = CGroups{}.MemUsage()
	assert.ErrorIs(t, err, ErrNoMemoryController)
}

func TestLoadCGroupsV2(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "unified")
	mountInfo := writeFixture(t, dir, "mountinfo",
		"29 23 0:26 / "+root+" rw,nosuid shared:4 - cgroup2 cgroup2 rw,nsdelegate\n")
	procCGroup := writeFixture(t, dir, "cgroup", "0::/app.slice\n")

	tests := []struct {
		name    string
		max     string
		want    int64
		wantOK  bool
		wantErr string
	}{
		{name: "set", max: "268435456\n", want: 256 << 20, wantOK: true},
		{name: "unset", max: "max\n", want: -1},
		{name: "invalid", max: "asdf\n", want: -1, wantErr: `parse max memory failed, invalid format. strconv.ParseInt: parsing "asdf": invalid syntax`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFixture(t, root, "app.slice/memory.max", tt.max)

			cg, err := loadCGroups(mountInfo, procCGroup)
			require.NoError(t, err)
			assert.Equal(t, "cgroup2", cg.Version())

			limit, ok, err := cg.MemLimit()
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, limit)
			assert.Equal(t, tt.wantOK, ok)
		})
	}

	writeFixture(t, root, "app.slice/memory.current", "4096\n")
	cg, err := loadCGroups(mountInfo, procCGroup)
	require.NoError(t, err)
	usage, err := cg.MemUsage()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), usage)
}

func TestLoadCGroupsV2Missing(t *testing.T) {
	dir := t.TempDir()
	cg := &CGroups2{group: NewCGroup(dir)}

	limit, ok, err := cg.MemLimit()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), limit)
}

func TestLoadCGroupsNotFound(t *testing.T) {
	dir := t.TempDir()
	mountInfo := writeFixture(t, dir, "mountinfo", "1 0 252:0 / / rw - ext4 /dev/dm-0 rw\n")
	procCGroup := writeFixture(t, dir, "cgroup", "0::/\n")

	_, err := loadCGroups(mountInfo, procCGroup)
	assert.Equal(t, ErrCGroupFSNotFound, err)

	_, err = loadCGroups(filepath.Join(dir, "missing"), procCGroup)
	assert.Error(t, err)
}
