// Copyright 2025 kjit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || darwin

package exec

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Map copies code into a fresh anonymous mapping and makes it executable.
func Map(code []byte) (*Region, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("map: empty code")
	}
	mem, err := unix.Mmap(-1, 0, len(code),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", len(code), err)
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("mprotect rx: %w", err)
	}
	return &Region{mem: mem}, nil
}

func unmap(mem []byte) error {
	return unix.Munmap(mem)
}

func regionPtr(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(&mem[0]))
}
