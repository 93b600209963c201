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

// Package exec places generated machine code into executable memory.
// Regions are mapped writable, filled, then flipped to read+execute (W^X).
// Invoking the mapped code is the runtime driver's concern, not this
// package's.
package exec

import "errors"

// ErrUnsupported is returned on platforms without executable-memory support.
var ErrUnsupported = errors.New("executable memory is not supported on this platform")

// Region is one executable mapping holding a compiled kernel.
type Region struct {
	mem []byte
}

// Ptr returns the entry address of the mapped code.
func (r *Region) Ptr() uintptr {
	if len(r.mem) == 0 {
		return 0
	}
	return regionPtr(r.mem)
}

// Size returns the size of the mapping in bytes.
func (r *Region) Size() int { return len(r.mem) }

// Close unmaps the region. The code must no longer be executing.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unmap(r.mem)
	r.mem = nil
	return err
}
