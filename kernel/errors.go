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

package kernel

import "errors"

// Every error raised by this package is a compile-time failure fatal to the
// single kernel compilation that produced it. Nothing is caught or retried
// internally; callers can classify with errors.Is.
var (
	// ErrMalformedKernel covers a missing or empty kernel, a missing
	// parameter block, and inconsistent tensor descriptors.
	ErrMalformedKernel = errors.New("malformed kernel")

	// ErrArgumentArity is returned when the emission entry point receives
	// external call arguments; the kernel boundary takes none beyond the two
	// ABI pointers.
	ErrArgumentArity = errors.New("unexpected call arguments")

	// ErrAllocationMismatch is returned when the number of allocated data
	// pointer registers disagrees with the tensor and buffer counts.
	ErrAllocationMismatch = errors.New("data pointer register count mismatch")

	// ErrRegisterExhausted is returned when more simultaneously live values
	// exist than the physical register file can hold.
	ErrRegisterExhausted = errors.New("register file exhausted")
)
