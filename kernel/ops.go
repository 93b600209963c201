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

import (
	"fmt"

	"golang.org/x/sys/cpu"

	"github.com/gokernels/kjit/x64"
)

// Body-op emitters. The kernel emitter treats these only through the
// ir.Emitter contract; they are the concrete collaborators that turn the
// general body nodes into vector instructions. Each processes one vector
// chunk; the upstream scheduler owns the innermost loop.

// VectorWidth returns the SIMD width in bytes the body emitters target on
// this machine: 32 with AVX2, 16 otherwise.
func VectorWidth() int {
	if cpu.X86.HasAVX2 {
		return 32
	}
	return 16
}

// LoadOp loads one vector from the pointer in its single input GP register,
// at a fixed byte offset (nonzero for views into the shared scratchpad).
type LoadOp struct {
	Offset int32
	Wide   bool
}

func (op LoadOp) Emit(a *x64.Assembler, in, out, vecPool, gpPool []int) error {
	if len(in) != 1 || len(out) != 1 {
		return fmt.Errorf("load: want 1 input and 1 output register, got %d and %d",
			len(in), len(out))
	}
	a.VMovupsLoad(x64.VecReg(out[0]), x64.Reg(in[0]), op.Offset, op.Wide)
	return nil
}

// StoreOp stores its first input (a vector) through the pointer in its
// second input (a GP register).
type StoreOp struct {
	Offset int32
	Wide   bool
}

func (op StoreOp) Emit(a *x64.Assembler, in, out, vecPool, gpPool []int) error {
	if len(in) != 2 || len(out) != 0 {
		return fmt.Errorf("store: want 2 input and 0 output registers, got %d and %d",
			len(in), len(out))
	}
	a.VMovupsStore(x64.Reg(in[1]), op.Offset, x64.VecReg(in[0]), op.Wide)
	return nil
}

// AddOp is an elementwise packed-float add of its two input vectors.
type AddOp struct {
	Wide bool
}

func (op AddOp) Emit(a *x64.Assembler, in, out, vecPool, gpPool []int) error {
	if len(in) != 2 || len(out) != 1 {
		return fmt.Errorf("add: want 2 input and 1 output registers, got %d and %d",
			len(in), len(out))
	}
	a.VAddps(x64.VecReg(out[0]), x64.VecReg(in[0]), x64.VecReg(in[1]), op.Wide)
	return nil
}

// MulOp is an elementwise packed-float multiply of its two input vectors.
type MulOp struct {
	Wide bool
}

func (op MulOp) Emit(a *x64.Assembler, in, out, vecPool, gpPool []int) error {
	if len(in) != 2 || len(out) != 1 {
		return fmt.Errorf("mul: want 2 input and 1 output registers, got %d and %d",
			len(in), len(out))
	}
	a.VMulps(x64.VecReg(out[0]), x64.VecReg(in[0]), x64.VecReg(in[1]), op.Wide)
	return nil
}
