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
	"unsafe"

	"github.com/gokernels/kjit/ir"
)

// MaxTensors bounds the number of input or output tensors a kernel may
// declare. The GP register file has 16 slots, 4 of which are reserved, so no
// kernel can hold more than 12 data pointers anyway.
const MaxTensors = 12

// CallArgs is the compile-time parameter block the generated kernel
// dereferences at runtime. Its layout is fixed: the emitter hard-codes the
// field displacements into the generated loads, so the struct must not be
// reordered. The runtime caller fills the base pointers once and may share
// one CallArgs across all parallel invocations; the per-invocation state is
// the index vector, passed separately.
type CallArgs struct {
	SrcPtrs          [MaxTensors]unsafe.Pointer
	DstPtrs          [MaxTensors]unsafe.Pointer
	BufferScratchpad unsafe.Pointer
}

// Layout reports the byte offsets of the parameter block fields.
func (c *CallArgs) Layout() *ir.ParamLayout {
	return &ir.ParamLayout{
		SrcPtrsOff:    int(unsafe.Offsetof(c.SrcPtrs)),
		DstPtrsOff:    int(unsafe.Offsetof(c.DstPtrs)),
		ScratchpadOff: int(unsafe.Offsetof(c.BufferScratchpad)),
		PtrSize:       int(unsafe.Sizeof(uintptr(0))),
	}
}

// DefaultParamLayout is the layout of CallArgs, for callers that construct
// kernels without an instance at hand.
func DefaultParamLayout() *ir.ParamLayout {
	var c CallArgs
	return c.Layout()
}
