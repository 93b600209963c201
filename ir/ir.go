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

// Package ir models the lowered, already-scheduled intermediate
// representation of one fused tensor kernel. The IR is linear: a flat,
// ordered body of nodes produced by an upstream scheduler. Each node carries
// its previously assigned abstract register identities and a bound code
// emitter; the kernel emitter in package kernel maps abstract registers onto
// the physical register file and drives the per-node emitters in body order.
package ir

import (
	"github.com/gokernels/kjit/x64"
)

// RegClass identifies one of the two disjoint physical register files.
type RegClass int

const (
	ClassGP RegClass = iota
	ClassVec
)

func (c RegClass) String() string {
	switch c {
	case ClassGP:
		return "gp"
	case ClassVec:
		return "vec"
	default:
		return "unknown"
	}
}

// Reg is an abstract register identity: a logical, not-yet-physical register
// assigned to an IR value by the upstream scheduler. Abstract indices are
// arbitrary but stable; the allocator maps them injectively onto the
// physical file of the matching class.
type Reg struct {
	Class RegClass
	Index int
}

// NodeKind classifies body nodes. The set is closed: the kernel emitter's
// classification pass only distinguishes tensor IO, scratch buffers, rank
// normalization and general compute; everything behind KindGeneral is opaque
// to it and reached only through the Emitter contract.
type NodeKind int

const (
	KindInput NodeKind = iota
	KindOutput
	KindBuffer
	KindRankNorm
	KindGeneral
)

func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindBuffer:
		return "buffer"
	case KindRankNorm:
		return "ranknorm"
	case KindGeneral:
		return "general"
	default:
		return "invalid"
	}
}

// Descriptor resolves one tensor's logical shape, its layout permutation and
// the element byte size. Layout maps between logical and physical axis order;
// the direction of the mapping depends on whether the tensor is read or
// written (see the stride reorder in package kernel). A valid descriptor has
// len(Layout) == len(Shape) and every layout entry < len(Shape).
type Descriptor struct {
	Shape    []int
	Layout   []int
	ElemSize int
}

// Emitter is the uniform per-node code-generation contract. The kernel
// emitter invokes it with the node's physical input and output registers
// plus whatever remains free in the two register pools, so an emitter may
// draw temporary registers without further coordination.
type Emitter interface {
	Emit(a *x64.Assembler, in, out []int, vecPool, gpPool []int) error
}

// Node is one element of the kernel body.
type Node interface {
	Kind() NodeKind
	// RegInfo returns the abstract input and output register identities
	// assigned to this node's values.
	RegInfo() (in, out []Reg)
	Emitter() Emitter
}

// TensorNode marks a tensor crossing the kernel boundary. Input nodes expose
// the descriptor of the value they produce and their consumers (the first
// consumer's descriptor wins when it performs rank normalization); output
// nodes expose the descriptor of their input side.
type TensorNode interface {
	Node
	Descriptor() Descriptor
	Consumers() []Node
}

// ScratchNode references a shared scratch allocation by integer id. Multiple
// scratch nodes may carry the same id; they collapse to a single data
// pointer register.
type ScratchNode interface {
	Node
	BufferID() int
}

// Described is implemented by nodes that carry a tensor descriptor without
// being IO themselves, such as rank normalization.
type Described interface {
	Descriptor() Descriptor
}

// ParamLayout fixes the byte offsets of the compile-time parameter block the
// generated kernel dereferences at runtime: an array of input base pointers,
// an array of output base pointers and the single shared scratchpad pointer.
type ParamLayout struct {
	SrcPtrsOff    int
	DstPtrsOff    int
	ScratchpadOff int
	PtrSize       int
}

// Kernel is one fused compute region handed to the kernel emitter: the
// ordered body, the master (broadcast iteration) shape and the parameter
// block layout. A kernel is immutable once constructed and owned for the
// duration of a single compilation.
type Kernel struct {
	Body        []Node
	MasterShape []int
	Params      *ParamLayout
}
