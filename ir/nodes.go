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

package ir

import "github.com/gokernels/kjit/x64"

// nopEmitter is bound to nodes that exist only for classification (IO
// markers, buffers, rank normalization). They contribute no instructions of
// their own; the kernel emitter materializes their pointers during setup.
type nopEmitter struct{}

func (nopEmitter) Emit(*x64.Assembler, []int, []int, []int, []int) error { return nil }

// NopEmitter returns an emitter that generates no code.
func NopEmitter() Emitter { return nopEmitter{} }

// InputNode marks a kernel input tensor. PtrReg is the abstract GP register
// that will hold the tensor's (offset-adjusted) base pointer.
type InputNode struct {
	Desc   Descriptor
	PtrReg Reg
	Cons   []Node
}

func (n *InputNode) Kind() NodeKind { return KindInput }
func (n *InputNode) RegInfo() (in, out []Reg) { return nil, []Reg{n.PtrReg} }
func (n *InputNode) Emitter() Emitter { return nopEmitter{} }
func (n *InputNode) Descriptor() Descriptor { return n.Desc }
func (n *InputNode) Consumers() []Node { return n.Cons }

// OutputNode marks a kernel output tensor. Desc describes the node's input
// side, which is authoritative for outputs.
type OutputNode struct {
	Desc   Descriptor
	PtrReg Reg
}

func (n *OutputNode) Kind() NodeKind { return KindOutput }
func (n *OutputNode) RegInfo() (in, out []Reg) { return []Reg{n.PtrReg}, nil }
func (n *OutputNode) Emitter() Emitter { return nopEmitter{} }
func (n *OutputNode) Descriptor() Descriptor { return n.Desc }
func (n *OutputNode) Consumers() []Node { return nil }

// BufNode references the shared scratch allocation. Nodes with equal ID
// share one pointer register; distinct regions inside the scratchpad are
// reached through per-access offsets, not distinct base pointers.
type BufNode struct {
	ID     int
	PtrReg Reg
}

func (n *BufNode) Kind() NodeKind { return KindBuffer }
func (n *BufNode) RegInfo() (in, out []Reg) { return nil, []Reg{n.PtrReg} }
func (n *BufNode) Emitter() Emitter { return nopEmitter{} }
func (n *BufNode) BufferID() int { return n.ID }

// RankNormNode inserts unit dimensions to align an input's rank with the
// master shape. Its post-normalization descriptor supersedes the producing
// input's own descriptor during extraction.
type RankNormNode struct {
	Desc Descriptor
}

func (n *RankNormNode) Kind() NodeKind { return KindRankNorm }
func (n *RankNormNode) RegInfo() (in, out []Reg) { return nil, nil }
func (n *RankNormNode) Emitter() Emitter { return nopEmitter{} }
func (n *RankNormNode) Descriptor() Descriptor { return n.Desc }

// OpNode is a general compute node: abstract register identities plus a
// bound emitter. The kernel emitter never inspects what the operation does.
type OpNode struct {
	Name string
	In   []Reg
	Out  []Reg
	Em   Emitter
}

func (n *OpNode) Kind() NodeKind { return KindGeneral }
func (n *OpNode) RegInfo() (in, out []Reg) { return n.In, n.Out }
func (n *OpNode) Emitter() Emitter { return n.Em }
