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

// Package kernel lowers one fused tensor kernel from its linear IR into a
// native x86-64 instruction sequence for a single hardware thread. The
// generated function takes exactly two arguments per the System V ABI: a
// pointer to the runtime index vector supplied by the outer parallel
// executor, and a pointer to the compile-time parameter block (CallArgs).
// Compilation is a single synchronous pass: descriptor extraction, register
// pool setup, abstract-to-physical allocation, per-tensor offset
// calculation, then emission. Each compilation owns its pools and mapping,
// so distinct kernels may compile concurrently.
package kernel

import (
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gokernels/kjit/ir"
	"github.com/gokernels/kjit/x64"
)

// ABI argument registers. The index-vector pointer and parameter-block
// pointer arrive here and keep those roles until every data pointer has been
// initialized; afterwards both registers are fair game for general values.
const (
	regIndexes     = x64.RDI
	regConstParams = x64.RSI
)

// KernelEmitter compiles one ir.Kernel. It is single-use: construct with
// New, call EmitCode once, discard.
type KernelEmitter struct {
	body        []ir.Node
	masterShape []int
	params      *ir.ParamLayout

	io      *ioDescriptors
	gpPool  *regPool
	vecPool *regPool
	mapping *regMapping

	// dataPtrRegs holds the physical GP registers carrying, in order, the
	// input pointers, output pointers, and one pointer per unique buffer id.
	dataPtrRegs      []int
	numUniqueBuffers int

	log *zap.Logger
}

// Option configures a KernelEmitter.
type Option func(*KernelEmitter)

// WithLogger attaches a logger for compilation debug events. The default is
// a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *KernelEmitter) { e.log = l }
}

// New validates the kernel, resolves its IO descriptors and allocates the
// entire register file mapping. Any inconsistency (malformed descriptors,
// pool exhaustion) fails the compilation here; no partial allocation
// survives.
func New(k *ir.Kernel, opts ...Option) (*KernelEmitter, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: no kernel op", ErrMalformedKernel)
	}
	if len(k.Body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedKernel)
	}
	if k.Params == nil {
		return nil, fmt.Errorf("%w: kernel carries no compile params", ErrMalformedKernel)
	}

	e := &KernelEmitter{
		body:        k.Body,
		masterShape: padMasterShape(k.MasterShape),
		params:      k.Params,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	io, err := extractIODescriptors(e.body)
	if err != nil {
		return nil, err
	}
	e.io = io
	e.log.Debug("resolved io descriptors",
		zap.Int("inputs", io.numInputs),
		zap.Int("outputs", io.numOutputs),
		zap.Ints("masterShape", e.masterShape))

	// Full pools minus the stack registers and the two ABI argument
	// registers; the latter compute the pointer offsets and must not hold
	// data pointers themselves.
	e.gpPool = newRegPool("gp")
	e.vecPool = newRegPool("vec")
	e.gpPool.reserve(int(x64.RSP), int(x64.RBP), int(regIndexes), int(regConstParams))

	memAccess, general, numBuffers := classifyBody(e.body)
	e.numUniqueBuffers = numBuffers

	e.mapping = newRegMapping()
	dataPtrRegs, err := e.mapping.mapNodes(memAccess, e.gpPool, e.vecPool)
	if err != nil {
		return nil, err
	}
	e.dataPtrRegs = dataPtrRegs
	e.log.Debug("allocated data pointer registers", zap.Ints("regs", dataPtrRegs))

	// The ABI registers are only needed while offsets are computed, so they
	// rejoin the pool for general values used inside the body.
	e.gpPool.release(int(regIndexes), int(regConstParams))
	if _, err := e.mapping.mapNodes(general, e.gpPool, e.vecPool); err != nil {
		return nil, err
	}
	return e, nil
}

// NumInputs returns the number of input tensors.
func (e *KernelEmitter) NumInputs() int { return e.io.numInputs }

// NumOutputs returns the number of output tensors.
func (e *KernelEmitter) NumOutputs() int { return e.io.numOutputs }

// NumUniqueBuffers returns the number of distinct scratch buffer ids.
func (e *KernelEmitter) NumUniqueBuffers() int { return e.numUniqueBuffers }

// DataPtrRegs returns the data pointer registers in parameter-block order:
// inputs, outputs, then unique buffers.
func (e *KernelEmitter) DataPtrRegs() []x64.Reg {
	return lo.Map(e.dataPtrRegs, func(r int, _ int) x64.Reg { return x64.Reg(r) })
}

// OffsetVectors returns the per-tensor stride vectors (inputs then outputs),
// each of length ParallelRank-1.
func (e *KernelEmitter) OffsetVectors() [][]int {
	offsetRank := len(e.masterShape) - 1
	out := make([][]int, e.io.numInputs+e.io.numOutputs)
	for i := range out {
		out[i] = Strides(e.io.shapes[i], e.io.layouts[i], e.io.dataSizes[i],
			i < e.io.numInputs, offsetRank)
	}
	return out
}

// EmitCode generates the kernel's instruction sequence. in and out are the
// external argument registers handed down by the caller; the kernel boundary
// takes no such arguments, so both must be empty.
func (e *KernelEmitter) EmitCode(in, out []int) ([]byte, error) {
	if err := e.validateArguments(in, out); err != nil {
		return nil, err
	}
	return e.emitImpl()
}

func (e *KernelEmitter) validateArguments(in, out []int) error {
	if len(in) != 0 {
		return fmt.Errorf("%w: expected 0 inputs, got %d", ErrArgumentArity, len(in))
	}
	if len(out) != 0 {
		return fmt.Errorf("%w: expected 0 outputs, got %d", ErrArgumentArity, len(out))
	}
	numParams := e.io.numInputs + e.io.numOutputs + e.numUniqueBuffers
	if len(e.dataPtrRegs) != numParams {
		return fmt.Errorf("%w: expected %d, allocated %d",
			ErrAllocationMismatch, numParams, len(e.dataPtrRegs))
	}
	return nil
}

func (e *KernelEmitter) emitImpl() ([]byte, error) {
	a := x64.New()
	a.Prologue()
	e.initDataPointers(a)
	for _, node := range e.body {
		inRegs, outRegs, err := e.physicalRegs(node)
		if err != nil {
			return nil, err
		}
		if err := node.Emitter().Emit(a, inRegs, outRegs, e.vecPool.free(), e.gpPool.free()); err != nil {
			return nil, fmt.Errorf("emit %s node: %w", node.Kind(), err)
		}
	}
	a.Epilogue()
	return a.Bytes(), nil
}

func (e *KernelEmitter) physicalRegs(node ir.Node) (in, out []int, err error) {
	abstractIn, abstractOut := node.RegInfo()
	resolve := func(regs []ir.Reg) ([]int, error) {
		phys := make([]int, len(regs))
		for i, r := range regs {
			if phys[i], err = e.mapping.physical(r); err != nil {
				return nil, err
			}
		}
		return phys, nil
	}
	if in, err = resolve(abstractIn); err != nil {
		return nil, nil, err
	}
	if out, err = resolve(abstractOut); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

// initDataPointers loads every data pointer register with its base address
// and accumulates the runtime index offsets into it. Buffer registers all
// receive the one shared scratchpad base; distinct buffer ids are separated
// by offsets inside the body's memory-access ops, not by distinct bases.
func (e *KernelEmitter) initDataPointers(a *x64.Assembler) {
	numParams := e.io.numInputs + e.io.numOutputs
	offsetRank := len(e.masterShape) - 1
	offsets := e.OffsetVectors()
	ptrSize := int32(e.params.PtrSize)

	initPtrWithOffset := func(ptr x64.Reg, offs []int, tmp x64.Reg) {
		for j := 0; j < offsetRank; j++ {
			if e.masterShape[j] != 1 && offs[j] != 0 {
				a.MovRegImm64(tmp, uint64(offs[j]))
				a.ImulRegMem(tmp, regIndexes, int32(j)*ptrSize)
				a.AddRegReg(ptr, tmp)
			}
		}
	}

	// A scratch register is needed for the multiply-accumulate. Normally one
	// survives allocation; when every GP register is reserved or holding a
	// data pointer, the last tensor's own destination register serves as
	// scratch for the earlier tensors, and the parameter-block register is
	// corrupted for the last one (it is dead once all bases are loaded).
	spare, haveSpare := e.spareGPReg()
	lastIterExplicitly := !haveSpare && numParams > 0
	var regTmp x64.Reg
	if haveSpare {
		regTmp = spare
	} else if numParams > 0 {
		regTmp = x64.Reg(e.dataPtrRegs[numParams-1])
		e.log.Debug("register starvation fallback engaged",
			zap.Stringer("scratch", regTmp))
	}

	for i := 0; i < e.numUniqueBuffers; i++ {
		a.MovRegMem(x64.Reg(e.dataPtrRegs[numParams+i]), regConstParams,
			int32(e.params.ScratchpadOff))
	}

	loadBase := func(i int) {
		ptr := x64.Reg(e.dataPtrRegs[i])
		if i < e.io.numInputs {
			a.MovRegMem(ptr, regConstParams, int32(e.params.SrcPtrsOff)+int32(i)*ptrSize)
		} else {
			a.MovRegMem(ptr, regConstParams,
				int32(e.params.DstPtrsOff)+int32(i-e.io.numInputs)*ptrSize)
		}
	}

	last := numParams
	if lastIterExplicitly {
		last--
	}
	for i := 0; i < last; i++ {
		loadBase(i)
		initPtrWithOffset(x64.Reg(e.dataPtrRegs[i]), offsets[i], regTmp)
	}
	if lastIterExplicitly {
		// The final tensor would need its own register as scratch before the
		// base load completes, so the parameter-block register takes over; it
		// has no further use.
		loadBase(last)
		initPtrWithOffset(x64.Reg(e.dataPtrRegs[last]), offsets[last], regConstParams)
	}
}

// spareGPReg finds a free GP register that can be corrupted during pointer
// initialization, excluding the two ABI registers still serving their roles.
func (e *KernelEmitter) spareGPReg() (x64.Reg, bool) {
	for _, r := range e.gpPool.free() {
		if r != int(regIndexes) && r != int(regConstParams) {
			return x64.Reg(r), true
		}
	}
	return 0, false
}
