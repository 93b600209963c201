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

// Package x64 is a minimal x86-64 instruction encoder. It covers exactly the
// mnemonics the kernel emitter and the body-op emitters need: 64-bit GP
// moves, adds and multiplies (register, immediate and memory forms),
// push/pop, prologue/epilogue, and VEX-encoded AVX loads, stores and
// elementwise arithmetic. Instructions are appended to an in-memory byte
// buffer; there is no external assembler.
package x64

import "encoding/binary"

// Reg is a general-purpose 64-bit register, numbered by its hardware
// encoding (RAX=0 .. R15=15).
type Reg int

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var gpNames = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func (r Reg) String() string {
	if r >= 0 && int(r) < len(gpNames) {
		return gpNames[r]
	}
	return "reg?"
}

// VecReg is a SIMD register (XMM/YMM depending on the emitted width),
// numbered by its hardware encoding.
type VecReg int

// NumRegs is the cardinality of each register file.
const NumRegs = 16

// Assembler accumulates encoded instructions.
type Assembler struct {
	code []byte
}

// New returns an empty assembler.
func New() *Assembler {
	return &Assembler{code: make([]byte, 0, 256)}
}

// Bytes returns the machine code emitted so far. The slice aliases the
// assembler's buffer.
func (a *Assembler) Bytes() []byte { return a.code }

// Len returns the current code size in bytes.
func (a *Assembler) Len() int { return len(a.code) }

func (a *Assembler) byte(b byte) { a.code = append(a.code, b) }

func (a *Assembler) bytes(bs ...byte) { a.code = append(a.code, bs...) }

func (a *Assembler) u32(v uint32) {
	a.code = binary.LittleEndian.AppendUint32(a.code, v)
}

func (a *Assembler) u64(v uint64) {
	a.code = binary.LittleEndian.AppendUint64(a.code, v)
}

// rex builds a REX prefix with W set, extending the ModR/M reg field for
// reg and the r/m (or base) field for rm.
func rex(reg, rm Reg) byte {
	b := byte(0x48)
	if reg >= 8 {
		b |= 0x04 // REX.R
	}
	if rm >= 8 {
		b |= 0x01 // REX.B
	}
	return b
}

// modRR builds a register-direct ModR/M byte (mod=11).
func modRR(reg, rm Reg) byte {
	return byte(0xc0 | (byte(reg&7) << 3) | byte(rm&7))
}

// memOperand emits the ModR/M byte, SIB byte and displacement for a
// [base+disp] operand with the given reg-field value. RSP-based addressing
// always takes the SIB escape; RBP-based addressing always carries a
// displacement.
func (a *Assembler) memOperand(reg byte, base Reg, disp int32) {
	rm := byte(base & 7)
	needSIB := rm == 4 // rsp/r12
	switch {
	case disp == 0 && rm != 5:
		a.byte((reg&7)<<3 | rm)
		if needSIB {
			a.byte(0x24)
		}
	case disp >= -128 && disp <= 127:
		a.byte(0x40 | (reg&7)<<3 | rm)
		if needSIB {
			a.byte(0x24)
		}
		a.byte(byte(disp))
	default:
		a.byte(0x80 | (reg&7)<<3 | rm)
		if needSIB {
			a.byte(0x24)
		}
		a.u32(uint32(disp))
	}
}

// MovRegReg emits `mov dst, src` (64-bit).
func (a *Assembler) MovRegReg(dst, src Reg) {
	a.bytes(rex(src, dst), 0x89, modRR(src, dst))
}

// MovRegImm64 emits `movabs dst, imm64`.
func (a *Assembler) MovRegImm64(dst Reg, imm uint64) {
	b := byte(0x48)
	if dst >= 8 {
		b = 0x49
	}
	a.bytes(b, byte(0xb8+(dst&7)))
	a.u64(imm)
}

// MovRegMem emits `mov dst, [base+disp]` (64-bit load).
func (a *Assembler) MovRegMem(dst, base Reg, disp int32) {
	a.bytes(rex(dst, base), 0x8b)
	a.memOperand(byte(dst), base, disp)
}

// MovMemReg emits `mov [base+disp], src` (64-bit store).
func (a *Assembler) MovMemReg(base Reg, disp int32, src Reg) {
	a.bytes(rex(src, base), 0x89)
	a.memOperand(byte(src), base, disp)
}

// AddRegReg emits `add dst, src`.
func (a *Assembler) AddRegReg(dst, src Reg) {
	a.bytes(rex(src, dst), 0x01, modRR(src, dst))
}

// AddRegImm32 emits `add dst, imm` selecting the imm8 form when it fits.
func (a *Assembler) AddRegImm32(dst Reg, imm int32) {
	b := byte(0x48)
	if dst >= 8 {
		b |= 0x01
	}
	if imm >= -128 && imm <= 127 {
		a.bytes(b, 0x83, byte(0xc0|(dst&7)), byte(imm))
		return
	}
	a.bytes(b, 0x81, byte(0xc0|(dst&7)))
	a.u32(uint32(imm))
}

// ImulRegReg emits `imul dst, src`.
func (a *Assembler) ImulRegReg(dst, src Reg) {
	a.bytes(rex(dst, src), 0x0f, 0xaf, modRR(dst, src))
}

// ImulRegMem emits `imul dst, [base+disp]`.
func (a *Assembler) ImulRegMem(dst, base Reg, disp int32) {
	a.bytes(rex(dst, base), 0x0f, 0xaf)
	a.memOperand(byte(dst), base, disp)
}

// Push emits `push reg`.
func (a *Assembler) Push(r Reg) {
	if r >= 8 {
		a.bytes(0x41, byte(0x50+(r&7)))
		return
	}
	a.byte(byte(0x50 + r))
}

// Pop emits `pop reg`.
func (a *Assembler) Pop(r Reg) {
	if r >= 8 {
		a.bytes(0x41, byte(0x58+(r&7)))
		return
	}
	a.byte(byte(0x58 + r))
}

// Ret emits `ret`.
func (a *Assembler) Ret() { a.byte(0xc3) }

// calleeSaved is the System V AMD64 callee-saved GP set the kernel may
// clobber, saved by Prologue and restored by Epilogue.
var calleeSaved = [...]Reg{RBX, R12, R13, R14, R15}

// Prologue emits the function prologue: frame setup plus saves of every
// callee-saved register, so the register allocator can hand any of them out.
func (a *Assembler) Prologue() {
	a.Push(RBP)
	a.MovRegReg(RBP, RSP)
	for _, r := range calleeSaved {
		a.Push(r)
	}
}

// Epilogue restores the callee-saved set, tears down the frame and returns.
func (a *Assembler) Epilogue() {
	for i := len(calleeSaved) - 1; i >= 0; i-- {
		a.Pop(calleeSaved[i])
	}
	a.Pop(RBP)
	a.Ret()
}
