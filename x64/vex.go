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

package x64

import "strconv"

// AVX instruction encoding. The three-byte VEX form is emitted uniformly;
// it is one byte longer than the two-byte form where both apply, but keeps
// a single code path for registers 8-15 and for future map escapes.

func (v VecReg) String() string {
	if v >= 0 && v < NumRegs {
		return "ymm" + strconv.Itoa(int(v))
	}
	return "vec?"
}

// vex emits a three-byte VEX prefix.
//
//	rExt, bExt: true when the ModR/M reg / r-m (base) register is 8-15
//	m:          opcode map (1 = 0F)
//	vvvv:       the non-destructive source register (0 when unused)
//	l256:       256-bit vector length
//	pp:         implied SIMD prefix (0 = none)
func (a *Assembler) vex(rExt, bExt bool, m byte, vvvv byte, l256 bool, pp byte) {
	b1 := byte(0x40) | m // X̄ = 1 (no index register is ever used here)
	if !rExt {
		b1 |= 0x80
	}
	if !bExt {
		b1 |= 0x20
	}
	b2 := (^vvvv & 0x0f) << 3
	if l256 {
		b2 |= 0x04
	}
	b2 |= pp & 0x03
	a.bytes(0xc4, b1, b2)
}

// VMovupsLoad emits `vmovups dst, [base+disp]`. wide selects YMM (256-bit)
// over XMM (128-bit).
func (a *Assembler) VMovupsLoad(dst VecReg, base Reg, disp int32, wide bool) {
	a.vex(dst >= 8, base >= 8, 1, 0, wide, 0)
	a.byte(0x10)
	a.memOperand(byte(dst), base, disp)
}

// VMovupsStore emits `vmovups [base+disp], src`.
func (a *Assembler) VMovupsStore(base Reg, disp int32, src VecReg, wide bool) {
	a.vex(src >= 8, base >= 8, 1, 0, wide, 0)
	a.byte(0x11)
	a.memOperand(byte(src), base, disp)
}

// VAddps emits `vaddps dst, srcA, srcB` (packed single-precision add).
func (a *Assembler) VAddps(dst, srcA, srcB VecReg, wide bool) {
	a.vex(dst >= 8, srcB >= 8, 1, byte(srcA), wide, 0)
	a.bytes(0x58, byte(0xc0|(byte(dst&7)<<3)|byte(srcB&7)))
}

// VMulps emits `vmulps dst, srcA, srcB` (packed single-precision multiply).
func (a *Assembler) VMulps(dst, srcA, srcB VecReg, wide bool) {
	a.vex(dst >= 8, srcB >= 8, 1, byte(srcA), wide, 0)
	a.bytes(0x59, byte(0xc0|(byte(dst&7)<<3)|byte(srcB&7)))
}
