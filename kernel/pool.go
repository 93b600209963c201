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

	"github.com/gokernels/kjit/x64"
)

type slotState uint8

const (
	slotFree slotState = iota
	slotReserved
	slotAssigned
)

// regPool is one physical register file, modeled as an arena of
// integer-indexed slots with an explicit state each. Physical registers are
// a closed, statically known set, so slot indices double as hardware
// register numbers. Allocation is deterministic: the lowest-numbered free
// slot wins, which keeps generated code reproducible.
type regPool struct {
	name  string
	state [x64.NumRegs]slotState
}

func newRegPool(name string) *regPool {
	return &regPool{name: name}
}

// reserve marks registers as unavailable to the allocator (ABI and stack
// registers). Reserved slots are distinct from assigned ones so they can be
// handed back with release once their ABI role ends.
func (p *regPool) reserve(regs ...int) {
	for _, r := range regs {
		p.state[r] = slotReserved
	}
}

// release returns registers to the free state regardless of whether they
// were reserved or assigned.
func (p *regPool) release(regs ...int) {
	for _, r := range regs {
		p.state[r] = slotFree
	}
}

// alloc assigns and returns the lowest-numbered free register.
func (p *regPool) alloc() (int, error) {
	for i := range p.state {
		if p.state[i] == slotFree {
			p.state[i] = slotAssigned
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no free %s register among %d slots",
		ErrRegisterExhausted, p.name, len(p.state))
}

// free lists the currently free registers in ascending order. Body emitters
// receive this as their scratch pool.
func (p *regPool) free() []int {
	out := make([]int, 0, len(p.state))
	for i, s := range p.state {
		if s == slotFree {
			out = append(out, i)
		}
	}
	return out
}

func (p *regPool) freeCount() int {
	n := 0
	for _, s := range p.state {
		if s == slotFree {
			n++
		}
	}
	return n
}
