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

	"github.com/gokernels/kjit/ir"
)

// regMapping is the abstract-to-physical register map built during
// allocation. It is injective within each class: no physical register is
// ever assigned to two abstract identities of the same class.
type regMapping struct {
	gp  map[int]int
	vec map[int]int
}

func newRegMapping() *regMapping {
	return &regMapping{gp: make(map[int]int), vec: make(map[int]int)}
}

// physical resolves an abstract register to its assigned physical register.
func (m *regMapping) physical(r ir.Reg) (int, error) {
	var phys int
	var ok bool
	switch r.Class {
	case ir.ClassGP:
		phys, ok = m.gp[r.Index]
	case ir.ClassVec:
		phys, ok = m.vec[r.Index]
	}
	if !ok {
		return 0, fmt.Errorf("%w: abstract %s register %d was never allocated",
			ErrAllocationMismatch, r.Class, r.Index)
	}
	return phys, nil
}

// mapNodes assigns a physical register to every not-yet-mapped abstract
// register referenced by nodes, drawing from the pool of the matching class.
// It returns the newly assigned GP registers in assignment order; for the
// memory-access group this order is exactly the data pointer register order
// (inputs, then outputs, then unique buffers).
func (m *regMapping) mapNodes(nodes []ir.Node, gpPool, vecPool *regPool) ([]int, error) {
	var newGP []int
	for _, node := range nodes {
		in, out := node.RegInfo()
		for _, r := range append(append([]ir.Reg{}, in...), out...) {
			switch r.Class {
			case ir.ClassGP:
				if _, ok := m.gp[r.Index]; ok {
					continue
				}
				phys, err := gpPool.alloc()
				if err != nil {
					return nil, err
				}
				m.gp[r.Index] = phys
				newGP = append(newGP, phys)
			case ir.ClassVec:
				if _, ok := m.vec[r.Index]; ok {
					continue
				}
				phys, err := vecPool.alloc()
				if err != nil {
					return nil, err
				}
				m.vec[r.Index] = phys
			}
		}
	}
	return newGP, nil
}

// classifyBody partitions the kernel body into memory-access nodes and
// general nodes. Tensor nodes are memory access; so is the first occurrence
// of each buffer id (later occurrences share the first one's pointer
// register and are skipped, never double-allocated). Everything else is
// general. Memory-access nodes are ordered inputs, outputs, then buffers so
// that allocation order matches the parameter block layout.
func classifyBody(body []ir.Node) (memAccess, general []ir.Node, numUniqueBuffers int) {
	var inputs, outputs, buffers []ir.Node
	seen := make(map[int]bool)
	for _, node := range body {
		switch n := node.(type) {
		case ir.TensorNode:
			if n.Kind() == ir.KindOutput {
				outputs = append(outputs, n)
			} else {
				inputs = append(inputs, n)
			}
		case ir.ScratchNode:
			if !seen[n.BufferID()] {
				seen[n.BufferID()] = true
				buffers = append(buffers, n)
			}
		default:
			general = append(general, node)
		}
	}
	memAccess = append(append(inputs, outputs...), buffers...)
	return memAccess, general, len(seen)
}
