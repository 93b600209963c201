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
	"slices"

	"github.com/gokernels/kjit/ir"
)

// ioDescriptors holds the resolved shape/layout/element-size triples of
// every tensor crossing the kernel boundary, indexed consistently with the
// data pointer register ordering: inputs first, then outputs.
type ioDescriptors struct {
	shapes     [][]int
	layouts    [][]int
	dataSizes  []int
	numInputs  int
	numOutputs int
}

// extractIODescriptors classifies the body's tensor nodes and resolves each
// tensor's descriptor. For inputs, the first consumer's descriptor is
// authoritative when that consumer performs rank normalization (it already
// reflects the broadcast-inserted unit dimensions); otherwise the node's own
// descriptor is used. Outputs always describe their input side.
func extractIODescriptors(body []ir.Node) (*ioDescriptors, error) {
	var inputs, outputs []ir.Descriptor
	for _, node := range body {
		tn, ok := node.(ir.TensorNode)
		if !ok {
			continue
		}
		var desc ir.Descriptor
		switch tn.Kind() {
		case ir.KindInput:
			desc = tn.Descriptor()
			if cons := tn.Consumers(); len(cons) > 0 {
				if d, ok := cons[0].(ir.Described); ok && cons[0].Kind() == ir.KindRankNorm {
					desc = d.Descriptor()
				}
			}
			inputs = append(inputs, desc)
		case ir.KindOutput:
			desc = tn.Descriptor()
			outputs = append(outputs, desc)
		default:
			return nil, fmt.Errorf("%w: tensor node reports unsupported kind %s",
				ErrMalformedKernel, tn.Kind())
		}
		if len(desc.Shape) != len(desc.Layout) {
			return nil, fmt.Errorf("%w: shape and layout must have the same length, got %d and %d",
				ErrMalformedKernel, len(desc.Shape), len(desc.Layout))
		}
		if len(desc.Layout) > 0 {
			if maxAxis := slices.Max(desc.Layout); maxAxis >= len(desc.Shape) {
				return nil, fmt.Errorf("%w: layout axis %d out of range for rank %d",
					ErrMalformedKernel, maxAxis, len(desc.Shape))
			}
		}
		if len(desc.Shape) > ParallelRank {
			return nil, fmt.Errorf("%w: tensor rank %d exceeds scheduling rank %d",
				ErrMalformedKernel, len(desc.Shape), ParallelRank)
		}
	}

	d := &ioDescriptors{
		numInputs:  len(inputs),
		numOutputs: len(outputs),
	}
	for _, desc := range append(inputs, outputs...) {
		d.shapes = append(d.shapes, desc.Shape)
		d.layouts = append(d.layouts, desc.Layout)
		d.dataSizes = append(d.dataSizes, desc.ElemSize)
	}
	return d, nil
}
