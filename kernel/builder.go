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

// BuildElementwise assembles the lowered IR for an N-ary elementwise kernel:
// load one vector from each input, fold them left with op ("add" or "mul"),
// store the result to the output. It is the construction path used by the
// CLI and the integration tests; real schedulers hand the kernel emitter
// their own lowered IR directly.
//
// Abstract registers are assigned the way an upstream scheduler would:
// GP pointer identities in parameter-block order (inputs, output), vector
// identities in def order.
func BuildElementwise(op string, inputs []ir.Descriptor, output ir.Descriptor, master []int) (*ir.Kernel, error) {
	if op != "add" && op != "mul" {
		return nil, fmt.Errorf("unsupported elementwise op %q", op)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("elementwise kernel needs at least one input")
	}
	if len(inputs) > MaxTensors {
		return nil, fmt.Errorf("too many inputs: %d > %d", len(inputs), MaxTensors)
	}
	wide := VectorWidth() == 32

	var body []ir.Node
	gpReg := func(i int) ir.Reg { return ir.Reg{Class: ir.ClassGP, Index: i} }
	vecReg := func(i int) ir.Reg { return ir.Reg{Class: ir.ClassVec, Index: i} }

	for i, desc := range inputs {
		body = append(body, &ir.InputNode{Desc: desc, PtrReg: gpReg(i)})
	}
	outPtr := gpReg(len(inputs))
	body = append(body, &ir.OutputNode{Desc: output, PtrReg: outPtr})

	for i := range inputs {
		body = append(body, &ir.OpNode{
			Name: "load",
			In:   []ir.Reg{gpReg(i)},
			Out:  []ir.Reg{vecReg(i)},
			Em:   LoadOp{Wide: wide},
		})
	}

	var binOp ir.Emitter = AddOp{Wide: wide}
	if op == "mul" {
		binOp = MulOp{Wide: wide}
	}
	acc := vecReg(0)
	nextVec := len(inputs)
	for i := 1; i < len(inputs); i++ {
		dst := vecReg(nextVec)
		nextVec++
		body = append(body, &ir.OpNode{
			Name: op,
			In:   []ir.Reg{acc, vecReg(i)},
			Out:  []ir.Reg{dst},
			Em:   binOp,
		})
		acc = dst
	}

	body = append(body, &ir.OpNode{
		Name: "store",
		In:   []ir.Reg{acc, outPtr},
		Em:   StoreOp{Wide: wide},
	})

	return &ir.Kernel{
		Body:        body,
		MasterShape: master,
		Params:      DefaultParamLayout(),
	}, nil
}
