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
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/gokernels/kjit/ir"
	"github.com/gokernels/kjit/x64"
)

func TestNewRejectsMalformedKernels(t *testing.T) {
	tests := []struct {
		name   string
		kernel *ir.Kernel
	}{
		{"nil kernel", nil},
		{"empty body", &ir.Kernel{Body: nil, Params: DefaultParamLayout()}},
		{"missing params", &ir.Kernel{
			Body: []ir.Node{&ir.InputNode{Desc: desc(4), PtrReg: gp(0)}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.kernel); !errors.Is(err, ErrMalformedKernel) {
				t.Errorf("err = %v, want ErrMalformedKernel", err)
			}
		})
	}
}

func TestNewRejectsInconsistentDescriptor(t *testing.T) {
	// shape rank 3 with layout rank 2 must fail before any allocation.
	body := []ir.Node{&ir.InputNode{
		Desc:   ir.Descriptor{Shape: []int{2, 3, 4}, Layout: []int{0, 1}, ElemSize: 4},
		PtrReg: gp(0),
	}}
	_, err := New(&ir.Kernel{Body: body, MasterShape: []int{2, 3, 4}, Params: DefaultParamLayout()})
	if !errors.Is(err, ErrMalformedKernel) {
		t.Fatalf("err = %v, want ErrMalformedKernel", err)
	}
}

func TestEmitCodeRejectsExternalArguments(t *testing.T) {
	em := simpleKernel(t, []ir.Node{
		&ir.InputNode{Desc: desc(4), PtrReg: gp(0)},
		&ir.OutputNode{Desc: desc(4), PtrReg: gp(1)},
	}, []int{4})

	if _, err := em.EmitCode([]int{1}, nil); !errors.Is(err, ErrArgumentArity) {
		t.Errorf("nonempty in: err = %v, want ErrArgumentArity", err)
	}
	if _, err := em.EmitCode(nil, []int{2}); !errors.Is(err, ErrArgumentArity) {
		t.Errorf("nonempty out: err = %v, want ErrArgumentArity", err)
	}
}

func TestEmitCodeDetectsAllocationMismatch(t *testing.T) {
	em := simpleKernel(t, []ir.Node{
		&ir.InputNode{Desc: desc(4), PtrReg: gp(0)},
		&ir.OutputNode{Desc: desc(4), PtrReg: gp(1)},
	}, []int{4})
	em.dataPtrRegs = em.dataPtrRegs[:1]

	if _, err := em.EmitCode(nil, nil); !errors.Is(err, ErrAllocationMismatch) {
		t.Errorf("err = %v, want ErrAllocationMismatch", err)
	}
}

// TestEmitCodeGolden pins the full instruction sequence for a copy kernel:
// one input, one output, load + store, shape [2,4] so exactly one outer
// dimension needs a runtime offset.
func TestEmitCodeGolden(t *testing.T) {
	body := []ir.Node{
		&ir.InputNode{Desc: desc(2, 4), PtrReg: gp(0)},
		&ir.OutputNode{Desc: desc(2, 4), PtrReg: gp(1)},
		&ir.OpNode{Name: "load", In: []ir.Reg{gp(0)}, Out: []ir.Reg{vec(0)}, Em: LoadOp{Wide: true}},
		&ir.OpNode{Name: "store", In: []ir.Reg{vec(0), gp(1)}, Em: StoreOp{Wide: true}},
	}
	em := simpleKernel(t, body, []int{2, 4})
	code, err := em.EmitCode(nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		// prologue
		0x55,             // push rbp
		0x48, 0x89, 0xe5, // mov rbp, rsp
		0x53,       // push rbx
		0x41, 0x54, // push r12
		0x41, 0x55, // push r13
		0x41, 0x56, // push r14
		0x41, 0x57, // push r15
		// input pointer: base load plus offset for the one non-unit outer dim
		0x48, 0x8b, 0x06, // mov rax, [rsi]          (src_ptrs[0])
		0x48, 0xba, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // movabs rdx, 16
		0x48, 0x0f, 0xaf, 0x57, 0x20, // imul rdx, [rdi+32]  (index[4])
		0x48, 0x01, 0xd0, // add rax, rdx
		// output pointer
		0x48, 0x8b, 0x4e, 0x60, // mov rcx, [rsi+96]  (dst_ptrs[0])
		0x48, 0xba, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // movabs rdx, 16
		0x48, 0x0f, 0xaf, 0x57, 0x20, // imul rdx, [rdi+32]
		0x48, 0x01, 0xd1, // add rcx, rdx
		// body
		0xc4, 0xe1, 0x7c, 0x10, 0x00, // vmovups ymm0, [rax]
		0xc4, 0xe1, 0x7c, 0x11, 0x01, // vmovups [rcx], ymm0
		// epilogue
		0x41, 0x5f, // pop r15
		0x41, 0x5e, // pop r14
		0x41, 0x5d, // pop r13
		0x41, 0x5c, // pop r12
		0x5b, // pop rbx
		0x5d, // pop rbp
		0xc3, // ret
	}
	if !bytes.Equal(code, want) {
		t.Errorf("generated code mismatch\n got: % x\nwant: % x", code, want)
	}
}

// TestStarvationFallback exercises the path where every allocatable GP
// register holds a data pointer: the last tensor's register serves as
// scratch for the earlier ones, and the parameter-block register (rsi) is
// corrupted as scratch for the final tensor.
func TestStarvationFallback(t *testing.T) {
	var body []ir.Node
	next := 0
	for i := 0; i < 6; i++ {
		body = append(body, &ir.InputNode{Desc: desc(2, 4), PtrReg: gp(next)})
		next++
	}
	for i := 0; i < 5; i++ {
		body = append(body, &ir.OutputNode{Desc: desc(2, 4), PtrReg: gp(next)})
		next++
	}
	body = append(body, &ir.BufNode{ID: 0, PtrReg: gp(next)})

	em := simpleKernel(t, body, []int{2, 4})
	if got := len(em.DataPtrRegs()); got != 12 {
		t.Fatalf("len(DataPtrRegs) = %d, want 12", got)
	}
	code, err := em.EmitCode(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	// imul rsi, [rdi+32]: the parameter-block register used as scratch.
	if !bytes.Contains(code, []byte{0x48, 0x0f, 0xaf, 0x77, 0x20}) {
		t.Errorf("generated code never repurposed rsi as scratch")
	}
}

func TestElementwiseEndToEnd(t *testing.T) {
	inputs := []ir.Descriptor{desc(2, 3, 64), desc(1, 1, 64)}
	k, err := BuildElementwise("add", inputs, desc(2, 3, 64), []int{2, 3, 64})
	if err != nil {
		t.Fatal(err)
	}
	em, err := New(k)
	if err != nil {
		t.Fatal(err)
	}

	wantRegs := []x64.Reg{x64.RAX, x64.RCX, x64.RDX}
	if got := em.DataPtrRegs(); !slices.Equal(got, wantRegs) {
		t.Errorf("DataPtrRegs = %v, want %v", got, wantRegs)
	}

	offs := em.OffsetVectors()
	if want := []int{0, 0, 0, 768, 256}; !slices.Equal(offs[0], want) {
		t.Errorf("input 0 strides = %v, want %v", offs[0], want)
	}
	if want := []int{0, 0, 0, 0, 0}; !slices.Equal(offs[1], want) {
		t.Errorf("broadcast input strides = %v, want %v", offs[1], want)
	}

	code, err := em.EmitCode(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(code, []byte{0x55, 0x48, 0x89, 0xe5}) {
		t.Errorf("code does not start with the frame prologue: % x", code[:4])
	}
	if code[len(code)-1] != 0xc3 {
		t.Errorf("code does not end in ret")
	}
}

func TestBuildElementwiseValidation(t *testing.T) {
	if _, err := BuildElementwise("sub", []ir.Descriptor{desc(4)}, desc(4), []int{4}); err == nil {
		t.Error("unsupported op accepted")
	}
	if _, err := BuildElementwise("add", nil, desc(4), []int{4}); err == nil {
		t.Error("zero inputs accepted")
	}
}
