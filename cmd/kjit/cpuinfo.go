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

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/gokernels/kjit/kernel"
)

func newCPUInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpuinfo",
		Short: "Print the CPU features relevant to kernel emission",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GOOS: %s\n", runtime.GOOS)
			fmt.Fprintf(out, "GOARCH: %s\n", runtime.GOARCH)
			fmt.Fprintf(out, "NumCPU: %d\n", runtime.NumCPU())
			fmt.Fprintln(out)

			fmt.Fprintf(out, "body emitter vector width: %d bytes\n", kernel.VectorWidth())
			fmt.Fprintln(out)

			fmt.Fprintln(out, "=== golang.org/x/sys/cpu.X86 ===")
			fmt.Fprintf(out, "  HasAVX:      %v\n", cpu.X86.HasAVX)
			fmt.Fprintf(out, "  HasAVX2:     %v\n", cpu.X86.HasAVX2)
			fmt.Fprintf(out, "  HasAVX512F:  %v\n", cpu.X86.HasAVX512F)
			fmt.Fprintf(out, "  HasAVX512VL: %v\n", cpu.X86.HasAVX512VL)
			fmt.Fprintf(out, "  HasFMA:      %v\n", cpu.X86.HasFMA)
			fmt.Fprintf(out, "  HasSSE2:     %v\n", cpu.X86.HasSSE2)
			fmt.Fprintf(out, "  HasSSE41:    %v\n", cpu.X86.HasSSE41)
			fmt.Fprintf(out, "  HasSSE42:    %v\n", cpu.X86.HasSSE42)
		},
	}
}
