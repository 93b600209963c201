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

// Command kjit compiles TOML kernel descriptions with the kjit backend and
// dumps the generated machine code, and reports the CPU features the body
// emitters dispatch on.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "kjit",
		Short:         "JIT kernel emission backend for fused tensor kernels",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log compilation debug events")
	root.AddCommand(newCompileCmd())
	root.AddCommand(newCPUInfoCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
