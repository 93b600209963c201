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
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gokernels/kjit/ir"
	"github.com/gokernels/kjit/kernel"
)

// tensorConfig is one tensor entry in the kernel description file.
type tensorConfig struct {
	Shape    []int `toml:"shape"`
	Layout   []int `toml:"layout"`
	ElemSize int   `toml:"elem_size"`
}

func (t tensorConfig) descriptor() ir.Descriptor {
	return ir.Descriptor{Shape: t.Shape, Layout: t.Layout, ElemSize: t.ElemSize}
}

// kernelConfig is the TOML schema of a kernel description.
type kernelConfig struct {
	Op          string         `toml:"op"`
	MasterShape []int          `toml:"master_shape"`
	Inputs      []tensorConfig `toml:"inputs"`
	Output      tensorConfig   `toml:"output"`
}

func loadKernelConfig(path string) (*kernelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kernel description: %w", err)
	}
	var cfg kernelConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse kernel description: %w", err)
	}
	if cfg.Op == "" {
		cfg.Op = "add"
	}
	return &cfg, nil
}

func newCompileCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a TOML kernel description and dump the generated code",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadKernelConfig(file)
			if err != nil {
				return err
			}
			return runCompile(cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "kernel.toml", "kernel description file")
	return cmd
}

func runCompile(cmd *cobra.Command, cfg *kernelConfig) error {
	inputs := make([]ir.Descriptor, len(cfg.Inputs))
	for i, t := range cfg.Inputs {
		inputs[i] = t.descriptor()
	}
	k, err := kernel.BuildElementwise(cfg.Op, inputs, cfg.Output.descriptor(), cfg.MasterShape)
	if err != nil {
		return err
	}

	opts := []kernel.Option{}
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync()
		opts = append(opts, kernel.WithLogger(log))
	}
	em, err := kernel.New(k, opts...)
	if err != nil {
		return err
	}
	code, err := em.EmitCode(nil, nil)
	if err != nil {
		return err
	}

	title := cases.Title(language.English)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s kernel: %d inputs, %d outputs, %d buffers, %d-byte vectors\n",
		title.String(cfg.Op), em.NumInputs(), em.NumOutputs(), em.NumUniqueBuffers(),
		kernel.VectorWidth())

	fmt.Fprintln(out, "data pointer registers:")
	for i, r := range em.DataPtrRegs() {
		fmt.Fprintf(out, "  [%d] %s\n", i, r)
	}
	fmt.Fprintln(out, "offset strides (outer dims):")
	for i, offs := range em.OffsetVectors() {
		fmt.Fprintf(out, "  [%d] %v\n", i, offs)
	}

	fmt.Fprintf(out, "generated %d bytes:\n", len(code))
	for i := 0; i < len(code); i += 16 {
		end := min(i+16, len(code))
		fmt.Fprintf(out, "  %04x:", i)
		for _, b := range code[i:end] {
			fmt.Fprintf(out, " %02x", b)
		}
		fmt.Fprintln(out)
	}
	return nil
}
