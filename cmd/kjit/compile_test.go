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
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKernelConfig(t *testing.T) {
	cfg, err := loadKernelConfig(filepath.Join("testdata", "add.toml"))
	require.NoError(t, err)

	assert.Equal(t, "add", cfg.Op)
	assert.Equal(t, []int{2, 3, 64}, cfg.MasterShape)
	require.Len(t, cfg.Inputs, 2)
	assert.Equal(t, []int{1, 1, 64}, cfg.Inputs[1].Shape)
	assert.Equal(t, 4, cfg.Output.ElemSize)
}

func TestLoadKernelConfigMissingFile(t *testing.T) {
	_, err := loadKernelConfig(filepath.Join("testdata", "nope.toml"))
	require.Error(t, err)
}

func TestRunCompile(t *testing.T) {
	cfg, err := loadKernelConfig(filepath.Join("testdata", "add.toml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runCompile(cmd, cfg))

	out := buf.String()
	assert.Contains(t, out, "Add kernel: 2 inputs, 1 outputs, 0 buffers")
	assert.Contains(t, out, "data pointer registers:")
	assert.Contains(t, out, "[0] rax")
	assert.Contains(t, out, "offset strides (outer dims):")
	assert.Contains(t, out, "generated ")
	// Frame prologue opens the hex dump.
	assert.Contains(t, out, "0000: 55 48 89 e5")
}

func TestCompileCommandBadOp(t *testing.T) {
	cfg := &kernelConfig{
		Op:          "div",
		MasterShape: []int{4},
		Inputs:      []tensorConfig{{Shape: []int{4}, Layout: []int{0}, ElemSize: 4}},
		Output:      tensorConfig{Shape: []int{4}, Layout: []int{0}, ElemSize: 4},
	}
	err := runCompile(&cobra.Command{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported elementwise op")
}
