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

// ParallelRank is the fixed rank of the outer parallel executor. The master
// shape is left-padded with unit dimensions to this length, so the runtime
// index vector always carries ParallelRank entries and the generated kernel
// computes offsets for ParallelRank-1 outer dimensions (the innermost
// dimension is consumed entirely inside the kernel body).
const ParallelRank = 6

// padMasterShape left-pads shape with 1s to ParallelRank, mirroring how the
// parallel executor prepends unit dimensions to schedule lower-rank kernels.
func padMasterShape(shape []int) []int {
	if len(shape) >= ParallelRank {
		return shape
	}
	padded := make([]int, ParallelRank)
	for i := range padded {
		padded[i] = 1
	}
	copy(padded[ParallelRank-len(shape):], shape)
	return padded
}

// Strides computes the per-dimension byte offsets a data pointer must
// advance by per unit of the runtime index vector, for a tensor of the given
// logical shape, layout permutation and element size.
//
// Strides are distances between consecutive elements of the corresponding
// dimension. A dimension of extent 1 never contributes a runtime offset, so
// its stride is 0 regardless of what the row-major formula would give:
//
//	shape:         s0,    s1, s2, s3
//	strides: s1*s2*s3, s2*s3, s3,  1     (all extents > 1)
//
//	shape:      s0, s1, s2 == 1, s3
//	strides: s1*s3, s3,       0,  1
//
// The layout permutation then reorders the vector. For inputs, layout maps
// physical axis i to logical axis layout[i]; for outputs the mapping runs the
// other way, so a kernel may read with one memory order and write with
// another. The innermost entry is dropped (the kernel body walks it
// directly), and the result is left-padded with zeros to offsetRank to match
// the fixed scheduling rank.
func Strides(shape, layout []int, elemSize int, isInput bool, offsetRank int) []int {
	if len(shape) == 0 {
		return make([]int, offsetRank)
	}
	strides := make([]int, len(shape))
	strides[len(shape)-1] = elemSize
	dimStep := 1
	for k := len(shape) - 2; k >= 0; k-- {
		dimStep *= shape[k+1]
		if shape[k] != 1 {
			strides[k] = dimStep * elemSize
		}
	}
	strides = reorderStrides(strides, layout, isInput)
	// The entire innermost dimension is processed inside the kernel body, so the
	// outer index vector never advances it.
	strides = strides[:len(strides)-1]
	if pad := offsetRank - len(strides); pad > 0 {
		padded := make([]int, offsetRank)
		copy(padded[pad:], strides)
		strides = padded
	}
	return strides
}

// reorderStrides applies the layout permutation to a logical stride vector.
// For inputs, layout maps physical axis i to logical axis layout[i]; for
// outputs the permutation runs logical-to-physical, the inverse direction.
// An empty layout means identity.
func reorderStrides(strides, layout []int, isInput bool) []int {
	if len(layout) == 0 {
		return strides
	}
	reordered := make([]int, len(strides))
	for i := range layout {
		if isInput {
			reordered[i] = strides[layout[i]]
		} else {
			reordered[layout[i]] = strides[i]
		}
	}
	return reordered
}
