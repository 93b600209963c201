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
	"slices"
	"testing"
)

func identityLayout(n int) []int {
	l := make([]int, n)
	for i := range l {
		l[i] = i
	}
	return l
}

func TestStridesRowMajor(t *testing.T) {
	// No unit dimensions: the standard row-major formula applies.
	got := Strides([]int{2, 3, 4}, identityLayout(3), 4, true, 2)
	want := []int{48, 16}
	if !slices.Equal(got, want) {
		t.Errorf("Strides([2,3,4]) = %v, want %v", got, want)
	}
}

func TestStridesBroadcastDim(t *testing.T) {
	// A dimension of extent 1 contributes stride 0 regardless of neighbors.
	got := Strides([]int{5, 1, 7}, identityLayout(3), 8, true, 2)
	want := []int{56, 0}
	if !slices.Equal(got, want) {
		t.Errorf("Strides([5,1,7]) = %v, want %v", got, want)
	}

	got = Strides([]int{1, 6, 3}, identityLayout(3), 2, true, 2)
	want = []int{0, 6}
	if !slices.Equal(got, want) {
		t.Errorf("Strides([1,6,3]) = %v, want %v", got, want)
	}
}

func TestStridesIdentityLayoutBothDirections(t *testing.T) {
	shape := []int{2, 3, 4}
	for _, isInput := range []bool{true, false} {
		withLayout := Strides(shape, identityLayout(3), 4, isInput, 5)
		noLayout := Strides(shape, nil, 4, isInput, 5)
		if !slices.Equal(withLayout, noLayout) {
			t.Errorf("isInput=%v: identity layout %v != no layout %v",
				isInput, withLayout, noLayout)
		}
	}
}

func TestStridesPermutedLayout(t *testing.T) {
	// shape [2,3,4], elemSize 1: logical strides [12,4,1].
	// Input direction: reordered[i] = strides[layout[i]].
	shape := []int{2, 3, 4}
	layout := []int{2, 0, 1}

	got := Strides(shape, layout, 1, true, 2)
	want := []int{1, 12} // [strides[2], strides[0], strides[1]] minus the innermost
	if !slices.Equal(got, want) {
		t.Errorf("input-direction Strides = %v, want %v", got, want)
	}

	// Output direction: reordered[layout[i]] = strides[i].
	got = Strides(shape, layout, 1, false, 2)
	want = []int{4, 1} // [4,1,12] minus the innermost
	if !slices.Equal(got, want) {
		t.Errorf("output-direction Strides = %v, want %v", got, want)
	}
}

func TestReorderRoundTrip(t *testing.T) {
	// The input-direction reorder and the output-direction reorder are
	// inverse permutations of each other.
	strides := []int{100, 20, 5, 1}
	layouts := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}
	for _, layout := range layouts {
		inDir := reorderStrides(strides, layout, true)
		back := reorderStrides(inDir, layout, false)
		if !slices.Equal(back, strides) {
			t.Errorf("layout %v: round trip gave %v, want %v", layout, back, strides)
		}
	}
}

func TestStridesLeftPadding(t *testing.T) {
	// The result always has length offsetRank, whatever the tensor's rank.
	for _, shape := range [][]int{{4}, {2, 4}, {2, 3, 4}, {2, 2, 2, 2, 2, 2}} {
		got := Strides(shape, identityLayout(len(shape)), 4, true, ParallelRank-1)
		if len(got) != ParallelRank-1 {
			t.Errorf("shape %v: len = %d, want %d", shape, len(got), ParallelRank-1)
		}
	}
}

func TestStridesConcreteScenarios(t *testing.T) {
	// [2,3,4], elemSize 4: raw [48,16,4], drop innermost, pad to rank 5.
	got := Strides([]int{2, 3, 4}, identityLayout(3), 4, true, 5)
	want := []int{0, 0, 0, 48, 16}
	if !slices.Equal(got, want) {
		t.Errorf("scenario 1: %v, want %v", got, want)
	}

	// [5,1,7], elemSize 8: raw [56,0,8], drop innermost, pad to rank 5.
	got = Strides([]int{5, 1, 7}, identityLayout(3), 8, false, 5)
	want = []int{0, 0, 0, 56, 0}
	if !slices.Equal(got, want) {
		t.Errorf("scenario 2: %v, want %v", got, want)
	}
}

func TestPadMasterShape(t *testing.T) {
	got := padMasterShape([]int{2, 3, 64})
	want := []int{1, 1, 1, 2, 3, 64}
	if !slices.Equal(got, want) {
		t.Errorf("padMasterShape = %v, want %v", got, want)
	}

	full := []int{9, 8, 7, 6, 5, 4}
	if !slices.Equal(padMasterShape(full), full) {
		t.Errorf("full-rank master shape must pass through unchanged")
	}
}
