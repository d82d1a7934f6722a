// Copyright 2025 Zintix Labs
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

package core

import (
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.Float64() != c2.Float64() {
		t.Fatalf("Float64 mismatch")
	}
}

func TestCoreSnapshotRestore(t *testing.T) {
	c := NewWithSeed(3)
	c.Uint64()
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := []int{c.IntN(100), c.IntN(100), c.IntN(100)}
	if err := c.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := []int{c.IntN(100), c.IntN(100), c.IntN(100)}
	if !slices.Equal(want, got) {
		t.Fatalf("restore should replay the sequence: %v vs %v", want, got)
	}
}

func TestCorePickAndShuffle(t *testing.T) {
	c := New(Default().New(9))
	if got := c.Pick(nil); got != -1 {
		t.Fatalf("expected -1 for empty pick, got %d", got)
	}

	src := []int{1, 2, 3, 4}
	c.ShuffleInts(src)
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal([]int{1, 2, 3, 4}, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestSampleDistinct(t *testing.T) {
	c := NewWithSeed(11)
	for round := 0; round < 200; round++ {
		draw := c.SampleDistinct(1, 80, 20)
		if len(draw) != 20 {
			t.Fatalf("want 20 draws, got %d", len(draw))
		}
		seen := map[int]bool{}
		for _, v := range draw {
			if v < 1 || v > 80 || seen[v] {
				t.Fatalf("bad draw %v", draw)
			}
			seen[v] = true
		}
	}
	if got := c.SampleDistinct(1, 3, 10); len(got) != 3 {
		t.Fatalf("k larger than range should clamp, got %v", got)
	}
	if got := c.SampleDistinct(5, 4, 1); got != nil {
		t.Fatalf("empty range should return nil")
	}
}

func TestChanceAndRange(t *testing.T) {
	c := NewWithSeed(5)
	if c.Chance(0) || !c.Chance(1) {
		t.Fatalf("chance bounds broken")
	}
	hits := 0
	const n = 100000
	for i := 0; i < n; i++ {
		if c.Chance(0.5) {
			hits++
		}
	}
	if p := float64(hits) / n; p < 0.49 || p > 0.51 {
		t.Fatalf("fair coin drifted: %.4f", p)
	}
	for i := 0; i < 1000; i++ {
		if v := c.IntRange(1, 6); v < 1 || v > 6 {
			t.Fatalf("die face out of range: %d", v)
		}
	}
	if c.IntRange(4, 4) != 4 {
		t.Fatalf("degenerate range")
	}
}
