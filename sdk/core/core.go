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

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 同時要求 Uint64 / Float64 / UintN / IntN，讓實作可以依原生輸出寬度
// 提供各自的 bounded 取樣與浮點精度，而不必全部經由 Uint64 轉換。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約：同一實作、同一版本下，New(seed) 必須是決定性的，
	// 相同 seed 產生相同的輸出序列。每個 Session / 模擬 worker 的子 seed
	// 皆由 baseSeed 派生，回放與審計都依賴這個性質。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供小遊戲常用的取樣工具。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設 PRNG 與指定 seed 建立 Core，測試與模擬常用。
func NewWithSeed(seed int64) *Core {
	return &Core{newPCG64WithSeed(seed)}
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	return src[c.IntN(len(src))]
}

// Chance 以機率 p 回傳 true；p <= 0 恆為 false，p >= 1 恆為 true。
func (c *Core) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return c.Float64() < p
}

// IntRange 回傳 [lo,hi] 的整數，hi < lo 時回傳 lo。
func (c *Core) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.IntN(hi-lo+1)
}

// ShuffleInts 使用 Fisher-Yates 對 []int 就地重排，所有 N! 種排列機率相等。
func (c *Core) ShuffleInts(src []int) {
	Shuffle(c, src)
}

// SampleDistinct 從 [lo,hi] 中不重複抽取 k 個整數，依抽出順序回傳。
// k 超過區間大小時回傳整個區間的一個排列。
//
// 使用部分 Fisher-Yates：只洗前 k 個位置，O(hi-lo) 配置、O(k) 亂數。
func (c *Core) SampleDistinct(lo, hi, k int) []int {
	n := hi - lo + 1
	if n <= 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = lo + i
	}
	for i := 0; i < k; i++ {
		j := i + c.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k:k]
}

// Shuffle 對任意切片做 Fisher-Yates 就地重排。
func Shuffle[T any](c *Core, src []T) {
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
