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

// Package sampler 提供小遊戲用的加權抽樣：
// 權重總和小時用查找表 (LUT)，總和大或差異懸殊時用整數版 Vose Alias Table。
// 兩者抽樣皆為 O(1)，建表錯誤一律以 *errs.E 回報，由設定檔載入階段處理。
package sampler

import (
	"math"
	"math/bits"

	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/sdk/core"
)

// Picker 為加權抽樣器，Pick 回傳被抽中的索引，空表回傳 -1。
type Picker interface {
	Pick(c *core.Core) int
	Len() int
}

// lutThreshold 權重總和在此之下使用 LUT
const lutThreshold = 100_000

// NewWeighted 依權重總和選擇 LUT 或 AliasTable。
func NewWeighted(weights []int) (Picker, error) {
	total, err := sum(weights)
	if err != nil {
		return nil, err
	}
	if total <= lutThreshold {
		return BuildLUT(weights)
	}
	return BuildAliasTable(weights)
}

// Uniform 回傳 n 個等權重選項的抽樣器。
func Uniform(n int) Picker {
	return uniform(n)
}

type uniform int

func (u uniform) Pick(c *core.Core) int {
	if u <= 0 {
		return -1
	}
	return c.IntN(int(u))
}

func (u uniform) Len() int { return int(u) }

// AliasTable 為整數 scaling 的 Vose Alias Method。
//
//   - Prob: 每個槽位 scaling 後的機率（weight * Size）
//   - Aliases: 機率不足時指向補足機率的索引
//   - Total: 權重總和，抽樣時以 IntN(Total) 與 Prob 比較
//
// 全程整數運算，不經過 float64，抽樣固定兩次 IntN。
type AliasTable struct {
	Prob    []int
	Aliases []int
	Size    int
	Total   int
}

// BuildAliasTable 根據權重建立 AliasTable；負權重、全零或溢位回傳 Fatal。
func BuildAliasTable(weights []int) (*AliasTable, error) {
	total, err := sum(weights)
	if err != nil {
		return nil, err
	}
	n := len(weights)
	if hi, lo := bits.Mul64(uint64(total), uint64(n)); hi != 0 || lo > math.MaxInt64 {
		return nil, errs.NewFatal("alias table: weights are too large, causing overflow")
	}

	prob := make([]int, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		prob[i] = w * n
		if prob[i] < total {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		// 維持 sum(prob) = total * n
		prob[l] = prob[l] + prob[s] - total
		if prob[l] < total {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 浮點版會殘留的 bucket 在整數版必為滿格
	for _, i := range large {
		prob[i] = total
	}
	return &AliasTable{Prob: prob, Aliases: aliases, Size: n, Total: total}, nil
}

// Pick 先選槽位，再以 IntN(Total) < Prob[idx] 決定自己或別名。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.IntN(at.Total) < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}

func (at *AliasTable) Len() int { return at.Size }

// LUT 將權重展開成索引陣列，例如 [3,5,0] -> [0,0,0,1,1,1,1,1]。
// 記憶體與權重總和成正比，總和大時請改用 AliasTable。
type LUT []int

// BuildLUT 根據權重列表建立查找表。
func BuildLUT(weights []int) (LUT, error) {
	total, err := sum(weights)
	if err != nil {
		return nil, err
	}
	lut := make([]int, 0, total)
	for i, w := range weights {
		for j := 0; j < w; j++ {
			lut = append(lut, i)
		}
	}
	return lut, nil
}

// Pick 從 LUT 隨機位置取一個索引，空表回傳 -1
func (l LUT) Pick(c *core.Core) int {
	return c.Pick(l)
}

// Len 回傳展開前的選項數（最大索引 + 1）
func (l LUT) Len() int {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1] + 1
}

func sum(weights []int) (int, error) {
	if len(weights) == 0 {
		return 0, errs.NewFatal("sampler: empty weights")
	}
	total := 0
	for _, w := range weights {
		if w < 0 {
			return 0, errs.NewFatal("sampler: negative weight encountered")
		}
		if total > math.MaxInt-w {
			return 0, errs.NewFatal("sampler: total weight overflow int range")
		}
		total += w
	}
	if total == 0 {
		return 0, errs.NewFatal("sampler: all weights are zero")
	}
	return total, nil
}
