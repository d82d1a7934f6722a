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

package stats

import (
	"sort"
	"sync"
)

// WinBuckets 依「回收倍數」（回收 / 下注）把每回合分到固定區間。
//
// 回收：贏為 bet + 淨利，輸為 0。
//   - 區間: [0,0], (0,1), [1,2), [2,5), [5,10), [10,20), [20,50), [50,100), [100,300), [300,500), [500,1000), [1000,+inf)
type WinBuckets struct {
	winBucket    []int
	winBucketStr []string

	mu           sync.Mutex
	winBucketMap map[int]*WinBucket
}

// WinBucket 單一押注額的區間邊界（以分為單位）
type WinBucket struct {
	bounds []int64
}

// Buckets 預設分桶，請勿修改
var Buckets = &WinBuckets{
	winBucket:    []int{0, 1, 2, 5, 10, 20, 50, 100, 300, 500, 1000},
	winBucketStr: []string{"[0,0]", "(0,1)", "[1,2)", "[2,5)", "[5,10)", "[10,20)", "[20,50)", "[50,100)", "[100,300)", "[300,500)", "[500,1000)", "[1000,+inf)"},
	winBucketMap: make(map[int]*WinBucket),
}

// BigWinMult 回收倍數達此值視為大獎
const BigWinMult = 10

func (b *WinBuckets) WinBucketStr() []string {
	return b.winBucketStr
}

// GetBucketByBet 取得（必要時建立）押注額 bet 的分桶，可併發呼叫
func (b *WinBuckets) GetBucketByBet(bet int) *WinBucket {
	b.mu.Lock()
	defer b.mu.Unlock()
	if wb, ok := b.winBucketMap[bet]; ok {
		return wb
	}
	// 把「倍數邊界」換成「回收分數邊界」，跳過 0 倍
	bounds := make([]int64, 0, len(b.winBucket)-1)
	for _, v := range b.winBucket[1:] {
		bounds = append(bounds, int64(bet)*int64(v)*100)
	}
	wb := &WinBucket{bounds: bounds}
	b.winBucketMap[bet] = wb
	return wb
}

// Index 回收 ret（分）對應的區間位置
func (wb *WinBucket) Index(ret int64) int {
	if ret <= 0 {
		return 0
	}
	// 第一個 > ret 的邊界
	i := sort.Search(len(wb.bounds), func(i int) bool { return wb.bounds[i] > ret })
	return i + 1
}
