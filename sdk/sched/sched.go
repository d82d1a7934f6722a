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

// Package sched 把「計時器驅動的動畫迴圈」抽象成可替換的排程器。
//
// 所有回呼（After / Every / Do）在同一個 Scheduler 上彼此串行執行，
// 因此回呼內可以直接讀寫 Session 狀態而不需要額外鎖。
// Loop 為正式環境使用的單一 goroutine 事件迴圈；Manual 為測試與模擬使用的虛擬時鐘。
package sched

import (
	"time"

	"github.com/zintix-labs/megaodds/errs"
)

// ErrClosed 排程器已關閉
var ErrClosed = errs.ErrClosed.With("scheduler closed")

// MinInterval Every 的最小間隔，避免 0 間隔造成忙迴圈
const MinInterval = time.Millisecond

// Timer 為已排程的工作。Stop 回傳 true 表示成功阻止了（下一次）執行。
type Timer interface {
	Stop() bool
}

// Scheduler 為遊戲狀態機與付款模擬共用的排程抽象。
type Scheduler interface {
	// After 在 d 之後執行一次 fn
	After(d time.Duration, fn func()) Timer
	// Every 每隔 d 執行 fn，直到 Stop
	Every(d time.Duration, fn func()) Timer
	// Do 將 fn 與所有計時器回呼串行執行，並等待 fn 完成。
	// 不可在回呼內呼叫 Do。
	Do(fn func()) error
}

// Timers 收集一組計時器，方便離開遊戲時一次取消。
type Timers struct {
	ts []Timer
}

// Add 登記計時器並回傳它
func (g *Timers) Add(t Timer) Timer {
	g.ts = append(g.ts, t)
	return t
}

// StopAll 取消全部計時器，回傳實際被阻止的數量。
func (g *Timers) StopAll() int {
	n := 0
	for _, t := range g.ts {
		if t.Stop() {
			n++
		}
	}
	g.ts = g.ts[:0]
	return n
}

// Len 目前登記的計時器數量（含已觸發者）
func (g *Timers) Len() int { return len(g.ts) }

func clampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
