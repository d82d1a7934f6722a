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

package sched

import (
	"container/heap"
	"time"
)

// Manual 是虛擬時鐘，時間只在 Advance 時前進。
// 同一時間點的計時器依排程先後 (FIFO) 觸發。非併發安全，僅供單一 goroutine 使用。
type Manual struct {
	now time.Duration
	seq uint64
	q   manualQueue
}

// NewManual 建立虛擬時鐘
func NewManual() *Manual {
	return &Manual{}
}

// Now 自建立以來經過的虛擬時間
func (m *Manual) Now() time.Duration { return m.now }

func (m *Manual) After(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	return m.push(&manualTimer{at: m.now + d, fn: fn})
}

func (m *Manual) Every(d time.Duration, fn func()) Timer {
	d = clampInterval(d)
	return m.push(&manualTimer{at: m.now + d, every: d, fn: fn})
}

// Do 直接執行
func (m *Manual) Do(fn func()) error {
	fn()
	return nil
}

// Advance 前進 d，依序觸發到期的計時器。
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for m.q.Len() > 0 && m.q[0].at <= target {
		t := heap.Pop(&m.q).(*manualTimer)
		if t.stopped {
			continue
		}
		m.now = t.at
		if t.every > 0 {
			t.at += t.every
			m.push(t)
		} else {
			t.stopped = true
		}
		t.fn()
	}
	m.now = target
}

// RunFor 反覆前進到下一個到期點，直到佇列清空或超過 limit，回傳實際前進的時間。
func (m *Manual) RunFor(limit time.Duration) time.Duration {
	start := m.now
	for {
		next, ok := m.next()
		if !ok || next-start > limit {
			break
		}
		m.Advance(next - m.now)
	}
	return m.now - start
}

// Next 前進到下一個到期點並觸發該時間點的計時器；沒有待觸發的計時器時回傳 false。
func (m *Manual) Next() bool {
	next, ok := m.next()
	if !ok {
		return false
	}
	m.Advance(next - m.now)
	return true
}

// Pending 尚未觸發且未取消的計時器數量
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.q {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) next() (time.Duration, bool) {
	for m.q.Len() > 0 && m.q[0].stopped {
		heap.Pop(&m.q)
	}
	if m.q.Len() == 0 {
		return 0, false
	}
	return m.q[0].at, true
}

func (m *Manual) push(t *manualTimer) *manualTimer {
	m.seq++
	t.seq = m.seq
	heap.Push(&m.q, t)
	return t
}

type manualTimer struct {
	at      time.Duration
	every   time.Duration
	seq     uint64
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type manualQueue []*manualTimer

func (q manualQueue) Len() int { return len(q) }
func (q manualQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q manualQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *manualQueue) Push(x any)   { *q = append(*q, x.(*manualTimer)) }
func (q *manualQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
