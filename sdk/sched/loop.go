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
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

// Loop 是單一 goroutine 的事件迴圈。
//
// 計時器透過 time.AfterFunc 觸發，觸發時只把回呼投遞進迴圈；
// 真正執行前會再檢查一次是否已被 Stop，所以 Stop 之後即使工作已在佇列中也不會執行。
type Loop struct {
	jobs      chan func()
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	panics    atomic.Int64
	log       *slog.Logger
}

// NewLoop 建立並啟動事件迴圈，buf 為佇列容量
func NewLoop(buf int, log *slog.Logger) *Loop {
	if buf < 1 {
		buf = 64
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &Loop{
		jobs:   make(chan func(), buf),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		log:    log,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case fn := <-l.jobs:
			l.exec(fn)
		case <-l.done:
			// 關閉前把已投遞的工作跑完
			for {
				select {
				case fn := <-l.jobs:
					l.exec(fn)
				default:
					return
				}
			}
		}
	}
}

// exec 回呼 panic 視為單一工作失敗，迴圈繼續
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.log.Error("sched.loop: callback panic", slog.Any("panic", r))
		}
	}()
	fn()
}

// Post 投遞工作但不等待
func (l *Loop) Post(fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	select {
	case l.jobs <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Do 投遞工作並等待完成
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.exited:
		// 迴圈在 drain 時已執行過的話 finished 也已關閉
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (l *Loop) After(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if lt.state.CompareAndSwap(timerPending, timerFired) {
				fn()
			}
		})
	})
	return lt
}

func (l *Loop) Every(d time.Duration, fn func()) Timer {
	d = clampInterval(d)
	lt := &loopTimer{}
	var tick func()
	tick = func() {
		_ = l.Post(func() {
			if lt.state.Load() != timerPending {
				return
			}
			fn()
			// fn 內可能已經 Stop
			if lt.state.Load() == timerPending {
				lt.reset(d)
			}
		})
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.t = time.AfterFunc(d, tick)
	return lt
}

// Close 停止接受新工作，跑完佇列後結束；ctx 逾時則提早返回。
func (l *Loop) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
	select {
	case <-l.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed 回報是否已關閉
func (l *Loop) Closed() bool { return l.closed.Load() }

// Panics 回呼中被 recover 的 panic 次數
func (l *Loop) Panics() int64 { return l.panics.Load() }

type loopTimer struct {
	mu    sync.Mutex
	t     *time.Timer
	state atomic.Int32
}

func (lt *loopTimer) reset(d time.Duration) {
	lt.mu.Lock()
	lt.t.Reset(d)
	lt.mu.Unlock()
}

func (lt *loopTimer) Stop() bool {
	if !lt.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	lt.mu.Lock()
	lt.t.Stop()
	lt.mu.Unlock()
	return true
}
