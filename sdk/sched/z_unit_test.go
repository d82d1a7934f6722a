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
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zintix-labs/megaodds/errs"
)

func TestManualOrderAndFIFO(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(200*time.Millisecond, func() { got = append(got, "b") })
	m.After(100*time.Millisecond, func() { got = append(got, "a1") })
	m.After(100*time.Millisecond, func() { got = append(got, "a2") })
	m.Advance(150 * time.Millisecond)
	if !slices.Equal(got, []string{"a1", "a2"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	m.Advance(time.Second)
	if !slices.Equal(got, []string{"a1", "a2", "b"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if m.Now() != 1150*time.Millisecond {
		t.Fatalf("unexpected now: %v", m.Now())
	}
}

func TestManualEveryStopsInsideCallback(t *testing.T) {
	m := NewManual()
	n := 0
	var tk Timer
	tk = m.Every(100*time.Millisecond, func() {
		n++
		if n == 10 {
			tk.Stop()
		}
	})
	m.Advance(5 * time.Second)
	if n != 10 {
		t.Fatalf("expected 10 ticks, got %d", n)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending timers")
	}
}

func TestManualStopAndRunFor(t *testing.T) {
	m := NewManual()
	fired := false
	var g Timers
	g.Add(m.After(time.Second, func() { fired = true }))
	g.Add(m.Every(time.Second, func() { fired = true }))
	if g.StopAll() != 2 {
		t.Fatalf("both timers should be stopped")
	}
	m.Advance(10 * time.Second)
	if fired {
		t.Fatalf("stopped timers must not fire")
	}

	steps := 0
	m.After(time.Second, func() {
		steps++
		m.After(2*time.Second, func() { steps++ })
	})
	used := m.RunFor(time.Minute)
	if steps != 2 || used != 3*time.Second {
		t.Fatalf("RunFor should chase chained timers: steps=%d used=%v", steps, used)
	}
}

func TestManualNext(t *testing.T) {
	m := NewManual()
	var got []int
	m.After(3*time.Second, func() { got = append(got, 3) })
	m.After(time.Second, func() { got = append(got, 1) })
	if !m.Next() || m.Now() != time.Second || len(got) != 1 {
		t.Fatalf("first Next should fire the 1s timer: now=%v got=%v", m.Now(), got)
	}
	if !m.Next() || m.Now() != 3*time.Second || len(got) != 2 {
		t.Fatalf("second Next should fire the 3s timer: now=%v got=%v", m.Now(), got)
	}
	if m.Next() {
		t.Fatalf("empty queue must report false")
	}
}

func TestLoopAfterAndStop(t *testing.T) {
	l := NewLoop(8, nil)
	defer l.Close(context.Background())

	fired := make(chan struct{})
	l.After(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timer did not fire")
	}

	var n atomic.Int32
	tm := l.After(20*time.Millisecond, func() { n.Add(1) })
	if !tm.Stop() {
		t.Fatalf("stop should succeed on pending timer")
	}
	if tm.Stop() {
		t.Fatalf("second stop should report false")
	}
	time.Sleep(40 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("stopped timer fired")
	}
}

func TestLoopEveryAndDo(t *testing.T) {
	l := NewLoop(8, nil)
	defer l.Close(context.Background())

	count := 0 // 只在迴圈中存取
	var tk Timer
	stopped := make(chan struct{})
	err := l.Do(func() {
		tk = l.Every(2*time.Millisecond, func() {
			count++
			if count == 5 {
				tk.Stop()
				close(stopped)
			}
		})
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("ticker did not reach 5")
	}
	time.Sleep(10 * time.Millisecond)
	var got int
	_ = l.Do(func() { got = count })
	if got != 5 {
		t.Fatalf("ticker kept running after stop: %d", got)
	}
}

func TestLoopRecoversPanicAndCloses(t *testing.T) {
	l := NewLoop(4, nil)
	if err := l.Do(func() { panic("boom") }); err != nil {
		t.Fatalf("panic should be contained: %v", err)
	}
	if l.Panics() != 1 {
		t.Fatalf("expected 1 recovered panic")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Do(func() {}); !errors.Is(err, errs.ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}
