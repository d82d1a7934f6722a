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

package megaodds

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/ledger"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/sdk/sched"
)

// loopBuffer 每個 Session 事件迴圈的佇列長度
const loopBuffer = 64

// Runtime 服務端的 Session 管理：每個 Session 一個事件迴圈，所有計時器與操作在迴圈上串行執行。
type Runtime struct {
	lab     *MegaOdds
	log     *slog.Logger
	journal *ledger.Journal // 所有 Session 共用，可為 nil

	mu        sync.RWMutex
	sessions  map[string]*runtimeEntry
	standings map[standingKey]*Standing // 已關閉 Session 的排行累計

	// 已關閉 Session 的累計，讓 Metrics 單調遞增
	retired struct {
		rounds, results, duplicates, panics atomic.Int64
	}

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

type runtimeEntry struct {
	s    *Session
	loop *sched.Loop
}

// Metrics Runtime 目前狀態
type Metrics struct {
	Sessions             int   `json:"sessions"`
	Rounds               int64 `json:"rounds"`
	Results              int64 `json:"results"`
	Panics               int64 `json:"panics"`
	DuplicateSettlements int64 `json:"duplicate_settlements"`
}

type RuntimeOption func(*Runtime)

// WithRuntimeJournal 每個 Session 的帳本異動都寫入 j，以 session id 區分。
// j 的生命週期由呼叫端管理，須在 Runtime.Close 之後才關閉。
func WithRuntimeJournal(j *ledger.Journal) RuntimeOption {
	return func(rt *Runtime) { rt.journal = j }
}

// NewRuntime 建立 Runtime；lab 應已 Freeze。
func (p *MegaOdds) NewRuntime(log *slog.Logger, opts ...RuntimeOption) *Runtime {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p.Freeze()
	rt := &Runtime{
		lab:       p,
		log:       log,
		sessions:  make(map[string]*runtimeEntry),
		standings: make(map[standingKey]*Standing),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(rt)
	}
	return rt
}

// Journal 共用的帳本 journal，未設定時為 nil
func (rt *Runtime) Journal() *ledger.Journal { return rt.journal }

// Open 為使用者開一個新的 Session 並啟動其事件迴圈
func (rt *Runtime) Open(user profile.User, opts ...SessionOption) (*Session, error) {
	if rt.closed.Load() {
		return nil, errs.ErrClosed.With("runtime closed: " + rt.ClosedReason())
	}
	loop := sched.NewLoop(loopBuffer, rt.log)
	base := []SessionOption{WithSessionLogger(rt.log)}
	if rt.journal != nil {
		base = append(base, WithJournal(rt.journal))
	}
	opts = append(base, opts...)
	s, err := rt.lab.NewSession(user, loop, opts...)
	if err != nil {
		_ = loop.Close(context.Background())
		return nil, err
	}

	rt.mu.Lock()
	if rt.closed.Load() {
		rt.mu.Unlock()
		_ = loop.Close(context.Background())
		return nil, errs.ErrClosed.With("runtime closed: " + rt.ClosedReason())
	}
	if _, dup := rt.sessions[s.ID()]; dup {
		rt.mu.Unlock()
		_ = loop.Close(context.Background())
		return nil, errs.Warnf("session %s already exists", s.ID())
	}
	rt.sessions[s.ID()] = &runtimeEntry{s: s, loop: loop}
	rt.mu.Unlock()

	rt.log.Info("session opened", slog.String("session", s.ID()), slog.Int64("user", user.ID))
	return s, nil
}

// Get 取得 Session；不存在時回傳 ErrSessionNotFound
func (rt *Runtime) Get(id string) (*Session, error) {
	rt.mu.RLock()
	e, ok := rt.sessions[id]
	rt.mu.RUnlock()
	if !ok {
		return nil, errs.ErrSessionNotFound.With(id)
	}
	return e.s, nil
}

// CloseSession 關閉 Session（取消其計時器與付款）並停止事件迴圈
func (rt *Runtime) CloseSession(ctx context.Context, id string) error {
	rt.mu.Lock()
	e, ok := rt.sessions[id]
	if ok {
		delete(rt.sessions, id)
	}
	rt.mu.Unlock()
	if !ok {
		return errs.ErrSessionNotFound.With(id)
	}
	return rt.retire(ctx, e)
}

func (rt *Runtime) retire(ctx context.Context, e *runtimeEntry) error {
	rounds, results, dup := e.s.stats()
	err := e.s.Close()
	if cerr := e.loop.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	rt.retired.rounds.Add(rounds)
	rt.retired.results.Add(results)
	rt.retired.duplicates.Add(dup)
	rt.retired.panics.Add(e.loop.Panics())
	rt.mu.Lock()
	rt.retireStanding(e.s)
	rt.mu.Unlock()
	rt.log.Info("session closed", slog.String("session", e.s.ID()))
	return err
}

// Sessions 目前開啟中的 Session id（排序後）
func (rt *Runtime) Sessions() []string {
	rt.mu.RLock()
	ids := make([]string, 0, len(rt.sessions))
	for id := range rt.sessions {
		ids = append(ids, id)
	}
	rt.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (rt *Runtime) Metrics() Metrics {
	rt.mu.RLock()
	entries := make([]*runtimeEntry, 0, len(rt.sessions))
	for _, e := range rt.sessions {
		entries = append(entries, e)
	}
	rt.mu.RUnlock()

	m := Metrics{
		Sessions:             len(entries),
		Rounds:               rt.retired.rounds.Load(),
		Results:              rt.retired.results.Load(),
		Panics:               rt.retired.panics.Load(),
		DuplicateSettlements: rt.retired.duplicates.Load(),
	}
	for _, e := range entries {
		rounds, results, dup := e.s.stats()
		m.Rounds += rounds
		m.Results += results
		m.DuplicateSettlements += dup
		m.Panics += e.loop.Panics()
	}
	return m
}

// Close 關閉所有 Session，之後 Open 一律失敗。可重複呼叫，原因只記錄第一次。
func (rt *Runtime) Close(ctx context.Context, reason string) error {
	var err error
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)

		rt.mu.Lock()
		rt.closed.Store(true)
		entries := rt.sessions
		rt.sessions = make(map[string]*runtimeEntry)
		rt.mu.Unlock()

		for _, e := range entries {
			if cerr := rt.retire(ctx, e); cerr != nil && err == nil {
				err = cerr
			}
		}
		close(rt.done)
	})
	return err
}

// Done 關閉後會被 close 的 channel
func (rt *Runtime) Done() <-chan struct{} { return rt.done }

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
