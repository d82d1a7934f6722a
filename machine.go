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
	"crypto/rand"
	"io"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/sdk/sched"
	"github.com/zintix-labs/megaodds/setting"
)

// Phase 回合狀態：Idle -> InProgress -> Settled -> Idle
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in_progress"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = PhaseIdle
	case "in_progress":
		*p = PhaseInProgress
	case "settled":
		*p = PhaseSettled
	default:
		return errs.Warnf("unknown round phase %q", b)
	}
	return nil
}

const (
	stageSettling = "settling"
	stageResult   = "result"
)

// ResultFunc 為 Game Result Channel：每個結算回合恰好呼叫一次。
// signedAmount 贏為正（淨利），輸為 -bet。
type ResultFunc func(gameName string, won bool, signedAmount decimal.Decimal, description string)

// Outcome 一回合的結算結果
type Outcome struct {
	Round       uint64          `json:"round"`
	Game        string          `json:"game"`
	Won         bool            `json:"won"`
	Amount      decimal.Decimal `json:"amount"`
	Mult        decimal.Decimal `json:"mult"`
	Description string          `json:"description"`
}

// MachineView 對外顯示用的狀態
type MachineView struct {
	Game      string   `json:"game"`
	Title     string   `json:"title"`
	Phase     Phase    `json:"phase"`
	Stage     string   `json:"stage"`
	GameStage string   `json:"game_stage,omitempty"`
	Bet       int      `json:"bet"`
	Round     uint64   `json:"round"`
	Play      any      `json:"play,omitempty"`
	Last      *Outcome `json:"last,omitempty"`
}

// Machine 為一款遊戲的回合狀態機（Round State Machine）。
//
// 所有計時器回呼都在 sch 上串行執行；對外方法也應透過同一個 Scheduler 呼叫（見 Session）。
// mu 只保護跨 goroutine 讀取 View 的情境。
//
// 結算守門：
//   - 每回合最多結算一次（settled 為單次旗標），重複觸發只計數不生效。
//   - 結算排程中（pending）拒絕所有玩家操作，例如踩雷後不能兌現。
//   - Leave 取消全部計時器，離開後不會再有遲到的結算；已判定的回合在 Leave 時立即結算。
type Machine struct {
	gs       *setting.GameSetting // 遊戲設定
	policy   games.Policy         // 亂數與派彩規則
	core     *core.Core           // RNG 核心
	sch      sched.Scheduler      // 計時器來源
	onResult ResultFunc           // 結果通道
	log      *slog.Logger         //
	initseed int64                // 出生 seed

	mu        sync.Mutex
	timers    sched.Timers // 本回合所有計時器，Leave / Replay 時一併取消
	ticker    sched.Timer  // 動畫 tick
	phase     Phase
	stage     string // 遊戲回報的子階段
	bet       int
	play      games.Play
	round     uint64
	pending   bool          // 已排程結算
	verdict   games.Verdict // pending 時的判定
	settled   bool          // 本回合已結算
	left      bool
	last      *Outcome
	dupSettle atomic.Int64
	settles   atomic.Int64
}

type machineOpts struct {
	sch      sched.Scheduler
	onResult ResultFunc
	log      *slog.Logger
}

// newMachine 以 crypto/rand 產生的 seed 建立 Machine
func newMachine(gs *setting.GameSetting, reg *games.Registry, cf core.PRNGFactory, o machineOpts) (*Machine, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newMachineWithSeed(gs, reg, cf, seed.Int64(), o)
}

// newMachineWithSeed 同一份設定加同一個 seed，回合序列可重現。
func newMachineWithSeed(gs *setting.GameSetting, reg *games.Registry, cf core.PRNGFactory, seed int64, o machineOpts) (*Machine, error) {
	if o.sch == nil {
		return nil, errs.NewFatal("scheduler required")
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p, err := reg.Build(gs)
	if err != nil {
		return nil, err
	}
	return &Machine{
		gs:       gs,
		policy:   p,
		core:     core.New(cf.New(seed)),
		sch:      o.sch,
		onResult: o.onResult,
		log:      o.log.With(slog.String("game", gs.GameName)),
		initseed: seed,
	}, nil
}

// Start 開始新回合。
//
// 非 Idle 或選擇缺漏回傳 ErrInvalidRoundStart，狀態不變。
// 餘額檢查由呼叫端 (Session) 負責；下注額必須在遊戲的 bet_units 內。
func (m *Machine) Start(bet int, sel games.Selection) error {
	m.mu.Lock()
	if m.left {
		m.mu.Unlock()
		return errs.ErrNoActiveGame.With("machine has left")
	}
	if m.phase != PhaseIdle {
		phase := m.phase
		m.mu.Unlock()
		return errs.ErrInvalidRoundStart.Withf("%s: round is %s", m.gs.GameName, phase)
	}
	if !m.gs.AllowsBet(bet) {
		m.mu.Unlock()
		return errs.ErrInvalidBet.Withf("%s: bet %d not in %v", m.gs.GameName, bet, m.gs.BetUnits)
	}
	play, st, err := m.policy.Start(m.core, bet, sel)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.round++
	round := m.round
	m.phase = PhaseInProgress
	m.bet = bet
	m.play = play
	m.pending = false
	m.settled = false
	m.stage = st.Stage
	if d := m.gs.Timing.TickInterval; d > 0 && !st.Settle && !st.StopTicks {
		m.ticker = m.timers.Add(m.sch.Every(d, func() { m.tick(round) }))
	}
	out := m.apply(round, st)
	m.mu.Unlock()

	m.emit(out)
	return nil
}

// Act 處理回合中的玩家操作
func (m *Machine) Act(a games.Action) error {
	m.mu.Lock()
	if m.phase != PhaseInProgress {
		m.mu.Unlock()
		return errs.ErrActionRejected.Withf("%s: no round in progress", m.gs.GameName)
	}
	if m.pending {
		m.mu.Unlock()
		return errs.ErrActionRejected.Withf("%s: round is settling", m.gs.GameName)
	}
	st, err := m.play.Act(m.core, a)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	out := m.apply(m.round, st)
	m.mu.Unlock()

	m.emit(out)
	return nil
}

// AutoAct 模擬器用：回傳目前回合的自動操作，沒有可做的操作時 ok=false。
func (m *Machine) AutoAct() (games.Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseInProgress || m.pending {
		return games.Action{}, false
	}
	aa, ok := m.play.(games.AutoActor)
	if !ok {
		return games.Action{}, false
	}
	return aa.AutoAct(m.core)
}

// Replay Settled -> Idle；Idle 時為 no-op。
func (m *Machine) Replay() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.phase {
	case PhaseIdle:
		return nil
	case PhaseSettled:
		m.reset()
		return nil
	default:
		return errs.ErrActionRejected.Withf("%s: round still in progress", m.gs.GameName)
	}
}

// Leave 取消所有計時器並離開。
//
// 已判定、只差展示延遲的回合（踩雷、墜機）當場結算，結果照常送入結果通道；
// 尚未判定的回合直接放棄（賭注只在結算時移動，所以不扣款）。回傳是否放棄了回合。
func (m *Machine) Leave() bool {
	m.mu.Lock()
	n := m.timers.StopAll()
	var out *Outcome
	abandoned := false
	if m.phase == PhaseInProgress && !m.settled {
		if m.pending {
			out = m.settle(m.round, m.verdict)
			m.timers.StopAll()
		} else {
			abandoned = true
			m.log.Debug("round abandoned", slog.Uint64("round", m.round), slog.Int("timers", n))
		}
	}
	m.ticker = nil
	m.phase = PhaseIdle
	m.play = nil
	m.pending = false
	m.left = true
	m.mu.Unlock()

	m.emit(out)
	return abandoned
}

// Staked 進行中尚未結算的下注額；其他狀態為 0。
func (m *Machine) Staked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseInProgress && !m.settled {
		return m.bet
	}
	return 0
}

// SelectionHint 依遊戲給出一組預設選擇（模擬器與快速選號用）
func (m *Machine) SelectionHint(quick bool) games.Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quick {
		if qp, ok := m.policy.(games.QuickPicker); ok {
			return qp.QuickPick(m.core)
		}
	}
	return m.policy.AutoSelection(m.core)
}

// SupportsQuickPick 遊戲是否支援快速選號
func (m *Machine) SupportsQuickPick() bool {
	_, ok := m.policy.(games.QuickPicker)
	return ok
}

func (m *Machine) View() MachineView {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := MachineView{
		Game:      m.gs.GameName,
		Title:     m.gs.Title,
		Phase:     m.phase,
		Stage:     m.stage,
		GameStage: m.stage,
		Bet:       m.bet,
		Round:     m.round,
		Last:      m.last,
	}
	switch {
	case m.pending && !m.settled:
		v.Stage = stageSettling
	case m.phase == PhaseSettled:
		v.Stage = stageResult
	}
	if m.play != nil {
		v.Play = m.play.View()
		if c, ok := m.play.(games.Concealer); ok && !m.settled {
			v.Play = c.PendingView()
		}
	}
	return v
}

func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Machine) Setting() *setting.GameSetting { return m.gs }

func (m *Machine) Last() *Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// DuplicateSettlements 被單次旗標擋下的重複結算次數
func (m *Machine) DuplicateSettlements() int64 { return m.dupSettle.Load() }

// Settlements 已結算回合數
func (m *Machine) Settlements() int64 { return m.settles.Load() }

func (m *Machine) InitSeed() int64 { return m.initseed }

// SnapshotCore 取得 Core 狀態
func (m *Machine) SnapshotCore() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.core.Snapshot()
}

// RestoreCore 恢復 Core 狀態，只允許在 Idle 時進行
func (m *Machine) RestoreCore(src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseIdle {
		return errs.ErrActionRejected.With("restore core while round in progress")
	}
	return m.core.Restore(src)
}

// ============================================================
// ** 內部：呼叫時須持有 mu **
// ============================================================

func (m *Machine) tick(round uint64) {
	m.mu.Lock()
	if m.phase != PhaseInProgress || m.round != round || m.pending {
		m.mu.Unlock()
		return
	}
	st := m.play.Tick(m.core)
	out := m.apply(round, st)
	m.mu.Unlock()

	m.emit(out)
}

// apply 套用一次推進結果；延遲為 0 的結算直接在此完成並回傳結果。
func (m *Machine) apply(round uint64, st games.Step) *Outcome {
	if st.Stage != "" {
		m.stage = st.Stage
	}
	if st.StopTicks || st.Settle {
		m.stopTicker()
	}
	if !st.Settle || m.pending {
		return nil
	}
	m.pending = true
	m.verdict = st.Verdict
	v := st.Verdict
	if st.Delay <= 0 {
		return m.settle(round, v)
	}
	m.timers.Add(m.sch.After(st.Delay, func() { m.fire(round, v) }))
	return nil
}

func (m *Machine) fire(round uint64, v games.Verdict) {
	m.mu.Lock()
	out := m.settle(round, v)
	m.mu.Unlock()

	m.emit(out)
}

func (m *Machine) settle(round uint64, v games.Verdict) *Outcome {
	if m.settled || round != m.round || m.left {
		m.dupSettle.Add(1)
		m.log.Warn("duplicate settlement ignored", slog.Uint64("round", round))
		return nil
	}
	m.settled = true
	m.settles.Add(1)

	won, amount := m.signed(v)
	out := &Outcome{
		Round:       round,
		Game:        m.gs.Title,
		Won:         won,
		Amount:      amount,
		Mult:        v.Mult,
		Description: v.Desc,
	}
	m.last = out
	m.phase = PhaseSettled

	if d := m.gs.Timing.ResetDelay; d > 0 {
		m.timers.Add(m.sch.After(d, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.round == round && m.phase == PhaseSettled {
				m.reset()
			}
		}))
	}
	return out
}

// signed 依派彩慣例換算帶號金額：贏取淨利，輸為 -bet。
// 淨利不為正的「贏」一律當作輸。
func (m *Machine) signed(v games.Verdict) (bool, decimal.Decimal) {
	loss := decimal.NewFromInt(int64(-m.bet))
	if !v.Won {
		return false, loss
	}
	p := m.gs.Payout.Profit(m.bet, v.Mult)
	if !p.IsPositive() {
		m.log.Warn("non-positive win treated as loss",
			slog.String("mult", v.Mult.String()),
			slog.String("payout", string(m.gs.Payout)))
		return false, loss
	}
	return true, p
}

func (m *Machine) stopTicker() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
}

func (m *Machine) reset() {
	m.timers.StopAll()
	m.ticker = nil
	m.phase = PhaseIdle
	m.stage = ""
	m.play = nil
	m.pending = false
}

func (m *Machine) emit(out *Outcome) {
	if out == nil || m.onResult == nil {
		return
	}
	m.onResult(out.Game, out.Won, out.Amount, out.Description)
}
