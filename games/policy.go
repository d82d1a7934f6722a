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

// Package games 實作各小遊戲的亂數與派彩規則 (Randomness & Payout Policy)。
//
// 一個 Policy 只負責「抽什麼、怎麼判輸贏、乘數多少」；
// 回合狀態、計時器與結算守門都在 megaodds.Machine，Policy 不持有下注金額以外的帳務狀態。
package games

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

// Selection 為玩家在開局前的選擇。需要選擇的遊戲在缺少選擇時拒絕開局。
type Selection struct {
	Side    string  `json:"side,omitempty"`     // coinflip: heads|tails, roulette: red|black|even|odd
	Numbers []int   `json:"numbers,omitempty"`  // keno / lotto
	Entrant *int    `json:"entrant,omitempty"`  // racing，指標以區分「未選」與第 0 號
	Spot    string  `json:"spot,omitempty"`     // penalty
	Mines   int     `json:"mines,omitempty"`    // mines 地雷數，0 取預設
	MatchID int     `json:"match_id,omitempty"` // sports
	Team    int     `json:"team,omitempty"`     // sports: 1 或 2
	Target  float64 `json:"target,omitempty"`   // 自動玩家的停利點（aviator 乘數 / mines 翻開數）
}

// ActionKind 回合中的玩家操作
type ActionKind string

const (
	ActHit     ActionKind = "hit"
	ActStand   ActionKind = "stand"
	ActReveal  ActionKind = "reveal"
	ActCashOut ActionKind = "cashout"
	ActScratch ActionKind = "scratch"
)

type Action struct {
	Kind  ActionKind `json:"action"`
	Index int        `json:"index"`
}

// Verdict 為一回合的最終判定；Mult 的意義由遊戲的派彩慣例 (setting.Payout) 決定。
type Verdict struct {
	Won  bool
	Mult decimal.Decimal
	Desc string
}

// Step 為每次推進後回報給狀態機的結果。
type Step struct {
	Stage     string        // 顯示用子階段，例如 rolling / flying / playing
	Settle    bool          // 本回合已有結果，Verdict 有效
	Verdict   Verdict       //
	Delay     time.Duration // 結算前的展示延遲
	StopTicks bool          // 停止動畫 tick
}

// Policy 為單一遊戲的規則。每台 Machine 持有自己的 Policy 實例，
// 跨回合保留的顯示狀態（輪盤角度、墜機紀錄）存在 Policy 上。
type Policy interface {
	// Start 驗證選擇並開始新回合；選擇缺漏或不合法回傳 errs.ErrInvalidRoundStart。
	Start(c *core.Core, bet int, sel Selection) (Play, Step, error)
	// AutoSelection 給模擬器用的預設選擇
	AutoSelection(c *core.Core) Selection
}

// Play 為一回合的進行狀態。
type Play interface {
	// Tick 推進一格動畫；純操作型遊戲不會被呼叫。
	Tick(c *core.Core) Step
	// Act 處理玩家操作；不適用的操作回傳 errs.ErrActionRejected。
	Act(c *core.Core, a Action) (Step, error)
	// View 目前的顯示狀態
	View() any
}

// AutoActor 可由模擬器自動操作的 Play
type AutoActor interface {
	// AutoAct 回傳下一個操作；ok=false 表示等待下一個 tick。
	AutoAct(c *core.Core) (a Action, ok bool)
}

// Concealer 結果在開局時就已決定、但要等展示延遲結束才揭露的 Play。
// 結算前狀態機以 PendingView 取代 View。
type Concealer interface {
	PendingView() any
}

// QuickPicker 支援快速選號的遊戲
type QuickPicker interface {
	QuickPick(c *core.Core) Selection
}

// noActions 給純 tick 驅動的遊戲嵌入
type noActions struct{}

func (noActions) Act(*core.Core, Action) (Step, error) {
	return Step{}, errs.ErrActionRejected.With("game takes no actions")
}

// noTicks 給純操作型遊戲嵌入
type noTicks struct{}

func (noTicks) Tick(*core.Core) Step { return Step{} }

func win(mult decimal.Decimal, desc string) Verdict {
	return Verdict{Won: true, Mult: mult, Desc: desc}
}

func lose(desc string) Verdict {
	return Verdict{Won: false, Mult: decimal.Zero, Desc: desc}
}

func invalidStart(format string, a ...any) error {
	return errs.ErrInvalidRoundStart.Withf(format, a...)
}

func rejected(format string, a ...any) error {
	return errs.ErrActionRejected.Withf(format, a...)
}

// dec 把設定中的 float 乘數轉成 decimal（使用最短表示，0.3 即 0.3）
func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func invalidFixed(gs *setting.GameSetting, format string, a ...any) error {
	return errs.NewWithExtra(errs.Fatal, "invalid fixed block for "+gs.GameName, fmt.Sprintf(format, a...))
}
