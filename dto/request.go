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

package dto

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
)

// maxBody 請求 body 上限 (1MiB)
const maxBody = 1 << 20

// Decode 把 JSON body 解碼成 T。
//
// 注意：
//   - 空 body 視為零值請求（例如 POST /sessions 不帶下注額）。
//   - 開啟 DisallowUnknownFields()，未知欄位直接拒絕，以避免靜默丟資料。
//   - 只做格式解碼；合法性（遊戲是否存在、下注額是否可選）由 Session 決定。
func Decode[T any](r *http.Request) (*T, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(T)
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			return req, nil
		}
		return nil, errs.Warnf("invalid json: %v", err)
	}
	return req, nil
}

// CredentialsRequest 註冊 / 登入
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OpenSessionRequest POST /sessions，bet 可省略
type OpenSessionRequest struct {
	Bet  int    `json:"bet,omitempty"`
	Seed *int64 `json:"seed,omitempty"` // 固定 seed 以重現回合
}

type BetRequest struct {
	Amount int `json:"amount"`
}

type OpenGameRequest struct {
	Game string `json:"game"`
}

func (r *OpenGameRequest) Valid() error {
	r.Game = strings.TrimSpace(r.Game)
	if r.Game == "" {
		return errs.NewWarn("game is required")
	}
	return nil
}

// StartRequest 開局；quick_pick 為 true 時以快速選號取代 selection
type StartRequest struct {
	Selection games.Selection `json:"selection"`
	QuickPick bool            `json:"quick_pick,omitempty"`
}

// ActRequest {action, index}
type ActRequest struct {
	Action games.ActionKind `json:"action"`
	Index  int              `json:"index"`
}

func (r *ActRequest) Parse() (games.Action, error) {
	switch r.Action {
	case games.ActHit, games.ActStand, games.ActReveal, games.ActCashOut, games.ActScratch:
		return games.Action{Kind: r.Action, Index: r.Index}, nil
	case "":
		return games.Action{}, errs.NewWarn("action is required")
	default:
		return games.Action{}, errs.Warnf("unknown action %q", r.Action)
	}
}

// PaymentRequest 儲值帶 phone，提領帶 account
type PaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Phone   string          `json:"phone,omitempty"`
	Account string          `json:"account,omitempty"`
}

// SimRequest POST /sim
type SimRequest struct {
	Game    string `json:"game"`
	BetMode int    `json:"bet_mode"`
	Rounds  int    `json:"rounds"`
	Workers int    `json:"workers,omitempty"`
	Seed    *int64 `json:"seed,omitempty"`
}

// MaxSimRounds 單次請求的回合上限
const MaxSimRounds = 1_000_000

func (r *SimRequest) Valid() error {
	if strings.TrimSpace(r.Game) == "" {
		return errs.NewWarn("game is required")
	}
	if r.BetMode < 0 {
		return errs.NewWarn("bet_mode must be non-negative integer")
	}
	if r.Rounds < 1 || r.Rounds > MaxSimRounds {
		return errs.NewWarn("rounds must be between 1 to 1,000,000")
	}
	r.Workers = min(max(r.Workers, 1), 16)
	return nil
}

// SimPlayersRequest POST /simplayer
type SimPlayersRequest struct {
	Game    string `json:"game"`
	Players int    `json:"players"`
	Bets    int    `json:"bets"` // 每位玩家帶入的注數
	BetMode int    `json:"bet_mode"`
	Rounds  int    `json:"rounds"`
	Seed    *int64 `json:"seed,omitempty"`
}

func (r *SimPlayersRequest) Valid() error {
	if strings.TrimSpace(r.Game) == "" {
		return errs.NewWarn("game is required")
	}
	if r.Players < 1 || r.Players > 100_000 {
		return errs.NewWarn("players must be between 1 and 100,000")
	}
	if r.Bets < 1 {
		return errs.NewWarn("bets must be at least 1")
	}
	if r.BetMode < 0 {
		return errs.NewWarn("bet_mode must be non-negative integer")
	}
	if r.Rounds < 1 || r.Rounds > 15_000 {
		return errs.NewWarn("rounds must be between 1 and 15,000")
	}
	return nil
}

// SimByConfigRequest 以請求帶入的遊戲設定 (YAML 或 JSON) 模擬
type SimByConfigRequest struct {
	BetMode int    `json:"bet_mode"`
	Rounds  int    `json:"rounds"`
	Config  string `json:"cfg"`
	Seed    *int64 `json:"seed,omitempty"`
}

func (r *SimByConfigRequest) Valid() error {
	if r.Config == "" {
		return errs.NewWarn("cfg is required")
	}
	if r.Rounds < 1 || r.Rounds > MaxSimRounds {
		return errs.NewWarn("rounds must be between 1 to 1,000,000")
	}
	if r.BetMode < 0 {
		return errs.NewWarn("bet_mode must be non-negative integer")
	}
	return nil
}

// RoundResult 一回合的帶號結果
type RoundResult struct {
	Won    bool            `json:"won"`
	Amount decimal.Decimal `json:"amount"`
}

// StatRequest 以外部回合紀錄計算統計報表
type StatRequest struct {
	Game    string        `json:"game"`
	BetMode int           `json:"bet_mode"`
	Results []RoundResult `json:"results"`
}

func (r *StatRequest) Valid() error {
	if strings.TrimSpace(r.Game) == "" {
		return errs.NewWarn("game is required")
	}
	if len(r.Results) < 1 {
		return errs.NewWarn("round must > 0")
	}
	return nil
}
