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
	"time"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/auth"
	"github.com/zintix-labs/megaodds/catalog"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/stats"
)

// UserResponse 不含 token 與密碼
type UserResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Balance string `json:"balance"`
	Display string `json:"display"` // KSh162,500
	Demo    bool   `json:"demo,omitempty"`
}

func NewUserResponse(u profile.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Email:   u.Email,
		Balance: u.Balance.String(),
		Display: corefmt.KSh(u.Balance),
		Demo:    u.Demo,
	}
}

// TokenResponse 登入 / 註冊成功
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

func NewTokenResponse(t auth.Token) TokenResponse {
	return TokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   t.ExpiresAt,
		User:        NewUserResponse(t.User),
	}
}

// GameListResponse GET /games
type GameListResponse struct {
	Games []catalog.Summary `json:"games"`
}

// SessionResponse 所有 Session 操作都回傳目前的大廳狀態
type SessionResponse struct {
	megaodds.SessionView
	Display string `json:"display"` // 目前餘額 KSh 格式
}

func NewSessionResponse(v megaodds.SessionView) SessionResponse {
	return SessionResponse{SessionView: v, Display: corefmt.KSh(v.Ledger.Balance)}
}

// QuickPickResponse 快速選號結果，可直接帶入 start
type QuickPickResponse struct {
	Selection games.Selection `json:"selection"`
}

// LeaderboardResponse GET /leaderboard
type LeaderboardResponse struct {
	Standings []megaodds.Standing `json:"standings"`
}

// SimResponse 模擬報表
type SimResponse struct {
	Seed     int64             `json:"seed"`
	Stats    *stats.StatReport `json:"stats"`
	UsedTime int64             `json:"used_ms"`
}

type SimPlayersResponse struct {
	Seed        int64                   `json:"seed"`
	StatsReport *stats.StatReport       `json:"stats"`
	Estimator   *stats.EstimatorPlayers `json:"est"`
	UsedTime    int64                   `json:"used_ms"`
}

// ErrorResponse 錯誤回應 body
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"` // 領域錯誤碼，例如 insufficient_balance
	Status int    `json:"status"`
}
