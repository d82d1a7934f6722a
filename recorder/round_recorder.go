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

package recorder

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/setting"
	"github.com/zintix-labs/megaodds/stats"
)

// RoundRecorder 遊戲紀錄員
//
// RoundRecorder 負責紀錄每回合的帶號金額，並透過 Done 輸出統計報表。
// 內部以「分」為單位的整數累計，Done 時才換算成 KSh。
type RoundRecorder struct {
	GameName string
	GameId   setting.GID
	Title    string
	Payout   setting.Payout
	BetUnits []int
	Bet      int
	BetMode  int
	InitBets int
	Basic    *BasicRecord
	Dist     *DistRecord
	Player   *PlayerRecord
}

// BasicRecord 基本遊戲資料紀錄
type BasicRecord struct {
	TotalBet    int64   // 分
	TotalReturn int64   // 分；贏為 bet + 淨利，輸為 0
	MultSum     float64 // 回收倍數總和
	MultSqSum   float64 // 平方和
	MaxMult     float64
	Wins        int
	BigWins     int
	Rounds      int
	LongestLoss int // 最長連輸局數
	lossRun     int
}

// DistRecord 回收區間落點統計
type DistRecord struct {
	Bucket        *stats.WinBucket
	ReturnCollect []int
}

// PlayerRecord 玩家統計（分）
type PlayerRecord struct {
	leaveLine   int64
	InitBalance int64
	Balance     int64
	MaxBalance  int64
	MinBalance  int64
	Bust        bool
	Cashout     bool
	Alive       bool
}

func NewRoundRecorder(gs *setting.GameSetting, initBets int, betMode int) (*RoundRecorder, error) {
	s := new(RoundRecorder)
	if len(gs.BetUnits) == 0 {
		return s, errs.NewFatal(fmt.Sprintf("betunits err %v", gs.BetUnits))
	}
	for _, v := range gs.BetUnits {
		if v <= 0 {
			return s, errs.NewFatal(fmt.Sprintf("betunits err %v", gs.BetUnits))
		}
	}
	if betMode < 0 || betMode >= len(gs.BetUnits) {
		return s, errs.NewFatal(fmt.Sprintf("betMode err %d", betMode))
	}
	if initBets < 0 {
		return s, errs.NewFatal(fmt.Sprintf("init bets must not negative integer, got: %d", initBets))
	}
	s.GameName = gs.GameName
	s.GameId = gs.GameID
	s.Title = gs.Title
	s.Payout = gs.Payout
	s.BetUnits = gs.BetUnits
	s.Bet = gs.BetUnits[betMode]
	s.BetMode = betMode
	s.InitBets = initBets
	s.Basic = new(BasicRecord)
	s.Dist = newDistRecord(s.Bet)
	s.Player = newPlayerRecord(s.Bet, initBets)
	return s, nil
}

func MergeRoundRecorder(r []*RoundRecorder) (*RoundRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge round record err : empty input")
	}
	r0 := r[0]
	s := &RoundRecorder{
		GameName: r0.GameName,
		GameId:   r0.GameId,
		Title:    r0.Title,
		Payout:   r0.Payout,
		BetUnits: r0.BetUnits,
		Bet:      r0.Bet,
		BetMode:  r0.BetMode,
		InitBets: r0.InitBets,
		Basic:    new(BasicRecord),
		Dist:     newDistRecord(r0.Bet),
		Player:   newPlayerRecord(r0.Bet, r0.InitBets),
	}
	for _, v := range r {
		if v.GameName != r0.GameName {
			return s, errs.NewFatal("merge round record err : different game name")
		}
		if v.Bet != r0.Bet {
			return s, errs.NewFatal("merge round record err : different bet")
		}
		if v.InitBets != r0.InitBets {
			return s, errs.NewFatal("merge round record err : different init bets")
		}
		s.Basic.TotalBet += v.Basic.TotalBet
		s.Basic.TotalReturn += v.Basic.TotalReturn
		s.Basic.MultSum += v.Basic.MultSum
		s.Basic.MultSqSum += v.Basic.MultSqSum
		s.Basic.MaxMult = max(s.Basic.MaxMult, v.Basic.MaxMult)
		s.Basic.Wins += v.Basic.Wins
		s.Basic.BigWins += v.Basic.BigWins
		s.Basic.Rounds += v.Basic.Rounds
		s.Basic.LongestLoss = max(s.Basic.LongestLoss, v.Basic.LongestLoss)

		for i := range len(v.Dist.ReturnCollect) {
			s.Dist.ReturnCollect[i] += v.Dist.ReturnCollect[i]
		}
	}
	return s, nil
}

// Record 以單回合結果更新基本統計（不含玩家）
func (s *RoundRecorder) Record(won bool, amount decimal.Decimal) {
	ret := s.returnCents(amount)
	s.recordBasic(won, ret)
	s.recordDist(ret)
}

// RecordWithPlayer 在 Record 的基礎上更新玩家餘額／離場狀態，並回傳玩家是否停止遊戲。
func (s *RoundRecorder) RecordWithPlayer(won bool, amount decimal.Decimal) bool {
	if s.Player.Balance < s.betCents() {
		return true
	}
	ret := s.returnCents(amount)
	s.recordBasic(won, ret)
	s.recordDist(ret)
	return s.recordPlayer(ret)
}

// CanPlay 玩家餘額是否足以再下一注
func (s *RoundRecorder) CanPlay() bool {
	return s.Player.Balance >= s.betCents()
}

func (s *RoundRecorder) Done() *stats.StatReport {
	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			GameName:    s.GameName,
			GameId:      s.GameId,
			Title:       s.Title,
			Payout:      s.Payout,
			BetUnits:    s.BetUnits,
			Bet:         s.Bet,
			BetMode:     s.BetMode,
			TotalBet:    ksh(s.Basic.TotalBet),
			TotalReturn: ksh(s.Basic.TotalReturn),
			Wins:        s.Basic.Wins,
			BigWins:     s.Basic.BigWins,
			NoWinRounds: s.Dist.ReturnCollect[0],
			Rounds:      s.Basic.Rounds,
			LongestLoss: s.Basic.LongestLoss,
		},
		Mult: &stats.MultReport{
			ReturnMult:      s.Basic.MultSum,
			ReturnMultSqSum: s.Basic.MultSqSum,
			MaxMult:         s.Basic.MaxMult,
		},
		Dist: &stats.DistReport{
			WinBucket:     stats.Buckets.WinBucketStr(),
			ReturnCollect: s.Dist.ReturnCollect,
		},
		Player: &stats.PlayerReport{
			InitBalance: ksh(s.Player.InitBalance),
			Balance:     ksh(s.Player.Balance),
			MaxBalance:  ksh(s.Player.MaxBalance),
			MinBalance:  ksh(s.Player.MinBalance),
			Bust:        s.Player.Bust,
			Cashout:     s.Player.Cashout,
			Alive:       s.Player.Alive,
		},
	}

	dist := make([]float64, len(report.Dist.ReturnCollect))
	if rf := float64(s.Basic.Rounds); rf > 0 {
		for i, c := range report.Dist.ReturnCollect {
			dist[i] = float64(c) / rf
		}
	}
	report.Dist.ReturnDist = dist
	return report
}

func (s *RoundRecorder) betCents() int64 { return int64(s.Bet) * 100 }

// returnCents 回收 = bet + 帶號金額（輸時帶號金額為 -bet，回收即 0）
func (s *RoundRecorder) returnCents(amount decimal.Decimal) int64 {
	ret := decimal.NewFromInt(int64(s.Bet)).Add(amount).Shift(2).Round(0).IntPart()
	return max(ret, 0)
}

func (s *RoundRecorder) recordBasic(won bool, ret int64) {
	b := s.Basic
	mult := float64(ret) / float64(s.betCents())
	b.TotalBet += s.betCents()
	b.TotalReturn += ret
	b.MultSum += mult
	b.MultSqSum += mult * mult
	if mult > b.MaxMult {
		b.MaxMult = mult
	}
	if won {
		b.Wins++
		b.lossRun = 0
	} else {
		b.lossRun++
		b.LongestLoss = max(b.LongestLoss, b.lossRun)
	}
	if mult >= stats.BigWinMult {
		b.BigWins++
	}
	b.Rounds++
}

func (s *RoundRecorder) recordDist(ret int64) {
	s.Dist.ReturnCollect[s.Dist.Bucket.Index(ret)]++
}

func (s *RoundRecorder) recordPlayer(ret int64) bool {
	p := s.Player
	b := s.betCents()

	p.Balance += ret - b
	if p.Balance > p.MaxBalance {
		p.MaxBalance = p.Balance
	}
	if p.Balance < p.MinBalance {
		p.MinBalance = p.Balance
	}

	leave := false
	if p.Balance < b {
		p.Bust = true
		leave = true
	}
	if p.Balance >= p.leaveLine {
		p.Cashout = true
		leave = true
	}
	return leave
}

func ksh(cents int64) float64 {
	return float64(cents) / 100
}

func newDistRecord(bet int) *DistRecord {
	return &DistRecord{
		Bucket:        stats.Buckets.GetBucketByBet(bet),
		ReturnCollect: make([]int, len(stats.Buckets.WinBucketStr())),
	}
}

func newPlayerRecord(bet int, initBets int) *PlayerRecord {
	b := int64(bet) * int64(initBets) * 100 // 初始帶入總金額
	return &PlayerRecord{
		InitBalance: b,
		Balance:     b,
		MaxBalance:  b,
		MinBalance:  b,
		leaveLine:   3 * b, // 離場條件(3倍本金)
	}
}
