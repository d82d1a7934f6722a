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

package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/megaodds/setting"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// StatReport 遊戲統計報告
type StatReport struct {
	Summary *SummaryReport `json:"Summary"`
	Mult    *MultReport    `json:"Mult"`
	Dist    *DistReport    `json:"Dist"`
	Player  *PlayerReport  `json:"Player,omitzero"`
	isDone  bool
}

// SummaryReport 金額單位皆為 KSh
type SummaryReport struct {
	GameName    string         `json:"GameName"`
	GameId      setting.GID    `json:"GameId"`
	Title       string         `json:"Title"`
	Payout      setting.Payout `json:"Payout"`
	BetUnits    []int          `json:"BetUnits"`
	Bet         int            `json:"Bet"`
	BetMode     int            `json:"BetMode"`
	TotalBet    float64        `json:"TotalBet"`
	TotalReturn float64        `json:"TotalReturn"`
	NetWin      float64        `json:"NetWin"`
	RTP         float64        `json:"RTP"`
	RtpCI       CI             `json:"RtpCI"`
	Std         float64        `json:"Std"`
	Cv          float64        `json:"Cv"`
	Wins        int            `json:"Wins"`
	HitRate     float64        `json:"HitRate"`
	HitRateCI   CI             `json:"HitRateCI"`
	BigWins     int            `json:"BigWins"`
	NoWinRounds int            `json:"NoWinRounds"`
	Rounds      int            `json:"Rounds"`
	LongestLoss int            `json:"LongestLoss"` // 最長連輸局數（跨 worker 合併時取最大）
}

// MultReport 回收倍數統計
type MultReport struct {
	ReturnMult      float64 `json:"ReturnMult"`      // 回收倍數總和
	ReturnMultSqSum float64 `json:"ReturnMultSqSum"` // 平方和
	MaxMult         float64 `json:"MaxMult"`
}

// DistReport 回收區間落點統計
type DistReport struct {
	WinBucket     []string  `json:"WinBucket"`
	ReturnCollect []int     `json:"ReturnCollect"`
	ReturnDist    []float64 `json:"ReturnDist"`
}

// PlayerReport 玩家統計
//
// 需使用 RecordWithPlayer 才會統計
type PlayerReport struct {
	InitBalance float64 `json:"InitBalance"`
	Balance     float64 `json:"Balance"`
	MaxBalance  float64 `json:"MaxBalance"`
	MinBalance  float64 `json:"MinBalance"`
	Bust        bool    `json:"Bust"`
	Cashout     bool    `json:"Cashout"`
	Alive       bool    `json:"Alive"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	s.Summary.RTP = s.Rtp()
	s.Summary.RtpCI = s.Ci()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()
	s.Summary.NetWin = s.Summary.TotalReturn - s.Summary.TotalBet
	if n := s.Summary.Rounds; n > 0 {
		s.Summary.HitRate, s.Summary.HitRateCI = proportionCICP(s.Summary.Wins, n, 0.95)
	}

	if s.Player != nil {
		s.Player.Alive = !(s.Player.Bust || s.Player.Cashout)
	}
	s.isDone = true
}

// Rtp 回傳整體 RTP（總回收 / 總押注）
func (s *StatReport) Rtp() float64 {
	if s.Summary.Rounds == 0 || s.Summary.TotalBet == 0 {
		return 0
	}
	return s.Summary.TotalReturn / s.Summary.TotalBet
}

// Std 回傳單局回收倍數的標準差
func (s *StatReport) Std() float64 {
	if s.Summary.Rounds < 2 {
		return 0
	}
	rounds := float64(s.Summary.Rounds)
	pow := s.Mult.ReturnMult * s.Mult.ReturnMult
	variance := (s.Mult.ReturnMultSqSum - pow/rounds) / (rounds - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Cv 回傳單局回收倍數的變異係數
func (s *StatReport) Cv() float64 {
	rtp := s.Rtp()
	if rtp <= 0 {
		return 0
	}
	return s.Std() / rtp
}

// Ci 回傳(95% Rtp)信賴區間
func (s *StatReport) Ci() CI {
	rtp := s.Rtp()
	std := s.Std()
	se := float64(0)
	if s.Summary.Rounds > 1 {
		se = std / math.Sqrt(float64(s.Summary.Rounds))
	}
	return CI{
		Lo: max(rtp-1.96*se, 0.0),
		Hi: rtp + 1.96*se,
	}
}

func (s *StatReport) WriteWith(w io.Writer, rep StatReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	fmt.Print(formatDuration(ut, s.Summary.Rounds))
	sk, sm := s.fmtBasic()
	fmt.Println(fmtTable(s.Summary.Title, sk, sm))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, rounds int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rps := int(float64(rounds) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nrps : %d rounds/sec\n", sec, rps)
	}
	sc := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nrps : %d rounds/sec\n", m, sc, rps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nrps : %d rounds/sec\n", h, m, sc, rps)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Game Name":    p.Sprintf("%s", s.Summary.GameName),
		"Game ID":      fmt.Sprintf("%d", s.Summary.GameId),
		"Payout":       string(s.Summary.Payout),
		"Bet":          p.Sprintf("KSh%d", s.Summary.Bet),
		"Total Rounds": p.Sprintf("%d", s.Summary.Rounds),
		"Total RTP":    p.Sprintf("%.2f %%", 100.0*s.Summary.RTP),
		"RTP 95% CI":   p.Sprintf("[%.2f%%,%.2f%%]", 100.0*s.Summary.RtpCI.Lo, 100.0*s.Summary.RtpCI.Hi),
		"Total Bet":    p.Sprintf("%.2f", s.Summary.TotalBet),
		"Total Return": p.Sprintf("%.2f", s.Summary.TotalReturn),
		"Net Win":      p.Sprintf("%.2f", s.Summary.NetWin),
		"Hit Rate":     p.Sprintf("%.2f %%", 100.0*s.Summary.HitRate),
		"Hit 95% CI":   p.Sprintf("[%.2f%%,%.2f%%]", 100.0*s.Summary.HitRateCI.Lo, 100.0*s.Summary.HitRateCI.Hi),
		"Big Wins":     p.Sprintf("%d", s.Summary.BigWins),
		"Max Mult":     p.Sprintf("%.2fx", s.Mult.MaxMult),
		"NoWin Rounds": p.Sprintf("%d", s.Summary.NoWinRounds),
		"Loss Streak":  p.Sprintf("%d", s.Summary.LongestLoss),
		"STD":          p.Sprintf("%.3f", s.Summary.Std),
		"CV":           p.Sprintf("%.3f", s.Summary.Cv),
	}
	keys := []string{"Game Name", "Game ID", "Payout", "Bet", "Total Rounds", "Total RTP", "RTP 95% CI", "Total Bet", "Total Return", "Net Win", "Hit Rate", "Hit 95% CI", "Big Wins", "Max Mult", "NoWin Rounds", "Loss Streak", "STD", "CV"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
