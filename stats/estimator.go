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
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

const confidence = 0.95

// EstimatorPlayers 多玩家模擬的體驗評估
type EstimatorPlayers struct {
	RtpStat     RtpStat
	EventStat   EventStat
	SessionStat SessionStat
}

// RtpStat 玩家 RTP 的分布
type RtpStat struct {
	ExpMedian PointStat // 體驗中位數
	ExpPerc   ExpPerc   // 第 q 分位玩家的 RTP
	RtpPerc   RtpPerc   // RTP 不超過門檻的玩家比例
}

// ExpPerc 最差 10% / 33% ... 玩家的 RTP
type ExpPerc struct {
	ExpP10 PointStat
	ExpP33 PointStat
	ExpP67 PointStat
	ExpP90 PointStat
}

// RtpPerc 體驗到 <= 30% / 50% ... RTP 的玩家比例
type RtpPerc struct {
	Rtp30  PointStat
	Rtp50  PointStat
	Rtp70  PointStat
	Rtp100 PointStat
}

// PointStat 點估計與信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

type EventStat struct {
	BigWin     EventCount // 每位玩家中大獎（回收 >= BigWinMult 倍）的次數
	Bucket     BucketEvent
	LossStreak StreakStat // 每位玩家的最長連輸局數
}

// EventCount 事件發生 0 / 1 / 2 / 3+ 次的玩家比例
type EventCount struct {
	Zero PointStat
	One  PointStat
	Two  PointStat
	More PointStat
}

type BucketEvent struct {
	BucketLable []string
	BucketCount []EventCount
}

// StreakStat 最長連輸的中位數與 P90（局數）
type StreakStat struct {
	Median PointStat
	P90    PointStat
}

// SessionStat 離場原因
type SessionStat struct {
	Bust    PointStat // 破產
	Cashout PointStat // 贏滿離場
	Alive   PointStat // 局數用完仍在場
}

// EstimatorPlayerExp 由每位玩家的報表推估整體體驗：RTP 分布、事件次數、連輸長度與離場原因。
func EstimatorPlayerExp(sts []*StatReport) *EstimatorPlayers {
	out := &EstimatorPlayers{}
	n := len(sts)
	if n == 0 {
		return out
	}

	rtp := make([]float64, n)
	streak := make([]float64, n)
	bigWins := make([]int, n)
	var bust, cash, alive int
	for i, s := range sts {
		rtp[i] = s.Rtp()
		streak[i] = float64(s.Summary.LongestLoss)
		bigWins[i] = s.Summary.BigWins
		if p := s.Player; p != nil {
			if p.Bust {
				bust++
			}
			if p.Cashout {
				cash++
			}
			if p.Alive {
				alive++
			}
		}
	}
	slices.Sort(rtp)
	slices.Sort(streak)

	out.RtpStat = RtpStat{
		ExpMedian: quantileStat(rtp, 0.5),
		ExpPerc: ExpPerc{
			ExpP10: quantileStat(rtp, 0.10),
			ExpP33: quantileStat(rtp, 1.0/3.0),
			ExpP67: quantileStat(rtp, 2.0/3.0),
			ExpP90: quantileStat(rtp, 0.90),
		},
		RtpPerc: RtpPerc{
			Rtp30:  shareAtMost(rtp, 0.30),
			Rtp50:  shareAtMost(rtp, 0.50),
			Rtp70:  shareAtMost(rtp, 0.70),
			Rtp100: shareAtMost(rtp, 1.00),
		},
	}

	out.EventStat.BigWin = countEvents(bigWins)
	labels := Buckets.WinBucketStr()
	out.EventStat.Bucket = BucketEvent{BucketLable: labels, BucketCount: make([]EventCount, len(labels))}
	hits := make([]int, n)
	for bi := range labels {
		for i, s := range sts {
			hits[i] = 0
			if bi < len(s.Dist.ReturnCollect) {
				hits[i] = s.Dist.ReturnCollect[bi]
			}
		}
		out.EventStat.Bucket.BucketCount[bi] = countEvents(hits)
	}
	out.EventStat.LossStreak = StreakStat{
		Median: quantileStat(streak, 0.5),
		P90:    quantileStat(streak, 0.90),
	}

	out.SessionStat = SessionStat{
		Bust:    share(bust, n),
		Cashout: share(cash, n),
		Alive:   share(alive, n),
	}
	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

func share(k, n int) PointStat {
	hat, ci := proportionCICP(k, n, confidence)
	return PointStat{Hat: hat, CI: ci}
}

// countEvents 以每位玩家的次數統計 0 / 1 / 2 / 3+ 的比例
func countEvents(counts []int) EventCount {
	var c [4]int
	for _, v := range counts {
		c[min(max(v, 0), 3)]++
	}
	n := len(counts)
	return EventCount{Zero: share(c[0], n), One: share(c[1], n), Two: share(c[2], n), More: share(c[3], n)}
}

// shareAtMost P(X <= x0)；sorted 需已排序
func shareAtMost(sorted []float64, x0 float64) PointStat {
	k, found := slices.BinarySearch(sorted, x0)
	for found && k < len(sorted) && sorted[k] <= x0 {
		k++
	}
	return share(k, len(sorted))
}

func quantileStat(sorted []float64, q float64) PointStat {
	lo, hi := quantileCI(sorted, q, confidence)
	return PointStat{Hat: quantilePoint(sorted, q), CI: CI{Lo: lo, Hi: hi}}
}

// Clopper-Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)
	if k > 0 {
		ci.Lo = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	ci.Hi = 1
	if k < n {
		ci.Hi = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return
}

// quantileCI 把第 q 分位的秩視為二項，以 Beta 反推 p 的範圍，再換回樣本值。sorted 需已排序。
func quantileCI(sorted []float64, q, confidence float64) (float64, float64) {
	n := len(sorted)
	if n == 0 {
		return 0, 0
	}
	alpha := 1 - confidence
	k := min(max(int(q*float64(n)), 1), max(n-1, 1))
	pLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	pHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(max(n-k, 1))}.Quantile(1 - alpha/2)

	li := clampIdx(int(pLo*float64(n)), n)
	ui := clampIdx(int(pHi*float64(n))-1, n)
	return sorted[li], sorted[ui]
}

// quantilePoint 最近秩法；sorted 需已排序
func quantilePoint(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[clampIdx(int(q*float64(len(sorted))), len(sorted))]
}

func clampIdx(i, n int) int {
	return min(max(i, 0), n-1)
}

// ============================================================
// ** 輸出函數 **
// ============================================================

// WriteWith 以指定渲染器輸出
func (est *EstimatorPlayers) WriteWith(w io.Writer, rep EstimatorRender) error {
	return rep.Write(w, est)
}

func (est *EstimatorPlayers) Out() {
	r := est.RtpStat
	printSection("RTP (Player Experience)", []row{
		{"Median RTP", pct(r.ExpMedian)},
		{"P10 RTP", pct(r.ExpPerc.ExpP10)},
		{"P33 RTP", pct(r.ExpPerc.ExpP33)},
		{"P67 RTP", pct(r.ExpPerc.ExpP67)},
		{"P90 RTP", pct(r.ExpPerc.ExpP90)},
		{"<=30% RTP (players)", pct(r.RtpPerc.Rtp30)},
		{"<=50% RTP (players)", pct(r.RtpPerc.Rtp50)},
		{"<=70% RTP (players)", pct(r.RtpPerc.Rtp70)},
		{"<=100% RTP (players)", pct(r.RtpPerc.Rtp100)},
	})

	bw := est.EventStat.BigWin
	printSection("Events: Big wins per player", []row{
		{"0 times", pct(bw.Zero)},
		{"1 time", pct(bw.One)},
		{"2 times", pct(bw.Two)},
		{"3+ times", pct(bw.More)},
	})

	fmt.Println("\n=== Events: Buckets (per player hits in bucket) ===")
	for i, label := range est.EventStat.Bucket.BucketLable {
		ec := est.EventStat.Bucket.BucketCount[i]
		fmt.Printf("%-20s : 0x: %s | 1x: %s | 2x: %s | 3+x: %s\n", label, pct(ec.Zero), pct(ec.One), pct(ec.Two), pct(ec.More))
	}

	ls := est.EventStat.LossStreak
	printSection("Longest losing streak (rounds)", []row{
		{"Median", rounds(ls.Median)},
		{"P90", rounds(ls.P90)},
	})

	ss := est.SessionStat
	printSection("Session Outcome", []row{
		{"Bust", pct(ss.Bust)},
		{"Cashout", pct(ss.Cashout)},
		{"Alive", pct(ss.Alive)},
	})
}

type row struct{ key, val string }

func printSection(title string, rows []row) {
	fmt.Printf("\n=== %s ===\n", title)
	w := 0
	for _, r := range rows {
		w = max(w, len(r.key))
	}
	for _, r := range rows {
		fmt.Printf("  %-*s : %s\n", w, r.key, r.val)
	}
}

func pct(ps PointStat) string {
	return fmt.Sprintf("%.2f%% [%.2f%%, %.2f%%]", ps.Hat*100, ps.CI.Lo*100, ps.CI.Hi*100)
}

func rounds(ps PointStat) string {
	return fmt.Sprintf("%.0f [%.0f, %.0f]", ps.Hat, ps.CI.Lo, ps.CI.Hi)
}
