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

package stats_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/megaodds/setting"
	"github.com/zintix-labs/megaodds/stats"
)

// buildStatReport constructs a StatReport from per-round returns (KSh), one round each.
func buildStatReport(bet int, returns []float64) *stats.StatReport {
	L := len(stats.Buckets.WinBucketStr())
	bucket := stats.Buckets.GetBucketByBet(bet)
	collect := make([]int, L)

	var total, multSum, multSq float64
	wins := 0
	for _, r := range returns {
		collect[bucket.Index(int64(math.Round(r*100)))]++
		total += r
		m := r / float64(bet)
		multSum += m
		multSq += m * m
		if r > float64(bet) {
			wins++
		}
	}

	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			GameName:    "TestGame",
			GameId:      setting.GID(0),
			Title:       "Test Game",
			BetUnits:    []int{bet},
			Bet:         bet,
			TotalBet:    float64(bet * len(returns)),
			TotalReturn: total,
			Wins:        wins,
			NoWinRounds: collect[0],
			Rounds:      len(returns),
		},
		Mult: &stats.MultReport{
			ReturnMult:      multSum,
			ReturnMultSqSum: multSq,
		},
		Dist: &stats.DistReport{
			WinBucket:     stats.Buckets.WinBucketStr(),
			ReturnCollect: collect,
			ReturnDist:    make([]float64, L),
		},
		Player: &stats.PlayerReport{},
	}
	report.Done()
	return report
}

func TestStatReportCoreMetrics(t *testing.T) {
	bet := 1300
	rep := buildStatReport(bet, []float64{float64(2 * bet), 0})

	wantRTP := 1.0
	if got := rep.Rtp(); math.Abs(got-wantRTP) > 1e-12 {
		t.Fatalf("RTP got %.12f want %.12f", got, wantRTP)
	}

	m0, m1 := 2.0, 0.0
	variance := ((m0*m0 + m1*m1) - (m0+m1)*(m0+m1)/2) / (2 - 1)
	wantStd := math.Sqrt(variance)
	if got := rep.Std(); math.Abs(got-wantStd) > 1e-12 {
		t.Fatalf("Std got %.12f want %.12f", got, wantStd)
	}
	if got := rep.Cv(); math.Abs(got-wantStd/wantRTP) > 1e-12 {
		t.Fatalf("CV got %.12f", got)
	}
	if rep.Summary.NetWin != 0 {
		t.Fatalf("net win got %.2f want 0", rep.Summary.NetWin)
	}
	if rep.Summary.HitRate != 0.5 {
		t.Fatalf("hit rate got %.3f want 0.5", rep.Summary.HitRate)
	}
	ci := rep.Summary.HitRateCI
	if !(ci.Lo < 0.5 && ci.Hi > 0.5 && ci.Lo >= 0 && ci.Hi <= 1) {
		t.Fatalf("hit rate CI should bracket 0.5: %+v", ci)
	}

	total := 0
	for _, c := range rep.Dist.ReturnCollect {
		total += c
	}
	if total != rep.Summary.Rounds {
		t.Fatalf("distribution total %d != rounds %d", total, rep.Summary.Rounds)
	}

	rep.Done() // idempotent
	if rep.Rtp() != wantRTP {
		t.Fatalf("RTP changed after second Done")
	}
}

func TestWinBucketIndex(t *testing.T) {
	b := stats.Buckets.GetBucketByBet(650)
	cases := []struct {
		ksh  float64
		want int
	}{
		{0, 0},
		{0.01, 1},    // (0,1)
		{649.99, 1},  // (0,1)
		{650, 2},     // [1,2)
		{1235, 2},    // 1.9x
		{1300, 3},    // [2,5)
		{650 * 500, 10},
		{650 * 1000, 11},
		{650 * 5000, 11},
	}
	for _, c := range cases {
		if got := b.Index(int64(math.Round(c.ksh * 100))); got != c.want {
			t.Fatalf("Index(%.2f) got %d want %d", c.ksh, got, c.want)
		}
	}
	if stats.Buckets.GetBucketByBet(650) != b {
		t.Fatalf("bucket should be cached per bet")
	}
}

func TestEstimatorRtpAndSession(t *testing.T) {
	// 100 reports with RTP from 0.00 to 0.99
	reports := make([]*stats.StatReport, 0, 100)
	bet := 100
	for i := 0; i < 100; i++ {
		reports = append(reports, buildStatReport(bet, []float64{float64(i)}))
	}

	est := stats.EstimatorPlayerExp(reports)
	if math.Abs(est.RtpStat.ExpMedian.Hat-0.5) > 0.05 {
		t.Fatalf("median RTP expected ~0.5, got %.3f", est.RtpStat.ExpMedian.Hat)
	}
	if math.Abs(est.RtpStat.ExpPerc.ExpP90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 RTP expected ~0.9, got %.3f", est.RtpStat.ExpPerc.ExpP90.Hat)
	}
	if est.EventStat.BigWin.Zero.Hat != 1 {
		t.Fatalf("no report has big wins, got %.2f", est.EventStat.BigWin.Zero.Hat)
	}

	// Session outcome: 3 bust, 2 cashout, 5 alive
	samples := make([]*stats.StatReport, 10)
	for i := 0; i < 10; i++ {
		r := buildStatReport(bet, []float64{0})
		switch {
		case i < 3:
			r.Player.Bust = true
			r.Player.Alive = false
		case i < 5:
			r.Player.Cashout = true
			r.Player.Alive = false
		default:
			r.Player.Alive = true
		}
		samples[i] = r
	}
	est2 := stats.EstimatorPlayerExp(samples)
	if est2.SessionStat.Bust.Hat != 0.3 {
		t.Fatalf("Bust rate got %.2f want 0.30", est2.SessionStat.Bust.Hat)
	}
	if est2.SessionStat.Cashout.Hat != 0.2 {
		t.Fatalf("Cashout rate got %.2f want 0.20", est2.SessionStat.Cashout.Hat)
	}
	if est2.SessionStat.Alive.Hat != 0.5 {
		t.Fatalf("Alive rate got %.2f want 0.50", est2.SessionStat.Alive.Hat)
	}
}

func TestRenderers(t *testing.T) {
	rep := buildStatReport(650, []float64{1300, 0, 845})

	var jb bytes.Buffer
	if err := rep.WriteWith(&jb, &stats.JsonStatReportRender{}); err != nil {
		t.Fatalf("json render: %v", err)
	}
	if !strings.Contains(jb.String(), `"Title":"Test Game"`) {
		t.Fatalf("json output missing title: %s", jb.String())
	}

	var yb bytes.Buffer
	if err := rep.WriteWith(&yb, &stats.YAMLStatReportRender{}); err != nil {
		t.Fatalf("yaml render: %v", err)
	}
	// 最內層的一維陣列以 flow style 輸出
	if !strings.Contains(yb.String(), "betunits: [650]") {
		t.Fatalf("yaml output should use flow style for flat lists: %s", yb.String())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]stats.Format{"": stats.FormatTable, "JSON": stats.FormatJSON, " yaml ": stats.FormatYAML} {
		got, err := stats.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := stats.ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
	if stats.StatRender(stats.FormatTable) != nil || stats.EstimatorRenderOf(stats.FormatYAML) == nil {
		t.Fatalf("unexpected render lookup")
	}
}

func TestEstimatorLossStreakAndShares(t *testing.T) {
	// 連輸 1..10 局；RTP 皆為 0
	reports := make([]*stats.StatReport, 10)
	for i := range reports {
		r := buildStatReport(100, []float64{0})
		r.Summary.LongestLoss = i + 1
		reports[i] = r
	}
	est := stats.EstimatorPlayerExp(reports)
	if got := est.EventStat.LossStreak.Median.Hat; got != 6 {
		t.Fatalf("median streak got %.0f want 6", got)
	}
	if got := est.EventStat.LossStreak.P90.Hat; got != 10 {
		t.Fatalf("p90 streak got %.0f want 10", got)
	}
	if est.RtpStat.RtpPerc.Rtp30.Hat != 1 {
		t.Fatalf("all players at RTP 0 should be <= 30%%, got %.2f", est.RtpStat.RtpPerc.Rtp30.Hat)
	}
	if ci := est.RtpStat.RtpPerc.Rtp30.CI; ci.Hi != 1 || ci.Lo <= 0 {
		t.Fatalf("unexpected CI %+v", ci)
	}
}
