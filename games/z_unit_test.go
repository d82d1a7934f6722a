package games

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func build(t *testing.T, logic string, fixed map[string]any) Policy {
	t.Helper()
	gs := &setting.GameSetting{GameName: logic, Logic: setting.LogicKey(logic), Fixed: fixed}
	p, err := Default().Build(gs)
	if err != nil {
		t.Fatalf("build %s: %v", logic, err)
	}
	return p
}

func mustWin(t *testing.T, v Verdict, mult string, desc string) {
	t.Helper()
	if !v.Won || !v.Mult.Equal(decimal.RequireFromString(mult)) || v.Desc != desc {
		t.Fatalf("want win %sx %q, got %+v", mult, desc, v)
	}
}

func mustLose(t *testing.T, v Verdict, desc string) {
	t.Helper()
	if v.Won || v.Desc != desc {
		t.Fatalf("want loss %q, got %+v", desc, v)
	}
}

func isInvalidStart(err error) bool { return errors.Is(err, errs.ErrInvalidRoundStart) }

func TestDefaultRegistry(t *testing.T) {
	want := []setting.LogicKey{
		"aviator", "blackjack", "coinflip", "dice", "keno", "lotto", "mines", "penalty",
		"plinko", "race", "roulette", "scratch", "slots", "sports", "wheel",
	}
	keys := Default().Keys()
	if len(keys) != len(want) {
		t.Fatalf("unexpected logic keys: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected logic keys: %v", keys)
		}
	}
	r := NewRegistry()
	if err := r.Register("dice", buildDice); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("dice", buildDice); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := Merge(r, Default()); err == nil {
		t.Fatalf("expected duplicate key across registries")
	}
	if _, err := Default().Build(&setting.GameSetting{GameName: "x", Logic: "nope"}); err == nil {
		t.Fatalf("expected unknown logic error")
	}
}

func TestDiceRollsTenTicks(t *testing.T) {
	d := build(t, "dice", nil).(*Dice)
	mustWin(t, d.Judge(5), "2", "Rolled 5!")
	mustWin(t, d.Judge(4), "2", "Rolled 4!")
	mustLose(t, d.Judge(3), "Rolled 3!")

	c := core.NewWithSeed(1)
	play, step, err := d.Start(c, 1300, Selection{})
	if err != nil || step.Settle {
		t.Fatalf("unexpected start: %+v %v", step, err)
	}
	for i := 1; i < 10; i++ {
		if s := play.Tick(c); s.Settle {
			t.Fatalf("settled early at tick %d", i)
		}
	}
	s := play.Tick(c)
	face := play.View().(DiceView).Face
	if !s.Settle || !s.StopTicks || s.Verdict.Won != (face >= 4) {
		t.Fatalf("final tick should settle on face %d: %+v", face, s)
	}
}

func TestCoinFlip(t *testing.T) {
	g := build(t, "coinflip", map[string]any{"heads_chance": 1.0}).(*CoinFlip)
	c := core.NewWithSeed(2)
	if _, _, err := g.Start(c, 650, Selection{}); !isInvalidStart(err) {
		t.Fatalf("missing side must be an invalid start, got %v", err)
	}
	_, step, err := g.Start(c, 650, Selection{Side: "Heads"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !step.Settle || step.Delay <= 0 {
		t.Fatalf("coin should settle after the flip delay: %+v", step)
	}
	mustWin(t, step.Verdict, "1", "Heads!")
	mustLose(t, g.Judge(Tails, Heads), "Heads!")
}

func TestSlotsJudge(t *testing.T) {
	s := build(t, "slots", nil).(*Slots)
	mustWin(t, s.Judge([]string{"🍒", "🍒", "🍒"}), "5", "🍒 🍒 🍒!")
	mustLose(t, s.Judge([]string{"🍒", "🍒", "🍋"}), "🍒 🍒 🍋!")

	c := core.NewWithSeed(3)
	play, _, _ := s.Start(c, 650, Selection{})
	ticks := 0
	for {
		ticks++
		if play.Tick(c).Settle {
			break
		}
	}
	if ticks != 20 {
		t.Fatalf("slots should spin 20 ticks, got %d", ticks)
	}
}

func TestSlotsWeightsValidated(t *testing.T) {
	gs := &setting.GameSetting{GameName: "slots", Logic: "slots", Fixed: map[string]any{"weights": []int{1, 2}}}
	if _, err := Default().Build(gs); err == nil {
		t.Fatalf("weights must match symbol count")
	}
}

func TestRouletteZeroLosesEverything(t *testing.T) {
	r := build(t, "roulette", nil).(*Roulette)
	for _, bet := range []string{BetRed, BetBlack, BetEven, BetOdd} {
		mustLose(t, r.Judge(bet, 0), "Number 0 (green)!")
	}
	mustWin(t, r.Judge(BetRed, 1), "2", "Number 1 (red)!")
	mustWin(t, r.Judge(BetBlack, 2), "2", "Number 2 (black)!")
	mustWin(t, r.Judge(BetEven, 2), "2", "Number 2 (black)!")
	mustWin(t, r.Judge(BetOdd, 35), "2", "Number 35 (black)!")
	if _, _, err := r.Start(core.NewWithSeed(1), 1300, Selection{Side: "green"}); !isInvalidStart(err) {
		t.Fatalf("unknown bet must be refused")
	}
	play, _, err := r.Start(core.NewWithSeed(1), 1300, Selection{})
	if err != nil || play.View().(RouletteView).Bet != BetRed {
		t.Fatalf("empty selection should default to red")
	}
}

func TestBlackjackTotals(t *testing.T) {
	ace := Card{Rank: "A", Value: 11}
	king := Card{Rank: "K", Value: 10}
	nine := Card{Rank: "9", Value: 9}
	five := Card{Rank: "5", Value: 5}
	cases := []struct {
		hand []Card
		want int
	}{
		{[]Card{ace, king}, 21},
		{[]Card{ace, ace, nine}, 21},
		{[]Card{king, king, five}, 25},
		{[]Card{ace, ace, ace}, 13},
	}
	for _, tc := range cases {
		if got := HandTotal(tc.hand); got != tc.want {
			t.Errorf("HandTotal(%v) = %d, want %d", tc.hand, got, tc.want)
		}
	}

	b := build(t, "blackjack", nil).(*Blackjack)
	mustLose(t, b.Judge(22, 17), "Player Bust!")
	mustWin(t, b.Judge(18, 22), "1.5", "Dealer Bust!")
	mustLose(t, b.Judge(18, 19), "Dealer Wins!")
	mustWin(t, b.Judge(20, 19), "1.5", "Player Wins!")
	mustLose(t, b.Judge(19, 19), "Push!")
}

func TestBlackjackStandDrawsDealer(t *testing.T) {
	b := build(t, "blackjack", nil).(*Blackjack)
	c := core.NewWithSeed(4)
	play, _, _ := b.Start(c, 1300, Selection{})
	if v := play.View().(BlackjackView); len(v.Dealer) != 1 || v.DealerTotal != 0 {
		t.Fatalf("dealer hole card must stay hidden while playing: %+v", v)
	}
	step, err := play.Act(c, Action{Kind: ActStand})
	if err != nil || !step.Settle {
		t.Fatalf("stand should settle: %+v %v", step, err)
	}
	if v := play.View().(BlackjackView); v.DealerTotal < 17 {
		t.Fatalf("dealer must draw to 17, got %d", v.DealerTotal)
	}
	if _, err := play.Act(c, Action{Kind: ActHit}); !errors.Is(err, errs.ErrActionRejected) {
		t.Fatalf("no actions after stand, got %v", err)
	}
}

func minesFixture(t *testing.T) (*Mines, *minesPlay, int, int) {
	t.Helper()
	m := build(t, "mines", nil).(*Mines)
	play, _, err := m.Start(core.NewWithSeed(5), 1300, Selection{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	p := play.(*minesPlay)
	mine, safe := -1, -1
	for i, isMine := range p.mines {
		if isMine && mine < 0 {
			mine = i
		}
		if !isMine && safe < 0 {
			safe = i
		}
	}
	return m, p, mine, safe
}

func TestMinesMultiplierAndCashOut(t *testing.T) {
	m, p, _, _ := minesFixture(t)
	for k, want := range map[int]string{0: "1", 1: "1.3", 3: "1.9", 22: "7.6"} {
		if got := m.Multiplier(k); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("Multiplier(%d) = %s, want %s", k, got, want)
		}
	}
	c := core.NewWithSeed(1)
	if _, err := p.Act(c, Action{Kind: ActCashOut}); !errors.Is(err, errs.ErrActionRejected) {
		t.Fatalf("cash out with no safe tile must be rejected")
	}
	revealed := 0
	for i, isMine := range p.mines {
		if isMine {
			continue
		}
		if _, err := p.Act(c, Action{Kind: ActReveal, Index: i}); err != nil {
			t.Fatalf("reveal: %v", err)
		}
		// 重複翻開不計數
		_, _ = p.Act(c, Action{Kind: ActReveal, Index: i})
		if revealed++; revealed == 3 {
			break
		}
	}
	step, err := p.Act(c, Action{Kind: ActCashOut})
	if err != nil || !step.Settle {
		t.Fatalf("cash out: %+v %v", step, err)
	}
	mustWin(t, step.Verdict, "1.9", "Cashed out at 1.90x!")
}

func TestMinesHitBlocksCashOut(t *testing.T) {
	_, p, mine, safe := minesFixture(t)
	c := core.NewWithSeed(1)
	_, _ = p.Act(c, Action{Kind: ActReveal, Index: safe})
	step, err := p.Act(c, Action{Kind: ActReveal, Index: mine})
	if err != nil || !step.Settle {
		t.Fatalf("mine should settle: %+v %v", step, err)
	}
	mustLose(t, step.Verdict, "Hit a mine!")
	if _, err := p.Act(c, Action{Kind: ActCashOut}); !errors.Is(err, errs.ErrActionRejected) {
		t.Fatalf("cash out after a mine must be rejected")
	}
	if v := p.View().(MinesView); len(v.Mines) != 3 || !v.GameOver {
		t.Fatalf("mines should be revealed after game over: %+v", v)
	}
}

func TestMinesCountValidated(t *testing.T) {
	m := build(t, "mines", nil).(*Mines)
	if _, _, err := m.Start(core.NewWithSeed(1), 650, Selection{Mines: 25}); !isInvalidStart(err) {
		t.Fatalf("25 mines on 25 tiles must be refused")
	}
}

func TestAviator(t *testing.T) {
	a := build(t, "aviator", nil).(*Aviator)
	if got := a.CrashChance(1); got != 0.02 {
		t.Fatalf("unexpected base crash chance %v", got)
	}
	if got := a.CrashChance(50); got != 0.15 {
		t.Fatalf("crash chance must be capped, got %v", got)
	}
	if h := a.History(); len(h) != 5 || h[0] != 2.34 {
		t.Fatalf("unexpected seeded history %v", h)
	}

	c := core.NewWithSeed(6)
	play, _, _ := a.Start(c, 1300, Selection{})
	if _, err := play.Act(c, Action{Kind: ActCashOut}); !errors.Is(err, errs.ErrActionRejected) {
		t.Fatalf("cash out before take off must be rejected")
	}
	var last Step
	for i := 0; i < 10000 && !last.Settle; i++ {
		last = play.Tick(c)
	}
	if !last.Settle || last.Verdict.Won || !last.StopTicks {
		t.Fatalf("flight should end in a crash: %+v", last)
	}
	if h := a.History(); len(h) != 5 || h[1] != 2.34 {
		t.Fatalf("crash point should be prepended: %v", h)
	}
}

func TestAviatorCashOut(t *testing.T) {
	a := build(t, "aviator", map[string]any{"crash_base": 0.0, "crash_slope": 0.0, "crash_cap": 0.0001}).(*Aviator)
	c := core.NewWithSeed(7)
	play, _, _ := a.Start(c, 1300, Selection{})
	for i := 0; i < 5; i++ {
		play.Tick(c)
	}
	step, err := play.Act(c, Action{Kind: ActCashOut})
	if err != nil || !step.Settle || !step.Verdict.Won || !step.StopTicks {
		t.Fatalf("cash out should settle a win: %+v %v", step, err)
	}
	if !step.Verdict.Mult.GreaterThan(decimal.NewFromInt(1)) {
		t.Fatalf("multiplier must exceed 1 after take off: %s", step.Verdict.Mult)
	}
	if _, err := play.Act(c, Action{Kind: ActCashOut}); err == nil {
		t.Fatalf("second cash out must be rejected")
	}
}

func TestPlinko(t *testing.T) {
	p := build(t, "plinko", nil).(*Plinko)
	if p.Slot(0) != 0 || p.Slot(100) != 12 || p.Slot(50) != 6 {
		t.Fatalf("unexpected slot mapping")
	}
	mustWin(t, p.Judge(2), "1", "1x multiplier!")
	mustWin(t, p.Judge(6), "5", "5x multiplier!")
	mustLose(t, p.Judge(0), "0.2x multiplier!")

	c := core.NewWithSeed(8)
	play, _, _ := p.Start(c, 650, Selection{})
	ticks := 0
	for !play.Tick(c).Settle {
		ticks++
	}
	if ticks != 16 {
		t.Fatalf("ball should land on the 17th tick (y=85), got %d", ticks+1)
	}
	v := play.View().(PlinkoView)
	if v.Ball.X < 5 || v.Ball.X > 95 || v.Slot < 0 {
		t.Fatalf("ball left the board: %+v", v.Ball)
	}
}

func TestWheelSegments(t *testing.T) {
	w := build(t, "wheel", nil).(*Wheel)
	if w.SegmentAt(0) != 0 || w.SegmentAt(350) != 0 || w.SegmentAt(10) != 7 || w.SegmentAt(720+100) != 5 {
		t.Fatalf("unexpected segment mapping")
	}
	mustWin(t, w.Judge(7), "10", "10x segment!")
	mustLose(t, w.Judge(0), "0.1x segment!")

	c := core.NewWithSeed(9)
	_, s1, _ := w.Start(c, 650, Selection{})
	r1 := w.rotation
	_, _, _ = w.Start(c, 650, Selection{})
	if w.rotation < r1+5*360 || !s1.Settle {
		t.Fatalf("rotation must accumulate across rounds")
	}
}

func TestKenoPayTable(t *testing.T) {
	k := build(t, "keno", nil).(*Keno)
	mustWin(t, k.Judge(10), "500", "10 matches!")
	mustWin(t, k.Judge(3), "1", "3 matches!")
	mustLose(t, k.Judge(2), "2 matches!")
	if rows := k.PayTable(); len(rows) != 8 || rows[0].Hits != 3 || rows[7].Mult != 500 {
		t.Fatalf("pay table rows: %+v", rows)
	}

	c := core.NewWithSeed(10)
	bad := [][]int{nil, {0}, {81}, {1, 1}, {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}}
	for _, nums := range bad {
		if _, _, err := k.Start(c, 650, Selection{Numbers: nums}); !isInvalidStart(err) {
			t.Errorf("picks %v should be refused", nums)
		}
	}
	sel := k.QuickPick(c)
	play, _, err := k.Start(c, 650, sel)
	if err != nil {
		t.Fatalf("quick pick should be valid: %v", err)
	}
	ticks := 1
	for !play.Tick(c).Settle {
		ticks++
	}
	if ticks != 20 {
		t.Fatalf("keno reveals 20 numbers, got %d ticks", ticks)
	}
}

func TestLottoBonusPrecedence(t *testing.T) {
	l := build(t, "lotto", nil).(*Lotto)
	mustWin(t, l.Judge(6, false), "1000", "6 matches!")
	mustWin(t, l.Judge(5, true), "500", "5 matches + bonus!")
	mustWin(t, l.Judge(5, false), "100", "5 matches!")
	mustWin(t, l.Judge(4, true), "50", "4 matches!")
	mustWin(t, l.Judge(3, false), "10", "3 matches!")
	mustLose(t, l.Judge(2, true), "2 matches!")

	c := core.NewWithSeed(11)
	if _, _, err := l.Start(c, 650, Selection{Numbers: []int{1, 2, 3, 4, 5}}); !isInvalidStart(err) {
		t.Fatalf("lotto needs exactly 6 numbers")
	}
	play, _, err := l.Start(c, 650, l.QuickPick(c))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	lp := play.(*lottoPlay)
	for _, w := range lp.winners {
		if w == lp.bonus {
			t.Fatalf("bonus must differ from winners")
		}
	}
	ticks := 1
	for !play.Tick(c).Settle {
		ticks++
	}
	if ticks != 7 || play.View().(LottoView).Bonus == 0 {
		t.Fatalf("lotto reveals 6 numbers then the bonus, got %d ticks", ticks)
	}
}

func TestRaceEntrantZeroSelectable(t *testing.T) {
	r := build(t, "race", nil).(*Race)
	c := core.NewWithSeed(12)
	if _, _, err := r.Start(c, 650, Selection{}); !isInvalidStart(err) {
		t.Fatalf("missing entrant must be refused")
	}
	zero := 0
	play, _, err := r.Start(c, 650, Selection{Entrant: &zero})
	if err != nil {
		t.Fatalf("entrant 0 must be selectable: %v", err)
	}
	var last Step
	for !last.Settle {
		last = play.Tick(c)
	}
	v := play.View().(RaceView)
	if v.Positions[v.Winner] < 90 || last.Verdict.Won != (v.Winner == 0) {
		t.Fatalf("unexpected finish %+v %+v", v, last)
	}
	if Leader([]float64{90, 95, 95}) != 1 {
		t.Fatalf("ties go to the lowest index")
	}
	mustWin(t, r.Judge(0, 0), "2.5", "Thunder won!")
	mustLose(t, r.Judge(1, 0), "Thunder won!")
}

func TestPenalty(t *testing.T) {
	g := build(t, "penalty", nil).(*Penalty)
	c := core.NewWithSeed(13)
	if _, _, err := g.Start(c, 650, Selection{Spot: "crossbar"}); !isInvalidStart(err) {
		t.Fatalf("unknown spot must be refused")
	}
	_, step, err := g.Start(c, 650, Selection{Spot: "center"})
	if err != nil || !step.Settle {
		t.Fatalf("penalty settles after the kick: %+v %v", step, err)
	}
	if step.Verdict.Won {
		mustWin(t, step.Verdict, "1.5", "Shot Center!")
	} else {
		mustLose(t, step.Verdict, "Shot Center!")
	}
	if len(g.Spots()) != 7 {
		t.Fatalf("expected 7 spots")
	}
}

func TestScratchCard(t *testing.T) {
	s := build(t, "scratch", nil).(*Scratch)
	mustWin(t, s.Judge(1300, decimal.RequireFromString("2.5")), "2.5", "Won KSh3,250!")
	mustLose(t, s.Judge(1300, decimal.NewFromInt(1)), "Won KSh1,300!")

	c := core.NewWithSeed(14)
	play, _, _ := s.Start(c, 1300, Selection{})
	for _, idx := range []int{0, 0, 1} {
		if st, err := play.Act(c, Action{Kind: ActScratch, Index: idx}); err != nil || st.Settle {
			t.Fatalf("card should not complete yet: %+v %v", st, err)
		}
	}
	step, err := play.Act(c, Action{Kind: ActScratch, Index: 2})
	if err != nil || !step.Settle {
		t.Fatalf("third tile completes the card: %+v %v", step, err)
	}
	if _, err := play.Act(c, Action{Kind: ActScratch, Index: 3}); err == nil {
		t.Fatalf("no scratching after completion")
	}
}

func TestSportsBet(t *testing.T) {
	s := build(t, "sports", nil).(*Sports)
	m := s.Matches()[0]
	mustWin(t, s.Judge(m, 1, true), "2.1", "Manchester United Won!")
	mustLose(t, s.Judge(m, 2, false), "Liverpool Lost!")

	c := core.NewWithSeed(15)
	if _, _, err := s.Start(c, 650, Selection{MatchID: 1}); !isInvalidStart(err) {
		t.Fatalf("team required")
	}
	if _, _, err := s.Start(c, 650, Selection{MatchID: 9, Team: 1}); !isInvalidStart(err) {
		t.Fatalf("unknown match must be refused")
	}
	_, step, err := s.Start(c, 650, Selection{MatchID: 2, Team: 2})
	if err != nil || !step.Settle || step.Delay != 0 {
		t.Fatalf("sports settles instantly: %+v %v", step, err)
	}
}

func TestAutoSelectionsStart(t *testing.T) {
	c := core.NewWithSeed(16)
	for _, key := range Default().Keys() {
		p := build(t, string(key), nil)
		if _, _, err := p.Start(c, 650, p.AutoSelection(c)); err != nil {
			t.Errorf("%s: auto selection should start a round: %v", key, err)
		}
	}
}
