package games

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("roulette", buildRoulette) }

const (
	BetRed   = "red"
	BetBlack = "black"
	BetEven  = "even"
	BetOdd   = "odd"
)

var redNumbers = []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36}

type rouletteFixed struct {
	Pockets     int           `yaml:"pockets"` // 0..Pockets-1
	Ticks       int           `yaml:"ticks"`
	Multiplier  float64       `yaml:"multiplier"`
	DefaultBet  string        `yaml:"default_bet"`
	Red         []int         `yaml:"red"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Roulette 單零輪盤，只開放顏色與單雙押注；0 讓所有押注都輸。
type Roulette struct {
	fx *rouletteFixed
}

func buildRoulette(gs *setting.GameSetting) (Policy, error) {
	fx := &rouletteFixed{Pockets: 37, Ticks: 30, Multiplier: 2, DefaultBet: BetRed}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Red) == 0 {
		fx.Red = redNumbers
	}
	if fx.Pockets < 3 || fx.Ticks < 1 || fx.Multiplier <= 0 || !validRouletteBet(fx.DefaultBet) {
		return nil, invalidFixed(gs, "roulette: %+v", *fx)
	}
	return &Roulette{fx: fx}, nil
}

func validRouletteBet(b string) bool {
	switch b {
	case BetRed, BetBlack, BetEven, BetOdd:
		return true
	}
	return false
}

func (r *Roulette) Start(_ *core.Core, _ int, sel Selection) (Play, Step, error) {
	bet := strings.ToLower(sel.Side)
	if bet == "" {
		bet = r.fx.DefaultBet
	}
	if !validRouletteBet(bet) {
		return nil, Step{}, invalidStart("roulette: unknown bet %q", sel.Side)
	}
	return &roulettePlay{r: r, bet: bet}, Step{Stage: "spinning"}, nil
}

func (r *Roulette) AutoSelection(c *core.Core) Selection {
	bets := []string{BetRed, BetBlack, BetEven, BetOdd}
	return Selection{Side: bets[c.IntN(len(bets))]}
}

// Color 0 為 green
func (r *Roulette) Color(n int) string {
	switch {
	case n == 0:
		return "green"
	case slices.Contains(r.fx.Red, n):
		return BetRed
	default:
		return BetBlack
	}
}

// Judge 依押注與開出號碼判定
func (r *Roulette) Judge(bet string, n int) Verdict {
	color := r.Color(n)
	desc := fmt.Sprintf("Number %d (%s)!", n, color)
	hit := false
	switch bet {
	case BetRed, BetBlack:
		hit = color == bet
	case BetEven:
		hit = n > 0 && n%2 == 0
	case BetOdd:
		hit = n%2 == 1
	}
	if hit {
		return win(dec(r.fx.Multiplier), desc)
	}
	return lose(desc)
}

type roulettePlay struct {
	noActions
	r      *Roulette
	bet    string
	tick   int
	number int
}

type RouletteView struct {
	Bet    string `json:"bet"`
	Number int    `json:"number"`
	Color  string `json:"color"`
	Tick   int    `json:"tick"`
}

func (p *roulettePlay) Tick(c *core.Core) Step {
	p.tick++
	p.number = c.IntN(p.r.fx.Pockets)
	if p.tick < p.r.fx.Ticks {
		return Step{Stage: "spinning"}
	}
	return Step{
		Stage:     "settling",
		Settle:    true,
		Verdict:   p.r.Judge(p.bet, p.number),
		Delay:     p.r.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *roulettePlay) View() any {
	return RouletteView{Bet: p.bet, Number: p.number, Color: p.r.Color(p.number), Tick: p.tick}
}
