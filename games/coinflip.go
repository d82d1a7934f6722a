package games

import (
	"strings"
	"time"

	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("coinflip", buildCoinFlip) }

const (
	Heads = "heads"
	Tails = "tails"
)

type coinFixed struct {
	HeadsChance float64       `yaml:"heads_chance"`
	Multiplier  float64       `yaml:"multiplier"`
	FlipDelay   time.Duration `yaml:"flip_delay"`
}

// CoinFlip 開局立即決定正反面，翻轉動畫結束 (FlipDelay) 後結算。
type CoinFlip struct {
	fx *coinFixed
}

func buildCoinFlip(gs *setting.GameSetting) (Policy, error) {
	fx := &coinFixed{HeadsChance: 0.5, Multiplier: 1, FlipDelay: 1500 * time.Millisecond}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.HeadsChance < 0 || fx.HeadsChance > 1 || fx.Multiplier <= 0 {
		return nil, invalidFixed(gs, "coinflip: %+v", *fx)
	}
	return &CoinFlip{fx: fx}, nil
}

func (g *CoinFlip) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	side := strings.ToLower(sel.Side)
	if side != Heads && side != Tails {
		return nil, Step{}, invalidStart("coinflip: side required, got %q", sel.Side)
	}
	result := Tails
	if c.Chance(g.fx.HeadsChance) {
		result = Heads
	}
	p := &coinPlay{side: side, result: result}
	return p, Step{
		Stage:   "flipping",
		Settle:  true,
		Verdict: g.Judge(side, result),
		Delay:   g.fx.FlipDelay,
	}, nil
}

func (g *CoinFlip) AutoSelection(c *core.Core) Selection {
	if c.Chance(0.5) {
		return Selection{Side: Heads}
	}
	return Selection{Side: Tails}
}

// Judge 押中即贏
func (g *CoinFlip) Judge(side, result string) Verdict {
	desc := "Tails!"
	if result == Heads {
		desc = "Heads!"
	}
	if side == result {
		return win(dec(g.fx.Multiplier), desc)
	}
	return lose(desc)
}

type coinPlay struct {
	noActions
	noTicks
	side   string
	result string
}

type CoinView struct {
	Side   string `json:"side"`
	Result string `json:"result,omitempty"` // 翻轉中為空
}

func (p *coinPlay) View() any { return CoinView{Side: p.side, Result: p.result} }

func (p *coinPlay) PendingView() any { return CoinView{Side: p.side} }
