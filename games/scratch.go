package games

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("scratch", buildScratch) }

type scratchFixed struct {
	Prizes      []float64     `yaml:"prizes"` // 每格的下注倍數，開局時洗牌
	Reveals     int           `yaml:"reveals"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Scratch 刮開 Reveals 格後加總倍數；總獎金超過下注為贏，否則輸掉整個下注。
type Scratch struct {
	fx *scratchFixed
}

func buildScratch(gs *setting.GameSetting) (Policy, error) {
	fx := &scratchFixed{
		Prizes:      []float64{0, 0, 0, 0, 0, 0.5, 1, 2, 5},
		Reveals:     3,
		SettleDelay: time.Second,
	}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.Reveals < 1 || fx.Reveals > len(fx.Prizes) {
		return nil, invalidFixed(gs, "scratch: %+v", *fx)
	}
	for _, p := range fx.Prizes {
		if p < 0 {
			return nil, invalidFixed(gs, "scratch: negative prize %v", p)
		}
	}
	return &Scratch{fx: fx}, nil
}

// Judge sum 為刮開格子的倍數和，總獎金 = sum × bet
func (s *Scratch) Judge(bet int, sum decimal.Decimal) Verdict {
	total := sum.Mul(decimal.NewFromInt(int64(bet)))
	desc := "Won " + corefmt.KSh(total) + "!"
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return win(sum, desc)
	}
	return lose(desc)
}

func (s *Scratch) Start(c *core.Core, bet int, _ Selection) (Play, Step, error) {
	tiles := slices.Clone(s.fx.Prizes)
	core.Shuffle(c, tiles)
	p := &scratchPlay{s: s, bet: bet, tiles: tiles, scratched: make([]bool, len(tiles))}
	return p, Step{Stage: "scratching"}, nil
}

func (s *Scratch) AutoSelection(*core.Core) Selection { return Selection{} }

type scratchPlay struct {
	noTicks
	s         *Scratch
	bet       int
	tiles     []float64
	scratched []bool
	count     int
}

type ScratchView struct {
	Tiles     []*float64 `json:"tiles"` // 未刮開為 null
	Remaining int        `json:"remaining"`
}

func (p *scratchPlay) Act(_ *core.Core, a Action) (Step, error) {
	if a.Kind != ActScratch {
		return Step{}, rejected("scratch: unsupported action %q", a.Kind)
	}
	if p.count >= p.s.fx.Reveals {
		return Step{}, rejected("scratch: card complete")
	}
	if a.Index < 0 || a.Index >= len(p.tiles) {
		return Step{}, rejected("scratch: tile %d out of range", a.Index)
	}
	if p.scratched[a.Index] {
		return Step{Stage: "scratching"}, nil
	}
	p.scratched[a.Index] = true
	p.count++
	if p.count < p.s.fx.Reveals {
		return Step{Stage: "scratching"}, nil
	}
	sum := decimal.Zero
	for i, done := range p.scratched {
		if done {
			sum = sum.Add(dec(p.tiles[i]))
		}
	}
	return Step{
		Stage:   "complete",
		Settle:  true,
		Verdict: p.s.Judge(p.bet, sum),
		Delay:   p.s.fx.SettleDelay,
	}, nil
}

func (p *scratchPlay) AutoAct(*core.Core) (Action, bool) {
	for i, done := range p.scratched {
		if !done {
			return Action{Kind: ActScratch, Index: i}, true
		}
	}
	return Action{}, false
}

func (p *scratchPlay) View() any {
	v := ScratchView{Tiles: make([]*float64, len(p.tiles)), Remaining: p.s.fx.Reveals - p.count}
	for i, done := range p.scratched {
		if done {
			prize := p.tiles[i]
			v.Tiles[i] = &prize
		}
	}
	return v
}
