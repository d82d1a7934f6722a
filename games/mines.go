package games

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("mines", buildMines) }

type minesFixed struct {
	Tiles        int           `yaml:"tiles"`
	DefaultMines int           `yaml:"default_mines"`
	Step         float64       `yaml:"step"` // 每翻開一格安全格增加的乘數
	SettleDelay  time.Duration `yaml:"settle_delay"`
}

// Mines 兌現乘數 = 1 + Step × 安全格數；踩雷後不可兌現。
type Mines struct {
	fx   *minesFixed
	step decimal.Decimal
}

func buildMines(gs *setting.GameSetting) (Policy, error) {
	fx := &minesFixed{Tiles: 25, DefaultMines: 3, Step: 0.3, SettleDelay: time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.Tiles < 2 || fx.DefaultMines < 1 || fx.DefaultMines >= fx.Tiles || fx.Step <= 0 {
		return nil, invalidFixed(gs, "mines: %+v", *fx)
	}
	return &Mines{fx: fx, step: dec(fx.Step)}, nil
}

// Multiplier 翻開 safe 格後的兌現乘數
func (m *Mines) Multiplier(safe int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(m.step.Mul(decimal.NewFromInt(int64(safe))))
}

func (m *Mines) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	n := sel.Mines
	if n == 0 {
		n = m.fx.DefaultMines
	}
	if n < 1 || n >= m.fx.Tiles {
		return nil, Step{}, invalidStart("mines: mine count %d out of range", sel.Mines)
	}
	p := &minesPlay{
		m:        m,
		mines:    make([]bool, m.fx.Tiles),
		revealed: make([]bool, m.fx.Tiles),
		target:   int(sel.Target),
	}
	for _, idx := range c.SampleDistinct(0, m.fx.Tiles-1, n) {
		p.mines[idx] = true
	}
	p.count = n
	return p, Step{Stage: "playing"}, nil
}

func (m *Mines) AutoSelection(*core.Core) Selection {
	return Selection{Mines: m.fx.DefaultMines, Target: 3}
}

type minesPlay struct {
	noTicks
	m        *Mines
	mines    []bool
	revealed []bool
	count    int
	safe     int
	over     bool
	target   int
}

type MinesView struct {
	Revealed   []int  `json:"revealed"`
	Mines      []int  `json:"mines,omitempty"` // 回合結束才揭露
	MineCount  int    `json:"mine_count"`
	Safe       int    `json:"safe"`
	Multiplier string `json:"multiplier"`
	GameOver   bool   `json:"game_over"`
}

func (p *minesPlay) Act(c *core.Core, a Action) (Step, error) {
	if p.over {
		return Step{}, rejected("mines: round is over")
	}
	switch a.Kind {
	case ActReveal:
		if a.Index < 0 || a.Index >= len(p.mines) {
			return Step{}, rejected("mines: tile %d out of range", a.Index)
		}
		if p.revealed[a.Index] {
			// 重複翻同一格不影響局面
			return Step{Stage: "playing"}, nil
		}
		p.revealed[a.Index] = true
		if p.mines[a.Index] {
			p.over = true
			return Step{Stage: "exploded", Settle: true, Verdict: lose("Hit a mine!"), Delay: p.m.fx.SettleDelay}, nil
		}
		p.safe++
		return Step{Stage: "playing"}, nil
	case ActCashOut:
		if p.safe == 0 {
			return Step{}, rejected("mines: reveal a tile before cashing out")
		}
		p.over = true
		mult := p.m.Multiplier(p.safe)
		return Step{
			Stage:   "cashed_out",
			Settle:  true,
			Verdict: win(mult, fmt.Sprintf("Cashed out at %s!", corefmt.Mult(mult))),
			Delay:   p.m.fx.SettleDelay,
		}, nil
	default:
		return Step{}, rejected("mines: unsupported action %q", a.Kind)
	}
}

// AutoAct 隨機翻開未翻的格子，達到目標安全格數後兌現
func (p *minesPlay) AutoAct(c *core.Core) (Action, bool) {
	target := p.target
	if target < 1 {
		target = 1
	}
	if p.safe >= target || p.safe == len(p.mines)-p.count {
		return Action{Kind: ActCashOut}, true
	}
	hidden := make([]int, 0, len(p.mines))
	for i, r := range p.revealed {
		if !r {
			hidden = append(hidden, i)
		}
	}
	return Action{Kind: ActReveal, Index: c.Pick(hidden)}, true
}

func (p *minesPlay) View() any {
	v := MinesView{
		Revealed:   make([]int, 0, p.safe+1),
		MineCount:  p.count,
		Safe:       p.safe,
		Multiplier: corefmt.Mult(p.m.Multiplier(p.safe)),
		GameOver:   p.over,
	}
	for i, r := range p.revealed {
		if r {
			v.Revealed = append(v.Revealed, i)
		}
	}
	if p.over {
		for i, mine := range p.mines {
			if mine {
				v.Mines = append(v.Mines, i)
			}
		}
	}
	return v
}
