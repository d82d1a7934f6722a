package games

import (
	"fmt"
	"time"

	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("dice", buildDice) }

type diceFixed struct {
	Faces       int           `yaml:"faces"`
	Ticks       int           `yaml:"ticks"`
	WinFrom     int           `yaml:"win_from"`
	Multiplier  float64       `yaml:"multiplier"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Dice 擲骰動畫 Ticks 格，最後一格即最終點數，點數 >= WinFrom 為贏。
type Dice struct {
	fx *diceFixed
}

func buildDice(gs *setting.GameSetting) (Policy, error) {
	fx := &diceFixed{Faces: 6, Ticks: 10, WinFrom: 4, Multiplier: 2}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.Faces < 2 || fx.Ticks < 1 || fx.WinFrom < 1 || fx.WinFrom > fx.Faces || fx.Multiplier <= 0 {
		return nil, invalidFixed(gs, "dice: %+v", *fx)
	}
	return &Dice{fx: fx}, nil
}

func (d *Dice) Start(*core.Core, int, Selection) (Play, Step, error) {
	return &dicePlay{fx: d.fx, face: 1}, Step{Stage: "rolling"}, nil
}

func (d *Dice) AutoSelection(*core.Core) Selection { return Selection{} }

// Judge 依最終點數判定
func (d *Dice) Judge(face int) Verdict {
	desc := fmt.Sprintf("Rolled %d!", face)
	if face >= d.fx.WinFrom {
		return win(dec(d.fx.Multiplier), desc)
	}
	return lose(desc)
}

type dicePlay struct {
	noActions
	fx   *diceFixed
	tick int
	face int
}

type DiceView struct {
	Face int `json:"face"`
	Tick int `json:"tick"`
}

func (p *dicePlay) Tick(c *core.Core) Step {
	p.tick++
	p.face = c.IntRange(1, p.fx.Faces)
	if p.tick < p.fx.Ticks {
		return Step{Stage: "rolling"}
	}
	return Step{
		Stage:     "settling",
		Settle:    true,
		Verdict:   (&Dice{fx: p.fx}).Judge(p.face),
		Delay:     p.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *dicePlay) View() any { return DiceView{Face: p.face, Tick: p.tick} }
