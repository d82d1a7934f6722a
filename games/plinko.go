package games

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("plinko", buildPlinko) }

type plinkoFixed struct {
	Multipliers []float64     `yaml:"multipliers"`
	StartX      float64       `yaml:"start_x"`
	Drop        float64       `yaml:"drop"`
	Drift       float64       `yaml:"drift"`
	MinX        float64       `yaml:"min_x"`
	MaxX        float64       `yaml:"max_x"`
	Floor       float64       `yaml:"floor"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Plinko 球在 0..100 的座標系下落，每 tick 左右漂移；落底後依 x 決定槽位。
type Plinko struct {
	fx    *plinkoFixed
	mults []decimal.Decimal
}

func buildPlinko(gs *setting.GameSetting) (Policy, error) {
	fx := &plinkoFixed{
		Multipliers: []float64{0.2, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 3.0, 2.0, 1.5, 1.0, 0.5, 0.2},
		StartX:      50,
		Drop:        5,
		Drift:       8,
		MinX:        5,
		MaxX:        95,
		Floor:       85,
		SettleDelay: time.Second,
	}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Multipliers) == 0 || fx.Drop <= 0 || fx.MinX >= fx.MaxX || fx.Floor <= 0 {
		return nil, invalidFixed(gs, "plinko: %+v", *fx)
	}
	mults := make([]decimal.Decimal, len(fx.Multipliers))
	for i, m := range fx.Multipliers {
		if m < 0 {
			return nil, invalidFixed(gs, "plinko: negative multiplier %v", m)
		}
		mults[i] = dec(m)
	}
	return &Plinko{fx: fx, mults: mults}, nil
}

// Slot 由落點 x 換算槽位
func (p *Plinko) Slot(x float64) int {
	n := len(p.mults)
	s := int(math.Floor(x / 100 * float64(n)))
	return max(0, min(n-1, s))
}

// Judge 乘數 >= 1 為贏
func (p *Plinko) Judge(slot int) Verdict {
	m := p.mults[slot]
	desc := m.String() + "x multiplier!"
	if m.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return win(m, desc)
	}
	return lose(desc)
}

func (p *Plinko) Start(*core.Core, int, Selection) (Play, Step, error) {
	b := &plinkoPlay{p: p, x: p.fx.StartX, slot: -1}
	b.path = append(b.path, Point{X: b.x, Y: 0})
	return b, Step{Stage: "dropping"}, nil
}

func (p *Plinko) AutoSelection(*core.Core) Selection { return Selection{} }

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type plinkoPlay struct {
	noActions
	p    *Plinko
	x, y float64
	path []Point
	slot int
}

type PlinkoView struct {
	Ball        Point     `json:"ball"`
	Path        []Point   `json:"path"`
	Slot        int       `json:"slot"`
	Multipliers []float64 `json:"multipliers"`
}

func (b *plinkoPlay) Tick(c *core.Core) Step {
	fx := b.p.fx
	b.y += fx.Drop
	b.x = math.Max(fx.MinX, math.Min(fx.MaxX, b.x+(c.Float64()-0.5)*fx.Drift))
	b.path = append(b.path, Point{X: b.x, Y: b.y})
	if b.y < fx.Floor {
		return Step{Stage: "dropping"}
	}
	b.slot = b.p.Slot(b.x)
	return Step{
		Stage:     "landed",
		Settle:    true,
		Verdict:   b.p.Judge(b.slot),
		Delay:     fx.SettleDelay,
		StopTicks: true,
	}
}

func (b *plinkoPlay) View() any {
	return PlinkoView{
		Ball:        Point{X: b.x, Y: b.y},
		Path:        append([]Point(nil), b.path...),
		Slot:        b.slot,
		Multipliers: b.p.fx.Multipliers,
	}
}
