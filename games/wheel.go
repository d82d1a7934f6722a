package games

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("wheel", buildWheel) }

type Segment struct {
	Label string  `yaml:"label" json:"label"`
	Mult  float64 `yaml:"mult"  json:"mult"`
}

type wheelFixed struct {
	Segments     []Segment     `yaml:"segments"`
	MinSpins     float64       `yaml:"min_spins"`
	ExtraSpins   float64       `yaml:"extra_spins"`
	SpinDuration time.Duration `yaml:"spin_duration"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
}

// Wheel 指針固定在 0 度，輪盤順時針轉動；角度跨回合累積。
type Wheel struct {
	fx       *wheelFixed
	rotation float64
}

func buildWheel(gs *setting.GameSetting) (Policy, error) {
	fx := &wheelFixed{
		Segments: []Segment{
			{"0.1x", 0.1}, {"2x", 2}, {"0.5x", 0.5}, {"5x", 5},
			{"0.2x", 0.2}, {"3x", 3}, {"0.1x", 0.1}, {"10x", 10},
		},
		MinSpins:     5,
		ExtraSpins:   5,
		SpinDuration: 3 * time.Second,
		SettleDelay:  time.Second,
	}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Segments) < 2 || fx.MinSpins < 0 || fx.ExtraSpins < 0 {
		return nil, invalidFixed(gs, "wheel: %+v", *fx)
	}
	return &Wheel{fx: fx}, nil
}

// SegmentAt 由累積角度換算指針所在的扇區
func (w *Wheel) SegmentAt(rotation float64) int {
	n := len(w.fx.Segments)
	size := 360 / float64(n)
	r := math.Mod(rotation, 360)
	return int(math.Floor((360-r)/size)) % n
}

// Judge 乘數 >= 1 為贏
func (w *Wheel) Judge(idx int) Verdict {
	s := w.fx.Segments[idx]
	desc := s.Label + " segment!"
	if s.Mult >= 1 {
		return win(decimal.NewFromFloat(s.Mult), desc)
	}
	return lose(desc)
}

func (w *Wheel) Start(c *core.Core, _ int, _ Selection) (Play, Step, error) {
	spins := w.fx.MinSpins + c.Float64()*w.fx.ExtraSpins
	w.rotation += spins*360 + c.Float64()*360
	idx := w.SegmentAt(w.rotation)
	p := &wheelPlay{w: w, rotation: w.rotation, index: idx}
	return p, Step{
		Stage:   "spinning",
		Settle:  true,
		Verdict: w.Judge(idx),
		Delay:   w.fx.SpinDuration + w.fx.SettleDelay,
	}, nil
}

func (w *Wheel) AutoSelection(*core.Core) Selection { return Selection{} }

type wheelPlay struct {
	noActions
	noTicks
	w        *Wheel
	rotation float64
	index    int
}

type WheelView struct {
	Rotation float64   `json:"rotation"`
	Index    int       `json:"index"`
	Segments []Segment `json:"segments"`
}

func (p *wheelPlay) View() any {
	return WheelView{Rotation: p.rotation, Index: p.index, Segments: p.w.fx.Segments}
}
