package games

import (
	"strings"
	"time"

	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/sdk/sampler"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("slots", buildSlots) }

var defaultSymbols = []string{"🍒", "🍋", "⭐", "💎", "🔔", "🍇", "🍊"}

type slotsFixed struct {
	Symbols     []string      `yaml:"symbols"`
	Weights     []int         `yaml:"weights"` // 空值代表等權重
	Reels       int           `yaml:"reels"`
	Ticks       int           `yaml:"ticks"`
	Multiplier  float64       `yaml:"multiplier"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Slots 每格 tick 重抽所有滾輪，最後一格即結果；全部相同為贏。
type Slots struct {
	fx     *slotsFixed
	picker sampler.Picker
}

func buildSlots(gs *setting.GameSetting) (Policy, error) {
	fx := &slotsFixed{Reels: 3, Ticks: 20, Multiplier: 5}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Symbols) == 0 {
		fx.Symbols = defaultSymbols
	}
	if fx.Reels < 2 || fx.Ticks < 1 || fx.Multiplier <= 0 {
		return nil, invalidFixed(gs, "slots: %+v", *fx)
	}
	var picker sampler.Picker = sampler.Uniform(len(fx.Symbols))
	if len(fx.Weights) > 0 {
		if len(fx.Weights) != len(fx.Symbols) {
			return nil, invalidFixed(gs, "slots: %d weights for %d symbols", len(fx.Weights), len(fx.Symbols))
		}
		w, err := sampler.NewWeighted(fx.Weights)
		if err != nil {
			return nil, err
		}
		picker = w
	}
	return &Slots{fx: fx, picker: picker}, nil
}

func (s *Slots) Start(*core.Core, int, Selection) (Play, Step, error) {
	reels := make([]string, s.fx.Reels)
	for i := range reels {
		reels[i] = s.fx.Symbols[0]
	}
	return &slotsPlay{s: s, reels: reels}, Step{Stage: "spinning"}, nil
}

func (s *Slots) AutoSelection(*core.Core) Selection { return Selection{} }

// Judge 依滾輪結果判定
func (s *Slots) Judge(reels []string) Verdict {
	desc := strings.Join(reels, " ") + "!"
	for _, r := range reels[1:] {
		if r != reels[0] {
			return lose(desc)
		}
	}
	return win(dec(s.fx.Multiplier), desc)
}

type slotsPlay struct {
	noActions
	s     *Slots
	tick  int
	reels []string
}

type SlotsView struct {
	Reels []string `json:"reels"`
	Tick  int      `json:"tick"`
}

func (p *slotsPlay) Tick(c *core.Core) Step {
	p.tick++
	for i := range p.reels {
		p.reels[i] = p.s.fx.Symbols[p.s.picker.Pick(c)]
	}
	if p.tick < p.s.fx.Ticks {
		return Step{Stage: "spinning"}
	}
	return Step{
		Stage:     "settling",
		Settle:    true,
		Verdict:   p.s.Judge(p.reels),
		Delay:     p.s.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *slotsPlay) View() any {
	return SlotsView{Reels: append([]string(nil), p.reels...), Tick: p.tick}
}
