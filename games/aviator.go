package games

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("aviator", buildAviator) }

type aviatorFixed struct {
	StepBase     float64       `yaml:"step_base"`
	StepJitter   float64       `yaml:"step_jitter"`
	CrashBase    float64       `yaml:"crash_base"`
	CrashSlope   float64       `yaml:"crash_slope"`
	CrashCap     float64       `yaml:"crash_cap"`
	CrashDelay   time.Duration `yaml:"crash_delay"`
	CashOutDelay time.Duration `yaml:"cashout_delay"`
	History      []float64     `yaml:"history"`
	HistoryLen   int           `yaml:"history_len"`
}

// Aviator 每 tick 乘數上升並以遞增機率墜機；墜機前兌現即以當下乘數 (gross) 派彩。
// 最近的墜機點保存在 Policy 上，跨回合保留。
type Aviator struct {
	fx      *aviatorFixed
	history []float64
}

func buildAviator(gs *setting.GameSetting) (Policy, error) {
	fx := &aviatorFixed{
		StepBase:     0.01,
		StepJitter:   0.1,
		CrashBase:    0.02,
		CrashSlope:   0.01,
		CrashCap:     0.15,
		CrashDelay:   2 * time.Second,
		CashOutDelay: time.Second,
		History:      []float64{2.34, 1.67, 5.23, 1.12, 3.45},
		HistoryLen:   5,
	}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.StepBase <= 0 || fx.StepJitter < 0 || fx.CrashCap <= 0 || fx.CrashCap > 1 || fx.HistoryLen < 1 {
		return nil, invalidFixed(gs, "aviator: %+v", *fx)
	}
	h := append([]float64(nil), fx.History...)
	if len(h) > fx.HistoryLen {
		h = h[:fx.HistoryLen]
	}
	return &Aviator{fx: fx, history: h}, nil
}

// CrashChance 乘數 m 時每 tick 的墜機機率
func (a *Aviator) CrashChance(m float64) float64 {
	return math.Min(a.fx.CrashBase+(m-1)*a.fx.CrashSlope, a.fx.CrashCap)
}

// History 最近的墜機點，最新的在前
func (a *Aviator) History() []float64 {
	return append([]float64(nil), a.history...)
}

func (a *Aviator) record(m float64) {
	a.history = append([]float64{round2(m)}, a.history...)
	if len(a.history) > a.fx.HistoryLen {
		a.history = a.history[:a.fx.HistoryLen]
	}
}

func (a *Aviator) Start(_ *core.Core, _ int, sel Selection) (Play, Step, error) {
	return &aviatorPlay{a: a, mult: 1, target: sel.Target}, Step{Stage: "flying"}, nil
}

func (a *Aviator) AutoSelection(*core.Core) Selection { return Selection{Target: 2} }

type aviatorPlay struct {
	a       *Aviator
	mult    float64
	ticks   int
	crashed bool
	cashed  bool
	target  float64
}

type AviatorView struct {
	Multiplier string    `json:"multiplier"`
	Flying     bool      `json:"flying"`
	Crashed    bool      `json:"crashed"`
	CashedOut  bool      `json:"cashed_out"`
	History    []float64 `json:"history"`
}

func (p *aviatorPlay) Tick(c *core.Core) Step {
	if p.crashed || p.cashed {
		return Step{Stage: p.stage(), StopTicks: true}
	}
	p.ticks++
	p.mult += c.Float64()*p.a.fx.StepJitter + p.a.fx.StepBase
	if c.Float64() >= p.a.CrashChance(p.mult) {
		return Step{Stage: "flying"}
	}
	p.crashed = true
	p.a.record(p.mult)
	return Step{
		Stage:     "crashed",
		Settle:    true,
		Verdict:   lose(fmt.Sprintf("Crashed at %.2fx!", p.mult)),
		Delay:     p.a.fx.CrashDelay,
		StopTicks: true,
	}
}

func (p *aviatorPlay) Act(_ *core.Core, a Action) (Step, error) {
	if a.Kind != ActCashOut {
		return Step{}, rejected("aviator: unsupported action %q", a.Kind)
	}
	if p.crashed || p.cashed {
		return Step{}, rejected("aviator: not flying")
	}
	if p.ticks == 0 {
		return Step{}, rejected("aviator: plane has not taken off")
	}
	p.cashed = true
	m := decimal.NewFromFloat(p.mult).Round(2)
	return Step{
		Stage:     "cashed_out",
		Settle:    true,
		Verdict:   win(m, fmt.Sprintf("Cashed out at %s!", corefmt.Mult(m))),
		Delay:     p.a.fx.CashOutDelay,
		StopTicks: true,
	}, nil
}

func (p *aviatorPlay) AutoAct(*core.Core) (Action, bool) {
	if p.ticks > 0 && p.target > 1 && p.mult >= p.target {
		return Action{Kind: ActCashOut}, true
	}
	return Action{}, false
}

func (p *aviatorPlay) stage() string {
	switch {
	case p.crashed:
		return "crashed"
	case p.cashed:
		return "cashed_out"
	default:
		return "flying"
	}
}

func (p *aviatorPlay) View() any {
	return AviatorView{
		Multiplier: fmt.Sprintf("%.2fx", p.mult),
		Flying:     !p.crashed && !p.cashed,
		Crashed:    p.crashed,
		CashedOut:  p.cashed,
		History:    p.a.History(),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
