package games

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("penalty", buildPenalty) }

type Spot struct {
	ID     string  `yaml:"id"     json:"id"`
	Name   string  `yaml:"name"   json:"name"`
	Odds   float64 `yaml:"odds"   json:"odds"`
	Chance float64 `yaml:"chance" json:"chance"`
}

var defaultSpots = []Spot{
	{"top-left", "Top Left", 5.0, 0.80},
	{"top-right", "Top Right", 5.0, 0.80},
	{"middle-left", "Middle Left", 3.0, 0.70},
	{"center", "Center", 1.5, 0.40},
	{"middle-right", "Middle Right", 3.0, 0.70},
	{"bottom-left", "Bottom Left", 2.5, 0.75},
	{"bottom-right", "Bottom Right", 2.5, 0.75},
}

type penaltyFixed struct {
	Spots       []Spot        `yaml:"spots"`
	KickDelay   time.Duration `yaml:"kick_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Penalty 進球與否只由射門位置的成功率決定；門將撲向的位置僅供顯示。
type Penalty struct {
	fx *penaltyFixed
}

func buildPenalty(gs *setting.GameSetting) (Policy, error) {
	fx := &penaltyFixed{KickDelay: 1500 * time.Millisecond, SettleDelay: 2 * time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Spots) == 0 {
		fx.Spots = defaultSpots
	}
	seen := map[string]bool{}
	for _, s := range fx.Spots {
		if s.ID == "" || seen[s.ID] || s.Odds <= 0 || s.Chance < 0 || s.Chance > 1 {
			return nil, invalidFixed(gs, "penalty: spot %+v", s)
		}
		seen[s.ID] = true
	}
	return &Penalty{fx: fx}, nil
}

func (g *Penalty) Spots() []Spot { return append([]Spot(nil), g.fx.Spots...) }

func (g *Penalty) spot(id string) (Spot, bool) {
	for _, s := range g.fx.Spots {
		if s.ID == id {
			return s, true
		}
	}
	return Spot{}, false
}

// Judge 依射門位置與是否進球判定
func (g *Penalty) Judge(s Spot, goal bool) Verdict {
	desc := "Shot " + s.Name + "!"
	if goal {
		return win(decimal.NewFromFloat(s.Odds), desc)
	}
	return lose(desc)
}

func (g *Penalty) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	s, ok := g.spot(sel.Spot)
	if !ok {
		return nil, Step{}, invalidStart("penalty: unknown spot %q", sel.Spot)
	}
	p := &penaltyPlay{
		spot:   s,
		goalie: g.fx.Spots[c.IntN(len(g.fx.Spots))].ID,
		goal:   c.Chance(s.Chance),
	}
	return p, Step{
		Stage:   "shooting",
		Settle:  true,
		Verdict: g.Judge(s, p.goal),
		Delay:   g.fx.KickDelay + g.fx.SettleDelay,
	}, nil
}

func (g *Penalty) AutoSelection(c *core.Core) Selection {
	return Selection{Spot: g.fx.Spots[c.IntN(len(g.fx.Spots))].ID}
}

type penaltyPlay struct {
	noActions
	noTicks
	spot   Spot
	goalie string
	goal   bool
}

// PenaltyView 射門途中 Goalie 與 Goal 皆為空
type PenaltyView struct {
	Spot   string `json:"spot"`
	Goalie string `json:"goalie,omitempty"`
	Goal   *bool  `json:"goal,omitempty"`
}

func (p *penaltyPlay) View() any {
	goal := p.goal
	return PenaltyView{Spot: p.spot.ID, Goalie: p.goalie, Goal: &goal}
}

func (p *penaltyPlay) PendingView() any { return PenaltyView{Spot: p.spot.ID} }
