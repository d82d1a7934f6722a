package games

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

// 賽馬與賽狗共用同一套規則，差異只在參賽者、步幅與 tick 間隔（設定檔）。
func init() { mustRegister("race", buildRace) }

type Entrant struct {
	Name string  `yaml:"name" json:"name"`
	Odds float64 `yaml:"odds" json:"odds"`
}

var defaultHorses = []Entrant{
	{"Thunder", 2.5}, {"Lightning", 3.0}, {"Storm", 4.0}, {"Blaze", 5.0}, {"Spirit", 6.0},
}

type raceFixed struct {
	Entrants    []Entrant     `yaml:"entrants"`
	Finish      float64       `yaml:"finish"`
	Stride      float64       `yaml:"stride"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Race 每 tick 每位參賽者前進 rand × Stride，最先抵達 Finish 者勝；
// 同一 tick 多人過線時取位置最大者，再取編號最小者。
type Race struct {
	fx *raceFixed
}

func buildRace(gs *setting.GameSetting) (Policy, error) {
	fx := &raceFixed{Finish: 90, Stride: 3, SettleDelay: 2 * time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Entrants) == 0 {
		fx.Entrants = defaultHorses
	}
	if len(fx.Entrants) < 2 || fx.Finish <= 0 || fx.Stride <= 0 {
		return nil, invalidFixed(gs, "race: %+v", *fx)
	}
	for _, e := range fx.Entrants {
		if e.Odds <= 0 || e.Name == "" {
			return nil, invalidFixed(gs, "race: entrant %+v", e)
		}
	}
	return &Race{fx: fx}, nil
}

func (r *Race) Entrants() []Entrant { return append([]Entrant(nil), r.fx.Entrants...) }

// Leader 回傳目前位置最前者（同分取編號小者）
func Leader(pos []float64) int {
	best := 0
	for i, p := range pos {
		if p > pos[best] {
			best = i
		}
	}
	return best
}

// Judge 依優勝者與玩家所選判定
func (r *Race) Judge(selected, winner int) Verdict {
	e := r.fx.Entrants[winner]
	desc := e.Name + " won!"
	if selected == winner {
		return win(decimal.NewFromFloat(e.Odds), desc)
	}
	return lose(desc)
}

func (r *Race) Start(_ *core.Core, _ int, sel Selection) (Play, Step, error) {
	if sel.Entrant == nil {
		return nil, Step{}, invalidStart("race: entrant required")
	}
	if *sel.Entrant < 0 || *sel.Entrant >= len(r.fx.Entrants) {
		return nil, Step{}, invalidStart("race: entrant %d out of range", *sel.Entrant)
	}
	p := &racePlay{r: r, selected: *sel.Entrant, pos: make([]float64, len(r.fx.Entrants)), winner: -1}
	return p, Step{Stage: "racing"}, nil
}

func (r *Race) AutoSelection(c *core.Core) Selection {
	i := c.IntN(len(r.fx.Entrants))
	return Selection{Entrant: &i}
}

type racePlay struct {
	noActions
	r        *Race
	selected int
	pos      []float64
	winner   int
}

type RaceView struct {
	Entrants  []Entrant `json:"entrants"`
	Positions []float64 `json:"positions"`
	Selected  int       `json:"selected"`
	Winner    int       `json:"winner"`
}

func (p *racePlay) Tick(c *core.Core) Step {
	for i := range p.pos {
		p.pos[i] += c.Float64() * p.r.fx.Stride
	}
	lead := Leader(p.pos)
	if p.pos[lead] < p.r.fx.Finish {
		return Step{Stage: "racing"}
	}
	p.winner = lead
	return Step{
		Stage:     "finished",
		Settle:    true,
		Verdict:   p.r.Judge(p.selected, lead),
		Delay:     p.r.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *racePlay) View() any {
	return RaceView{
		Entrants:  p.r.fx.Entrants,
		Positions: append([]float64(nil), p.pos...),
		Selected:  p.selected,
		Winner:    p.winner,
	}
}
