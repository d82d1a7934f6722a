package games

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("sports", buildSports) }

type Match struct {
	ID     int     `yaml:"id"     json:"id"`
	Sport  string  `yaml:"sport"  json:"sport"`
	Team1  string  `yaml:"team1"  json:"team1"`
	Team2  string  `yaml:"team2"  json:"team2"`
	Odds1  float64 `yaml:"odds1"  json:"odds1"`
	Odds2  float64 `yaml:"odds2"  json:"odds2"`
	Status string  `yaml:"status" json:"status"`
}

var defaultMatches = []Match{
	{1, "⚽", "Manchester United", "Liverpool", 2.1, 1.8, "Live"},
	{2, "🏀", "Lakers", "Warriors", 1.9, 2.0, "Starting Soon"},
	{3, "🏈", "Patriots", "Cowboys", 2.3, 1.6, "Tomorrow"},
	{4, "🎾", "Djokovic", "Nadal", 1.7, 2.2, "Live"},
}

type sportsFixed struct {
	Matches   []Match `yaml:"matches"`
	WinChance float64 `yaml:"win_chance"`
}

// Sports 固定賠率的模擬賽事，下注即結算。
type Sports struct {
	fx *sportsFixed
}

func buildSports(gs *setting.GameSetting) (Policy, error) {
	fx := &sportsFixed{WinChance: 0.6}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.Matches) == 0 {
		fx.Matches = defaultMatches
	}
	if fx.WinChance < 0 || fx.WinChance > 1 {
		return nil, invalidFixed(gs, "sports: win_chance %v", fx.WinChance)
	}
	for _, m := range fx.Matches {
		if m.Odds1 <= 0 || m.Odds2 <= 0 {
			return nil, invalidFixed(gs, "sports: match %+v", m)
		}
	}
	return &Sports{fx: fx}, nil
}

func (s *Sports) Matches() []Match { return append([]Match(nil), s.fx.Matches...) }

func (s *Sports) match(id int) (Match, bool) {
	for _, m := range s.fx.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return Match{}, false
}

// Judge 依所選隊伍與勝負判定
func (s *Sports) Judge(m Match, team int, won bool) Verdict {
	name, odds := m.Team1, m.Odds1
	if team == 2 {
		name, odds = m.Team2, m.Odds2
	}
	if won {
		return win(decimal.NewFromFloat(odds), name+" Won!")
	}
	return lose(name + " Lost!")
}

func (s *Sports) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	m, ok := s.match(sel.MatchID)
	if !ok {
		return nil, Step{}, invalidStart("sports: match %d not found", sel.MatchID)
	}
	if sel.Team != 1 && sel.Team != 2 {
		return nil, Step{}, invalidStart("sports: team must be 1 or 2")
	}
	won := c.Chance(s.fx.WinChance)
	p := &sportsPlay{match: m, team: sel.Team, won: won}
	return p, Step{Stage: "settled", Settle: true, Verdict: s.Judge(m, sel.Team, won)}, nil
}

func (s *Sports) AutoSelection(c *core.Core) Selection {
	m := s.fx.Matches[c.IntN(len(s.fx.Matches))]
	return Selection{MatchID: m.ID, Team: 1 + c.IntN(2)}
}

type sportsPlay struct {
	noActions
	noTicks
	match Match
	team  int
	won   bool
}

type SportsView struct {
	Match Match `json:"match"`
	Team  int   `json:"team"`
	Won   bool  `json:"won"`
}

func (p *sportsPlay) View() any { return SportsView{Match: p.match, Team: p.team, Won: p.won} }
