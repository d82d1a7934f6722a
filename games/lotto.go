package games

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("lotto", buildLotto) }

// LottoPayTable 命中數 -> 乘數；5 中加特別號另計 (LottoBonusFive)
var LottoPayTable = []PayRow{{3, 10}, {4, 50}, {5, 100}, {6, 1000}}

const LottoBonusFive = 500.0

type lottoFixed struct {
	Numbers     int           `yaml:"numbers"`
	Picks       int           `yaml:"picks"`
	PayTable    []PayRow      `yaml:"pay_table"`
	BonusFive   float64       `yaml:"bonus_five"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Lotto 6/49 加一個特別號；每 tick 揭露一顆，最後揭露特別號。
type Lotto struct {
	fx        *lottoFixed
	table     map[int]decimal.Decimal
	bonusFive decimal.Decimal
}

func buildLotto(gs *setting.GameSetting) (Policy, error) {
	fx := &lottoFixed{Numbers: 49, Picks: 6, BonusFive: LottoBonusFive, SettleDelay: 2 * time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.PayTable) == 0 {
		fx.PayTable = LottoPayTable
	}
	// 中獎號 + 特別號都要能不重複抽出
	if fx.Picks < 1 || fx.Picks+1 > fx.Numbers || fx.BonusFive < 0 {
		return nil, invalidFixed(gs, "lotto: %+v", *fx)
	}
	table, err := buildTable(gs, fx.PayTable)
	if err != nil {
		return nil, err
	}
	return &Lotto{fx: fx, table: table, bonusFive: dec(fx.BonusFive)}, nil
}

// Judge 5 中加特別號優先於一般 5 中
func (l *Lotto) Judge(hits int, bonus bool) Verdict {
	if hits == 5 && bonus && l.bonusFive.IsPositive() {
		return win(l.bonusFive, "5 matches + bonus!")
	}
	desc := fmt.Sprintf("%d matches!", hits)
	if m, ok := l.table[hits]; ok && m.IsPositive() {
		return win(m, desc)
	}
	return lose(desc)
}

func (l *Lotto) PayTable() []PayRow { return payRows(l.fx.PayTable) }

func (l *Lotto) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	if err := validPicks(sel.Numbers, l.fx.Picks, l.fx.Picks, l.fx.Numbers); err != nil {
		return nil, Step{}, err
	}
	draw := c.SampleDistinct(1, l.fx.Numbers, l.fx.Picks+1)
	p := &lottoPlay{
		l:       l,
		picks:   slices.Clone(sel.Numbers),
		winners: draw[:l.fx.Picks],
		bonus:   draw[l.fx.Picks],
	}
	return p, Step{Stage: "drawing"}, nil
}

func (l *Lotto) QuickPick(c *core.Core) Selection {
	picks := c.SampleDistinct(1, l.fx.Numbers, l.fx.Picks)
	slices.Sort(picks)
	return Selection{Numbers: picks}
}

func (l *Lotto) AutoSelection(c *core.Core) Selection { return l.QuickPick(c) }

type lottoPlay struct {
	noActions
	l        *Lotto
	picks    []int
	winners  []int
	bonus    int
	revealed int // 包含特別號
}

type LottoView struct {
	Picks   []int `json:"picks"`
	Winners []int `json:"winners"`
	Bonus   int   `json:"bonus,omitempty"`
	Hits    []int `json:"hits"`
}

func (p *lottoPlay) Tick(*core.Core) Step {
	if p.revealed <= len(p.winners) {
		p.revealed++
	}
	if p.revealed <= len(p.winners) {
		return Step{Stage: "drawing"}
	}
	return Step{
		Stage:     "settling",
		Settle:    true,
		Verdict:   p.l.Judge(len(intersect(p.picks, p.winners)), slices.Contains(p.picks, p.bonus)),
		Delay:     p.l.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *lottoPlay) View() any {
	n := min(p.revealed, len(p.winners))
	v := LottoView{
		Picks:   slices.Clone(p.picks),
		Winners: slices.Clone(p.winners[:n]),
		Hits:    intersect(p.picks, p.winners[:n]),
	}
	if p.revealed > len(p.winners) {
		v.Bonus = p.bonus
	}
	return v
}
