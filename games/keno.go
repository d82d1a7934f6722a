package games

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("keno", buildKeno) }

// KenoPayTable 命中數 -> 乘數；遊戲判定與結果面板共用這一份。
var KenoPayTable = []PayRow{{3, 1}, {4, 2}, {5, 5}, {6, 10}, {7, 25}, {8, 50}, {9, 100}, {10, 500}}

type kenoFixed struct {
	Numbers     int           `yaml:"numbers"`
	Draws       int           `yaml:"draws"`
	MaxPicks    int           `yaml:"max_picks"`
	PayTable    []PayRow      `yaml:"pay_table"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Keno 玩家從 1..Numbers 選 1..MaxPicks 個號碼，開出 Draws 個，每 tick 揭露一個。
type Keno struct {
	fx    *kenoFixed
	table map[int]decimal.Decimal
}

func buildKeno(gs *setting.GameSetting) (Policy, error) {
	fx := &kenoFixed{Numbers: 80, Draws: 20, MaxPicks: 10, SettleDelay: 2 * time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if len(fx.PayTable) == 0 {
		fx.PayTable = KenoPayTable
	}
	if fx.Draws < 1 || fx.Draws > fx.Numbers || fx.MaxPicks < 1 || fx.MaxPicks > fx.Numbers {
		return nil, invalidFixed(gs, "keno: %+v", *fx)
	}
	table, err := buildTable(gs, fx.PayTable)
	if err != nil {
		return nil, err
	}
	return &Keno{fx: fx, table: table}, nil
}

// PayTable 回傳排序後的派彩表，給結果面板顯示
func (k *Keno) PayTable() []PayRow {
	return payRows(k.fx.PayTable)
}

// Judge 依命中數查表，乘數 0 為輸
func (k *Keno) Judge(hits int) Verdict {
	desc := fmt.Sprintf("%d matches!", hits)
	if m, ok := k.table[hits]; ok && m.IsPositive() {
		return win(m, desc)
	}
	return lose(desc)
}

func (k *Keno) Start(c *core.Core, _ int, sel Selection) (Play, Step, error) {
	if err := validPicks(sel.Numbers, 1, k.fx.MaxPicks, k.fx.Numbers); err != nil {
		return nil, Step{}, err
	}
	p := &kenoPlay{
		k:     k,
		picks: slices.Clone(sel.Numbers),
		drawn: c.SampleDistinct(1, k.fx.Numbers, k.fx.Draws),
	}
	return p, Step{Stage: "drawing"}, nil
}

func (k *Keno) QuickPick(c *core.Core) Selection {
	picks := c.SampleDistinct(1, k.fx.Numbers, k.fx.MaxPicks)
	slices.Sort(picks)
	return Selection{Numbers: picks}
}

func (k *Keno) AutoSelection(c *core.Core) Selection { return k.QuickPick(c) }

type kenoPlay struct {
	noActions
	k        *Keno
	picks    []int
	drawn    []int
	revealed int
}

type KenoView struct {
	Picks    []int    `json:"picks"`
	Drawn    []int    `json:"drawn"`
	Hits     []int    `json:"hits"`
	PayTable []PayRow `json:"pay_table"`
}

func (p *kenoPlay) Tick(*core.Core) Step {
	if p.revealed < len(p.drawn) {
		p.revealed++
	}
	if p.revealed < len(p.drawn) {
		return Step{Stage: "drawing"}
	}
	return Step{
		Stage:     "settling",
		Settle:    true,
		Verdict:   p.k.Judge(len(intersect(p.picks, p.drawn))),
		Delay:     p.k.fx.SettleDelay,
		StopTicks: true,
	}
}

func (p *kenoPlay) View() any {
	shown := p.drawn[:p.revealed]
	return KenoView{
		Picks:    slices.Clone(p.picks),
		Drawn:    slices.Clone(shown),
		Hits:     intersect(p.picks, shown),
		PayTable: p.k.PayTable(),
	}
}

// PayRow 派彩表的一列
type PayRow struct {
	Hits int     `yaml:"hits" json:"hits"`
	Mult float64 `yaml:"mult" json:"mult"`
}

func payRows(t []PayRow) []PayRow {
	rows := slices.Clone(t)
	slices.SortFunc(rows, func(a, b PayRow) int { return a.Hits - b.Hits })
	return rows
}

func buildTable(gs *setting.GameSetting, rows []PayRow) (map[int]decimal.Decimal, error) {
	table := make(map[int]decimal.Decimal, len(rows))
	for _, r := range rows {
		if r.Mult < 0 || r.Hits < 0 {
			return nil, invalidFixed(gs, "pay table row %+v", r)
		}
		if _, dup := table[r.Hits]; dup {
			return nil, invalidFixed(gs, "duplicate pay table row for %d hits", r.Hits)
		}
		table[r.Hits] = dec(r.Mult)
	}
	return table, nil
}

// validPicks 號碼數量介於 [minN,maxN]，且不重複、皆在 1..limit
func validPicks(nums []int, minN, maxN, limit int) error {
	if len(nums) < minN || len(nums) > maxN {
		return invalidStart("need %d..%d numbers, got %d", minN, maxN, len(nums))
	}
	seen := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		if n < 1 || n > limit {
			return invalidStart("number %d out of 1..%d", n, limit)
		}
		if _, dup := seen[n]; dup {
			return invalidStart("duplicate number %d", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func intersect(picks, drawn []int) []int {
	out := make([]int, 0, len(picks))
	for _, n := range picks {
		if slices.Contains(drawn, n) {
			out = append(out, n)
		}
	}
	return out
}
