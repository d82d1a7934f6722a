package games

import (
	"time"

	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/setting"
)

func init() { mustRegister("blackjack", buildBlackjack) }

var (
	suits = []string{"♠", "♥", "♦", "♣"}
	ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// Card 無限副牌，每張牌獨立抽取
type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

func drawCard(c *core.Core) Card {
	r := c.IntN(len(ranks))
	v := r + 1
	switch {
	case r == 0:
		v = 11
	case v > 10:
		v = 10
	}
	return Card{Suit: suits[c.IntN(len(suits))], Rank: ranks[r], Value: v}
}

// HandTotal A 先算 11，爆牌時逐張改算 1
func HandTotal(hand []Card) int {
	total, aces := 0, 0
	for _, card := range hand {
		total += card.Value
		if card.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

type blackjackFixed struct {
	Multiplier  float64       `yaml:"multiplier"`
	DealerStand int           `yaml:"dealer_stand"`
	RevealDelay time.Duration `yaml:"reveal_delay"`
}

// Blackjack 莊家未滿 DealerStand 必須補牌；平手 (Push) 視為輸。
type Blackjack struct {
	fx *blackjackFixed
}

func buildBlackjack(gs *setting.GameSetting) (Policy, error) {
	fx := &blackjackFixed{Multiplier: 1.5, DealerStand: 17, RevealDelay: time.Second}
	if err := setting.DecodeFixed(gs, fx); err != nil {
		return nil, err
	}
	if fx.Multiplier <= 0 || fx.DealerStand < 2 || fx.DealerStand > 21 {
		return nil, invalidFixed(gs, "blackjack: %+v", *fx)
	}
	return &Blackjack{fx: fx}, nil
}

func (b *Blackjack) Start(c *core.Core, _ int, _ Selection) (Play, Step, error) {
	p := &blackjackPlay{b: b, stage: "playing"}
	p.player = append(p.player, drawCard(c), drawCard(c))
	p.dealer = append(p.dealer, drawCard(c), drawCard(c))
	return p, Step{Stage: p.stage}, nil
}

func (b *Blackjack) AutoSelection(*core.Core) Selection { return Selection{} }

// Judge 玩家停牌後比較點數
func (b *Blackjack) Judge(player, dealer int) Verdict {
	switch {
	case player > 21:
		return lose("Player Bust!")
	case dealer > 21:
		return win(dec(b.fx.Multiplier), "Dealer Bust!")
	case dealer > player:
		return lose("Dealer Wins!")
	case player > dealer:
		return win(dec(b.fx.Multiplier), "Player Wins!")
	default:
		return lose("Push!")
	}
}

type blackjackPlay struct {
	noTicks
	b      *Blackjack
	player []Card
	dealer []Card
	stage  string // playing / dealer / finished
}

type BlackjackView struct {
	Player      []Card `json:"player"`
	Dealer      []Card `json:"dealer"`
	PlayerTotal int    `json:"player_total"`
	DealerTotal int    `json:"dealer_total,omitempty"`
	Stage       string `json:"stage"`
}

func (p *blackjackPlay) Act(c *core.Core, a Action) (Step, error) {
	if p.stage != "playing" {
		return Step{}, rejected("blackjack: hand already finished")
	}
	switch a.Kind {
	case ActHit:
		p.player = append(p.player, drawCard(c))
		if HandTotal(p.player) > 21 {
			p.stage = "finished"
			return Step{Stage: p.stage, Settle: true, Verdict: lose("Player Bust!")}, nil
		}
		return Step{Stage: p.stage}, nil
	case ActStand:
		for HandTotal(p.dealer) < p.b.fx.DealerStand {
			p.dealer = append(p.dealer, drawCard(c))
		}
		p.stage = "dealer"
		return Step{
			Stage:   p.stage,
			Settle:  true,
			Verdict: p.b.Judge(HandTotal(p.player), HandTotal(p.dealer)),
			Delay:   p.b.fx.RevealDelay,
		}, nil
	default:
		return Step{}, rejected("blackjack: unsupported action %q", a.Kind)
	}
}

func (p *blackjackPlay) AutoAct(*core.Core) (Action, bool) {
	if HandTotal(p.player) < 17 {
		return Action{Kind: ActHit}, true
	}
	return Action{Kind: ActStand}, true
}

func (p *blackjackPlay) View() any {
	v := BlackjackView{
		Player:      append([]Card(nil), p.player...),
		PlayerTotal: HandTotal(p.player),
		Stage:       p.stage,
	}
	if p.stage == "playing" {
		// 莊家暗牌不揭露
		v.Dealer = []Card{p.dealer[0]}
	} else {
		v.Dealer = append([]Card(nil), p.dealer...)
		v.DealerTotal = HandTotal(p.dealer)
	}
	return v
}
