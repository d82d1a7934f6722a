package setting

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
)

// GID 遊戲編號
type GID uint

// LogicKey 對應 games.Registry 中的玩法實作
type LogicKey string

// Payout 派彩慣例：決定贏錢時乘數如何換算成淨利。
type Payout string

const (
	// PayoutNet 淨利 = bet × mult（Keno 500 倍即 +500 × bet）
	PayoutNet Payout = "net"
	// PayoutGross 乘數為總回收，淨利 = bet × mult − bet（Mines 兌現、Aviator）
	PayoutGross Payout = "gross"
)

// Profit 依派彩慣例計算贏錢的淨利，結果四捨五入到分。
func (p Payout) Profit(bet int, mult decimal.Decimal) decimal.Decimal {
	b := decimal.NewFromInt(int64(bet))
	gross := b.Mul(mult)
	if p == PayoutGross {
		return gross.Sub(b).Round(2)
	}
	return gross.Round(2)
}

// Timing 回合排程參數
type Timing struct {
	// TickInterval > 0 時，回合進行中每隔此間隔推進一格動畫
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	// ResetDelay > 0 時，結算後經過此時間自動回到 Idle
	ResetDelay time.Duration `yaml:"reset_delay"   json:"reset_delay"`
}

// DefaultBetUnits 大廳可選的下注金額
var DefaultBetUnits = []int{650, 1300, 3250, 6500, 13000}

// GameSetting 包含啟動一個遊戲狀態機所需的所有高階設定。
type GameSetting struct {
	GameID   GID            `yaml:"game_id"   json:"game_id"`
	GameName string         `yaml:"game_name" json:"game_name"` // 大廳選擇用的識別碼，例如 dice
	Title    string         `yaml:"title"     json:"title"`     // 回報結果時的遊戲名稱，例如 Dice Roll
	Logic    LogicKey       `yaml:"logic"     json:"logic"`
	BetUnits []int          `yaml:"bet_units" json:"bet_units"`
	Payout   Payout         `yaml:"payout"    json:"payout"`
	Timing   Timing         `yaml:"timing"    json:"timing"`
	Fixed    map[string]any `yaml:"fixed"     json:"fixed"`
}

// init 補預設值後檢查
func (gs *GameSetting) init() error {
	gs.GameName = strings.ToLower(strings.TrimSpace(gs.GameName))
	if gs.Title == "" {
		gs.Title = gs.GameName
	}
	if len(gs.BetUnits) == 0 {
		gs.BetUnits = slices.Clone(DefaultBetUnits)
	}
	if gs.Payout == "" {
		gs.Payout = PayoutNet
	}
	if gs.Logic == "" {
		gs.Logic = LogicKey(gs.GameName)
	}
	return gs.valid()
}

// valid 執行最基本的設定檔檢查，玩法專屬欄位由各 Builder 透過 DecodeFixed 檢查。
func (gs *GameSetting) valid() error {
	if gs.GameName == "" {
		return errs.NewFatal("empty game_name")
	}
	for i, b := range gs.BetUnits {
		if b < 1 {
			return errs.NewFatal(fmt.Sprintf("game_name: %s err:invalid bet unit %d", gs.GameName, b))
		}
		if i > 0 && b <= gs.BetUnits[i-1] {
			return errs.NewFatal(fmt.Sprintf("game_name: %s err:bet_units must be strictly ascending", gs.GameName))
		}
	}
	switch gs.Payout {
	case PayoutNet, PayoutGross:
	default:
		return errs.NewFatal(fmt.Sprintf("game_name: %s err:unknown payout %q", gs.GameName, gs.Payout))
	}
	if gs.Timing.TickInterval < 0 || gs.Timing.ResetDelay < 0 {
		return errs.NewFatal(fmt.Sprintf("game_name: %s err:negative timing", gs.GameName))
	}
	return nil
}

// AllowsBet 下注金額是否在此遊戲的可選清單內
func (gs *GameSetting) AllowsBet(bet int) bool {
	return slices.Contains(gs.BetUnits, bet)
}
