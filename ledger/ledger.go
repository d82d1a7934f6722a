// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ledger 為單一玩家的餘額帳本：餘額、下注額、最近 5 筆活動、交易紀錄與統計。
//
// 所有金額以 decimal 表示，避免浮點誤差累積。餘額只會被 ApplyResult / Deposit / Withdraw 改動。
package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/setting"
)

const (
	MaxActivity     = 5
	MaxTransactions = 50
)

// InitialBalance demo 使用者的起始餘額
var InitialBalance = decimal.NewFromInt(162500)

// DefaultBets 預設可選下注額
var DefaultBets = setting.DefaultBetUnits

type Result string

const (
	Win  Result = "Win"
	Loss Result = "Loss"
)

type ActivityEntry struct {
	Game   string          `json:"game"`
	Result Result          `json:"result"`
	Amount decimal.Decimal `json:"amount"`
}

type TxType string

const (
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
	TxBet        TxType = "bet"
	TxWin        TxType = "win"
)

type Transaction struct {
	ID           string          `json:"id"`
	Type         TxType          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Reference    string          `json:"reference"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Tally 排行榜統計
type Tally struct {
	TotalBets     int             `json:"total_bets"`
	Wins          int             `json:"wins"`
	TotalWinnings decimal.Decimal `json:"total_winnings"`
	BiggestWin    decimal.Decimal `json:"biggest_win"`
	Net           decimal.Decimal `json:"net"`
}

type Ledger struct {
	mu       sync.Mutex
	balance  decimal.Decimal
	bets     []int
	bet      int
	activity []ActivityEntry
	txs      []Transaction
	tally    Tally
	journal  *Journal
	stream   string
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Ledger)

func WithBalance(b decimal.Decimal) Option { return func(l *Ledger) { l.balance = b } }

// WithBets 設定可選下注額，第一個為預設
func WithBets(bets []int) Option {
	return func(l *Ledger) {
		if len(bets) > 0 {
			l.bets = slices.Clone(bets)
		}
	}
}

// WithActivity 預先放入最近紀錄（最新在前），超過上限的部分捨棄
func WithActivity(entries []ActivityEntry) Option {
	return func(l *Ledger) {
		l.activity = slices.Clone(entries[:min(len(entries), MaxActivity)])
	}
}

// DemoActivity 示範帳號的預設最近紀錄
func DemoActivity() []ActivityEntry {
	return []ActivityEntry{
		{Game: "Dice Roll", Result: Win, Amount: decimal.NewFromInt(6500)},
		{Game: "Coin Flip", Result: Loss, Amount: decimal.NewFromInt(-3250)},
		{Game: "Blackjack", Result: Win, Amount: decimal.NewFromInt(13000)},
	}
}

// WithJournal 讓每次異動都寫入 journal；stream 區分共用同一份 journal 的帳本
func WithJournal(j *Journal, stream string) Option {
	return func(l *Ledger) {
		l.journal = j
		l.stream = stream
	}
}

func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		balance: InitialBalance,
		bets:    slices.Clone(DefaultBets),
		now:     time.Now,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(l)
	}
	l.bet = l.bets[0]
	l.tally.TotalWinnings = decimal.Zero
	l.tally.BiggestWin = decimal.Zero
	l.tally.Net = decimal.Zero
	return l
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) Bet() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bet
}

func (l *Ledger) Bets() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.bets)
}

// SetBet 只接受可選下注額中的值
func (l *Ledger) SetBet(amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slices.Contains(l.bets, amount) {
		return errs.ErrInvalidBet.Withf("bet %d not in %v", amount, l.bets)
	}
	l.bet = amount
	return nil
}

// CanAfford 餘額是否足以下注 bet
func (l *Ledger) CanAfford(bet int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance.GreaterThanOrEqual(decimal.NewFromInt(int64(bet)))
}

// ApplyResult 套用一回合結果並回傳顯示訊息。不做去重，呼叫端保證每回合只呼叫一次。
func (l *Ledger) ApplyResult(game string, won bool, amount decimal.Decimal, desc string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance = l.balance.Add(amount)
	res := Loss
	if won {
		res = Win
	}
	l.activity = slices.Insert(l.activity, 0, ActivityEntry{Game: game, Result: res, Amount: amount})
	if len(l.activity) > MaxActivity {
		l.activity = l.activity[:MaxActivity]
	}

	l.tally.TotalBets++
	l.tally.Net = l.tally.Net.Add(amount)
	tx := TxBet
	if won {
		tx = TxWin
		l.tally.Wins++
		l.tally.TotalWinnings = l.tally.TotalWinnings.Add(amount)
		if amount.GreaterThan(l.tally.BiggestWin) {
			l.tally.BiggestWin = amount
		}
	}
	l.record(tx, amount, game)
	return ResultMessage(won, amount, desc)
}

// ResultMessage "<desc> You win! +KSh1,300" / "<desc> You lose! KSh1,300"
func ResultMessage(won bool, amount decimal.Decimal, desc string) string {
	if won {
		return fmt.Sprintf("%s You win! +%s", desc, corefmt.KSh(amount))
	}
	return fmt.Sprintf("%s You lose! %s", desc, corefmt.KSh(amount))
}

// CheckDeposit 驗證存款輸入，不改動餘額
func CheckDeposit(amount decimal.Decimal, phone string) error {
	return checkPayment("deposit", amount, "phone number", phone)
}

// CheckWithdraw 驗證提款輸入與目前餘額。
// held 為進行中回合已押下、尚未結算的金額，提款後餘額仍須足以支付。
func (l *Ledger) CheckWithdraw(amount, held decimal.Decimal, account string) error {
	if err := checkPayment("withdraw", amount, "account number", account); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.covers(amount, held)
}

func checkPayment(kind string, amount decimal.Decimal, field, value string) error {
	if !amount.IsPositive() {
		return errs.ErrInvalidAmount.Withf("%s amount %s", kind, amount)
	}
	if value == "" {
		return errs.ErrInvalidAmount.Withf("%s required", field)
	}
	return nil
}

// covers 需持有鎖
func (l *Ledger) covers(amount, held decimal.Decimal) error {
	if amount.Add(held).GreaterThan(l.balance) {
		return errs.ErrInsufficientBalance.Withf("withdraw %s with %s staked over balance %s", amount, held, l.balance)
	}
	return nil
}

func (l *Ledger) Deposit(amount decimal.Decimal, phone string) (Transaction, error) {
	if err := CheckDeposit(amount, phone); err != nil {
		return Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = l.balance.Add(amount)
	return l.record(TxDeposit, amount, "mpesa:"+phone), nil
}

// Withdraw 完成時重新檢查餘額與進行中的押注；期間被回合花掉則失敗
func (l *Ledger) Withdraw(amount, held decimal.Decimal, account string) (Transaction, error) {
	if err := checkPayment("withdraw", amount, "account number", account); err != nil {
		return Transaction{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.covers(amount, held); err != nil {
		return Transaction{}, err
	}
	l.balance = l.balance.Sub(amount)
	return l.record(TxWithdrawal, amount.Neg(), "bank:"+account), nil
}

// record 需持有鎖
func (l *Ledger) record(typ TxType, amount decimal.Decimal, subject string) Transaction {
	ref, err := corefmt.RandomHex(16)
	if err != nil {
		l.log.Error("ledger reference", slog.Any("err", err))
	}
	tx := Transaction{
		ID:           uuid.NewString(),
		Type:         typ,
		Amount:       amount,
		Status:       "completed",
		Reference:    ref,
		BalanceAfter: l.balance,
		CreatedAt:    l.now(),
	}
	l.txs = slices.Insert(l.txs, 0, tx)
	if len(l.txs) > MaxTransactions {
		l.txs = l.txs[:MaxTransactions]
	}
	if l.journal != nil {
		if err := l.journal.Append(Entry{Stream: l.stream, Tx: tx, Subject: subject}); err != nil {
			// journal 只是稽核軌跡，寫入失敗不影響帳本
			l.log.Error("ledger journal append", slog.String("tx", tx.ID), slog.Any("err", err))
		}
	}
	return tx
}

// Activity 最近的活動，最新在前
func (l *Ledger) Activity() []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.activity)
}

func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.txs)
}

func (l *Ledger) Tally() Tally {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tally
}

type Snapshot struct {
	Balance  decimal.Decimal `json:"balance"`
	Bet      int             `json:"bet"`
	Bets     []int           `json:"bets"`
	Activity []ActivityEntry `json:"activity"`
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Balance:  l.balance,
		Bet:      l.bet,
		Bets:     slices.Clone(l.bets),
		Activity: slices.Clone(l.activity),
	}
}
