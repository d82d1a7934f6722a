package megaodds

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/corefmt"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/ledger"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/sdk/sched"
)

// PaymentDelay 模擬金流處理時間
const PaymentDelay = 3 * time.Second

// SessionView 大廳顯示用的狀態
type SessionView struct {
	ID        string          `json:"id"`
	User      profile.User    `json:"user"`
	Ledger    ledger.Snapshot `json:"ledger"`
	Message   string          `json:"message,omitempty"`
	Paying    bool            `json:"paying"`
	Game      *MachineView    `json:"game,omitempty"`
	QuickPick bool            `json:"quick_pick,omitempty"`
}

// History 交易紀錄與排行統計
type History struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Tally        ledger.Tally         `json:"tally"`
}

type sessionCounters struct {
	rounds     atomic.Int64 // 成功開局
	results    atomic.Int64 // 結果通道呼叫次數
	duplicates atomic.Int64 // 被擋下的重複結算
}

// Session 一位玩家的大廳：帳本、目前開啟的遊戲與付款面板。
//
// 所有操作都經由 sch.Do 與計時器回呼串行執行，結果通道因此只有單一寫入者。
type Session struct {
	id     string
	lab    *MegaOdds
	sch    sched.Scheduler
	ledger *ledger.Ledger
	user   profile.User
	log    *slog.Logger
	seeds  *seedMaker

	machine  *Machine
	message  string
	paying   bool
	payments sched.Timers
	closed   bool

	counters *sessionCounters
}

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	id      string
	log     *slog.Logger
	journal *ledger.Journal
	seed    *int64
	bet     int
}

func WithSessionID(id string) SessionOption { return func(c *sessionConfig) { c.id = id } }

func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(c *sessionConfig) { c.log = log }
}

// WithJournal 帳本異動寫入 WAL
func WithJournal(j *ledger.Journal) SessionOption {
	return func(c *sessionConfig) { c.journal = j }
}

// WithSeed 固定 seed，所有遊戲的子 seed 由它派生，回合可重現
func WithSeed(seed int64) SessionOption { return func(c *sessionConfig) { c.seed = &seed } }

// WithInitialBet 初始下注額，必須在可選清單內
func WithInitialBet(bet int) SessionOption { return func(c *sessionConfig) { c.bet = bet } }

func newSession(lab *MegaOdds, user profile.User, sch sched.Scheduler, opts ...SessionOption) (*Session, error) {
	if sch == nil {
		return nil, errs.NewFatal("scheduler required")
	}
	cfg := sessionConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := int64(0)
	if cfg.seed != nil {
		base = *cfg.seed
	} else {
		seed, err := cryptoSeed()
		if err != nil {
			return nil, err
		}
		base = seed
	}

	lopts := []ledger.Option{
		ledger.WithBalance(user.Balance),
		ledger.WithLogger(cfg.log),
	}
	if user.Demo {
		lopts = append(lopts, ledger.WithActivity(ledger.DemoActivity()))
	}
	if cfg.journal != nil {
		lopts = append(lopts, ledger.WithJournal(cfg.journal, cfg.id))
	}
	led := ledger.New(lopts...)
	if cfg.bet != 0 {
		if err := led.SetBet(cfg.bet); err != nil {
			return nil, err
		}
	}

	return &Session{
		id:       cfg.id,
		lab:      lab,
		sch:      sch,
		ledger:   led,
		user:     user,
		log:      cfg.log.With(slog.String("session", cfg.id)),
		seeds:    newSeedMaker(base),
		counters: &sessionCounters{},
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) User() profile.User { return s.user }

// Ledger 直接存取帳本；帳本自帶鎖，讀取不必經過排程器。
func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

// do 把 fn 排進 Session 的排程器並等待結果
func (s *Session) do(fn func() error) error {
	var err error
	if derr := s.sch.Do(func() {
		if s.closed {
			err = errs.ErrClosed.Withf("session %s closed", s.id)
			return
		}
		err = fn()
	}); derr != nil {
		return derr
	}
	return err
}

// SetBet 只接受可選下注額
func (s *Session) SetBet(amount int) error {
	return s.do(func() error {
		return s.ledger.SetBet(amount)
	})
}

// OpenGame 依大廳識別碼開啟遊戲。
//
// 未知遊戲回傳 ErrUnknownGame；餘額不足目前下注額回傳 ErrInsufficientBalance，兩者都不改動狀態。
// 成功時先離開目前的遊戲（取消其計時器）再換上新的狀態機。
func (s *Session) OpenGame(name string) error {
	return s.do(func() error {
		gs, err := s.lab.Setting(name)
		if err != nil {
			return err
		}
		if bet := s.ledger.Bet(); !s.ledger.CanAfford(bet) {
			s.message = "Insufficient balance!"
			return errs.ErrInsufficientBalance.Withf("balance %s below bet %s",
				corefmt.KSh(s.ledger.Balance()), corefmt.KSh(decimal.NewFromInt(int64(bet))))
		}
		m, err := s.lab.newMachineWithSeed(gs, s.seeds.next(), machineOpts{
			sch:      s.sch,
			onResult: s.onResult,
			log:      s.log,
		})
		if err != nil {
			return err
		}
		s.leave()
		s.machine = m
		s.message = ""
		s.log.Debug("game opened", slog.String("game", gs.GameName))
		return nil
	})
}

// Leave 回到大廳
func (s *Session) Leave() error {
	return s.do(func() error {
		if s.machine == nil {
			return errs.ErrNoActiveGame.With("leave")
		}
		s.leave()
		return nil
	})
}

func (s *Session) leave() {
	if s.machine == nil {
		return
	}
	s.machine.Leave()
	s.counters.duplicates.Add(s.machine.DuplicateSettlements())
	s.machine = nil
}

// Start 以目前下注額開始一回合。
//
// 非 Idle 或缺少選擇屬於無聲拒絕：不回傳錯誤、不動帳本。
func (s *Session) Start(sel games.Selection) error {
	return s.do(func() error {
		if s.machine == nil {
			return errs.ErrNoActiveGame.With("start")
		}
		bet := s.ledger.Bet()
		if !s.ledger.CanAfford(bet) {
			s.message = "Insufficient balance!"
			return errs.ErrInsufficientBalance.Withf("balance %s below bet %d", corefmt.KSh(s.ledger.Balance()), bet)
		}
		if err := s.machine.Start(bet, sel); err != nil {
			if errors.Is(err, errs.ErrInvalidRoundStart) {
				s.log.Debug("round start ignored", slog.Any("err", err))
				return nil
			}
			return err
		}
		s.counters.rounds.Add(1)
		s.message = ""
		return nil
	})
}

// Act 回合中的操作（要牌、翻格、兌現、刮開）
func (s *Session) Act(a games.Action) error {
	return s.do(func() error {
		if s.machine == nil {
			return errs.ErrNoActiveGame.With("act")
		}
		return s.machine.Act(a)
	})
}

// Replay 結算後回到可下注狀態
func (s *Session) Replay() error {
	return s.do(func() error {
		if s.machine == nil {
			return errs.ErrNoActiveGame.With("replay")
		}
		return s.machine.Replay()
	})
}

// QuickPick 快速選號（keno / lotto）
func (s *Session) QuickPick() (games.Selection, error) {
	var sel games.Selection
	err := s.do(func() error {
		if s.machine == nil {
			return errs.ErrNoActiveGame.With("quick pick")
		}
		if !s.machine.SupportsQuickPick() {
			return errs.ErrActionRejected.Withf("%s has no quick pick", s.machine.Setting().GameName)
		}
		sel = s.machine.SelectionHint(true)
		return nil
	})
	return sel, err
}

// onResult 為本 Session 的結果通道，只會在排程器上被呼叫
func (s *Session) onResult(game string, won bool, amount decimal.Decimal, desc string) {
	s.counters.results.Add(1)
	s.message = s.ledger.ApplyResult(game, won, amount, desc)
	s.log.Info("round settled",
		slog.String("game", game),
		slog.Bool("won", won),
		slog.String("amount", amount.String()))
}

// Deposit M-Pesa 儲值，PaymentDelay 後入帳
func (s *Session) Deposit(amount decimal.Decimal, phone string) error {
	return s.do(func() error {
		if err := ledger.CheckDeposit(amount, phone); err != nil {
			s.message = "Please fill all fields"
			return err
		}
		if s.paying {
			return errs.ErrPaymentBusy.With("deposit")
		}
		s.paying = true
		s.message = "Processing M-Pesa payment..."
		s.payments.StopAll()
		s.payments.Add(s.sch.After(PaymentDelay, func() {
			s.paying = false
			if _, err := s.ledger.Deposit(amount, phone); err != nil {
				s.message = "Deposit failed"
				s.log.Warn("deposit failed", slog.Any("err", err))
				return
			}
			s.message = fmt.Sprintf("Successfully deposited %s via M-Pesa", corefmt.KSh(amount))
		}))
		return nil
	})
}

// staked 目前回合已押下、尚未結算的金額
func (s *Session) staked() decimal.Decimal {
	if s.machine == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.machine.Staked()))
}

// Withdraw 提領到銀行帳戶。
// 申請與完成時都要求提領後的餘額仍足以支付進行中回合的押注。
func (s *Session) Withdraw(amount decimal.Decimal, account string) error {
	return s.do(func() error {
		if err := s.ledger.CheckWithdraw(amount, s.staked(), account); err != nil {
			if errors.Is(err, errs.ErrInsufficientBalance) {
				s.message = "Insufficient balance"
			} else {
				s.message = "Please fill all fields"
			}
			return err
		}
		if s.paying {
			return errs.ErrPaymentBusy.With("withdraw")
		}
		s.paying = true
		s.message = "Processing withdrawal to bank..."
		s.payments.StopAll()
		s.payments.Add(s.sch.After(PaymentDelay, func() {
			s.paying = false
			if _, err := s.ledger.Withdraw(amount, s.staked(), account); err != nil {
				s.message = "Insufficient balance"
				s.log.Warn("withdraw failed", slog.Any("err", err))
				return
			}
			s.message = fmt.Sprintf("Successfully withdrew %s to your bank account", corefmt.KSh(amount))
		}))
		return nil
	})
}

func (s *Session) Snapshot() (SessionView, error) {
	var v SessionView
	err := s.do(func() error {
		v = SessionView{
			ID:      s.id,
			User:    s.user,
			Ledger:  s.ledger.Snapshot(),
			Message: s.message,
			Paying:  s.paying,
		}
		v.User.Token = ""
		if s.machine != nil {
			mv := s.machine.View()
			v.Game = &mv
			v.QuickPick = s.machine.SupportsQuickPick()
		}
		return nil
	})
	return v, err
}

func (s *Session) History() (History, error) {
	var h History
	err := s.do(func() error {
		h = History{Transactions: s.ledger.Transactions(), Tally: s.ledger.Tally()}
		return nil
	})
	return h, err
}

// Close 離開遊戲並取消未完成的付款；之後的操作回傳 ErrClosed。
func (s *Session) Close() error {
	return s.do(func() error {
		s.leave()
		if n := s.payments.StopAll(); n > 0 {
			s.log.Info("pending payment cancelled", slog.Int("count", n))
		}
		s.paying = false
		s.closed = true
		return nil
	})
}

func (s *Session) stats() (rounds, results, duplicates int64) {
	dup := s.counters.duplicates.Load()
	_ = s.sch.Do(func() {
		if s.machine != nil {
			dup += s.machine.DuplicateSettlements()
		}
	})
	return s.counters.rounds.Load(), s.counters.results.Load(), dup
}
