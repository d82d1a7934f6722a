package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expectBalance(t *testing.T, l *Ledger, want string) {
	t.Helper()
	if got := l.Balance(); !got.Equal(d(want)) {
		t.Fatalf("balance=%s want %s", got, want)
	}
}

func TestApplyResultMessages(t *testing.T) {
	l := New()
	if !InitialBalance.Equal(l.Balance()) {
		t.Fatalf("initial balance=%s", l.Balance())
	}

	if msg := l.ApplyResult("Dice", true, d("1300"), "Rolled 5!"); msg != "Rolled 5! You win! +KSh1,300" {
		t.Fatalf("msg=%q", msg)
	}
	expectBalance(t, l, "163800")

	if msg := l.ApplyResult("Roulette", false, d("-1300"), "Number 0 (green)!"); msg != "Number 0 (green)! You lose! KSh1,300" {
		t.Fatalf("msg=%q", msg)
	}
	expectBalance(t, l, "162500")

	if msg := l.ApplyResult("Aviator", true, d("1234.5"), "Cashed out at 1.95x!"); msg != "Cashed out at 1.95x! You win! +KSh1,234.50" {
		t.Fatalf("msg=%q", msg)
	}
}

func TestActivityCappedMostRecentFirst(t *testing.T) {
	l := New()
	for i := 1; i <= 7; i++ {
		l.ApplyResult("Dice", i%2 == 0, decimal.NewFromInt(int64(i)), "x")
	}
	act := l.Activity()
	if len(act) != MaxActivity {
		t.Fatalf("activity len=%d want %d", len(act), MaxActivity)
	}
	if !act[0].Amount.Equal(d("7")) || !act[4].Amount.Equal(d("3")) {
		t.Fatalf("unexpected order: %+v", act)
	}
	if act[0].Result != Loss || act[1].Result != Win {
		t.Fatalf("unexpected results: %s %s", act[0].Result, act[1].Result)
	}

	// 相同結果不去重
	l.ApplyResult("Dice", true, d("1"), "x")
	l.ApplyResult("Dice", true, d("1"), "x")
	act = l.Activity()
	if act[0] != act[1] {
		t.Fatalf("identical results should both be kept: %+v %+v", act[0], act[1])
	}
}

func TestSetBet(t *testing.T) {
	l := New()
	if l.Bet() != 650 {
		t.Fatalf("default bet=%d", l.Bet())
	}
	if err := l.SetBet(3250); err != nil {
		t.Fatalf("set bet: %v", err)
	}
	if err := l.SetBet(1000); !errors.Is(err, errs.ErrInvalidBet) {
		t.Fatalf("want ErrInvalidBet, got %v", err)
	}
	if l.Bet() != 3250 {
		t.Fatalf("rejected bet changed state: %d", l.Bet())
	}

	poor := New(WithBalance(d("1000")))
	if !poor.CanAfford(650) || poor.CanAfford(1300) {
		t.Fatal("CanAfford should compare against the balance")
	}
}

func TestDepositWithdraw(t *testing.T) {
	l := New(WithBalance(d("1000")))

	if _, err := l.Deposit(d("0"), "0712345678"); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("zero deposit: %v", err)
	}
	if _, err := l.Deposit(d("500"), ""); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("deposit without phone: %v", err)
	}

	tx, err := l.Deposit(d("500"), "0712345678")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Type != TxDeposit || len(tx.Reference) != 32 || !tx.BalanceAfter.Equal(d("1500")) {
		t.Fatalf("unexpected tx %+v", tx)
	}

	if err := l.CheckWithdraw(d("2000"), decimal.Zero, "123"); !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("check over balance: %v", err)
	}
	if _, err := l.Withdraw(d("2000"), decimal.Zero, "123"); !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("withdraw over balance: %v", err)
	}
	if _, err := l.Withdraw(d("100"), decimal.Zero, ""); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("withdraw without account: %v", err)
	}

	tx, err = l.Withdraw(d("1500"), decimal.Zero, "123")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !tx.Amount.Equal(d("-1500")) || !l.Balance().IsZero() {
		t.Fatalf("tx=%s balance=%s", tx.Amount, l.Balance())
	}
}

func TestWithdrawKeepsHeldStake(t *testing.T) {
	l := New(WithBalance(d("650")))
	held := d("650")

	if err := l.CheckWithdraw(d("650"), held, "123"); !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("withdrawing a staked balance should fail, got %v", err)
	}
	if _, err := l.Withdraw(d("1"), held, "123"); !errors.Is(err, errs.ErrInsufficientBalance) {
		t.Fatalf("withdraw past the stake: %v", err)
	}
	expectBalance(t, l, "650")

	l2 := New(WithBalance(d("1000")))
	if err := l2.CheckWithdraw(d("350"), held, "123"); err != nil {
		t.Fatalf("withdraw leaving the stake covered: %v", err)
	}
	if _, err := l2.Withdraw(d("350"), held, "123"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	expectBalance(t, l2, "650")
}

func TestTransactionsAndTally(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New(WithClock(func() time.Time { return at }))
	for i := 0; i < 60; i++ {
		l.ApplyResult("Keno", false, d("-650"), "2 matches!")
	}
	l.ApplyResult("Keno", true, d("325000"), "10 matches!")
	l.ApplyResult("Dice", true, d("650"), "Rolled 6!")

	txs := l.Transactions()
	if len(txs) != MaxTransactions {
		t.Fatalf("transactions=%d want %d", len(txs), MaxTransactions)
	}
	if txs[0].Type != TxWin || !txs[0].CreatedAt.Equal(at) {
		t.Fatalf("unexpected newest tx %+v", txs[0])
	}
	if txs[0].Reference == txs[1].Reference {
		t.Fatal("references should be unique")
	}

	tally := l.Tally()
	if tally.TotalBets != 62 || tally.Wins != 2 {
		t.Fatalf("tally=%+v", tally)
	}
	if !tally.TotalWinnings.Equal(d("325650")) || !tally.BiggestWin.Equal(d("325000")) || !tally.Net.Equal(d("286650")) {
		t.Fatalf("tally=%+v", tally)
	}
}

func TestJournalReplay(t *testing.T) {
	j, err := OpenJournal(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	l := New(WithJournal(j, "a"))
	other := New(WithJournal(j, "b"), WithBalance(d("100")))
	l.ApplyResult("Dice", true, d("1300"), "Rolled 5!")
	other.ApplyResult("Dice", false, d("-50"), "Rolled 1!")
	l.ApplyResult("Mines", false, d("-1300"), "Hit a mine!")
	if _, err := l.Deposit(d("2500.50"), "0712345678"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := l.Withdraw(d("500"), decimal.Zero, "987654"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if j.Len() != 5 {
		t.Fatalf("journal len=%d want 5", j.Len())
	}
	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if entries[0].Subject != "Dice" || entries[1].Stream != "b" || entries[4].Tx.Type != TxWithdrawal {
		t.Fatalf("unexpected entries %+v", entries)
	}

	bal, err := Replay(j, "a", InitialBalance)
	if err != nil {
		t.Fatalf("replay a: %v", err)
	}
	if !bal.Equal(l.Balance()) {
		t.Fatalf("replayed %s, ledger %s", bal, l.Balance())
	}
	bal, err = Replay(j, "b", d("100"))
	if err != nil || !bal.Equal(other.Balance()) {
		t.Fatalf("replay b: %s %v", bal, err)
	}

	if _, err := Replay(j, "a", d("0")); err == nil {
		t.Fatal("replay from a wrong start balance should fail")
	}
}

func TestOpenJournalRequiresDir(t *testing.T) {
	if _, err := OpenJournal(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
