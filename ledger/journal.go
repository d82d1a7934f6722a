package ledger

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"github.com/zintix-labs/megaodds/errs"
)

const (
	journalPrefix       = "ledger_"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	journalKeyPrefix    = "tx_"
)

// Entry 為 journal 中的一筆異動
type Entry struct {
	Stream  string      `json:"stream,omitempty"` // 所屬帳本，通常為 session id
	Tx      Transaction `json:"tx"`
	Subject string      `json:"subject"` // 遊戲名稱或付款對象
}

// Journal 以 WAL 保存帳本的每一筆異動，只追加不改寫。
type Journal struct {
	mu  sync.Mutex
	wal *gowal.Wal
}

func OpenJournal(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errs.NewFatal("ledger journal dir is required")
	}
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           journalPrefix,
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errs.Wrap(err, "open ledger journal")
	}
	return &Journal{wal: wal}, nil
}

func (j *Journal) Append(e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(err, "marshal journal entry")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.Write(j.wal.CurrentIndex()+1, journalKeyPrefix+string(e.Tx.Type), payload)
}

// Entries 依寫入順序回傳全部異動
func (j *Journal) Entries() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, 0, j.wal.CurrentIndex())
	for m := range j.wal.Iterator() {
		var e Entry
		if err := json.Unmarshal(m.Value, &e); err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("decode journal entry %s", m.Key))
		}
		out = append(out, e)
	}
	return out, nil
}

func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.CurrentIndex()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.Close()
}

// Replay 由起始餘額依序套用 stream 的異動，重建最終餘額。
// 每筆異動後的餘額需與紀錄中的 BalanceAfter 一致，否則回報是哪一筆對不上。
func Replay(j *Journal, stream string, start decimal.Decimal) (decimal.Decimal, error) {
	entries, err := j.Entries()
	if err != nil {
		return decimal.Zero, err
	}
	bal := start
	for i, e := range entries {
		if e.Stream != stream {
			continue
		}
		bal = bal.Add(e.Tx.Amount)
		if !bal.Equal(e.Tx.BalanceAfter) {
			return bal, errs.NewFatal(fmt.Sprintf("journal entry %d (%s): balance %s, recorded %s",
				i+1, e.Tx.ID, bal, e.Tx.BalanceAfter))
		}
	}
	return bal, nil
}
