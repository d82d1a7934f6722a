package megaodds

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/ledger"
	"github.com/zintix-labs/megaodds/profile"
)

// LeaderboardSize 排行榜預設名次
const LeaderboardSize = 10

// standingKey 示範使用者與註冊使用者的 ID 可能相同
type standingKey struct {
	id   int64
	demo bool
}

func keyOf(u profile.User) standingKey { return standingKey{id: u.ID, demo: u.Demo} }

// Standing 一位玩家跨 Session 的累計戰績
type Standing struct {
	UserID        int64           `json:"user_id"`
	Email         string          `json:"email"`
	TotalBets     int             `json:"total_bets"`
	Wins          int             `json:"wins"`
	TotalWinnings decimal.Decimal `json:"total_winnings"`
	BiggestWin    decimal.Decimal `json:"biggest_win"`
}

func (st *Standing) add(t ledger.Tally) {
	st.TotalBets += t.TotalBets
	st.Wins += t.Wins
	st.TotalWinnings = st.TotalWinnings.Add(t.TotalWinnings)
	if t.BiggestWin.GreaterThan(st.BiggestWin) {
		st.BiggestWin = t.BiggestWin
	}
}

func newStanding(s *Session) *Standing {
	u := s.User()
	return &Standing{UserID: u.ID, Email: u.Email, TotalWinnings: decimal.Zero, BiggestWin: decimal.Zero}
}

// retireStanding 需持有 rt.mu
func (rt *Runtime) retireStanding(s *Session) {
	k := keyOf(s.User())
	st, ok := rt.standings[k]
	if !ok {
		st = newStanding(s)
		rt.standings[k] = st
	}
	st.add(s.Ledger().Tally())
}

// Leaderboard 依 TotalWinnings 由高到低排列所有玩家（含已關閉的 Session），
// 同分依 UserID、Email 排序。n <= 0 時回傳全部。
func (rt *Runtime) Leaderboard(n int) []Standing {
	rt.mu.RLock()
	by := make(map[standingKey]*Standing, len(rt.standings)+len(rt.sessions))
	for id, st := range rt.standings {
		cp := *st
		by[id] = &cp
	}
	live := make([]*Session, 0, len(rt.sessions))
	for _, e := range rt.sessions {
		live = append(live, e.s)
	}
	rt.mu.RUnlock()

	// 帳本自帶鎖，直接讀取 Tally
	for _, s := range live {
		k := keyOf(s.User())
		st, ok := by[k]
		if !ok {
			st = newStanding(s)
			by[k] = st
		}
		st.add(s.Ledger().Tally())
	}

	out := make([]Standing, 0, len(by))
	for _, st := range by {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b Standing) int {
		return cmp.Or(
			b.TotalWinnings.Cmp(a.TotalWinnings),
			cmp.Compare(a.UserID, b.UserID),
			cmp.Compare(a.Email, b.Email),
		)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
