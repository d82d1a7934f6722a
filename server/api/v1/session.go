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

package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/server/netsvr"
)

// GameHandler 大廳遊戲清單
type GameHandler struct {
	lab *megaodds.MegaOdds
}

func NewGameHandler(lab *megaodds.MegaOdds) (*GameHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("megaodds is required")
	}
	return &GameHandler{lab: lab}, nil
}

func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	sum, err := h.lab.Summary()
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.GameListResponse{Games: sum})
}

// SessionHandler 大廳操作；每個操作完成後回傳最新的 SessionView。
//
// /sessions/{sid} 底下的路由都要求 Bearer token，且 token 的使用者必須是 Session 的擁有者；
// 他人的 Session 一律回 404。
type SessionHandler struct {
	rt   *megaodds.Runtime
	src  profile.Source
	demo bool // 只有示範模式接受客戶端指定 seed
	log  *slog.Logger
}

func NewSessionHandler(rt *megaodds.Runtime, src profile.Source, demo bool, log *slog.Logger) (*SessionHandler, error) {
	if rt == nil || src == nil {
		return nil, errs.NewFatal("runtime and profile source are required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SessionHandler{rt: rt, src: src, demo: demo, log: log}, nil
}

// Create POST /sessions：以 Authorization 標頭載入使用者並開啟大廳
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.OpenSessionRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	token := profile.BearerToken(r.Header.Get("Authorization"))
	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()
	st := profile.Bootstrap(ctx, h.src, token, h.log)
	if !st.Authenticated {
		fail(w, errs.ErrUnauthorized.With("login required"))
		return
	}
	if st.User == nil {
		fail(w, errs.ErrUnauthorized.With("failed to fetch user data"))
		return
	}

	var opts []megaodds.SessionOption
	if req.Bet != 0 {
		opts = append(opts, megaodds.WithInitialBet(req.Bet))
	}
	if req.Seed != nil {
		if !h.demo {
			fail(w, errs.Warnf("seed is only accepted in demo mode"))
			return
		}
		opts = append(opts, megaodds.WithSeed(*req.Seed))
	}
	s, err := h.rt.Open(*st.User, opts...)
	if err != nil {
		fail(w, err)
		return
	}
	h.respond(w, r, s, http.StatusCreated)
}

// caller 以 Authorization 標頭解析目前的使用者
func (h *SessionHandler) caller(r *http.Request) (profile.User, error) {
	token := profile.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return profile.User{}, errs.ErrUnauthorized.With("missing bearer token")
	}
	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()
	u, err := h.src.Fetch(ctx, token)
	if err != nil {
		return profile.User{}, errs.WrapAs(errs.ErrUnauthorized, err, "fetch user")
	}
	return u, nil
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*megaodds.Session, bool) {
	u, err := h.caller(r)
	if err != nil {
		fail(w, err)
		return nil, false
	}
	sid := netsvr.Param(r, "sid")
	s, err := h.rt.Get(sid)
	if err == nil && !s.User().Same(u) {
		h.log.Warn("session owner mismatch", slog.String("session", sid), slog.Int64("user", u.ID))
		err = errs.ErrSessionNotFound.With(sid)
	}
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, s *megaodds.Session, status int) {
	var v megaodds.SessionView
	err := call(r.Context(), func() error {
		var serr error
		v, serr = s.Snapshot()
		return serr
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, status, dto.NewSessionResponse(v))
}

// run 取得 Session、執行 op、回傳最新狀態
func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request, op func(s *megaodds.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := call(r.Context(), func() error { return op(s) }); err != nil {
		fail(w, err)
		return
	}
	h.respond(w, r, s, http.StatusOK)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.respond(w, r, s, http.StatusOK)
	}
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()
	if err := h.rt.CloseSession(ctx, s.ID()); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Bet(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.BetRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error { return s.SetBet(req.Amount) })
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.OpenGameRequest](r)
	if err == nil {
		err = req.Valid()
	}
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error { return s.OpenGame(req.Game) })
}

func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(s *megaodds.Session) error { return s.Leave() })
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.StartRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error {
		sel := req.Selection
		if req.QuickPick {
			qp, err := s.QuickPick()
			if err != nil {
				return err
			}
			sel = qp
		}
		return s.Start(sel)
	})
}

func (h *SessionHandler) Act(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.ActRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	a, err := req.Parse()
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error { return s.Act(a) })
}

func (h *SessionHandler) Replay(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(s *megaodds.Session) error { return s.Replay() })
}

// QuickPick 只回傳選號，不開局
func (h *SessionHandler) QuickPick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var sel games.Selection
	err := call(r.Context(), func() error {
		var qerr error
		sel, qerr = s.QuickPick()
		return qerr
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.QuickPickResponse{Selection: sel})
}

func (h *SessionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.PaymentRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error { return s.Deposit(req.Amount, req.Phone) })
}

func (h *SessionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.PaymentRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	h.run(w, r, func(s *megaodds.Session) error { return s.Withdraw(req.Amount, req.Account) })
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var hist megaodds.History
	err := call(r.Context(), func() error {
		var herr error
		hist, herr = s.History()
		return herr
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Leaderboard GET /leaderboard?limit=N：依 total_winnings 排名，預設前 10 名
func (h *SessionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	n := megaodds.LeaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 || l > maxLeaderboard {
			fail(w, errs.Warnf("limit must be in [1, %d]", maxLeaderboard))
			return
		}
		n = l
	}
	writeJSON(w, http.StatusOK, dto.LeaderboardResponse{Standings: h.rt.Leaderboard(n)})
}

const maxLeaderboard = 100

// Metrics GET /metrics
func (h *SessionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rt.Metrics())
}
