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
	"crypto/rand"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/recorder"
)

// simPlayerWorkers 玩家模擬固定的併發數
const simPlayerWorkers = 4

type SimHandler struct {
	MegaOdds *megaodds.MegaOdds
}

func NewSimHandler(lab *megaodds.MegaOdds) (*SimHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("megaodds is required")
	}
	return &SimHandler{MegaOdds: lab}, nil
}

func seedOr(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}

// Sim POST /sim {game, bet_mode, rounds, workers, seed}
func (sh *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.SimRequest](r)
	if err == nil {
		err = req.Valid()
	}
	if err != nil {
		fail(w, err)
		return
	}
	seed, err := seedOr(req.Seed)
	if err != nil {
		fail(w, err)
		return
	}
	sim, err := sh.MegaOdds.NewSimulatorWithSeed(req.Game, seed)
	if err != nil {
		// 尊重錯誤分級：未知遊戲為 Warn
		fail(w, errs.Wrap(err, "build simulator err: "+req.Game))
		return
	}
	resp := dto.SimResponse{Seed: seed}
	err = call(r.Context(), func() error {
		if req.Workers > 1 {
			rounds := max(1, req.Rounds/req.Workers)
			st, used, serr := sim.SimMP(req.BetMode, rounds, req.Workers, false)
			resp.Stats, resp.UsedTime = st, used.Milliseconds()
			return serr
		}
		st, used, serr := sim.Sim(req.BetMode, req.Rounds, false)
		resp.Stats, resp.UsedTime = st, used.Milliseconds()
		return serr
	})
	if err != nil {
		fail(w, errs.Wrap(err, "simulate err"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SimPlayers POST /simplayer：每位玩家帶 bets 注進場，回傳機台報表與玩家分布
func (sh *SimHandler) SimPlayers(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.SimPlayersRequest](r)
	if err == nil {
		err = req.Valid()
	}
	if err != nil {
		fail(w, err)
		return
	}
	seed, err := seedOr(req.Seed)
	if err != nil {
		fail(w, err)
		return
	}
	sim, err := sh.MegaOdds.NewSimulatorWithSeed(req.Game, seed)
	if err != nil {
		fail(w, errs.Wrap(err, "build simulator err: "+req.Game))
		return
	}
	resp := dto.SimPlayersResponse{Seed: seed}
	err = call(r.Context(), func() error {
		st, est, used, serr := sim.SimPlayers(simPlayerWorkers, req.Players, req.Bets, req.BetMode, req.Rounds, false)
		resp.StatsReport, resp.Estimator, resp.UsedTime = st, est, used.Milliseconds()
		return serr
	})
	if err != nil {
		fail(w, errs.Wrap(err, "simulator err: "+req.Game))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SimByConfig POST /simbycfg：以請求帶入的設定（不進 catalog）模擬
func (sh *SimHandler) SimByConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	req, err := dto.Decode[dto.SimByConfigRequest](r)
	if err == nil {
		err = req.Valid()
	}
	if err != nil {
		fail(w, err)
		return
	}
	seed, err := seedOr(req.Seed)
	if err != nil {
		fail(w, err)
		return
	}
	sim, err := sh.MegaOdds.NewSimulatorByConfig([]byte(req.Config), seed)
	if err != nil {
		fail(w, err)
		return
	}
	resp := dto.SimResponse{Seed: seed}
	err = call(r.Context(), func() error {
		st, used, serr := sim.Sim(req.BetMode, req.Rounds, false)
		resp.Stats, resp.UsedTime = st, used.Milliseconds()
		return serr
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stat POST /stat：以外部回合紀錄（例如前端的遊戲紀錄）計算統計報表
func (sh *SimHandler) Stat(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.StatRequest](r)
	if err == nil {
		err = req.Valid()
	}
	if err != nil {
		fail(w, err)
		return
	}
	gs, err := sh.MegaOdds.Setting(req.Game)
	if err != nil {
		fail(w, err)
		return
	}
	if req.BetMode < 0 || req.BetMode >= len(gs.BetUnits) {
		fail(w, errs.Warnf("bet_mode must be in [0, %d)", len(gs.BetUnits)))
		return
	}
	rec, err := recorder.NewRoundRecorder(gs, 0, req.BetMode)
	if err != nil {
		fail(w, err)
		return
	}
	for _, rr := range req.Results {
		rec.Record(rr.Won, rr.Amount)
	}
	st := rec.Done()
	st.Done()
	writeJSON(w, http.StatusOK, st)
}
