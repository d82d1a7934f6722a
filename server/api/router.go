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

package api

import (
	"log/slog"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/auth"
	v1 "github.com/zintix-labs/megaodds/server/api/v1"
	"github.com/zintix-labs/megaodds/server/netsvr"
	"github.com/zintix-labs/megaodds/server/netsvr/middleware"
	"github.com/zintix-labs/megaodds/server/svrcfg"
)

// Deps 路由需要的執行期元件，由 server.Run 組裝
type Deps struct {
	Auth    *auth.Service
	Runtime *megaodds.Runtime
}

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg, deps Deps) error {
	registerMiddleware(svr, sCfg)         // 1. 註冊 middleware
	return registerV1API(svr, sCfg, deps) // 2. 註冊 v1 api
}

// 註冊 middleware：request id 最外層，讓 access log 與 recover 都拿得到
func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.CORS(sCfg.CORSOrigins))
	svr.Use(middleware.Compression)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg, deps Deps) error {
	log := sCfg.Log.With(slog.String("api", "v1"))
	src := v1.TokenSource{Auth: deps.Auth, Demo: sCfg.Demo}

	a, err := v1.NewAuthHandler(deps.Auth, src, log)
	if err != nil {
		return err
	}
	g, err := v1.NewGameHandler(sCfg.MegaOdds)
	if err != nil {
		return err
	}
	s, err := v1.NewSessionHandler(deps.Runtime, src, sCfg.Demo, log)
	if err != nil {
		return err
	}
	sim, err := v1.NewSimHandler(sCfg.MegaOdds)
	if err != nil {
		return err
	}

	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Post("/auth/register", a.Register)
		vOne.Post("/auth/login", a.Login)
		vOne.Get("/protected", a.Protected)

		vOne.Get("/games", g.List)
		vOne.Get("/metrics", s.Metrics)
		vOne.Get("/leaderboard", s.Leaderboard)

		vOne.Post("/sessions", s.Create)
		vOne.Get("/sessions/{sid}", s.Get)
		vOne.Delete("/sessions/{sid}", s.Delete)
		vOne.Post("/sessions/{sid}/bet", s.Bet)
		vOne.Post("/sessions/{sid}/open", s.Open)
		vOne.Post("/sessions/{sid}/leave", s.Leave)
		vOne.Post("/sessions/{sid}/start", s.Start)
		vOne.Post("/sessions/{sid}/act", s.Act)
		vOne.Post("/sessions/{sid}/replay", s.Replay)
		vOne.Post("/sessions/{sid}/quickpick", s.QuickPick)
		vOne.Post("/sessions/{sid}/deposit", s.Deposit)
		vOne.Post("/sessions/{sid}/withdraw", s.Withdraw)
		vOne.Get("/sessions/{sid}/history", s.History)

		vOne.Post("/sim", sim.Sim)
		vOne.Post("/simplayer", sim.SimPlayers)
		vOne.Post("/simbycfg", sim.SimByConfig)
		vOne.Post("/stat", sim.Stat)
	})
	return nil
}
