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

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/auth"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/ledger"
	"github.com/zintix-labs/megaodds/server/api"
	"github.com/zintix-labs/megaodds/server/app"
	"github.com/zintix-labs/megaodds/server/netsvr"
	"github.com/zintix-labs/megaodds/server/svrcfg"
)

// Run 是 server 套件的組裝器與啟動入口。
//
//  1. 驗證 SvrCfg（logger、JWT secret、MegaOdds）。
//  2. 建立 HTTP server（netsvr）與 Session runtime。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 阻塞於 app.Run() 並回傳停止原因。
//
// Run 不讀檔案也不讀環境變數；所有依賴都透過 SvrCfg 注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// 外層傳入的 logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr))
}

// RunWithSvr 與 Run 相同，但允許注入自訂的 NetSvr（另一個 adapter、自訂 listener 或 timeout）。
// 若 svr 為 ChiAdapter 則要求 Ready()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	return RunContext(context.Background(), sCfg, svr)
}

// RunContext ctx 取消時優雅關閉
func RunContext(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	a, _, err := Assemble(sCfg, svr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	sCfg.Log.Info("[megaodds] listening", slog.String("addr", sCfg.Addr), slog.Bool("demo", sCfg.Demo))
	if err := a.RunContext(ctx); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	sCfg.Log.Info("[megaodds] stopped")
	return nil
}

// Assemble 掛好路由並回傳尚未啟動的 App 與其 Session runtime。
// 註冊順序為 runtime 後 svr，關閉時先停止收請求、再結束所有 Session，最後關閉 journal。
func Assemble(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) (*app.App, *megaodds.Runtime, error) {
	if err := sCfg.Valid(); err != nil {
		return nil, nil, err
	}
	if svr == nil {
		return nil, nil, errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return nil, nil, errs.NewFatal("default server is not ready")
	}

	as, err := auth.NewService(sCfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	var rtOpts []megaodds.RuntimeOption
	var journal *ledger.Journal
	if sCfg.JournalDir != "" {
		if journal, err = ledger.OpenJournal(sCfg.JournalDir); err != nil {
			return nil, nil, err
		}
		rtOpts = append(rtOpts, megaodds.WithRuntimeJournal(journal))
		sCfg.Log.Info("[megaodds] ledger journal", slog.String("dir", sCfg.JournalDir))
	}
	rt := sCfg.MegaOdds.NewRuntime(sCfg.Log, rtOpts...)

	if err := api.RegisterRoutes(svr, sCfg, api.Deps{Auth: as, Runtime: rt}); err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, nil, err
	}

	runtime := app.Funcs{
		RunFn: func() error {
			<-rt.Done()
			return nil
		},
		ShutdownFn: func(ctx context.Context) error {
			err := rt.Close(ctx, "shutdown")
			if journal != nil {
				err = errors.Join(err, journal.Close())
			}
			return err
		},
	}
	return app.NewWith(runtime, svr), rt, nil
}
