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

// Package app 統一啟動與關閉多個長生命週期元件（HTTP server、Session runtime）。
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownTimeout 優雅關閉的期限
const ShutdownTimeout = 5 * time.Second

// App 啟動所有 Component，收到 OS 信號、ctx 取消或任一 Component 結束時依註冊的反序關閉。
type App struct {
	comps []Component
}

func New() *App { return &App{} }

// NewWith 建立並註冊多個 Component
func NewWith(comps ...Component) *App {
	app := New()
	for _, c := range comps {
		app.Register(c)
	}
	return app
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// Run 阻塞直到 SIGINT/SIGTERM 或任一 Component.Run 返回。
//   - 信號或 ctx 取消：優雅關閉並回傳 nil。
//   - Component 提前返回：優雅關閉並回傳該錯誤（nil 也會觸發關閉）。
func (a *App) Run() error {
	return a.RunContext(context.Background())
}

func (a *App) RunContext(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	return errors.Join(runErr, a.shutdown(ShutdownTimeout))
}

// shutdown 後註冊的先關：Register(runtime) 後 Register(svr) 時，先停止收請求再關 Session
func (a *App) shutdown(td time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), td)
	defer cancel()
	var errs []error
	for i := len(a.comps) - 1; i >= 0; i-- {
		if err := a.comps[i].Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
