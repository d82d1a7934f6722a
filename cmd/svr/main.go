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

package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/zintix-labs/megaodds/demo"
	"github.com/zintix-labs/megaodds/server"
	"github.com/zintix-labs/megaodds/server/logger"
	"github.com/zintix-labs/megaodds/server/svrcfg"
)

// 大廳 server：旗標優先，其次環境變數（可由 .env 載入）。
// 未開啟 -demo 時必須提供 MEGAODDS_JWT_SECRET。
func main() {
	cfg, err := loadConfigFromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := server.Run(cfg); err != nil {
		os.Exit(1)
	}
}

type config struct {
	LogMode    string
	Addr       string
	Demo       bool
	EnvFile    string
	JournalDir string
}

func loadConfigFromFlags(args []string) (*svrcfg.SvrCfg, error) {
	cfg := new(config)
	fset := flag.NewFlagSet("svr", flag.ContinueOnError)
	fset.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	fset.StringVar(&cfg.Addr, "addr", "", "listen address (default "+svrcfg.DefaultAddr+")")
	fset.BoolVar(&cfg.Demo, "demo", false, "accept the demo token and fall back to the demo secret")
	fset.StringVar(&cfg.EnvFile, "env", ".env", "dotenv file, skipped when missing")
	fset.StringVar(&cfg.JournalDir, "journal", "", "ledger journal (WAL) dir, empty disables it")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	// .env 不覆蓋已存在的環境變數
	if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	log, _ := logger.NewAsync(4096, mode)

	lab, err := demo.NewMegaOdds()
	if err != nil {
		return nil, err
	}
	sCfg := &svrcfg.SvrCfg{
		Log:        log,
		Addr:       cfg.Addr,
		Demo:       cfg.Demo,
		JournalDir: cfg.JournalDir,
		MegaOdds:   lab,
	}
	if err := sCfg.FromEnv(); err != nil {
		return nil, err
	}
	return sCfg, nil
}
