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

package svrcfg

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/server/logger"
)

// 環境變數
const (
	EnvAddr        = "MEGAODDS_ADDR"
	EnvJWTSecret   = "MEGAODDS_JWT_SECRET"
	EnvDemo        = "MEGAODDS_DEMO"
	EnvCORSOrigins = "MEGAODDS_CORS_ORIGINS"
	EnvJournalDir  = "MEGAODDS_JOURNAL_DIR"
)

const (
	DefaultAddr = ":5808"
	// demoSecret 只在示範模式下使用；正式環境必須設定 MEGAODDS_JWT_SECRET
	demoSecret = "megaodds-demo-secret"
)

type SvrCfg struct {
	Log         *slog.Logger
	Addr        string
	JWTSecret   string
	Demo        bool     // 接受固定的 demo token
	CORSOrigins []string // 空值為 *
	JournalDir  string   // 帳本 WAL 目錄，空值不寫 journal
	MegaOdds    *megaodds.MegaOdds
}

// FromEnv 以環境變數填入尚未設定的欄位（旗標優先）
func (sc *SvrCfg) FromEnv() error {
	if sc.Addr == "" {
		sc.Addr = os.Getenv(EnvAddr)
	}
	if sc.JWTSecret == "" {
		sc.JWTSecret = os.Getenv(EnvJWTSecret)
	}
	if v := os.Getenv(EnvDemo); v != "" && !sc.Demo {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Warnf("%s must be a bool: %q", EnvDemo, v)
		}
		sc.Demo = b
	}
	if len(sc.CORSOrigins) == 0 {
		sc.CORSOrigins = SplitOrigins(os.Getenv(EnvCORSOrigins))
	}
	if sc.JournalDir == "" {
		sc.JournalDir = os.Getenv(EnvJournalDir)
	}
	return nil
}

// SplitOrigins "a, b,,c" -> [a b c]
func SplitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}
	if !strings.Contains(sc.Addr, ":") {
		sc.Addr = ":" + sc.Addr
	}
	if sc.JWTSecret == "" {
		if !sc.Demo {
			return errs.NewFatal(EnvJWTSecret + " is required outside demo mode")
		}
		sc.JWTSecret = demoSecret
	}
	if len(sc.CORSOrigins) == 0 {
		sc.CORSOrigins = []string{"*"}
	}
	if sc.MegaOdds == nil {
		return errs.NewFatal("megaodds is required")
	}
	return nil
}
