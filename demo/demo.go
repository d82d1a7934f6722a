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

// Package demo 內建的示範設定：16 款小遊戲設定檔與預設玩法表。
package demo

import (
	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/catalog"
	"github.com/zintix-labs/megaodds/demo/demo_configs"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/server/logger"
	"github.com/zintix-labs/megaodds/server/svrcfg"
)

func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewServerConfig 示範模式的 server 設定：接受 demo token、開放所有來源
func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := NewMegaOdds()
	if err != nil {
		return nil, errs.Wrap(err, "new megaodds failed")
	}
	scfg := &svrcfg.SvrCfg{
		Log:      logger.NewDefaultAsyncLogger(logger.ModeDev),
		Addr:     svrcfg.DefaultAddr,
		Demo:     true,
		MegaOdds: lab,
	}
	return scfg, nil
}

func NewMegaOdds() (*megaodds.MegaOdds, error) {
	return megaodds.NewAuto(
		core.Default(),
		megaodds.Configs(demo_configs.FS),
		megaodds.Policies(games.Default()),
	)
}
