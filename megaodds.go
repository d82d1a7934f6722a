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

// Package megaodds 提供小遊戲引擎的「組裝入口」與「運行入口」。
//
// MegaOdds 把三個必需的地基組裝在一起：
//  1. Catalog：遊戲目錄，定義有哪些遊戲、各自對應的設定檔名稱（ConfigName）。
//  2. games.Registry：規則註冊表，依設定的 logic 建出亂數與派彩規則（Policy）。
//  3. PRNGFactory：亂數核心工廠，保證可重現與可審計。
//
// 設定檔來源一律以 fs.FS 注入（go:embed 或 os.DirFS），MegaOdds 不綁定檔案路徑。
//
// 典型使用情境：
//   - 後端服務：Runtime 為每位玩家開一個 Session，Session 內一次只開一台 Machine。
//   - 模擬器：NewSimulator 以虛擬時鐘驅動 Machine 跑大量回合。
package megaodds

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zintix-labs/megaodds/catalog"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/sdk/sched"
	"github.com/zintix-labs/megaodds/setting"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Policies 把一或多個規則註冊表打包成 New() 需要的參數；重複的 logic 會讓 New 失敗。
func Policies(regs ...*games.Registry) []*games.Registry {
	return regs
}

// MegaOdds 組裝器。
//
// 使用流程分成兩階段：
//   - 註冊階段：建立 catalog、合併 registries、檢查重複與缺漏。
//   - 執行階段：Freeze 之後依遊戲名稱建立 Machine / Session / Simulator。
type MegaOdds struct {
	cat *catalog.Catalog
	reg *games.Registry
	cf  core.PRNGFactory

	mu       sync.Mutex
	sum      []catalog.Summary
	settings map[string]*setting.GameSetting // 已解析的設定（以 game_name 為鍵）
}

// New 建立一個 MegaOdds instance（註冊階段）。
func New(cf core.PRNGFactory, cfgs []fs.FS, regs []*games.Registry) (*MegaOdds, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(regs) == 0 {
		return nil, errs.NewFatal("policy registry required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := games.Merge(regs...)
	if err != nil {
		return nil, err
	}
	return &MegaOdds{
		cat:      cata,
		reg:      reg,
		cf:       cf,
		settings: make(map[string]*setting.GameSetting),
	}, nil
}

// NewAuto 建立一個直接進入執行階段的 MegaOdds instance。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, regs []*games.Registry) (*MegaOdds, error) {
	lab, err := New(cf, cfgs, regs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *MegaOdds) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll 掃描所有設定檔來源並一次性註冊。
//
//  1. Fail-fast：任何檔案讀取、解析或檢查失敗都立刻回傳 error。
//  2. 原子性：全部通過才呼叫一次 Register，catalog 不會半完成。
//  3. 每份設定都實際建一次 Policy，fixed 區塊錯誤在啟動時就會被發現。
func (p *MegaOdds) RegisterAll() error {
	sources := p.cat.Cfg().Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 32)
	seenID := map[setting.GID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}
			base := filepath.Base(path)
			if strings.HasPrefix(base, ".") {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}
			gs, gerr := catalog.ParseGameSetting(base, raw)
			if gerr != nil {
				return errs.Wrap(gerr, fmt.Sprintf("parse gamesetting failed: %s", base))
			}

			if prev, ok := seenID[gs.GameID]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate game id: %d (config=%s and %s)", gs.GameID, prev, base))
			}
			if _, ok := p.cat.GetByID(gs.GameID); ok {
				return errs.NewFatal(fmt.Sprintf("game id already registered: %d (config=%s)", gs.GameID, base))
			}
			seenID[gs.GameID] = base

			if prev, ok := seenName[gs.GameName]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate game name: %s (config=%s and %s)", gs.GameName, prev, base))
			}
			if _, ok := p.cat.GetByName(gs.GameName); ok {
				return errs.NewFatal(fmt.Sprintf("game name already registered: %s (config=%s)", gs.GameName, base))
			}
			seenName[gs.GameName] = base

			if !p.reg.IsExist(gs.Logic) {
				return errs.NewFatal(fmt.Sprintf("logic not registered: logic=%s (config=%s)", gs.Logic, base))
			}
			if _, err := p.reg.Build(gs); err != nil {
				return errs.Wrap(err, fmt.Sprintf("build policy failed: %s", base))
			}

			entries = append(entries, catalog.Entry{
				GID:        gs.GameID,
				Name:       gs.GameName,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	return p.cat.Register(entries...)
}

func (p *MegaOdds) Freeze() {
	p.cat.Freeze()
}

func (p *MegaOdds) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

func (p *MegaOdds) IDs() []setting.GID {
	return p.cat.IDs()
}

func (p *MegaOdds) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		gs, err := p.cat.GameSettingById(id)
		if err != nil {
			return nil, errs.Wrap(err, "parse game setting failed")
		}
		cs = append(cs, catalog.Summary{
			GID:      id,
			Name:     gs.GameName,
			Title:    gs.Title,
			Logic:    gs.Logic,
			Payout:   gs.Payout,
			BetUnits: gs.BetUnits,
		})
	}
	p.sum = cs
	return p.sum, nil
}

// Setting 以大廳識別碼取得遊戲設定；未知遊戲回傳 ErrUnknownGame。
// 結果會被快取，回傳的設定不可修改。
func (p *MegaOdds) Setting(name string) (*setting.GameSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	key := strings.ToLower(strings.TrimSpace(name))
	p.mu.Lock()
	defer p.mu.Unlock()
	if gs, ok := p.settings[key]; ok {
		return gs, nil
	}
	gs, err := p.cat.GameSettingByName(key)
	if err != nil {
		return nil, err
	}
	p.settings[key] = gs
	return gs, nil
}

// NewMachine 建立一台以 crypto/rand 為 seed 的 Machine；結果經 onResult 回報。
func (p *MegaOdds) NewMachine(name string, sch sched.Scheduler, onResult ResultFunc) (*Machine, error) {
	gs, err := p.Setting(name)
	if err != nil {
		return nil, err
	}
	return newMachine(gs, p.reg, p.cf, machineOpts{sch: sch, onResult: onResult})
}

// NewMachineWithSeed 與 NewMachine 相同，但由呼叫端指定 seed。
func (p *MegaOdds) NewMachineWithSeed(name string, seed int64, sch sched.Scheduler, onResult ResultFunc) (*Machine, error) {
	gs, err := p.Setting(name)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(gs, p.reg, p.cf, seed, machineOpts{sch: sch, onResult: onResult})
}

func (p *MegaOdds) newMachineWithSeed(gs *setting.GameSetting, seed int64, o machineOpts) (*Machine, error) {
	return newMachineWithSeed(gs, p.reg, p.cf, seed, o)
}

// NewSession 為使用者建立大廳；sch 為該 Session 專用的排程器。
func (p *MegaOdds) NewSession(user profile.User, sch sched.Scheduler, opts ...SessionOption) (*Session, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return newSession(p, user, sch, opts...)
}

func (p *MegaOdds) NewSimulator(name string) (*Simulator, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return p.NewSimulatorWithSeed(name, seed)
}

func (p *MegaOdds) NewSimulatorWithSeed(name string, seed int64) (*Simulator, error) {
	gs, err := p.Setting(name)
	if err != nil {
		return nil, err
	}
	return newSimulator(gs, p.reg, p.cf, seed)
}

// NewSimulatorByConfig 以外部帶入的遊戲設定建立模擬器（不註冊進 catalog）。
// raw 以 '{' 開頭視為 JSON，其餘視為 YAML。
func (p *MegaOdds) NewSimulatorByConfig(raw []byte, seed int64) (*Simulator, error) {
	name := "request.yaml"
	if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '{' {
		name = "request.json"
	}
	gs, err := catalog.ParseGameSetting(name, raw)
	if err != nil {
		return nil, errs.Warnf("invalid game setting: %v", err)
	}
	if !p.reg.IsExist(gs.Logic) {
		return nil, errs.ErrUnknownGame.Withf("logic not registered: %s", gs.Logic)
	}
	return newSimulator(gs, p.reg, p.cf, seed)
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
