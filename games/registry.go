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

package games

import (
	"fmt"
	"log"
	"sort"

	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/setting"
)

// Builder 由遊戲設定建立 Policy，設定錯誤在此回報。
type Builder func(gs *setting.GameSetting) (Policy, error)

type Registry struct {
	builders map[setting.LogicKey]Builder
}

func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[setting.LogicKey]Builder, 32),
	}
}

func (r *Registry) Register(lkey setting.LogicKey, b Builder) error {
	if b == nil {
		return errs.NewFatal(fmt.Sprintf("nil builder for logic %s", lkey))
	}
	if _, ok := r.builders[lkey]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate logic builder: %s", lkey))
	}
	r.builders[lkey] = b
	return nil
}

func (r *Registry) Build(gs *setting.GameSetting) (Policy, error) {
	b, ok := r.builders[gs.Logic]
	if !ok {
		return nil, errs.NewFatal(fmt.Sprintf("logic is not exist: %s", gs.Logic))
	}
	p, err := b(gs)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("build logic %s for %s", gs.Logic, gs.GameName))
	}
	return p, nil
}

func (r *Registry) IsExist(lkey setting.LogicKey) bool {
	_, ok := r.builders[lkey]
	return ok
}

// Keys 依字母排序的 logic 清單
func (r *Registry) Keys() []setting.LogicKey {
	keys := make([]setting.LogicKey, 0, len(r.builders))
	for k := range r.builders {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Merge 合併多個 registry，重複的 key 視為錯誤。
func Merge(regs ...*Registry) (*Registry, error) {
	lr := NewRegistry()
	origin := make(map[setting.LogicKey]int, 32)
	for i, r := range regs {
		if r == nil {
			continue
		}
		for lkey, builder := range r.builders {
			if _, ok := lr.builders[lkey]; ok {
				return nil, errs.NewFatal(fmt.Sprintf("duplicate logic key %s (registry #%d and #%d)", lkey, origin[lkey], i))
			}
			lr.builders[lkey] = builder
			origin[lkey] = i
		}
	}
	return lr, nil
}

// defaults 由各遊戲檔案的 init 註冊
var defaults = NewRegistry()

// Default 回傳內建全部玩法的 registry（複本，呼叫端可再註冊）
func Default() *Registry {
	r, _ := Merge(defaults)
	return r
}

func mustRegister(lkey setting.LogicKey, b Builder) {
	if err := defaults.Register(lkey, b); err != nil {
		log.Fatalf("%s register failed: %v", lkey, err)
	}
}
