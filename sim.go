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

package megaodds

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/games"
	"github.com/zintix-labs/megaodds/recorder"
	"github.com/zintix-labs/megaodds/sdk/core"
	"github.com/zintix-labs/megaodds/sdk/sched"
	"github.com/zintix-labs/megaodds/setting"
	"github.com/zintix-labs/megaodds/stats"
)

const capPrepare int = 100

// maxSimSteps 單回合最多推進次數，超過視為回合卡住
const maxSimSteps = 100_000

// Simulator 以自動玩家與虛擬時鐘跑遊戲，可建立多台機台並平行紀錄統計。
//
// 每台機台配一個 sched.Manual，計時器只在模擬推進時觸發，不需要真的等待動畫。
type Simulator struct {
	GameName  string                    // 遊戲名稱
	GameId    setting.GID               // 遊戲編號
	initBets  int                       // 用戶帶的錢(以注數設定)
	gs        *setting.GameSetting      //
	reg       *games.Registry           // 規則註冊表
	cf        core.PRNGFactory          // 亂數生成器
	initSeed  int64                     // 初始下的種子
	seedmaker *seedMaker                // 種子生成器
	mBuf      []*simMachine             // 併發執行機台實例
	rBuf      []*recorder.RoundRecorder // 併發遊戲紀錄員
	sBuf      []*stats.StatReport       // 併發統計結果報表(僅Players需要)
}

type simMachine struct {
	m   *Machine
	sch *sched.Manual
}

func newSimulator(gs *setting.GameSetting, reg *games.Registry, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	s := &Simulator{
		GameName:  gs.GameName,
		GameId:    gs.GameID,
		gs:        gs,
		reg:       reg,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		mBuf:      make([]*simMachine, 0, capPrepare),
		rBuf:      make([]*recorder.RoundRecorder, 0, capPrepare),
		sBuf:      make([]*stats.StatReport, 0, capPrepare),
	}
	// 第一台使用初始 seed，單線模擬可直接以 seed 重現
	if err := s.prepare(1, s.initSeed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) newSimMachine(seed int64) (*simMachine, error) {
	sch := sched.NewManual()
	m, err := newMachineWithSeed(s.gs, s.reg, s.cf, seed, machineOpts{sch: sch})
	if err != nil {
		return nil, err
	}
	return &simMachine{m: m, sch: sch}, nil
}

// prepare 準備至少 n 台機台；first 只用於第一台
func (s *Simulator) prepare(n int, first int64) error {
	for len(s.mBuf) < n {
		seed := first
		if len(s.mBuf) > 0 {
			seed = s.seedmaker.next()
		}
		sm, err := s.newSimMachine(seed)
		if err != nil {
			return err
		}
		s.mBuf = append(s.mBuf, sm)
	}
	return nil
}

// play 跑完一回合：開局、自動操作或推進時鐘直到結算，再回到 Idle。
func (sm *simMachine) play(bet int) (*Outcome, error) {
	m := sm.m
	if err := m.Start(bet, m.SelectionHint(false)); err != nil {
		return nil, err
	}
	for steps := 0; m.Phase() == PhaseInProgress; steps++ {
		if steps > maxSimSteps {
			m.Leave()
			return nil, errs.Fatalf("%s: round did not settle after %d steps", m.gs.GameName, maxSimSteps)
		}
		if a, ok := m.AutoAct(); ok {
			if err := m.Act(a); err != nil {
				return nil, err
			}
			continue
		}
		if !sm.sch.Next() {
			return nil, errs.Fatalf("%s: round stuck without pending timers", m.gs.GameName)
		}
	}
	out := m.Last()
	if err := m.Replay(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Simulator) valid(betMode int, rounds int) error {
	if betMode < 0 || betMode >= len(s.gs.BetUnits) {
		return errs.NewWarn("bet mode err: must >= 0 and < len(betunits)")
	}
	if rounds < 1 {
		return errs.NewWarn("round must > 0")
	}
	return nil
}

// Sim 單線模擬器：以一台機台連續跑指定 rounds 並回傳統計結果與用時
func (s *Simulator) Sim(betMode int, rounds int, showpb bool) (*stats.StatReport, time.Duration, error) {
	defer s.reset()
	if err := s.valid(betMode, rounds); err != nil {
		return nil, 0, err
	}
	r, err := recorder.NewRoundRecorder(s.gs, s.initBets, betMode)
	if err != nil {
		return nil, 0, err
	}
	s.rBuf = append(s.rBuf, r)
	sm := s.mBuf[0]
	bet := s.gs.BetUnits[betMode]

	bar := pb.StartNew(rounds)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < rounds; i++ {
		out, err := sm.play(bet)
		if err != nil {
			bar.Finish()
			return nil, 0, err
		}
		r.Record(out.Won, out.Amount)
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := r.Done()
	result.Done()
	return result, used, nil
}

// SimMP 平行執行多台機台，總計 rounds*mp 回合，合併統計結果後回傳統計結果與用時
func (s *Simulator) SimMP(betMode int, rounds int, mp int, showpb bool) (*stats.StatReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if err := s.valid(betMode, rounds); err != nil {
		return nil, 0, err
	}
	if err := s.prepare(mp, s.initSeed); err != nil {
		return nil, 0, err
	}
	for len(s.rBuf) < mp {
		r, err := recorder.NewRoundRecorder(s.gs, s.initBets, betMode)
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	bet := s.gs.BetUnits[betMode]

	firstErr := new(firstError)
	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(rounds * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			sm := s.mBuf[i]
			rec := s.rBuf[i]
			for range rounds {
				out, err := sm.play(bet)
				if err != nil {
					firstErr.set(err)
					return
				}
				rec.Record(out.Won, out.Amount)
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err := firstErr.get(); err != nil {
		return nil, 0, err
	}

	st, err := recorder.MergeRoundRecorder(s.rBuf[:mp])
	if err != nil {
		return nil, 0, err
	}
	result := st.Done()
	result.Done()
	return result, used, nil
}

// SimPlayers 模擬多個玩家各自帶入初始籌碼（initBets 注）的遊戲歷程，並產出機台報表與玩家報表。
func (s *Simulator) SimPlayers(mp int, players int, initBets int, betMode int, rounds int, showpb bool) (*stats.StatReport, *stats.EstimatorPlayers, time.Duration, error) {
	defer s.reset()
	if players < 1 || initBets < 1 || mp < 1 {
		return nil, nil, 0, errs.NewWarn("invalid param")
	}
	if err := s.valid(betMode, rounds); err != nil {
		return nil, nil, 0, err
	}
	s.initBets = initBets

	if err := s.prepare(mp, s.initSeed); err != nil {
		return nil, nil, 0, err
	}
	s.sBuf = make([]*stats.StatReport, players)
	for len(s.rBuf) < players {
		r, err := recorder.NewRoundRecorder(s.gs, s.initBets, betMode)
		if err != nil {
			return nil, nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	bet := s.gs.BetUnits[betMode]

	// 緩衝 channel 使 player 依序處理
	jobs := make(chan *recorder.RoundRecorder, 2048)
	firstErr := new(firstError)

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(players)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for w := 0; w < mp; w++ {
		go simPlayers(wg, s.mBuf[w], jobs, bet, rounds, bar, firstErr)
	}
	for _, j := range s.rBuf {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if err := firstErr.get(); err != nil {
		return nil, nil, 0, err
	}

	// 機台基準報表
	record, err := recorder.MergeRoundRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	st := record.Done()
	st.Done()

	// 玩家分析報表
	for i, r := range s.rBuf {
		s.sBuf[i] = r.Done()
		s.sBuf[i].Done()
	}
	est := stats.EstimatorPlayerExp(s.sBuf)
	return st, est, used, nil
}

func simPlayers(wg *sync.WaitGroup, sm *simMachine, jobs chan *recorder.RoundRecorder, bet int, rounds int, bar *pb.ProgressBar, firstErr *firstError) {
	defer wg.Done()
	for j := range jobs {
		for range rounds {
			if !j.CanPlay() {
				break
			}
			out, err := sm.play(bet)
			if err != nil {
				firstErr.set(err)
				break
			}
			if j.RecordWithPlayer(out.Won, out.Amount) {
				break
			}
		}
		bar.Increment()
	}
}

// firstError 收集多個 worker 中第一個發生的錯誤
type firstError struct {
	once sync.Once
	err  error
}

func (f *firstError) set(err error) { f.once.Do(func() { f.err = err }) }

// get 只在所有 worker 結束後呼叫
func (f *firstError) get() error { return f.err }

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
	s.sBuf = s.sBuf[:0]
	s.initBets = 0
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state，再用可逆 mix63 打散。
//
// 可能被多個 goroutine 同時呼叫，推進以 CAS 迴圈完成，每次呼叫取得唯一的下一個 state。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63 只用可逆的 bit 操作加乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
