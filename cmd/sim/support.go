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
	"crypto/rand"
	"flag"
	"log"
	"math"
	"math/big"
	"os"
	"time"

	"github.com/zintix-labs/megaodds/demo"
	"github.com/zintix-labs/megaodds/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	worker    int
	player    int
	bets      int
	rounds    int
	betMode   int
	seed      int64
	out       string
	format    stats.Format
	pprofmode string
}

func bindVar() {
	flag.StringVar(&cfg.name, "game", "dice", "game name, e.g. dice, mines, aviator")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.player, "player", 1, "number of players")
	flag.IntVar(&cfg.bets, "bets", 200, "initial bets per player")
	flag.IntVar(&cfg.rounds, "rounds", 100000, "rounds per player")
	flag.IntVar(&cfg.betMode, "mode", 0, "bet unit index")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.out, "out", "", "report format: '', json, yaml")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// 非法 seed 改用隨機 seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

func executeSimulator() {
	cfg.valid()

	lab, err := demo.NewMegaOdds()
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulatorWithSeed(cfg.name, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	cfg.name = s.GameName

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.player == 1 { // 純機台模擬
		if cfg.worker == 1 {
			p.Printf("%s[GAME:%s] [BETMODE:%d] [ROUNDS:%d] [SEED:%d]%s\n", green, cfg.name, cfg.betMode, cfg.rounds, cfg.seed, reset)
			st, used, err := s.Sim(cfg.betMode, cfg.rounds, true)
			if err != nil {
				log.Fatal(err)
			}
			report(st, used)
			return
		}
		p.Printf("%s[WORKERS:%d] [GAME:%s] [BETMODE:%d] [ROUNDS:%d] [SEED:%d]%s\n", green, cfg.worker, cfg.name, cfg.betMode, cfg.worker*cfg.rounds, cfg.seed, reset)
		st, used, err := s.SimMP(cfg.betMode, cfg.rounds, cfg.worker, true)
		if err != nil {
			log.Fatal(err)
		}
		report(st, used)
		return
	}

	// 模擬多玩家體驗
	p.Printf("%s[WORKERS:%d] [GAME:%s] [PLAYERS:%d BETS:%d BETMODE:%d ROUNDS:%d]%s\n", green, cfg.worker, cfg.name, cfg.player, cfg.bets, cfg.betMode, cfg.rounds, reset)
	st, est, used, err := s.SimPlayers(cfg.worker, cfg.player, cfg.bets, cfg.betMode, cfg.rounds, true)
	if err != nil {
		log.Fatal(err)
	}
	report(st, used)
	if rd := stats.EstimatorRenderOf(cfg.format); rd != nil {
		err = est.WriteWith(os.Stdout, rd)
	} else {
		est.Out()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func report(st *stats.StatReport, used time.Duration) {
	rd := stats.StatRender(cfg.format)
	if rd == nil {
		st.StdOut(used)
		return
	}
	if err := st.WriteWith(os.Stdout, rd); err != nil {
		log.Fatal(err)
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}
	if cfg.player < 1 {
		log.Fatal("value err : player must > 0")
	}
	if cfg.player > 100000 {
		p.Printf("too much players: %d resized to 100k players\n", cfg.player)
		cfg.player = 100000
	}
	// 模擬玩家時每位玩家至少帶一注
	if cfg.player > 1 && cfg.bets < 1 {
		log.Fatal("value err : bets must >= 1")
	}
	if cfg.rounds < 1 {
		log.Fatal("value err : rounds must > 0")
	}
	// 單一玩家 15000 局已是長期體驗，再多直接模擬機台即可
	if cfg.player > 1 && cfg.rounds > 15000 {
		p.Printf("too much rounds for each player : %d resized to 15k rounds\n", cfg.rounds)
		cfg.rounds = 15000
	}
	f, err := stats.ParseFormat(cfg.out)
	if err != nil {
		log.Fatal(err)
	}
	cfg.format = f
}
