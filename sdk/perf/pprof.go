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

// Package perf 以 pprof 包住一次模擬執行，輸出 cpu / heap / allocs profile。
//
//	go run ./cmd/sim -game mines -rounds 1000000 -p cpu
//	go tool pprof build/profiling/cpu.pprof
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/megaodds/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// RunPProf 在 DefaultDir 下依 mode 執行 exe
func RunPProf(exe func(), mode string) error {
	return RunIn(DefaultDir, exe, mode)
}

// RunIn mode: "" 直接執行，cpu / heap / allocs 另外寫出 <mode>.pprof
func RunIn(dir string, exe func(), mode string) error {
	if mode == "" {
		exe()
		return nil
	}
	if mode != "cpu" && mode != "heap" && mode != "allocs" {
		return errs.Warnf("unknown pprof mode %q", mode)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "create pprof dir")
	}
	f, err := os.Create(filepath.Join(dir, mode+".pprof"))
	if err != nil {
		return errs.Wrap(err, "create "+mode+".pprof")
	}
	defer f.Close()

	switch mode {
	case "cpu":
		if err := pprof.StartCPUProfile(f); err != nil {
			return errs.Wrap(err, "start cpu profile")
		}
		exe()
		pprof.StopCPUProfile()
	case "heap":
		// 執行後拍 in-use 快照；先 GC 讓 live objects 貼近現況
		exe()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errs.Wrap(err, "write heap profile")
		}
	case "allocs":
		// 累積配置，以 -sample_index=alloc_space 檢視
		exe()
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "write allocs profile")
		}
	}
	return nil
}
