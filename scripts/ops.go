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

// ops 開發用任務：go run ./scripts <task>
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type task struct {
	desc string
	run  func(args []string) error
}

var tasks = map[string]task{
	"test":        {"go test ./... -cover (只顯示 ok / FAIL)", func([]string) error { return runTests(summaryOnly, "-cover", "-count=1") }},
	"test-all":    {"go test ./... -cover", func([]string) error { return runTests(passThrough, "-cover") }},
	"test-detail": {"go test ./... -v (隱藏 RUN 行)", func([]string) error { return runTests(verboseFilter, "-v", "-count=1") }},
	"sim":         {"go run ./cmd/sim [flags]", func(args []string) error { return goRun("./cmd/sim", args) }},
	"svr":         {"go run ./cmd/svr -demo [flags]", func(args []string) error { return goRun("./cmd/svr", append([]string{"-demo"}, args...)) }},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		PrintYellow(fmt.Sprintf("Unknown task: %s", os.Args[1]))
		usage()
		os.Exit(1)
	}
	if err := t.run(os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func usage() {
	names := make([]string, 0, len(tasks))
	for n := range tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage: go run ./scripts <task>\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", n, tasks[n].desc)
	}
	PrintDefault(b.String())
}
