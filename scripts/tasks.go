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
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// lineFilter 決定 go test 的每一行如何輸出；回傳 false 丟棄
type lineFilter func(line string) bool

func passThrough(string) bool { return true }

func summaryOnly(line string) bool {
	return strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") || strings.HasPrefix(line, "---")
}

func verboseFilter(line string) bool {
	return !strings.HasPrefix(strings.TrimSpace(line), "=== RUN")
}

func runTests(filter lineFilter, flags ...string) error {
	PrintBlue("Cleaning test cache...")
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		return fmt.Errorf("go clean -testcache failed: %w", err)
	}
	args := append([]string{"test", "./..."}, flags...)
	PrintBlue("Running: go " + strings.Join(args, " "))

	cmd := exec.Command("go", args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start go test: %w", err)
	}
	colorize(out, filter)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	PrintGreen("All tests passed")
	return nil
}

// colorize ok 綠、FAIL 紅、其他預設色
func colorize(r io.Reader, filter lineFilter) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !filter(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"), strings.Contains(line, "--- PASS"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "--- FAIL"):
			PrintRed(line)
		default:
			PrintDefault(line)
		}
	}
}

func goRun(pkg string, args []string) error {
	cmd := exec.Command("go", append([]string{"run", pkg}, args...)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}
