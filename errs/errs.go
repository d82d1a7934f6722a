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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
//
//   - Fatal : 程式或設定錯誤，呼叫端無法自行修正
//   - Warn  : 玩家可預期的拒絕（餘額不足、金額錯誤），需回報給玩家
//   - Log   : 只需記錄、不需回報（例如沉默拒絕的開局）
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Code 為領域錯誤碼，errors.Is 以 Code 比對，而非指標。
type Code string

const (
	CodeNone                Code = ""
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvalidRoundStart   Code = "invalid_round_start"
	CodeNetworkFailure      Code = "network_failure"
	CodeInvalidAmount       Code = "invalid_amount"
	CodeInvalidBet          Code = "invalid_bet"
	CodeUnknownGame         Code = "unknown_game"
	CodeNoActiveGame        Code = "no_active_game"
	CodeActionRejected      Code = "action_rejected"
	CodePaymentBusy         Code = "payment_busy"
	CodeSessionNotFound     Code = "session_not_found"
	CodeUnauthorized        Code = "unauthorized"
	CodeClosed              Code = "closed"
)

// 領域哨兵錯誤。呼叫端要附加上下文時請用 With / Wrap，不要修改哨兵本身。
var (
	ErrInsufficientBalance = &E{Message: "insufficient balance", ErrLv: Warn, Code: CodeInsufficientBalance}
	ErrInvalidRoundStart   = &E{Message: "invalid round start", ErrLv: Log, Code: CodeInvalidRoundStart}
	ErrNetworkFailure      = &E{Message: "network failure", ErrLv: Log, Code: CodeNetworkFailure}
	ErrInvalidAmount       = &E{Message: "invalid amount", ErrLv: Warn, Code: CodeInvalidAmount}
	ErrInvalidBet          = &E{Message: "invalid bet amount", ErrLv: Warn, Code: CodeInvalidBet}
	ErrUnknownGame         = &E{Message: "unknown game", ErrLv: Warn, Code: CodeUnknownGame}
	ErrNoActiveGame        = &E{Message: "no active game", ErrLv: Warn, Code: CodeNoActiveGame}
	ErrActionRejected      = &E{Message: "action rejected", ErrLv: Warn, Code: CodeActionRejected}
	ErrPaymentBusy         = &E{Message: "payment already processing", ErrLv: Warn, Code: CodePaymentBusy}
	ErrSessionNotFound     = &E{Message: "session not found", ErrLv: Warn, Code: CodeSessionNotFound}
	ErrUnauthorized        = &E{Message: "unauthorized", ErrLv: Warn, Code: CodeUnauthorized}
	ErrClosed              = &E{Message: "closed", ErrLv: Warn, Code: CodeClosed}
)

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 表示嚴重程度；Code 為領域錯誤碼（可為空）。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Code    Code
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Code != CodeNone {
		base = fmt.Sprintf("errlv=%s code=%s %s", ErrLv(e.ErrLv), e.Code, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以錯誤碼比對；未帶碼的 *E 只與自身相等。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	if e.Code == CodeNone || t.Code == CodeNone {
		return e == t
	}
	return e.Code == t.Code
}

// With 複製一個哨兵錯誤並附加上下文，保留錯誤碼與等級。
func (e *E) With(extra string) *E {
	c := *e
	c.Extra = extra
	return &c
}

// Withf 與 With 相同，但接受格式化字串。
func (e *E) Withf(format string, a ...any) *E {
	return e.With(fmt.Sprintf(format, a...))
}

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Code 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Code（保持原本嚴重度與語意）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	r := New(Fatal, msg)
	if errors.As(cause, &e) {
		r.ErrLv = e.ErrLv
		r.Code = e.Code
	}
	r.Cause = cause
	return r
}

// WrapAs 以指定哨兵的等級與錯誤碼包裝底層錯誤，例如把 net/http 錯誤標為 NetworkFailure。
func WrapAs(sentinel *E, cause error, extra string) *E {
	r := sentinel.With(extra)
	r.Cause = cause
	return r
}

// AsErr 取出鏈上的 *E
func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// LevelOf 回傳錯誤的等級；非 *E 的錯誤一律視為 Fatal。
func LevelOf(err error) ErrLevel {
	if err == nil {
		return None
	}
	if e, ok := AsErr(err); ok {
		return e.ErrLv
	}
	return Fatal
}
