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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel → 504/408（請求生命週期問題）
//   - 領域錯誤碼：unauthorized 401、session_not_found 404、payment_busy / action_rejected 409
//   - errs.Warn / errs.Log → 400（請求/參數問題）
//   - errs.Fatal          → 500（系統/不可恢復問題）
//
// 本函數屬於 HTTP 邊界層，核心 errs 不依賴 net/http。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrPaymentBusy), errors.Is(err, errs.ErrActionRejected):
		return http.StatusConflict
	}

	e, ok := errs.AsErr(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.ErrLv {
	case errs.Warn, errs.Log:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError
	}
}

// Errs 寫回 JSON 錯誤 body
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	body := dto.ErrorResponse{Error: err.Error(), Status: status}
	if e, ok := errs.AsErr(err); ok {
		body.Code = string(e.Code)
		if status < 500 {
			// 4xx 只回主訊息與上下文，不外洩底層 cause
			body.Error = e.Message
			if e.Extra != "" {
				body.Error += ": " + e.Extra
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func Log(log *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
