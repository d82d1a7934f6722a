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

package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/megaodds/auth"
	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/profile"
)

// TokenSource 以本服務簽發的 JWT 解析使用者；Demo 時另外接受固定的 demo token。
type TokenSource struct {
	Auth *auth.Service
	Demo bool
}

func (ts TokenSource) Fetch(ctx context.Context, token string) (profile.User, error) {
	if err := ctx.Err(); err != nil {
		return profile.User{}, err
	}
	if ts.Demo && token == profile.DemoToken {
		return profile.DemoUser(), nil
	}
	return ts.Auth.Verify(token)
}

type AuthHandler struct {
	svc *auth.Service
	src profile.Source
	log *slog.Logger
}

func NewAuthHandler(svc *auth.Service, src profile.Source, log *slog.Logger) (*AuthHandler, error) {
	if svc == nil || src == nil {
		return nil, errs.NewFatal("auth service and profile source are required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &AuthHandler{svc: svc, src: src, log: log}, nil
}

// Register 註冊後直接登入
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.CredentialsRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := h.svc.Register(req.Email, req.Password); err != nil {
		fail(w, err)
		return
	}
	tok, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	h.log.Info("user registered", slog.Int64("user", tok.User.ID))
	writeJSON(w, http.StatusCreated, dto.NewTokenResponse(tok))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.CredentialsRequest](r)
	if err != nil {
		fail(w, err)
		return
	}
	tok, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTokenResponse(tok))
}

// Protected GET /protected：以 Bearer token 取得使用者（前端啟動時呼叫）
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	token := profile.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		fail(w, errs.ErrUnauthorized.With("missing bearer token"))
		return
	}
	var u profile.User
	err := call(r.Context(), func() error {
		var ferr error
		u, ferr = h.src.Fetch(r.Context(), token)
		return ferr
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u))
}
