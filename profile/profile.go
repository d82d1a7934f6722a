// Package profile 載入目前登入的使用者。
//
// 前端開啟大廳時會先取得使用者資料；取得失敗不是致命錯誤，
// 只記錄下來並當作「載入完成但沒有使用者」。
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
)

// DemoToken 示範模式下的固定 token
const DemoToken = "demo-token-12345"

// User 使用者資料
type User struct {
	ID      int64           `json:"id"`
	Email   string          `json:"email"`
	Balance decimal.Decimal `json:"balance"`
	Token   string          `json:"token,omitempty"`
	Demo    bool            `json:"demo,omitempty"`
}

// Same 是否為同一位使用者；示範使用者與註冊使用者的 ID 各自編號
func (u User) Same(o User) bool { return u.ID == o.ID && u.Demo == o.Demo }

// DemoUser 示範模式的預設使用者
func DemoUser() User {
	return User{
		ID:      1,
		Email:   "demo@megaodds.com",
		Balance: decimal.NewFromInt(162500),
		Token:   DemoToken,
		Demo:    true,
	}
}

// Source 依 token 取得使用者
type Source interface {
	Fetch(ctx context.Context, token string) (User, error)
}

// DemoSource 不連網，任何 token 都回傳示範使用者
type DemoSource struct{}

func (DemoSource) Fetch(ctx context.Context, token string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	return DemoUser(), nil
}

// HTTPSource 以 GET <base>/protected 取得使用者
type HTTPSource struct {
	Base   string
	Client *http.Client
}

func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{
		Base:   strings.TrimRight(base, "/"),
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *HTTPSource) Fetch(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Base+"/protected", nil)
	if err != nil {
		return User{}, errs.WrapAs(errs.ErrNetworkFailure, err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return User{}, errs.WrapAs(errs.ErrNetworkFailure, err, "fetch profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return User{}, errs.ErrNetworkFailure.Withf("fetch profile: status %d", resp.StatusCode)
	}
	var u User
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return User{}, errs.WrapAs(errs.ErrNetworkFailure, err, "decode profile")
	}
	u.Token = token
	return u, nil
}

// State 啟動結果
type State struct {
	Authenticated bool  // 有 token
	Loaded        bool  // 載入流程已結束
	User          *User // 失敗時為 nil
}

// Bootstrap 載入使用者。
//
// token 為空時視為未登入（導向登入頁）；取得失敗轉為 ErrNetworkFailure 記錄後回傳
// 「載入完成、沒有使用者」，不回傳錯誤。
func Bootstrap(ctx context.Context, src Source, token string, log *slog.Logger) State {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return State{Authenticated: false, Loaded: true}
	}
	u, err := src.Fetch(ctx, token)
	if err != nil {
		if !errors.Is(err, errs.ErrNetworkFailure) {
			err = errs.WrapAs(errs.ErrNetworkFailure, err, "bootstrap")
		}
		log.Warn("failed to fetch user data", slog.Any("err", err))
		return State{Authenticated: true, Loaded: true}
	}
	return State{Authenticated: true, Loaded: true, User: &u}
}

// BearerToken 取出 Authorization 標頭中的 token
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
