package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds"
	"github.com/zintix-labs/megaodds/demo"
	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/ledger"
	"github.com/zintix-labs/megaodds/profile"
	"github.com/zintix-labs/megaodds/server/netsvr"
	"github.com/zintix-labs/megaodds/server/svrcfg"
)

type testSvr struct {
	h  http.Handler
	rt *megaodds.Runtime
}

func newTestSvr(t *testing.T, isDemo bool, opts ...func(*svrcfg.SvrCfg)) *testSvr {
	t.Helper()
	lab, err := demo.NewMegaOdds()
	if err != nil {
		t.Fatalf("new megaodds: %v", err)
	}
	sCfg := &svrcfg.SvrCfg{
		Log:       slog.New(slog.DiscardHandler),
		Addr:      ":0",
		JWTSecret: "test-secret",
		Demo:      isDemo,
		MegaOdds:  lab,
	}
	for _, o := range opts {
		o(sCfg)
	}
	svr := netsvr.NewChiServer(sCfg.Addr)
	_, rt, err := Assemble(sCfg, svr)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	t.Cleanup(func() {
		_ = rt.Close(context.Background(), "test done")
		if j := rt.Journal(); j != nil {
			_ = j.Close()
		}
	})
	return &testSvr{h: svr.Handler(), rt: rt}
}

func (ts *testSvr) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status=%d want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func TestDemoSessionDiceFlow(t *testing.T) {
	ts := newTestSvr(t, true)

	rec := ts.do(t, http.MethodGet, "/v1/games", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if gl := decodeAs[dto.GameListResponse](t, rec); len(gl.Games) != 16 {
		t.Fatalf("games=%d want 16", len(gl.Games))
	}

	rec = ts.do(t, http.MethodPost, "/v1/sessions", profile.DemoToken, dto.OpenSessionRequest{})
	expectStatus(t, rec, http.StatusCreated)
	sess := decodeAs[dto.SessionResponse](t, rec)
	if sess.ID == "" || !sess.User.Demo {
		t.Fatalf("unexpected session: %+v", sess.SessionView)
	}
	if sess.Display != "KSh162,500" {
		t.Fatalf("display=%q", sess.Display)
	}
	base := "/v1/sessions/" + sess.ID

	rec = ts.do(t, http.MethodPost, base+"/bet", profile.DemoToken, dto.BetRequest{Amount: 1300})
	expectStatus(t, rec, http.StatusOK)
	if v := decodeAs[dto.SessionResponse](t, rec); v.Ledger.Bet != 1300 {
		t.Fatalf("bet=%d want 1300", v.Ledger.Bet)
	}

	rec = ts.do(t, http.MethodPost, base+"/open", profile.DemoToken, dto.OpenGameRequest{Game: "dice"})
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(t, http.MethodPost, base+"/start", profile.DemoToken, dto.StartRequest{})
	expectStatus(t, rec, http.StatusOK)
	if v := decodeAs[dto.SessionResponse](t, rec); v.Game == nil || v.Game.Phase != megaodds.PhaseInProgress {
		t.Fatalf("expected dice in progress: %+v", v.Game)
	}

	// 真實時鐘：骰子 1 秒後結算
	var settled dto.SessionResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = ts.do(t, http.MethodGet, base, profile.DemoToken, nil)
		expectStatus(t, rec, http.StatusOK)
		settled = decodeAs[dto.SessionResponse](t, rec)
		if settled.Game != nil && settled.Game.Last != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dice did not settle in time: %+v", settled.Game)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !strings.HasPrefix(settled.Game.Last.Description, "Rolled ") {
		t.Fatalf("description=%q", settled.Game.Last.Description)
	}
	if got := settled.Ledger.Activity[0].Game; got != "Dice Roll" {
		t.Fatalf("activity[0]=%q want Dice Roll", got)
	}

	rec = ts.do(t, http.MethodGet, base+"/history", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if h := decodeAs[megaodds.History](t, rec); h.Tally.TotalBets != 1 {
		t.Fatalf("total bets=%d want 1", h.Tally.TotalBets)
	}

	rec = ts.do(t, http.MethodGet, "/v1/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if m := decodeAs[megaodds.Metrics](t, rec); m.Sessions != 1 || m.Results != 1 || m.DuplicateSettlements != 0 {
		t.Fatalf("metrics=%+v", m)
	}

	rec = ts.do(t, http.MethodDelete, base, profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = ts.do(t, http.MethodGet, base, profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

// playDice 開骰子並等真實時鐘結算
func (ts *testSvr) playDice(t *testing.T, base, token string) dto.SessionResponse {
	t.Helper()
	expectStatus(t, ts.do(t, http.MethodPost, base+"/open", token, dto.OpenGameRequest{Game: "dice"}), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodPost, base+"/start", token, dto.StartRequest{}), http.StatusOK)
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := ts.do(t, http.MethodGet, base, token, nil)
		expectStatus(t, rec, http.StatusOK)
		v := decodeAs[dto.SessionResponse](t, rec)
		if v.Game != nil && v.Game.Last != nil {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("dice did not settle in time: %+v", v.Game)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestJournalReplayMatchesSession(t *testing.T) {
	dir := t.TempDir()
	ts := newTestSvr(t, true, func(c *svrcfg.SvrCfg) { c.JournalDir = dir })
	if ts.rt.Journal() == nil {
		t.Fatal("journal dir set but no journal opened")
	}

	rec := ts.do(t, http.MethodPost, "/v1/sessions", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusCreated)
	sid := decodeAs[dto.SessionResponse](t, rec).ID
	v := ts.playDice(t, "/v1/sessions/"+sid, profile.DemoToken)

	bal, err := ledger.Replay(ts.rt.Journal(), sid, profile.DemoUser().Balance)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !bal.Equal(v.Ledger.Balance) {
		t.Fatalf("replayed %s, session balance %s", bal, v.Ledger.Balance)
	}
	if ts.rt.Journal().Len() != 1 {
		t.Fatalf("journal len=%d want 1", ts.rt.Journal().Len())
	}
}

func TestSeedOnlyInDemo(t *testing.T) {
	seed := int64(42)
	ts := newTestSvr(t, true)
	rec := ts.do(t, http.MethodPost, "/v1/sessions", profile.DemoToken, dto.OpenSessionRequest{Seed: &seed})
	expectStatus(t, rec, http.StatusCreated)

	prod := newTestSvr(t, false)
	cred := dto.CredentialsRequest{Email: "seed@example.com", Password: "secret123"}
	rec = prod.do(t, http.MethodPost, "/v1/auth/register", "", cred)
	expectStatus(t, rec, http.StatusCreated)
	tok := decodeAs[dto.TokenResponse](t, rec).AccessToken

	rec = prod.do(t, http.MethodPost, "/v1/sessions", tok, dto.OpenSessionRequest{Seed: &seed})
	expectStatus(t, rec, http.StatusBadRequest)
	if len(prod.rt.Sessions()) != 0 {
		t.Fatalf("rejected request opened a session: %v", prod.rt.Sessions())
	}
	rec = prod.do(t, http.MethodPost, "/v1/sessions", tok, dto.OpenSessionRequest{})
	expectStatus(t, rec, http.StatusCreated)
}

func TestSessionOwnedByCaller(t *testing.T) {
	ts := newTestSvr(t, true)
	register := func(email string) string {
		rec := ts.do(t, http.MethodPost, "/v1/auth/register", "", dto.CredentialsRequest{Email: email, Password: "secret123"})
		expectStatus(t, rec, http.StatusCreated)
		return decodeAs[dto.TokenResponse](t, rec).AccessToken
	}
	alice := register("alice@example.com")
	bob := register("bob@example.com")

	rec := ts.do(t, http.MethodPost, "/v1/sessions", alice, nil)
	expectStatus(t, rec, http.StatusCreated)
	base := "/v1/sessions/" + decodeAs[dto.SessionResponse](t, rec).ID

	expectStatus(t, ts.do(t, http.MethodGet, base, alice, nil), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodGet, base, "", nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, http.MethodGet, base, "not-a-token", nil), http.StatusUnauthorized)
	expectStatus(t, ts.do(t, http.MethodGet, base, bob, nil), http.StatusNotFound)
	// 示範使用者與 alice 的 ID 相同，仍不可互用
	expectStatus(t, ts.do(t, http.MethodPost, base+"/bet", profile.DemoToken, dto.BetRequest{Amount: 1300}), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, base, bob, nil), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, base, alice, nil), http.StatusNoContent)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestSvr(t, true)
	rec := ts.do(t, http.MethodPost, "/v1/sessions", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusCreated)
	ts.playDice(t, "/v1/sessions/"+decodeAs[dto.SessionResponse](t, rec).ID, profile.DemoToken)

	rec = ts.do(t, http.MethodGet, "/v1/leaderboard", "", nil)
	expectStatus(t, rec, http.StatusOK)
	lb := decodeAs[dto.LeaderboardResponse](t, rec)
	if len(lb.Standings) != 1 || lb.Standings[0].Email != profile.DemoUser().Email || lb.Standings[0].TotalBets != 1 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/v1/leaderboard?limit=0", "", nil), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodGet, "/v1/leaderboard?limit=5", "", nil), http.StatusOK)
}

func TestSessionRequiresToken(t *testing.T) {
	ts := newTestSvr(t, true)

	rec := ts.do(t, http.MethodPost, "/v1/sessions", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	if e := decodeAs[dto.ErrorResponse](t, rec); e.Code == "" {
		t.Fatalf("missing error code: %+v", e)
	}

	rec = ts.do(t, http.MethodPost, "/v1/sessions", "not-a-token", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestDemoTokenRejectedOutsideDemo(t *testing.T) {
	ts := newTestSvr(t, false)
	rec := ts.do(t, http.MethodGet, "/v1/protected", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestRegisterLoginAndOpenSession(t *testing.T) {
	ts := newTestSvr(t, false)
	cred := dto.CredentialsRequest{Email: "Player@Example.com", Password: "secret123"}

	rec := ts.do(t, http.MethodPost, "/v1/auth/register", "", cred)
	expectStatus(t, rec, http.StatusCreated)
	tok := decodeAs[dto.TokenResponse](t, rec)
	if tok.AccessToken == "" || tok.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	rec = ts.do(t, http.MethodPost, "/v1/auth/login", "", dto.CredentialsRequest{Email: "player@example.com", Password: "wrong-pass"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = ts.do(t, http.MethodGet, "/v1/protected", tok.AccessToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if u := decodeAs[dto.UserResponse](t, rec); u.Email != "player@example.com" {
		t.Fatalf("email=%q", u.Email)
	}

	rec = ts.do(t, http.MethodPost, "/v1/sessions", tok.AccessToken, dto.OpenSessionRequest{})
	expectStatus(t, rec, http.StatusCreated)
}

func TestSessionErrors(t *testing.T) {
	ts := newTestSvr(t, true)

	rec := ts.do(t, http.MethodGet, "/v1/sessions/missing", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = ts.do(t, http.MethodPost, "/v1/sessions", profile.DemoToken, nil)
	expectStatus(t, rec, http.StatusCreated)
	base := "/v1/sessions/" + decodeAs[dto.SessionResponse](t, rec).ID

	rec = ts.do(t, http.MethodPost, base+"/open", profile.DemoToken, dto.OpenGameRequest{Game: "baccarat"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, base+"/start", profile.DemoToken, dto.StartRequest{})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, base+"/deposit", profile.DemoToken, map[string]any{"amount": "1000"})
	expectStatus(t, rec, http.StatusBadRequest)
	rec = ts.do(t, http.MethodGet, base, profile.DemoToken, nil)
	if v := decodeAs[dto.SessionResponse](t, rec); v.Message != "Please fill all fields" {
		t.Fatalf("message=%q", v.Message)
	}

	rec = ts.do(t, http.MethodPost, base+"/deposit", profile.DemoToken, map[string]any{"amount": "1000", "phone": "0712345678"})
	expectStatus(t, rec, http.StatusOK)
	rec = ts.do(t, http.MethodPost, base+"/withdraw", profile.DemoToken, map[string]any{"amount": "10", "account": "123"})
	expectStatus(t, rec, http.StatusConflict)
}

func TestSimEndpoints(t *testing.T) {
	ts := newTestSvr(t, true)

	seed := int64(7)
	rec := ts.do(t, http.MethodPost, "/v1/sim", "", dto.SimRequest{Game: "dice", Rounds: 200, Seed: &seed})
	expectStatus(t, rec, http.StatusOK)
	if r := decodeAs[dto.SimResponse](t, rec); r.Seed != 7 || r.Stats == nil {
		t.Fatalf("unexpected sim response: %+v", r)
	}

	rec = ts.do(t, http.MethodPost, "/v1/sim", "", dto.SimRequest{Game: "nope", Rounds: 10})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/v1/stat", "", dto.StatRequest{
		Game:    "dice",
		Results: []dto.RoundResult{
			{Won: true, Amount: decimal.NewFromInt(650)},
			{Won: false, Amount: decimal.NewFromInt(-650)},
		},
	})
	expectStatus(t, rec, http.StatusOK)
}

func TestAssembleRequiresServer(t *testing.T) {
	lab, err := demo.NewMegaOdds()
	if err != nil {
		t.Fatal(err)
	}
	sCfg := &svrcfg.SvrCfg{Log: slog.New(slog.DiscardHandler), Demo: true, MegaOdds: lab}
	if _, _, err := Assemble(sCfg, nil); err == nil {
		t.Fatalf("expected error for nil svr")
	}
	if _, _, err := Assemble(&svrcfg.SvrCfg{Log: sCfg.Log, MegaOdds: lab}, netsvr.NewChiServerDefault()); err == nil {
		t.Fatalf("expected error for missing jwt secret")
	}
}
