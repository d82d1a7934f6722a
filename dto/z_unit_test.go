package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/games"
)

func TestDecodePayment(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/deposit", strings.NewReader(`{"amount":"1000","phone":"0712345678"}`))
	req, err := Decode[PaymentRequest](r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Amount.Equal(decimal.NewFromInt(1000)) || req.Phone != "0712345678" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeStartSelection(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{"selection":{"numbers":[1,2,3],"entrant":0}}`))
	req, err := Decode[StartRequest](r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Selection.Numbers) != 3 {
		t.Fatalf("unexpected numbers: %v", req.Selection.Numbers)
	}
	if req.Selection.Entrant == nil || *req.Selection.Entrant != 0 {
		t.Fatal("entrant 0 must be distinguishable from missing")
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req, err := Decode[OpenSessionRequest](r)
	if err != nil {
		t.Fatalf("empty body should decode to zero value: %v", err)
	}
	if req.Bet != 0 || req.Seed != nil {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/bet", strings.NewReader(`{"amount":650,"unknown":true}`))
	if _, err := Decode[BetRequest](r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestActRequestParse(t *testing.T) {
	a, err := (&ActRequest{Action: games.ActReveal, Index: 4}).Parse()
	if err != nil || a.Kind != games.ActReveal || a.Index != 4 {
		t.Fatalf("unexpected action %+v err=%v", a, err)
	}
	if _, err := (&ActRequest{Action: "dance"}).Parse(); err == nil {
		t.Fatal("unknown action should fail")
	}
	if _, err := (&ActRequest{}).Parse(); err == nil {
		t.Fatal("missing action should fail")
	}
}

func TestSimRequestValid(t *testing.T) {
	cases := []struct {
		req SimRequest
		ok  bool
	}{
		{SimRequest{Game: "dice", Rounds: 100}, true},
		{SimRequest{Game: "", Rounds: 100}, false},
		{SimRequest{Game: "dice", Rounds: 0}, false},
		{SimRequest{Game: "dice", Rounds: MaxSimRounds + 1}, false},
		{SimRequest{Game: "dice", Rounds: 10, BetMode: -1}, false},
	}
	for i, c := range cases {
		err := c.req.Valid()
		if (err == nil) != c.ok {
			t.Fatalf("case %d: ok=%v err=%v", i, c.ok, err)
		}
	}
	r := SimRequest{Game: "dice", Rounds: 1, Workers: 99}
	_ = r.Valid()
	if r.Workers != 16 {
		t.Fatalf("workers should clamp to 16, got %d", r.Workers)
	}
}
