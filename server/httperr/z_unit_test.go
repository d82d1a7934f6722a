package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/megaodds/dto"
	"github.com/zintix-labs/megaodds/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.NewWarn("bad"), http.StatusBadRequest},
		{errs.NewFatal("boom"), http.StatusInternalServerError},
		{errs.ErrUnauthorized.With("token expired"), http.StatusUnauthorized},
		{errs.ErrSessionNotFound.With("abc"), http.StatusNotFound},
		{errs.ErrPaymentBusy.With("deposit"), http.StatusConflict},
		{errs.ErrInsufficientBalance.With("x"), http.StatusBadRequest},
		{errs.Wrap(context.DeadlineExceeded, "spin"), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for i, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("case %d (%v): got %d want %d", i, c.err, got, c.want)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.ErrInsufficientBalance.With("balance KSh100 below bet KSh650"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
	var body dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != string(errs.CodeInsufficientBalance) || body.Status != http.StatusBadRequest {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Error != "insufficient balance: balance KSh100 below bet KSh650" {
		t.Fatalf("error=%q", body.Error)
	}
}
