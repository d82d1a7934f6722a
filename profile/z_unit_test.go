package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/megaodds/errs"
)

func TestBootstrapWithoutToken(t *testing.T) {
	st := Bootstrap(context.Background(), DemoSource{}, "  ", nil)
	if st.Authenticated || !st.Loaded || st.User != nil {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestBootstrapDemo(t *testing.T) {
	st := Bootstrap(context.Background(), DemoSource{}, DemoToken, nil)
	if st.User == nil {
		t.Fatalf("expected demo user")
	}
	if st.User.Email != "demo@megaodds.com" || st.User.Balance.IntPart() != 162500 {
		t.Fatalf("unexpected demo user %+v", st.User)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/protected" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"a@b.co","balance":"1300.5"}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL + "/")
	u, err := src.Fetch(context.Background(), "tok")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if u.ID != 7 || u.Balance.String() != "1300.5" || u.Token != "tok" {
		t.Fatalf("unexpected user %+v", u)
	}

	_, err = src.Fetch(context.Background(), "bad")
	if !errors.Is(err, errs.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestBootstrapSwallowsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	url := srv.URL
	srv.Close()

	st := Bootstrap(context.Background(), NewHTTPSource(url), "tok", nil)
	if !st.Authenticated || !st.Loaded || st.User != nil {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"":            "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q)=%q want %q", in, got, want)
		}
	}
}
