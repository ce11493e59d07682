package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"live-token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	cfg := NewOAuthConfig("id", "secret", "http://127.0.0.1:0/callback")
	cfg.Endpoint.TokenURL = tokenURL
	return cfg
}

func TestCallbackHandler(t *testing.T) {
	srv := tokenServer(t)

	t.Run("Success", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(srv.URL), "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Err != nil {
			t.Fatalf("unexpected error %v", res.Err)
		}
		if res.Token.AccessToken != "live-token" {
			t.Errorf("AccessToken = %q", res.Token.AccessToken)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(srv.URL), "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Err == nil {
			t.Error("expected state error")
		}
	})

	t.Run("Denied", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(srv.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Err == nil {
			t.Error("expected authorization error")
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(srv.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Err == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(srv.URL), "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
	})
}

func TestNewOAuthConfig(t *testing.T) {
	cfg := NewOAuthConfig("client", "secret", "http://localhost:8080/callback")

	if cfg.Endpoint.AuthURL != spotifyAuthURL {
		t.Errorf("AuthURL = %s", cfg.Endpoint.AuthURL)
	}
	found := false
	for _, s := range cfg.Scopes {
		if s == "user-modify-playback-state" {
			found = true
		}
	}
	if !found {
		t.Error("expected playback control scope")
	}
}

func TestOpenBrowserUnsupported(t *testing.T) {
	orig := getRuntime
	getRuntime = func() string { return "plan9" }
	defer func() { getRuntime = orig }()

	if err := OpenBrowser("http://example.com"); err == nil {
		t.Error("expected error on unsupported platform")
	}
}
