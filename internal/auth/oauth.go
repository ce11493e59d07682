package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes requested at login; playback control needs the player scopes
var Scopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-library-read",
	"playlist-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// NewOAuthConfig builds the authorization-code configuration
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// OAuthResult is the outcome of one callback
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// CallbackHandler serves the redirect of the authorization-code flow,
// exchanges the code, and reports exactly one result.
type CallbackHandler struct {
	config      *oauth2.Config
	state       string
	results     chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler that accepts only the given state
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(OAuthResult{Err: errors.New("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("authorization failed: %s", q.Get("error"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html><html><body><h1>Logged in</h1><p>Return to the turntable.</p></body></html>`)
}

// Result receives exactly one result and is then closed
func (h *CallbackHandler) Result() <-chan OAuthResult {
	return h.results
}

func (h *CallbackHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Login runs the authorization-code flow: it listens on the redirect URL's
// host, opens the consent page with open, and saves the exchanged token
// into session.
func Login(ctx context.Context, config *oauth2.Config, session *Session, open func(string) error, logger *log.Logger) error {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect url: %w", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}

	state := uuid.NewString()
	handler := NewCallbackHandler(config, state)
	mux := http.NewServeMux()
	mux.Handle(redirect.Path, handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := config.AuthCodeURL(state)
	logger.Info("waiting for authorization", "url", authURL)
	if open != nil {
		if err := open(authURL); err != nil {
			logger.Warn("could not open browser, visit the url manually", "err", err)
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-handler.Result():
		if res.Err != nil {
			return res.Err
		}
		session.SaveToken(res.Token)
		logger.Info("logged in", "expires_in", session.TimeUntilExpiration())
		return nil
	}
}
