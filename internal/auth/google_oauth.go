// internal/auth/google_oauth.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/config"
)

const (
	stateCookie    = "ed_oauth_state"
	redirectCookie = "ed_post_auth_redirect"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type GoogleSignIn struct {
	conf        *oauth2.Config
	flow        *Flow
	cfg         config.Config
	userInfoURL string
}

func NewGoogleSignIn(cfg config.Config, flow *Flow) *GoogleSignIn {
	return &GoogleSignIn{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		flow:        flow,
		cfg:         cfg,
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleSignIn) secure() bool { return strings.HasPrefix(g.cfg.PublicURL, "https://") }

func (g *GoogleSignIn) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

// GET /auth/google/login?redirect=<page under BASE_PATH>
func (g *GoogleSignIn) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			http.Error(w, "state", http.StatusInternalServerError)
			return
		}
		state := base64.RawURLEncoding.EncodeToString(b)
		g.setShortCookie(w, stateCookie, state)
		if next := r.URL.Query().Get("redirect"); g.allowedRedirect(next) {
			g.setShortCookie(w, redirectCookie, url.QueryEscape(next))
		}
		http.Redirect(w, r, g.conf.AuthCodeURL(state), http.StatusFound)
	}
}

// allowedRedirect accepts only same-site paths under the base path.
func (g *GoogleSignIn) allowedRedirect(next string) bool {
	if next == "" || strings.HasPrefix(next, "//") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Host == "" && u.Scheme == "" && strings.HasPrefix(u.Path, g.cfg.BasePath)
}

// toLogin sends the browser back to the login page. A cancel returns there
// silently; any other code is passed as ?error= for MessageFor.
func (g *GoogleSignIn) toLogin(w http.ResponseWriter, r *http.Request, code string) {
	login := g.cfg.Page("login.html")
	if !IsCancel(code) {
		login += "?error=" + url.QueryEscape(code)
	}
	http.Redirect(w, r, login, http.StatusFound)
}

// GET /auth/google/callback
func (g *GoogleSignIn) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if e := q.Get("error"); e != "" {
			clearCookie(w, stateCookie)
			g.toLogin(w, r, providerErrorCode(e))
			return
		}

		c, err := r.Cookie(stateCookie)
		if err != nil || c.Value == "" || c.Value != q.Get("state") {
			g.toLogin(w, r, CodeInvalidState)
			return
		}
		clearCookie(w, stateCookie)
		code := q.Get("code")
		if code == "" {
			g.toLogin(w, r, CodeInvalidState)
			return
		}

		tok, err := g.conf.Exchange(r.Context(), code)
		if err != nil {
			slog.Error("google token exchange failed", "error", err)
			g.toLogin(w, r, CodeProviderFailed)
			return
		}
		pid, err := g.userInfo(r, tok)
		if err != nil {
			slog.Error("google userinfo failed", "error", err)
			g.toLogin(w, r, CodeProviderFailed)
			return
		}

		out, err := g.flow.ProviderSignIn(r.Context(), pid)
		if err != nil {
			if code := CodeOf(err); code != "" {
				g.toLogin(w, r, code)
				return
			}
			slog.Error("provider sign-in failed", "error", err)
			http.Error(w, "profile unavailable", http.StatusServiceUnavailable)
			return
		}
		authmw.SetTokenCookie(w, out.Token, g.secure())

		target := out.Decision.URL
		if out.State == StateRouted {
			if rc, err := r.Cookie(redirectCookie); err == nil {
				if next, _ := url.QueryUnescape(rc.Value); g.allowedRedirect(next) {
					target = next
				}
			}
		}
		clearCookie(w, redirectCookie)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func (g *GoogleSignIn) userInfo(r *http.Request, tok *oauth2.Token) (ProviderIdentity, error) {
	resp, err := g.conf.Client(r.Context(), tok).Get(g.userInfoURL)
	if err != nil {
		return ProviderIdentity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProviderIdentity{}, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var ui struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return ProviderIdentity{}, fmt.Errorf("userinfo: %w", err)
	}
	if ui.Sub == "" || !ui.EmailVerified {
		return ProviderIdentity{}, fmt.Errorf("userinfo: unverified account")
	}
	return ProviderIdentity{Provider: "google", Subject: ui.Sub, Email: ui.Email}, nil
}
