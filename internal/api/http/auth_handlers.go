package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/itembased/examdesk/internal/auth"
	authmw "github.com/itembased/examdesk/internal/auth/middleware"
)

type outcomeResponse struct {
	auth.Outcome
	AccessToken string `json:"access_token"`
}

func writeOutcome(w http.ResponseWriter, out auth.Outcome, secure bool) {
	authmw.SetTokenCookie(w, out.Token, secure)
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: out, AccessToken: out.Token})
}

// POST /auth/signup
func SignupHandler(flow *auth.Flow, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		out, err := flow.Signup(r.Context(), req)
		if err != nil {
			slog.Warn("signup failed", "code", auth.CodeOf(err), "error", err)
			writeAuthError(w, err)
			return
		}
		writeOutcome(w, out, secure)
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(flow *auth.Flow, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		out, err := flow.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			if auth.CodeOf(err) == "" {
				slog.Error("sign-in failed", "error", err)
			}
			writeAuthError(w, err)
			return
		}
		writeOutcome(w, out, secure)
	}
}

// POST /auth/profile. Needs a token but not an existing profile.
func CompleteProfileHandler(flow *auth.Flow, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.ProfileForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		ctx := r.Context()
		out, err := flow.CompleteProfile(ctx, authmw.SubjectFromContext(ctx), authmw.EmailFromContext(ctx), form)
		if err != nil {
			if auth.CodeOf(err) == "" {
				slog.Error("complete profile failed", "error", err)
			}
			writeAuthError(w, err)
			return
		}
		writeOutcome(w, out, secure)
	}
}

// POST /auth/logout
func LogoutHandler(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authmw.ClearTokenCookie(w, secure)
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /session. Runs behind OptionalJWT; an anonymous caller is routed to login.
func SessionHandler(gate *auth.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		d, err := gate.Decide(ctx, authmw.SubjectFromContext(ctx))
		if err != nil {
			slog.Error("session gate failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "could not load your profile; please retry")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
