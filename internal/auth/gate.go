// internal/auth/gate.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/itembased/examdesk/internal/config"
)

type Route string

const (
	RouteLogin           Route = "login"
	RouteTeacher         Route = "teacher"
	RouteStudent         Route = "student"
	RouteCompleteProfile Route = "complete_profile"
)

// Decision is the single routing outcome for a page load.
type Decision struct {
	Route Route  `json:"route"`
	URL   string `json:"url"`
	Role  string `json:"role,omitempty"`
}

type Gate struct {
	profiles ProfileStore
	cfg      config.Config
}

func NewGate(profiles ProfileStore, cfg config.Config) *Gate {
	return &Gate{profiles: profiles, cfg: cfg}
}

// Decide routes sub. A missing profile sends the user to the profile form;
// any other lookup failure is returned and must block the page, since an
// existing user must never be mistaken for a new one.
func (g *Gate) Decide(ctx context.Context, sub string) (Decision, error) {
	if sub == "" {
		return g.decision(RouteLogin, ""), nil
	}
	p, err := g.profiles.Get(ctx, sub)
	if errors.Is(err, ErrProfileNotFound) {
		return g.decision(RouteCompleteProfile, ""), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("session gate: %w", err)
	}
	return g.ForRole(p.Role), nil
}

func (g *Gate) ForRole(role string) Decision {
	if role == RoleTeacher || role == RoleAdmin {
		return g.decision(RouteTeacher, role)
	}
	return g.decision(RouteStudent, role)
}

func (g *Gate) decision(r Route, role string) Decision {
	var page string
	switch r {
	case RouteLogin:
		page = "login.html"
	case RouteCompleteProfile:
		page = "login.html?step=profile"
	case RouteTeacher:
		page = "teacher.html"
	default:
		page = "index.html"
	}
	return Decision{Route: r, URL: g.cfg.Page(page), Role: role}
}
