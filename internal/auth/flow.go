package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type State string

const (
	StateRouted       State = "routed"
	StateNeedsProfile State = "needs_profile"
)

// Outcome ends the Authenticating phase. A NeedsProfile token carries no
// role, so it only opens the profile form.
type Outcome struct {
	State    State    `json:"state"`
	Token    string   `json:"-"`
	UID      string   `json:"uid"`
	Email    string   `json:"email"`
	Decision Decision `json:"decision"`
}

// TokenIssuer mints the session token handed back after sign-in.
type TokenIssuer interface {
	IssueJWT(sub, email, role string) (string, error)
}

// Field order is the order failures are reported in.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
	Role     string `json:"role" validate:"oneof=student teacher"`
	Region   string `json:"region" validate:"required"`
	School   string `json:"school" validate:"required"`
}

type ProfileForm struct {
	Role   string `json:"role" validate:"oneof=student teacher"`
	Region string `json:"region" validate:"required"`
	School string `json:"school" validate:"required"`
}

type Flow struct {
	ids      IdentityProvider
	profiles ProfileStore
	gate     *Gate
	tokens   TokenIssuer
	validate *validator.Validate
}

func NewFlow(ids IdentityProvider, profiles ProfileStore, gate *Gate, tokens TokenIssuer) *Flow {
	return &Flow{ids: ids, profiles: profiles, gate: gate, tokens: tokens, validate: validator.New()}
}

// formError maps the first failed field to its credential code.
func (f *Flow) formError(v any) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	switch ve[0].Field() {
	case "Confirm":
		return newError(CodePasswordMismatch)
	case "Role":
		return newError(CodeInvalidRole)
	default:
		return newError(CodeMissingField)
	}
}

// Signup checks every precondition before the account is created, then
// writes the profile. A failed profile write is reported, never swallowed.
func (f *Flow) Signup(ctx context.Context, req SignupRequest) (Outcome, error) {
	req.Region = strings.TrimSpace(req.Region)
	req.School = strings.TrimSpace(req.School)
	if err := f.formError(req); err != nil {
		return Outcome{}, err
	}
	id, err := f.ids.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		return Outcome{}, err
	}
	p := Profile{UID: id.UID, Email: id.Email, Role: req.Role, Region: req.Region, School: req.School}
	if err := f.profiles.Put(ctx, p); err != nil {
		return Outcome{}, &Error{Code: CodeProfileWriteFailed, Err: err}
	}
	return f.routed(id, p.Role)
}

func (f *Flow) SignIn(ctx context.Context, email, password string) (Outcome, error) {
	id, err := f.ids.SignIn(ctx, email, password)
	if err != nil {
		return Outcome{}, err
	}
	return f.resume(ctx, id)
}

func (f *Flow) ProviderSignIn(ctx context.Context, p ProviderIdentity) (Outcome, error) {
	id, err := f.ids.UpsertProvider(ctx, p)
	if err != nil {
		return Outcome{}, err
	}
	return f.resume(ctx, id)
}

// CompleteProfile performs the signup profile write for an identity that
// signed in without one. An existing profile is kept as is.
func (f *Flow) CompleteProfile(ctx context.Context, uid, email string, form ProfileForm) (Outcome, error) {
	form.Region = strings.TrimSpace(form.Region)
	form.School = strings.TrimSpace(form.School)
	if err := f.formError(form); err != nil {
		return Outcome{}, err
	}
	id := Identity{UID: uid, Email: email}
	existing, err := f.profiles.Get(ctx, uid)
	if err == nil {
		return f.routed(id, existing.Role)
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return Outcome{}, err
	}
	p := Profile{UID: uid, Email: email, Role: form.Role, Region: form.Region, School: form.School}
	if err := f.profiles.Put(ctx, p); err != nil {
		return Outcome{}, &Error{Code: CodeProfileWriteFailed, Err: err}
	}
	return f.routed(id, p.Role)
}

func (f *Flow) resume(ctx context.Context, id Identity) (Outcome, error) {
	d, err := f.gate.Decide(ctx, id.UID)
	if err != nil {
		return Outcome{}, err
	}
	if d.Route == RouteCompleteProfile {
		tok, err := f.tokens.IssueJWT(id.UID, id.Email, "")
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{State: StateNeedsProfile, Token: tok, UID: id.UID, Email: id.Email, Decision: d}, nil
	}
	return f.routed(id, d.Role)
}

func (f *Flow) routed(id Identity, role string) (Outcome, error) {
	tok, err := f.tokens.IssueJWT(id.UID, id.Email, role)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{State: StateRouted, Token: tok, UID: id.UID, Email: id.Email, Decision: f.gate.ForRole(role)}, nil
}
