package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/itembased/examdesk/internal/config"
)

type fakeIdentity struct {
	creates int
	signIns int
	id      Identity
	err     error
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, _ string) (Identity, error) {
	f.creates++
	if f.err != nil {
		return Identity{}, f.err
	}
	return Identity{UID: "u-new", Email: email}, nil
}

func (f *fakeIdentity) SignIn(context.Context, string, string) (Identity, error) {
	f.signIns++
	return f.id, f.err
}

func (f *fakeIdentity) UpsertProvider(_ context.Context, p ProviderIdentity) (Identity, error) {
	return Identity{UID: "g-" + p.Subject, Email: p.Email}, f.err
}

type fakeProfiles struct {
	byUID  map[string]Profile
	getErr error
	putErr error
	puts   int
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{byUID: map[string]Profile{}} }

func (f *fakeProfiles) Get(_ context.Context, uid string) (Profile, error) {
	if f.getErr != nil {
		return Profile{}, f.getErr
	}
	p, ok := f.byUID[uid]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Put(_ context.Context, p Profile) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.byUID[p.UID] = p
	return nil
}

type fakeTokens struct{ roles []string }

func (f *fakeTokens) IssueJWT(sub, _, role string) (string, error) {
	f.roles = append(f.roles, role)
	return "tok-" + sub + "-" + role, nil
}

var testCfg = config.Config{BasePath: "/item-based/"}

func newTestFlow(ids *fakeIdentity, profiles *fakeProfiles) (*Flow, *fakeTokens) {
	tokens := &fakeTokens{}
	return NewFlow(ids, profiles, NewGate(profiles, testCfg), tokens), tokens
}

func validSignup() SignupRequest {
	return SignupRequest{
		Email: "kim@school.kr", Password: "secret1", Confirm: "secret1",
		Role: RoleStudent, Region: "Seoul", School: "Hanbit High",
	}
}

func TestSignupPreconditionsRunBeforeCreateAccount(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*SignupRequest)
		code string
	}{
		{"mismatch", func(r *SignupRequest) { r.Confirm = "secret2" }, CodePasswordMismatch},
		{"blank region", func(r *SignupRequest) { r.Region = "   " }, CodeMissingField},
		{"no school", func(r *SignupRequest) { r.School = "" }, CodeMissingField},
		{"admin role", func(r *SignupRequest) { r.Role = RoleAdmin }, CodeInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids := &fakeIdentity{}
			profiles := newFakeProfiles()
			f, _ := newTestFlow(ids, profiles)
			req := validSignup()
			tc.mut(&req)
			_, err := f.Signup(context.Background(), req)
			if CodeOf(err) != tc.code {
				t.Fatalf("err = %v, want %s", err, tc.code)
			}
			if ids.creates != 0 || profiles.puts != 0 {
				t.Fatalf("side effects: creates=%d puts=%d", ids.creates, profiles.puts)
			}
		})
	}
}

func TestSignupWritesProfileAndRoutes(t *testing.T) {
	ids := &fakeIdentity{}
	profiles := newFakeProfiles()
	f, tokens := newTestFlow(ids, profiles)
	req := validSignup()
	req.Role = RoleTeacher
	out, err := f.Signup(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateRouted || out.Decision.Route != RouteTeacher || out.Decision.URL != "/item-based/teacher.html" {
		t.Fatalf("outcome = %+v", out)
	}
	if p := profiles.byUID["u-new"]; p.Region != "Seoul" || p.Role != RoleTeacher {
		t.Fatalf("profile = %+v", p)
	}
	if len(tokens.roles) != 1 || tokens.roles[0] != RoleTeacher {
		t.Fatalf("tokens = %v", tokens.roles)
	}
}

func TestSignupReportsProfileWriteFailure(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.putErr = errors.New("disk full")
	f, tokens := newTestFlow(&fakeIdentity{}, profiles)
	_, err := f.Signup(context.Background(), validSignup())
	if CodeOf(err) != CodeProfileWriteFailed {
		t.Fatalf("err = %v", err)
	}
	if len(tokens.roles) != 0 {
		t.Fatal("token issued despite failed profile write")
	}
}

func TestSignInWithoutProfileNeedsProfile(t *testing.T) {
	ids := &fakeIdentity{id: Identity{UID: "u1", Email: "a@b.co"}}
	profiles := newFakeProfiles()
	f, tokens := newTestFlow(ids, profiles)

	out, err := f.SignIn(context.Background(), "a@b.co", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateNeedsProfile || out.Decision.URL != "/item-based/login.html?step=profile" {
		t.Fatalf("outcome = %+v", out)
	}
	if tokens.roles[0] != "" {
		t.Fatalf("needs-profile token has role %q", tokens.roles[0])
	}

	out, err = f.CompleteProfile(context.Background(), "u1", "a@b.co", ProfileForm{Role: RoleStudent, Region: "Busan", School: "Sea"})
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateRouted || out.Decision.Route != RouteStudent || profiles.puts != 1 {
		t.Fatalf("outcome = %+v puts=%d", out, profiles.puts)
	}
}

func TestSignInProfileFetchFailureIsNotNewUser(t *testing.T) {
	ids := &fakeIdentity{id: Identity{UID: "u1"}}
	profiles := newFakeProfiles()
	profiles.getErr = errors.New("connection refused")
	f, _ := newTestFlow(ids, profiles)
	if _, err := f.SignIn(context.Background(), "a@b.co", "pw"); err == nil {
		t.Fatal("expected blocking error")
	}
}

func TestCompleteProfileValidates(t *testing.T) {
	profiles := newFakeProfiles()
	f, _ := newTestFlow(&fakeIdentity{}, profiles)
	_, err := f.CompleteProfile(context.Background(), "u1", "a@b.co", ProfileForm{Role: RoleStudent, Region: "x"})
	if CodeOf(err) != CodeMissingField || profiles.puts != 0 {
		t.Fatalf("err = %v puts=%d", err, profiles.puts)
	}
}
