package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Identity is who a caller is, independent of their profile.
type Identity struct {
	UID   string
	Email string
}

// ProviderIdentity is what a social provider vouches for.
type ProviderIdentity struct {
	Provider string // e.g. "google"
	Subject  string
	Email    string
}

type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	UpsertProvider(ctx context.Context, p ProviderIdentity) (Identity, error)
}

// LocalIdentity keeps password identities in the identities table.
type LocalIdentity struct {
	db       *sql.DB
	validate *validator.Validate
}

func NewLocalIdentity(db *sql.DB) *LocalIdentity {
	return &LocalIdentity{db: db, validate: validator.New()}
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (l *LocalIdentity) checkEmail(email string) error {
	if err := l.validate.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail)
	}
	return nil
}

func (l *LocalIdentity) CreateAccount(ctx context.Context, email, password string) (Identity, error) {
	email = normEmail(email)
	if err := l.checkEmail(email); err != nil {
		return Identity{}, err
	}
	if len(password) < minPasswordLen {
		return Identity{}, newError(CodeWeakPassword)
	}

	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM identities WHERE email=$1`, email).Scan(&n); err != nil {
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}
	if n > 0 {
		return Identity{}, newError(CodeEmailInUse)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UID: uuid.NewString(), Email: email}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO identities (uid, email, password_hash, provider, created_at)
		 VALUES ($1,$2,$3,'password',$4)`,
		id.UID, id.Email, string(hash), time.Now().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return Identity{}, newError(CodeEmailInUse)
		}
		return Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return id, nil
}

func (l *LocalIdentity) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = normEmail(email)
	if err := l.checkEmail(email); err != nil {
		return Identity{}, err
	}
	var (
		id   = Identity{Email: email}
		hash string
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT uid, password_hash FROM identities WHERE email=$1`, email).Scan(&id.UID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, newError(CodeUserNotFound)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}
	// provider-only accounts have no hash
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Identity{}, newError(CodeWrongPassword)
	}
	return id, nil
}

// UpsertProvider finds the identity linked to a provider subject, links an
// existing account by email, or creates a new passwordless identity.
func (l *LocalIdentity) UpsertProvider(ctx context.Context, p ProviderIdentity) (Identity, error) {
	email := normEmail(p.Email)
	if err := l.checkEmail(email); err != nil {
		return Identity{}, err
	}

	var id Identity
	err := l.db.QueryRowContext(ctx,
		`SELECT uid, email FROM identities WHERE provider=$1 AND provider_sub=$2`,
		p.Provider, p.Subject).Scan(&id.UID, &id.Email)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}

	err = l.db.QueryRowContext(ctx, `SELECT uid FROM identities WHERE email=$1`, email).Scan(&id.UID)
	switch {
	case err == nil:
		id.Email = email
		if _, err := l.db.ExecContext(ctx,
			`UPDATE identities SET provider_sub=$1 WHERE uid=$2 AND provider_sub=''`,
			p.Subject, id.UID); err != nil {
			return Identity{}, fmt.Errorf("link identity: %w", err)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}

	id = Identity{UID: uuid.NewString(), Email: email}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO identities (uid, email, provider, provider_sub, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		id.UID, id.Email, p.Provider, p.Subject, time.Now().UnixMilli())
	if err != nil {
		return Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
