package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Profile is the role/region/school record kept beside an identity.
type Profile struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Region    string    `json:"region"`
	School    string    `json:"school"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProfileStore interface {
	Get(ctx context.Context, uid string) (Profile, error)
	Put(ctx context.Context, p Profile) error
}

type SQLProfiles struct{ db *sql.DB }

func NewSQLProfiles(db *sql.DB) *SQLProfiles { return &SQLProfiles{db: db} }

func (s *SQLProfiles) Get(ctx context.Context, uid string) (Profile, error) {
	var (
		p  Profile
		ms int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, role, region, school, created_at FROM profiles WHERE uid=$1`, uid).
		Scan(&p.UID, &p.Email, &p.Role, &p.Region, &p.School, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", uid, err)
	}
	p.CreatedAt = time.UnixMilli(ms).UTC()
	return p, nil
}

// Put writes a new profile. The role is fixed once written, so an existing
// record is an error rather than an update.
func (s *SQLProfiles) Put(ctx context.Context, p Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, email, role, region, school, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		p.UID, p.Email, p.Role, p.Region, p.School, p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("profile %s: %w", p.UID, err)
	}
	return nil
}
