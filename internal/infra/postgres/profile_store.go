package postgres

import (
	"context"
	"errors"
	"fmt"

	"reading-club-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProfileStore keeps member profiles and password hashes in reading_club_profiles.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, name, email, is_admin, joined_at`

func scanProfile(row pgx.Row) (domain.UserProfile, error) {
	var p domain.UserProfile
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.IsAdmin, &p.JoinedAt)
	return p, err
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM reading_club_profiles WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: get profile: %v", domain.ErrQuery, err)
	}
	return p, nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM reading_club_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", domain.ErrQuery, err)
	}
	defer rows.Close()

	var out []domain.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan profile: %v", domain.ErrQuery, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", domain.ErrQuery, err)
	}
	return out, nil
}

func (s *ProfileStore) CreateProfile(ctx context.Context, profile domain.UserProfile, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reading_club_profiles (id, name, email, password_hash, is_admin, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.Name, profile.Email, passwordHash, profile.IsAdmin, profile.JoinedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("%w: create profile: %v", domain.ErrMutation, err)
	}
	return nil
}

func (s *ProfileStore) GetCredentials(ctx context.Context, email string) (domain.Credentials, error) {
	var creds domain.Credentials
	err := s.pool.QueryRow(ctx,
		`SELECT id, password_hash FROM reading_club_profiles WHERE email = $1`, email).
		Scan(&creds.UserID, &creds.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Credentials{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: get credentials: %v", domain.ErrQuery, err)
	}
	return creds, nil
}
