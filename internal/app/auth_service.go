package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reading-club-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Claims are carried by session tokens.
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// AuthOptions configures session issuance.
type AuthOptions struct {
	Secret   string
	TokenTTL time.Duration
	// Timeout bounds the credential lookup and hash comparison.
	Timeout    time.Duration
	BcryptCost int
	// AdminEmails are granted the admin flag when they register.
	AdminEmails []string
}

// AuthService authenticates members and loads their profiles.
type AuthService struct {
	profiles ProfileRepository
	secret   []byte
	opts     AuthOptions
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(profiles ProfileRepository, opts AuthOptions, log *zap.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		profiles: profiles,
		secret:   []byte(opts.Secret),
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a member profile with a hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.UserProfile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("hash password: %w", err)
	}
	profile := domain.UserProfile{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		JoinedAt: s.now(),
	}
	for _, admin := range s.opts.AdminEmails {
		if normalizeEmail(admin) == profile.Email {
			profile.IsAdmin = true
		}
	}
	if err := s.profiles.CreateProfile(ctx, profile, string(hash)); err != nil {
		return domain.UserProfile{}, err
	}
	s.log.Info("member registered", zap.String("user_id", profile.ID))
	return profile, nil
}

// Authenticate checks email and password and issues a session token.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (domain.AuthSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	creds, err := s.profiles.GetCredentials(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.AuthSession{}, &domain.AuthError{Message: "invalid email or password"}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.AuthSession{}, &domain.AuthError{Message: "login timed out, try again", Err: err}
		}
		return domain.AuthSession{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return domain.AuthSession{}, &domain.AuthError{Message: "invalid email or password"}
	}

	profile, err := s.profiles.GetProfile(ctx, creds.UserID)
	if err != nil {
		return domain.AuthSession{}, err
	}
	token, expires, err := s.issue(profile)
	if err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{
		UserID:    profile.ID,
		Token:     token,
		ExpiresAt: expires,
		Profile:   profile,
	}, nil
}

func (s *AuthService) issue(profile domain.UserProfile) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.opts.TokenTTL)
	claims := &Claims{
		Admin: profile.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			Issuer:    "reading-club",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a session token. Expired or forged tokens yield an AuthError.
func (s *AuthService) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.AuthError{Message: "session expired, please sign in again", Err: err}
		}
		return nil, &domain.AuthError{Message: "invalid session", Err: err}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, &domain.AuthError{Message: "invalid session"}
	}
	return claims, nil
}

// Profile loads the profile behind an authenticated identity.
func (s *AuthService) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return s.profiles.GetProfile(ctx, userID)
}
