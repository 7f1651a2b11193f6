package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// InitialTrustScore is given to every newly registered user.
const InitialTrustScore = 100

// locationScores maps the order of magnitude of a user's trust score to the
// trust score of the locations they create.
var locationScores = map[int]int{1: 1, 2: 10, 3: 100, 4: 1000}

var hashPassword = bcrypt.GenerateFromPassword

// Service owns accounts, token issuance and the trust rules other services ask about.
type Service struct {
	db       db.Querier
	tokens   signer
	minTrust int
	avatars  AvatarSource
}

func NewService(secret string, q db.Querier, minTrust int) *Service {
	return &Service{db: q, tokens: newSigner(secret), minTrust: minTrust}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	hash, err := hashPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(req.Email),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		AvatarURL:    req.AvatarURL,
		TrustScore:   InitialTrustScore,
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, display_name, avatar_url, trust_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.DisplayName, user.AvatarURL, user.TrustScore,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return User{}, TokenResponse{}, fmt.Errorf("%w: %s", apperr.ErrUserAlreadyExists, user.Email)
	}
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("insert user: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// Login answers ErrInvalidCredentials for both an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userSelectColumns+` FROM users WHERE email = $1`, normalizeEmail(req.Email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, TokenResponse{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return User{}, TokenResponse{}, apperr.ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// LocationTrustScore checks that the user may add locations and returns the trust
// score their locations start with.
func (s *Service) LocationTrustScore(ctx context.Context, userID string) (int, error) {
	var trust int
	err := s.db.QueryRow(ctx, `SELECT trust_score FROM users WHERE id = $1`, userID).Scan(&trust)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", apperr.ErrUserDoesNotExist, userID)
	}
	if err != nil {
		return 0, err
	}
	if trust < s.minTrust || trust < 1 {
		return 0, apperr.ErrUserLowTrust
	}
	return locationScore(trust), nil
}

func locationScore(trust int) int {
	magnitude := int(math.Floor(math.Log10(float64(trust))))
	magnitude = min(max(magnitude, 1), 4)
	return locationScores[magnitude]
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
		SELECT id, username, display_name, avatar_url FROM users WHERE id = $1
	`, userID).Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", apperr.ErrUserDoesNotExist, userID)
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// GenerateTokens issues an access token and a stored refresh token for userID.
func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := s.tokens.sign(userID, useAccess, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.sign(userID, useRefresh, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign refresh token: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, refresh, s.tokens.now().Add(refreshTokenTTL))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair is
// issued. A token can be rotated at most once.
func (s *Service) Refresh(ctx context.Context, token string) (TokenResponse, error) {
	claims, err := s.tokens.parse(token, useRefresh)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := s.revoke(ctx, claims.UserID, token); err != nil {
		return TokenResponse{}, err
	}
	return s.GenerateTokens(ctx, claims.UserID)
}

// Logout revokes a refresh token. Access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.parse(token, useRefresh)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims.UserID, token)
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.tokens.parse(token, useAccess)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) revoke(ctx context.Context, userID, token string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token = $1 AND user_id = $3 AND revoked_at IS NULL AND expires_at > $2`,
		token, s.tokens.now(), userID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrInvalidToken
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
