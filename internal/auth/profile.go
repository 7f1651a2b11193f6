package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const userSelectColumns = "id, email, username, password_hash, display_name, avatar_url, trust_score, created_at, updated_at"

// AvatarSource resolves an avatar upload owned by a user to the URL it is served from.
type AvatarSource interface {
	AvatarURL(ctx context.Context, userID, uploadID string) (string, error)
}

// ProfileChange is one editable column of the users table. The set of
// implementations is closed.
type ProfileChange interface {
	Column() string
	value() any
}

type UsernameChange struct{ Username string }

func (UsernameChange) Column() string { return "username" }
func (c UsernameChange) value() any   { return c.Username }

type DisplayNameChange struct{ DisplayName string }

func (DisplayNameChange) Column() string { return "display_name" }
func (c DisplayNameChange) value() any   { return c.DisplayName }

// AvatarChange with an empty URL clears the avatar.
type AvatarChange struct{ URL string }

func (AvatarChange) Column() string { return "avatar_url" }
func (c AvatarChange) value() any   { return c.URL }

// WithAvatars sets where SetAvatar looks uploads up.
func (s *Service) WithAvatars(a AvatarSource) *Service {
	s.avatars = a
	return s
}

func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userSelectColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %s", apperr.ErrUserDoesNotExist, userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the fields present in req. A request without any field is invalid.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req ProfileUpdateRequest) (User, error) {
	changes := req.changes()
	if len(changes) == 0 {
		return User{}, fmt.Errorf("%w: nothing to update", apperr.ErrInvalidInput)
	}
	return s.applyProfile(ctx, userID, changes...)
}

// SetAvatar points the user's avatar at one of their own avatar uploads.
func (s *Service) SetAvatar(ctx context.Context, userID, uploadID string) (User, error) {
	if s.avatars == nil {
		return User{}, errors.New("avatar uploads are not configured")
	}
	url, err := s.avatars.AvatarURL(ctx, userID, uploadID)
	if err != nil {
		return User{}, err
	}
	return s.applyProfile(ctx, userID, AvatarChange{URL: url})
}

func (s *Service) DeleteAvatar(ctx context.Context, userID string) (User, error) {
	return s.applyProfile(ctx, userID, AvatarChange{})
}

// ChangePassword replaces the password and revokes every refresh token of the
// user in one statement. Access tokens stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	var current string
	err := s.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperr.ErrUserDoesNotExist, userID)
	}
	if err != nil {
		return fmt.Errorf("load password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(current), []byte(req.OldPassword)) != nil {
		return apperr.ErrInvalidCredentials
	}

	hash, err := hashPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		WITH changed AS (
			UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1 RETURNING id
		)
		UPDATE refresh_tokens SET revoked_at = $3
		WHERE user_id IN (SELECT id FROM changed) AND revoked_at IS NULL`,
		userID, string(hash), s.tokens.now())
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (s *Service) applyProfile(ctx context.Context, userID string, changes ...ProfileChange) (User, error) {
	q := db.Builder().Update("users")
	for _, c := range changes {
		q = q.Set(c.Column(), c.value())
	}
	q = q.Set("updated_at", s.tokens.now()).
		Where("id = ?", userID).
		Suffix("RETURNING " + userSelectColumns)

	sql, args, err := q.ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build profile update: %w", err)
	}
	user, err := scanUser(s.db.QueryRow(ctx, sql, args...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return User{}, fmt.Errorf("%w: %s", apperr.ErrUserDoesNotExist, userID)
	case db.IsUniqueViolation(err):
		return User{}, apperr.ErrUserAlreadyExists
	case err != nil:
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.TrustScore, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r ProfileUpdateRequest) changes() []ProfileChange {
	var out []ProfileChange
	if r.Username != nil {
		out = append(out, UsernameChange{Username: strings.TrimSpace(*r.Username)})
	}
	if r.DisplayName != nil {
		out = append(out, DisplayNameChange{DisplayName: *r.DisplayName})
	}
	return out
}
