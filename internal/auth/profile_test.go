package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"backend-meetspot/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

type fakeAvatars struct {
	url string
	err error
}

func (f fakeAvatars) AvatarURL(context.Context, string, string) (string, error) {
	return f.url, f.err
}

func userRow(displayName, avatarURL string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userColumns).
		AddRow("user-1", "ana@meetspot.test", "ana", "hash", displayName, avatarURL, InitialTrustScore, now, now)
}

func ptr(s string) *string { return &s }

func TestMe(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, email, username, password_hash.* FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(userRow("Ana", ""))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(testSecret, mock, 100)
	user, err := svc.Me(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.Email != "ana@meetspot.test" || user.DisplayName != "Ana" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := svc.Me(context.Background(), "ghost"); !errors.Is(err, apperr.ErrUserDoesNotExist) {
		t.Fatalf("expected ErrUserDoesNotExist, got %v", err)
	}
}

func TestUpdateProfileSetsPresentFields(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE users SET username = \$1, display_name = \$2, updated_at = \$3 WHERE id = \$4 RETURNING id, email`).
		WithArgs("ana2", "Ana Two", pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Ana Two", ""))
	mock.ExpectQuery(`UPDATE users SET display_name = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("Anna", pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Anna", ""))

	svc := NewService(testSecret, mock, 100)
	user, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdateRequest{Username: ptr(" ana2 "), DisplayName: ptr("Ana Two")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.DisplayName != "Ana Two" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdateRequest{DisplayName: ptr("Anna")}); err != nil {
		t.Fatalf("display name only: %v", err)
	}
}

func TestUpdateProfileErrors(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE users SET username`).
		WithArgs("taken", pgxmock.AnyArg(), "user-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(`UPDATE users SET display_name`).
		WithArgs("Ghost", pgxmock.AnyArg(), "ghost").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(testSecret, mock, 100)
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, "user-1", ProfileUpdateRequest{}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("empty update: expected invalid input, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "user-1", ProfileUpdateRequest{Username: ptr("taken")}); !errors.Is(err, apperr.ErrUserAlreadyExists) {
		t.Fatalf("taken username: expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "ghost", ProfileUpdateRequest{DisplayName: ptr("Ghost")}); !errors.Is(err, apperr.ErrUserDoesNotExist) {
		t.Fatalf("missing user: expected ErrUserDoesNotExist, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	cheapHashing(t)
	mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
	mock.ExpectQuery(`SELECT password_hash FROM users`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))
	mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = \$3 WHERE id = \$1 RETURNING id\s*\)\s*UPDATE refresh_tokens SET revoked_at = \$3`).
		WithArgs("user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	svc := NewService(testSecret, mock, 100)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "user-1", ChangePasswordRequest{OldPassword: "wrong-horse", NewPassword: "battery-staple"})
	if !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Fatalf("wrong old password: expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "user-1", ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "battery-staple"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
}

func TestSetAvatar(t *testing.T) {
	mock := newMock(t)
	const url = "https://cdn.example/avatar/upload-1/me.png"
	mock.ExpectQuery(`UPDATE users SET avatar_url = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(url, pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Ana", url))

	ctx := context.Background()
	svc := NewService(testSecret, mock, 100)
	if _, err := svc.SetAvatar(ctx, "user-1", "upload-1"); err == nil {
		t.Fatal("expected an error without an avatar source")
	}

	svc.WithAvatars(fakeAvatars{url: url})
	user, err := svc.SetAvatar(ctx, "user-1", "upload-1")
	if err != nil {
		t.Fatalf("set avatar: %v", err)
	}
	if user.AvatarURL != url {
		t.Fatalf("unexpected avatar %q", user.AvatarURL)
	}

	svc.WithAvatars(fakeAvatars{err: apperr.ErrUploadDoesNotExist})
	if _, err := svc.SetAvatar(ctx, "user-1", "upload-2"); !errors.Is(err, apperr.ErrUploadDoesNotExist) {
		t.Fatalf("expected ErrUploadDoesNotExist, got %v", err)
	}
}

func TestDeleteAvatar(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE users SET avatar_url = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("", pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Ana", ""))

	user, err := NewService(testSecret, mock, 100).DeleteAvatar(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("delete avatar: %v", err)
	}
	if user.AvatarURL != "" {
		t.Fatalf("expected cleared avatar, got %q", user.AvatarURL)
	}
}

func TestMeHandlers(t *testing.T) {
	mock := newMock(t)
	svc := NewService(testSecret, mock, 100).WithAvatars(fakeAvatars{url: "https://cdn.example/a.png"})
	app := newAuthApp(svc)
	access, _ := svc.tokens.sign("user-1", useAccess, accessTokenTTL)

	if resp := send(t, app, http.MethodGet, "/auth/me", nil, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("user-1").WillReturnRows(userRow("Ana", ""))
	resp := send(t, app, http.MethodGet, "/auth/me", nil, access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil || user.ID != "user-1" {
		t.Fatalf("unexpected user %+v (%v)", user, err)
	}

	if resp := send(t, app, http.MethodPut, "/auth/me", fiber.Map{}, access); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty update: expected 400, got %d", resp.StatusCode)
	}
	if resp := send(t, app, http.MethodPut, "/auth/me", fiber.Map{"username": "a"}, access); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short username: expected 400, got %d", resp.StatusCode)
	}

	pw := ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "short"}
	if resp := send(t, app, http.MethodPut, "/auth/me/password", pw, access); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short password: expected 400, got %d", resp.StatusCode)
	}

	if resp := send(t, app, http.MethodPut, "/auth/me/avatar", AvatarRequest{UploadID: "not-a-uuid"}, access); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad upload id: expected 400, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`UPDATE users SET avatar_url`).
		WithArgs("https://cdn.example/a.png", pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Ana", "https://cdn.example/a.png"))
	avatar := AvatarRequest{UploadID: "2b1f5a84-3c1e-4d7a-9a57-0c5f7c1d9e10"}
	if resp := send(t, app, http.MethodPut, "/auth/me/avatar", avatar, access); resp.StatusCode != http.StatusOK {
		t.Fatalf("set avatar: expected 200, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`UPDATE users SET avatar_url`).
		WithArgs("", pgxmock.AnyArg(), "user-1").
		WillReturnRows(userRow("Ana", ""))
	if resp := send(t, app, http.MethodDelete, "/auth/me/avatar", nil, access); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete avatar: expected 200, got %d", resp.StatusCode)
	}
}
