package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Kind string

const (
	KindLocationPhoto Kind = "location_photo"
	KindAvatar        Kind = "avatar"
)

type UploadRequest struct {
	FileName string `json:"file_name" validate:"omitempty,max=200"`
	Kind     Kind   `json:"kind" validate:"required,oneof=location_photo avatar"`
}

// Upload is a registered object slot. URL is what location photos and avatars reference.
type Upload struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewService(db db.Querier, baseURL string, ttl time.Duration) *Service {
	return &Service{
		db:      db,
		baseURL: baseURL,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register records an upload slot for userID and returns where the object will live.
func (s *Service) Register(ctx context.Context, userID string, req UploadRequest) (Upload, error) {
	name := path.Base(req.FileName)
	if req.FileName == "" || name == "." || name == "/" {
		name = "upload"
	}
	id := uuid.NewString()
	objectURL, err := url.JoinPath(s.baseURL, string(req.Kind), id, name)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: bad object url: %v", apperr.ErrInvalidInput, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, objectURL, string(req.Kind))
	if err != nil {
		return Upload{}, err
	}
	return Upload{ID: id, URL: objectURL, Kind: req.Kind, ExpiresAt: s.now().Add(s.ttl)}, nil
}

// AvatarURL returns the URL of an avatar upload registered by userID. Uploads of
// other users and location photos are reported as missing.
func (s *Service) AvatarURL(ctx context.Context, userID, uploadID string) (string, error) {
	var objectURL string
	err := s.db.QueryRow(ctx, `
		SELECT url FROM storage_objects WHERE id = $1 AND user_id = $2 AND kind = $3
	`, uploadID, userID, string(KindAvatar)).Scan(&objectURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", apperr.ErrUploadDoesNotExist, uploadID)
	}
	if err != nil {
		return "", err
	}
	return objectURL, nil
}
