package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/location"
	"backend-meetspot/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

func (s *Store) q(ctx context.Context) db.Querier {
	return db.QuerierFromCtx(ctx, s.db)
}

func (s *Store) Get(ctx context.Context, id string) (location.Review, error) {
	var raw []byte
	err := s.q(ctx).QueryRow(ctx, `SELECT doc FROM reviews WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return location.Review{}, fmt.Errorf("%w: %s", apperr.ErrReviewDoesNotExist, id)
	}
	if err != nil {
		return location.Review{}, err
	}
	var r location.Review
	if err := json.Unmarshal(raw, &r); err != nil {
		return location.Review{}, fmt.Errorf("decode review: %w", err)
	}
	return r, nil
}

func (s *Store) Exists(ctx context.Context, userID, locationID string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id=$1 AND location_id=$2)
	`, userID, locationID).Scan(&ok)
	return ok, err
}

func (s *Store) Insert(ctx context.Context, r location.Review) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO reviews (id, location_id, user_id, rating, created_at, doc)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, r.ID, r.LocationID, r.UserID, r.OverallRating, r.CreationDate, doc)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: location %s", apperr.ErrUserHasReviewAlready, r.LocationID)
	}
	return err
}

func (s *Store) Update(ctx context.Context, r location.Review) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `UPDATE reviews SET rating=$2, doc=$3 WHERE id=$1`, r.ID, r.OverallRating, doc)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.q(ctx).Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id)
	return err
}

// Page returns reviews of a location, newest first.
func (s *Store) Page(ctx context.Context, locationID string, offset, limit int) ([]location.Review, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT doc FROM reviews
		WHERE location_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []location.Review{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r location.Review
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Store) HasReported(ctx context.Context, reviewID, userID string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM review_reports WHERE review_id=$1 AND user_id=$2)
	`, reviewID, userID).Scan(&ok)
	return ok, err
}

func (s *Store) InsertReport(ctx context.Context, r Report) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO review_reports (id, review_id, user_id, reason, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, r.ID, r.ReviewID, r.UserID, r.Reason, r.Date)
	return err
}
