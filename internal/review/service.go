package review

import (
	"context"
	"log/slog"
	"time"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/location"
	"backend-meetspot/internal/metrics"
	"backend-meetspot/internal/shared/apperr"

	"github.com/google/uuid"
)

// Service keeps reviews and the review summary of their location in step.
// Each mutation writes the review row and the location document in one transaction.
type Service struct {
	store     *Store
	locations *location.Store
	tx        *db.TxManager
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(store *Store, locations *location.Store, tx *db.TxManager, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		locations: locations,
		tx:        tx,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, userID, locationID string, in Input) (location.Review, error) {
	r := location.Review{
		ID:            uuid.NewString(),
		LocationID:    locationID,
		UserID:        userID,
		Description:   in.Description,
		OverallRating: in.OverallRating,
		Details:       in.Details,
		CreationDate:  s.now(),
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		loc, err := s.locations.Get(ctx, locationID)
		if err != nil {
			return err
		}
		exists, err := s.store.Exists(ctx, userID, locationID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrUserHasReviewAlready
		}
		if err := s.store.Insert(ctx, r); err != nil {
			return err
		}
		loc.Reviews.Add(r)
		_, err = s.locations.Save(ctx, loc)
		return err
	})
	if err != nil {
		return location.Review{}, err
	}
	s.metrics.ReviewMutations.WithLabelValues("add").Inc()
	return r, nil
}

func (s *Service) Update(ctx context.Context, userID, reviewID string, in Input) (location.Review, error) {
	var updated location.Review
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		old, err := s.owned(ctx, userID, reviewID)
		if err != nil {
			return err
		}
		updated = old
		updated.Description = in.Description
		updated.OverallRating = in.OverallRating
		updated.Details = in.Details
		if err := s.store.Update(ctx, updated); err != nil {
			return err
		}

		loc, err := s.locations.Get(ctx, old.LocationID)
		if err != nil {
			return err
		}
		loc.Reviews.Update(old, updated)
		_, err = s.locations.Save(ctx, loc)
		return err
	})
	if err != nil {
		return location.Review{}, err
	}
	s.metrics.ReviewMutations.WithLabelValues("update").Inc()
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, reviewID string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		old, err := s.owned(ctx, userID, reviewID)
		if err != nil {
			return err
		}
		if err := s.store.Delete(ctx, reviewID); err != nil {
			return err
		}

		loc, err := s.locations.Get(ctx, old.LocationID)
		if err != nil {
			return err
		}
		loc.Reviews.Remove(old)
		_, err = s.locations.Save(ctx, loc)
		return err
	})
	if err != nil {
		return err
	}
	s.metrics.ReviewMutations.WithLabelValues("remove").Inc()
	return nil
}

func (s *Service) owned(ctx context.Context, userID, reviewID string) (location.Review, error) {
	r, err := s.store.Get(ctx, reviewID)
	if err != nil {
		return location.Review{}, err
	}
	if r.UserID != userID {
		return location.Review{}, apperr.ErrUserDoesNotOwnReview
	}
	return r, nil
}

// Page returns n reviews starting at offset together with the offset of the next page.
func (s *Service) Page(ctx context.Context, locationID string, offset, n int) (Page, error) {
	offset = max(offset, 0)
	if n <= 0 {
		n = 10
	}
	reviews, err := s.store.Page(ctx, locationID, offset, n+1)
	if err != nil {
		return Page{}, err
	}

	page := Page{Reviews: reviews}
	if len(reviews) > n {
		next := offset + n
		page.NextOffset = &next
		page.Reviews = reviews[:n]
	}
	return page, nil
}

func (s *Service) Report(ctx context.Context, userID, reviewID, reason string) (string, error) {
	report := Report{ID: uuid.NewString(), ReviewID: reviewID, UserID: userID, Reason: reason, Date: s.now()}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.Get(ctx, reviewID); err != nil {
			return err
		}
		reported, err := s.store.HasReported(ctx, reviewID, userID)
		if err != nil {
			return err
		}
		if reported {
			return apperr.ErrUserHasAlreadyReportedThisReview
		}
		return s.store.InsertReport(ctx, report)
	})
	if err != nil {
		return "", err
	}
	s.log.InfoContext(ctx, "review reported", "review_id", reviewID, "user_id", userID)
	return report.ID, nil
}
