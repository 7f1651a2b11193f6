package location

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"backend-meetspot/internal/config"
	"backend-meetspot/internal/db"
	"backend-meetspot/internal/metrics"
	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"

	"github.com/google/uuid"
)

// ImportTrustScore is assigned to locations taken over from OpenStreetMap.
const ImportTrustScore = 1000

const defaultAroundLimit = 20

// TrustScorer decides whether a user may add locations and with which trust score.
type TrustScorer interface {
	LocationTrustScore(ctx context.Context, userID string) (int, error)
}

type Service struct {
	store   *Store
	tx      *db.TxManager
	trust   TrustScorer
	cfg     config.LocationConfig
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store *Store, tx *db.TxManager, trust TrustScorer, cfg config.LocationConfig, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		tx:      tx,
		trust:   trust,
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores an organically submitted location.
func (s *Service) Create(ctx context.Context, userID string, in NewLocation) (Detailed, error) {
	if !in.Location.Valid() {
		return Detailed{}, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalidInput)
	}
	trust, err := s.trust.LocationTrustScore(ctx, userID)
	if err != nil {
		return Detailed{}, err
	}

	now := s.now()
	d := newDetailed(in, trust, Creation{CreatedBy: SourceApp, Date: now, UserID: userID}, now)
	s.checkPossibleDuplicate(ctx, d)

	var created Detailed
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		created, err = s.store.Insert(ctx, d)
		return err
	})
	if err != nil {
		return Detailed{}, err
	}
	s.log.InfoContext(ctx, "location created", "location_id", created.ID, "user_id", userID)
	return created, nil
}

// Import stores a location from an OpenStreetMap extract. Locations whose osm id
// is already known are skipped and reported with ok == false.
func (s *Service) Import(ctx context.Context, in NewLocation, modified time.Time) (d Detailed, ok bool, err error) {
	if in.OSMID == nil {
		return Detailed{}, false, fmt.Errorf("%w: osm id required", apperr.ErrInvalidInput)
	}
	if !in.Location.Valid() {
		return Detailed{}, false, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalidInput)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.store.OSMIDExists(ctx, *in.OSMID)
		if err != nil || exists {
			return err
		}
		d, err = s.store.Insert(ctx, newDetailed(in, ImportTrustScore, Creation{CreatedBy: SourceOSM, Date: modified}, modified))
		ok = err == nil
		return err
	})
	if err != nil {
		return Detailed{}, false, err
	}
	if !ok {
		s.log.DebugContext(ctx, "osm location already imported", "osm_id", *in.OSMID)
	}
	return d, ok, nil
}

func newDetailed(in NewLocation, trust int, creation Creation, now time.Time) Detailed {
	tags := in.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	return Detailed{
		ID:            uuid.NewString(),
		ActivityTypes: slices.Clone(in.ActivityTypes),
		Location:      in.Location,
		Name:          in.Name,
		TrustScore:    trust,
		Tags:          tags,
		Geometry:      in.Geometry,
		Photos:        []Photo{},
		Reviews:       EmptySummary(),
		Creation:      creation,
		LastModified:  now,
		OSMID:         in.OSMID,
	}
}

// checkPossibleDuplicate is a placeholder for duplicate detection. It accepts every location.
func (s *Service) checkPossibleDuplicate(ctx context.Context, d Detailed) {}

func (s *Service) Get(ctx context.Context, id string) (Detailed, error) {
	return s.store.Get(ctx, id)
}

// GetBulk returns the locations that exist among ids; unknown ids are ignored.
func (s *Service) GetBulk(ctx context.Context, ids []string) ([]Detailed, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	return s.store.GetBulk(ctx, slices.Compact(ids))
}

func (s *Service) InBBox(ctx context.Context, box geo.BBox, activities []string) ([]Short, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: bounding box", apperr.ErrInvalidInput)
	}
	return s.store.InBBox(ctx, box, activities)
}

func (s *Service) Around(ctx context.Context, q AroundQuery) ([]Detailed, error) {
	if !q.Center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalidInput)
	}
	if q.Limit == 0 {
		q.Limit = defaultAroundLimit
	}
	return s.store.Around(ctx, q)
}

// Update validates p against the stored location, saves the result together with a
// fresh short projection and appends the history entry. All writes share one transaction.
func (s *Service) Update(ctx context.Context, userID string, p Patch) (Detailed, HistoryEntry, error) {
	var (
		saved Detailed
		entry HistoryEntry
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, p.LocationID)
		if err != nil {
			return err
		}
		next, err := Apply(current, p)
		if err != nil {
			return err
		}
		now := s.now()
		next.LastModified = now

		if saved, err = s.store.Save(ctx, next); err != nil {
			return err
		}
		entry = HistoryEntry{
			ID:         uuid.NewString(),
			LocationID: p.LocationID,
			UserID:     userID,
			Date:       now,
			Before:     p.Before,
			After:      p.After,
			Tags:       p.Tags,
		}
		return s.store.AppendHistory(ctx, entry)
	})
	s.metrics.LocationPatches.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.log.InfoContext(ctx, "location update rejected", "location_id", p.LocationID, "user_id", userID, "error", err)
		return Detailed{}, HistoryEntry{}, err
	}
	return saved, entry, nil
}

func outcome(err error) string {
	if err == nil {
		return "applied"
	}
	if code := apperr.CodeOf(err); code != "" {
		return code
	}
	return "error"
}

// History returns one page of applied patches, newest first.
func (s *Service) History(ctx context.Context, locationID string, offset int) (HistoryPage, error) {
	if offset < 0 {
		offset = 0
	}
	size := s.cfg.HistoryPageSize
	entries, err := s.store.History(ctx, locationID, offset, size+1)
	if err != nil {
		return HistoryPage{}, err
	}

	page := HistoryPage{Entries: entries}
	if len(entries) > size {
		next := offset + size
		page.NextOffset = &next
		page.Entries = entries[:size]
	}
	return page, nil
}

func (s *Service) ReportUpdate(ctx context.Context, userID, updateID, reason string) (string, error) {
	report := UpdateReport{
		ID:       uuid.NewString(),
		UserID:   userID,
		UpdateID: updateID,
		Reason:   reason,
		Date:     s.now(),
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.store.HistoryEntryExists(ctx, updateID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", apperr.ErrUpdateDoesNotExist, updateID)
		}
		open, err := s.store.CountOpenReports(ctx, userID)
		if err != nil {
			return err
		}
		if open >= s.cfg.MaxOpenUpdateReports {
			return apperr.ErrUserHasTooManyOngoingUpdateReports
		}
		return s.store.InsertReport(ctx, report)
	})
	if err != nil {
		return "", err
	}
	return report.ID, nil
}

func (s *Service) AddPhoto(ctx context.Context, userID, locationID, url string) (Detailed, error) {
	return s.mutate(ctx, locationID, func(d *Detailed) error {
		owned := 0
		for _, p := range d.Photos {
			if p.UserID == userID {
				owned++
			}
		}
		if owned >= s.cfg.MaxPhotosPerUser {
			return apperr.ErrUserPostedTooManyPhotos
		}
		d.Photos = append(d.Photos, Photo{UserID: userID, URL: url, CreationDate: s.now()})
		return nil
	})
}

func (s *Service) RemovePhoto(ctx context.Context, userID, locationID, url string) (Detailed, error) {
	return s.mutate(ctx, locationID, func(d *Detailed) error {
		idx := slices.IndexFunc(d.Photos, func(p Photo) bool { return p.URL == url })
		if idx < 0 {
			return apperr.ErrPhotoDoesNotExist
		}
		if d.Photos[idx].UserID != userID {
			return apperr.ErrUserDoesNotOwnPhoto
		}
		d.Photos = slices.Delete(d.Photos, idx, idx+1)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, locationID string, fn func(d *Detailed) error) (Detailed, error) {
	var saved Detailed
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Get(ctx, locationID)
		if err != nil {
			return err
		}
		next := current.clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.LastModified = s.now()
		saved, err = s.store.Save(ctx, next)
		return err
	})
	if err != nil {
		return Detailed{}, err
	}
	return saved, nil
}
