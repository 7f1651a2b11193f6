package offer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/config"
	"backend-meetspot/internal/db"
	"backend-meetspot/internal/location"
	"backend-meetspot/internal/metrics"
	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"

	"github.com/google/uuid"
)

type LocationReader interface {
	Get(ctx context.Context, id string) (location.Detailed, error)
}

type ProfileReader interface {
	Profile(ctx context.Context, userID string) (auth.Profile, error)
}

// Notifier delivers events to a single user's open connections.
type Notifier interface {
	Publish(ctx context.Context, userID string, payload any) error
}

type Service struct {
	store     *Store
	tx        *db.TxManager
	locations LocationReader
	profiles  ProfileReader
	notifier  Notifier
	matcher   *Matcher
	cfg       config.OfferConfig
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	uniform   func() float64
}

func NewService(store *Store, tx *db.TxManager, locations LocationReader, profiles ProfileReader, notifier Notifier, cfg config.OfferConfig, log *slog.Logger, m *metrics.Metrics) *Service {
	s := &Service{
		store:     store,
		tx:        tx,
		locations: locations,
		profiles:  profiles,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		uniform:   rand.Float64,
	}
	s.matcher = NewMatcher(s, log)
	s.matcher.now = func() time.Time { return s.now() }
	return s
}

// Create publishes a new offer hosted by userID. The decoy center is drawn once
// here and never recomputed.
func (s *Service) Create(ctx context.Context, userID string, in NewOffer) (Offer, error) {
	if err := in.Time.Validate(); err != nil {
		return Offer{}, err
	}
	if err := in.Location.Validate(); err != nil {
		return Offer{}, err
	}

	loc := in.Location
	if loc.Type == LocationConnected {
		target, err := s.locations.Get(ctx, loc.LocationID)
		if err != nil {
			return Offer{}, err
		}
		coords := target.Location
		loc.Coords = &coords
	}

	host, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return Offer{}, err
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}

	now := s.now()
	o := Offer{
		ID:                 uuid.NewString(),
		Activities:         slices.Clone(in.Activities),
		Time:               in.Time,
		Description:        in.Description,
		Visibility:         visibility,
		VisibilityRadiusKm: in.VisibilityRadiusKm,
		Location:           &loc,
		Blurred: Blurred{
			Center:   geo.Blur(*loc.Coords, s.cfg.BlurRadiusKm, s.uniform),
			RadiusKm: s.cfg.BlurRadiusKm,
		},
		Status:       StatusOpen,
		CreationDate: now,
		Host:         host,
		Participants: []Participant{{UserID: userID, Status: ParticipantHost, Date: now}},
	}

	created, err := s.store.Insert(ctx, o)
	if err != nil {
		return Offer{}, err
	}
	s.log.InfoContext(ctx, "offer created", "offer_id", created.ID, "user_id", userID)
	return created, nil
}

// Get returns the requested offers as userID may see them. Unknown ids are skipped.
func (s *Service) Get(ctx context.Context, userID string, ids []string) ([]Offer, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	offers, err := s.store.GetBulk(ctx, ids)
	if err != nil {
		return nil, err
	}
	return viewsFor(offers, userID), nil
}

func (s *Service) ForUser(ctx context.Context, userID string) ([]Offer, error) {
	offers, err := s.store.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return viewsFor(offers, userID), nil
}

// AtLocation returns discoverable offers connected to a known location.
func (s *Service) AtLocation(ctx context.Context, userID, locationID string, window Time) ([]Offer, error) {
	if _, err := s.locations.Get(ctx, locationID); err != nil {
		return nil, err
	}
	return s.discover(ctx, Query{RequesterID: userID, LocationID: locationID, Time: window})
}

// Around returns discoverable offers whose decoy is within reach of q.Origin.
func (s *Service) Around(ctx context.Context, q Query) ([]Offer, error) {
	if q.Origin == nil || !q.Origin.Valid() {
		return nil, fmt.Errorf("%w: origin out of range", apperr.ErrInvalidInput)
	}
	if q.RadiusKm != nil && *q.RadiusKm < 0 {
		return nil, fmt.Errorf("%w: negative radius", apperr.ErrInvalidInput)
	}
	return s.discover(ctx, q)
}

// InBBox returns discoverable offers whose decoy lies in q.BBox and within reach
// of q.Origin. The origin is required so the reach rule always applies.
func (s *Service) InBBox(ctx context.Context, q Query) ([]Offer, error) {
	if q.BBox == nil || !q.BBox.Valid() {
		return nil, fmt.Errorf("%w: invalid bounding box", apperr.ErrInvalidInput)
	}
	if q.Origin == nil || !q.Origin.Valid() {
		return nil, fmt.Errorf("%w: origin required", apperr.ErrInvalidInput)
	}
	return s.discover(ctx, q)
}

func (s *Service) discover(ctx context.Context, q Query) ([]Offer, error) {
	candidates, err := s.store.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}
	found, err := s.matcher.Discoverable(ctx, q, candidates)
	if err != nil {
		return nil, err
	}
	return viewsFor(found, q.RequesterID), nil
}

// MarkTimedOut persists the timeout of an expired offer.
func (s *Service) MarkTimedOut(ctx context.Context, o Offer) error {
	o.Status = StatusTimeout
	if _, err := s.store.Save(ctx, o); err != nil {
		return err
	}
	s.metrics.OffersTimedOut.Inc()
	s.log.InfoContext(ctx, "offer timed out", "offer_id", o.ID)
	return nil
}

// SetStatus lets the host open, close or time out the offer.
func (s *Service) SetStatus(ctx context.Context, userID, offerID string, status Status) (Offer, error) {
	if !status.Valid() {
		return Offer{}, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, status)
	}
	return s.mutate(ctx, offerID, func(o *Offer) error {
		if o.Host.ID != userID {
			return apperr.ErrUserDoesNotOwnOffer
		}
		o.Status = status
		return nil
	})
}

// Delete removes an offer owned by userID and tells the remaining participants.
func (s *Service) Delete(ctx context.Context, userID, offerID string) error {
	var deleted Offer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.store.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if o.Host.ID != userID {
			return apperr.ErrUserDoesNotOwnOffer
		}
		deleted = o
		return s.store.Delete(ctx, o.ID, o.Version)
	})
	if err != nil {
		return err
	}

	now := s.now()
	for _, p := range deleted.Participants {
		if p.Status == ParticipantHost || p.Status == ParticipantWithdrawn || p.Status == ParticipantDeclined {
			continue
		}
		s.notify(ctx, p.UserID, Event{Type: EventOfferDeleted, OfferID: deleted.ID, UserID: userID, Date: now})
	}
	s.log.InfoContext(ctx, "offer deleted", "offer_id", offerID, "user_id", userID)
	return nil
}

// RequestJoin adds userID to the offer's pending participants and tells the host.
func (s *Service) RequestJoin(ctx context.Context, userID, offerID, message string) (Offer, error) {
	now := s.now()
	o, err := s.mutate(ctx, offerID, func(o *Offer) error {
		if o.Host.ID == userID {
			return apperr.ErrUserAlreadyParticipant
		}
		return o.RequestJoin(userID, message, now)
	})
	if err != nil {
		return Offer{}, err
	}
	s.metrics.ParticipantTransitions.WithLabelValues(string(ParticipantRequested)).Inc()
	s.notify(ctx, o.Host.ID, Event{Type: EventJoinRequested, OfferID: o.ID, UserID: userID, Status: ParticipantRequested, Date: now})
	return o.ViewFor(userID), nil
}

// SetParticipantStatus accepts or declines a join request on behalf of the host.
func (s *Service) SetParticipantStatus(ctx context.Context, actorID, offerID, targetID string, status ParticipantStatus) (Offer, error) {
	o, err := s.mutate(ctx, offerID, func(o *Offer) error {
		return o.SetParticipantStatus(actorID, targetID, status)
	})
	if err != nil {
		return Offer{}, err
	}
	s.metrics.ParticipantTransitions.WithLabelValues(string(status)).Inc()
	s.notify(ctx, targetID, Event{Type: EventStatusChanged, OfferID: o.ID, UserID: targetID, Status: status, Date: s.now()})
	return o, nil
}

// Withdraw takes userID out of the offer and tells the host.
func (s *Service) Withdraw(ctx context.Context, userID, offerID string) (Offer, error) {
	o, err := s.mutate(ctx, offerID, func(o *Offer) error {
		return o.Withdraw(userID)
	})
	if err != nil {
		return Offer{}, err
	}
	s.metrics.ParticipantTransitions.WithLabelValues(string(ParticipantWithdrawn)).Inc()
	s.notify(ctx, o.Host.ID, Event{Type: EventWithdrawn, OfferID: o.ID, UserID: userID, Status: ParticipantWithdrawn, Date: s.now()})
	return o.ViewFor(userID), nil
}

func (s *Service) mutate(ctx context.Context, offerID string, fn func(o *Offer) error) (Offer, error) {
	var saved Offer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.store.Get(ctx, offerID)
		if err != nil {
			return err
		}
		if err := fn(&o); err != nil {
			return err
		}
		saved, err = s.store.Save(ctx, o)
		return err
	})
	return saved, err
}

// notify runs after commit; a failed push never undoes the change.
func (s *Service) notify(ctx context.Context, userID string, ev Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, userID, ev); err != nil {
		s.log.WarnContext(ctx, "offer notification failed", "user_id", userID, "event", ev.Type, "error", err)
	}
}

func viewsFor(offers []Offer, userID string) []Offer {
	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.ViewFor(userID))
	}
	return out
}

// SearchWindow turns optional request bounds into a time descriptor using the
// configured lookback and horizon.
func (s *Service) SearchWindow(from, until *time.Time) (Time, error) {
	return SearchWindow(from, until, s.now(), s.cfg.Lookback, s.cfg.SearchHorizon)
}
