package offer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"
)

// Query describes what a requester is looking for. Origin is the requester's
// position and is set for every area search; BBox and RadiusKm restrict the
// search area further when set.
type Query struct {
	RequesterID string
	Origin      *geo.Point
	BBox        *geo.BBox
	RadiusKm    *float64
	LocationID  string
	Activities  []string
	Time        Time
}

// Sweeper persists the timeout of an offer found expired while reading.
type Sweeper interface {
	MarkTimedOut(ctx context.Context, o Offer) error
}

type Matcher struct {
	sweeper Sweeper
	log     *slog.Logger
	now     func() time.Time
}

func NewMatcher(sweeper Sweeper, log *slog.Logger) *Matcher {
	return &Matcher{
		sweeper: sweeper,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Discoverable returns the candidates the requester may find, in candidate order.
// Expired single-slot offers are persisted as timed out and dropped.
func (m *Matcher) Discoverable(ctx context.Context, q Query, candidates []Offer) ([]Offer, error) {
	now := m.now()
	out := make([]Offer, 0, len(candidates))
	for _, o := range candidates {
		if !baseVisible(o, q.RequesterID) {
			continue
		}
		if Expired(o, now) {
			if err := m.sweeper.MarkTimedOut(ctx, o); err != nil {
				if !errors.Is(err, apperr.ErrConcurrentModification) {
					return nil, err
				}
				m.log.WarnContext(ctx, "offer changed during timeout sweep", "offer_id", o.ID)
			}
			continue
		}
		if !inArea(o, q) {
			continue
		}
		if len(q.Activities) > 0 && !overlaps(o.Activities, q.Activities) {
			continue
		}
		ok, err := Match(o.Time, q.Time)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func baseVisible(o Offer, requesterID string) bool {
	return o.Status == StatusOpen && o.Visibility == VisibilityPublic && o.Host.ID != requesterID
}

// Expired reports whether a single-slot offer has ended before now.
func Expired(o Offer, now time.Time) bool {
	return o.Time.Type == TimeSingle && o.Time.Times != nil && o.Time.Times.End.Before(now)
}

// Visible reports whether the decoy lies within the offer's reach of from.
// The blur radius is added so the true location never decides visibility.
func Visible(o Offer, from geo.Point) bool {
	return geo.DistanceKm(from, o.Blurred.Center) <= o.VisibilityRadiusKm+o.Blurred.RadiusKm
}

func inArea(o Offer, q Query) bool {
	if q.LocationID != "" && (o.Location == nil || o.Location.LocationID != q.LocationID) {
		return false
	}
	if q.Origin != nil && !Visible(o, *q.Origin) {
		return false
	}
	if q.BBox != nil && !q.BBox.Contains(o.Blurred.Center) {
		return false
	}
	if q.RadiusKm != nil && q.Origin != nil && geo.DistanceKm(*q.Origin, o.Blurred.Center) > *q.RadiusKm+o.Blurred.RadiusKm {
		return false
	}
	return true
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
