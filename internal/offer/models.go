package offer

import (
	"fmt"
	"time"

	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusTimeout Status = "timeout"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed || s == StatusTimeout
}

type Visibility string

const VisibilityPublic Visibility = "public"

type TimeType string

const (
	TimeFlexible TimeType = "flexible"
	TimeSingle   TimeType = "single"
)

// TimeSlot is a closed interval [Start, End].
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Time is either flexible (no Times) or a single fixed slot.
type Time struct {
	Type  TimeType  `json:"type"`
	Times *TimeSlot `json:"times,omitempty"`
}

func Flexible() Time { return Time{Type: TimeFlexible} }

func Single(start, end time.Time) Time {
	return Time{Type: TimeSingle, Times: &TimeSlot{Start: start, End: end}}
}

func (t Time) Validate() error {
	switch t.Type {
	case TimeFlexible:
		if t.Times != nil {
			return fmt.Errorf("%w: flexible time takes no slot", apperr.ErrInvalidOfferTime)
		}
	case TimeSingle:
		if t.Times == nil {
			return fmt.Errorf("%w: single time needs a slot", apperr.ErrInvalidOfferTime)
		}
		if t.Times.End.Before(t.Times.Start) {
			return fmt.Errorf("%w: slot ends before it starts", apperr.ErrInvalidOfferTime)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", apperr.ErrInvalidOfferTime, t.Type)
	}
	return nil
}

type LocationType string

const (
	LocationArea      LocationType = "area"
	LocationConnected LocationType = "location"
)

// Location is where an offer takes place: a free area around Coords, or a
// known location referenced by LocationID whose point is copied into Coords.
type Location struct {
	Type       LocationType `json:"type"`
	Coords     *geo.Point   `json:"coords,omitempty"`
	RadiusKm   float64      `json:"radius_km,omitempty"`
	LocationID string       `json:"location_id,omitempty"`
}

func (l Location) Validate() error {
	switch l.Type {
	case LocationArea:
		if l.Coords == nil || !l.Coords.Valid() {
			return fmt.Errorf("%w: area needs valid coordinates", apperr.ErrInvalidOfferLocation)
		}
		if l.RadiusKm < 0 {
			return fmt.Errorf("%w: negative radius", apperr.ErrInvalidOfferLocation)
		}
	case LocationConnected:
		if l.LocationID == "" {
			return fmt.Errorf("%w: location id required", apperr.ErrInvalidOfferLocation)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", apperr.ErrInvalidOfferLocation, l.Type)
	}
	return nil
}

// Blurred is the decoy center published instead of the true location.
type Blurred struct {
	Center   geo.Point `json:"center"`
	RadiusKm float64   `json:"radius_km"`
}

type ParticipantStatus string

const (
	ParticipantHost      ParticipantStatus = "host"
	ParticipantRequested ParticipantStatus = "requested"
	ParticipantAccepted  ParticipantStatus = "accepted"
	ParticipantDeclined  ParticipantStatus = "declined"
	ParticipantWithdrawn ParticipantStatus = "withdrawn"
)

type Participant struct {
	UserID  string            `json:"user_id"`
	Status  ParticipantStatus `json:"status"`
	Message string            `json:"message,omitempty"`
	Date    time.Time         `json:"date"`
}

type Offer struct {
	ID                 string        `json:"id"`
	Activities         []string      `json:"activities"`
	Time               Time          `json:"time"`
	Description        string        `json:"description"`
	Visibility         Visibility    `json:"visibility"`
	VisibilityRadiusKm float64       `json:"visibility_radius_km"`
	Location           *Location     `json:"location,omitempty"`
	Blurred            Blurred       `json:"blurred"`
	Status             Status        `json:"status"`
	CreationDate       time.Time     `json:"creation_date"`
	Host               auth.Profile  `json:"host"`
	Participants       []Participant `json:"participants"`

	Version int64 `json:"-"`
}

type NewOffer struct {
	Activities         []string   `json:"activities" validate:"required,min=1,dive,required"`
	Time               Time       `json:"time"`
	Description        string     `json:"description"`
	Visibility         Visibility `json:"visibility" validate:"omitempty,oneof=public"`
	VisibilityRadiusKm float64    `json:"visibility_radius_km" validate:"gt=0"`
	Location           Location   `json:"location"`
}

// ViewFor returns the offer as userID may see it. The true location is kept for
// the host and accepted participants only; other users see their own entry of
// the participant list and nothing else of it.
func (o Offer) ViewFor(userID string) Offer {
	if o.Host.ID == userID {
		return o
	}
	view := o
	view.Participants = nil
	if p := o.participant(userID); p != nil {
		view.Participants = []Participant{*p}
		if p.Status == ParticipantAccepted {
			return view
		}
	}
	view.Location = nil
	return view
}

func (o *Offer) participant(userID string) *Participant {
	for i := range o.Participants {
		if o.Participants[i].UserID == userID {
			return &o.Participants[i]
		}
	}
	return nil
}

// Event is pushed to users whose participation in an offer changed.
type Event struct {
	Type    string            `json:"type"`
	OfferID string            `json:"offer_id"`
	UserID  string            `json:"user_id"`
	Status  ParticipantStatus `json:"status,omitempty"`
	Date    time.Time         `json:"date"`
}

const (
	EventJoinRequested = "join_requested"
	EventStatusChanged = "participant_status_changed"
	EventWithdrawn     = "participant_withdrawn"
	EventOfferDeleted  = "offer_deleted"
)
