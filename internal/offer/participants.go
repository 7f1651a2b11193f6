package offer

import (
	"time"

	"backend-meetspot/internal/shared/apperr"
)

// RequestJoin adds userID as a requested participant.
func (o *Offer) RequestJoin(userID, message string, at time.Time) error {
	if o.participant(userID) != nil {
		return apperr.ErrUserAlreadyParticipant
	}
	if o.Status != StatusOpen {
		return apperr.ErrOfferNotOpen
	}
	o.Participants = append(o.Participants, Participant{
		UserID:  userID,
		Status:  ParticipantRequested,
		Message: message,
		Date:    at,
	})
	return nil
}

// SetParticipantStatus lets the host accept or decline a pending request.
func (o *Offer) SetParticipantStatus(actorID, targetID string, status ParticipantStatus) error {
	if actorID != o.Host.ID {
		return apperr.ErrUserDoesNotOwnOffer
	}
	p := o.participant(targetID)
	if p == nil {
		return apperr.ErrUserIsNotParticipant
	}
	if p.Status == status {
		return apperr.ErrParticipantStatusUnchanged
	}
	if p.Status != ParticipantRequested || (status != ParticipantAccepted && status != ParticipantDeclined) {
		return apperr.ErrInvalidParticipantTransition
	}
	p.Status = status
	return nil
}

// Withdraw removes a pending or accepted participant from the offer.
func (o *Offer) Withdraw(userID string) error {
	p := o.participant(userID)
	if p == nil {
		return apperr.ErrUserIsNotParticipant
	}
	switch p.Status {
	case ParticipantHost:
		return apperr.ErrHostCannotLeaveOffer
	case ParticipantWithdrawn:
		return apperr.ErrParticipantStatusUnchanged
	case ParticipantRequested, ParticipantAccepted:
		p.Status = ParticipantWithdrawn
		return nil
	default:
		return apperr.ErrInvalidParticipantTransition
	}
}
