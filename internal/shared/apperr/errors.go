// Package apperr defines the error taxonomy shared by every service.
//
// Each failure is a *Error carrying a Kind and a stable Code. Services return
// the sentinels directly or wrap them with fmt.Errorf("%w: ...") to add context;
// callers classify with errors.Is or KindOf.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalid
	KindQuotaExceeded
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NotFound
var (
	ErrLocationDoesNotExist = New(KindNotFound, "LocationDoesNotExist", "location does not exist")
	ErrOfferDoesNotExist    = New(KindNotFound, "OfferDoesNotExist", "offer does not exist")
	ErrReviewDoesNotExist   = New(KindNotFound, "ReviewDoesNotExist", "review does not exist")
	ErrUserDoesNotExist     = New(KindNotFound, "UserDoesNotExist", "user does not exist")
	ErrUpdateDoesNotExist   = New(KindNotFound, "UpdateDoesNotExist", "location update does not exist")
	ErrPhotoDoesNotExist    = New(KindNotFound, "PhotoDoesNotExist", "photo does not exist")
	ErrUploadDoesNotExist   = New(KindNotFound, "UploadDoesNotExist", "upload does not exist")
)

// Conflict
var (
	ErrUserAlreadyExists                = New(KindConflict, "UserAlreadyExists", "email or username already registered")
	ErrInvalidBeforeData                = New(KindConflict, "InvalidBeforeData", "claimed before data does not match the stored location")
	ErrTagExists                        = New(KindConflict, "TagExists", "tag already exists")
	ErrTagDoesNotExist                  = New(KindConflict, "TagDoesNotExist", "tag does not exist")
	ErrUserHasReviewAlready             = New(KindConflict, "UserHasReviewAlready", "user already has a review for that location")
	ErrParticipantStatusUnchanged       = New(KindConflict, "ParticipantStatusUnchanged", "participant already has that status")
	ErrUserAlreadyParticipant           = New(KindConflict, "UserAlreadyParticipant", "user already takes part in the offer")
	ErrOfferNotOpen                     = New(KindConflict, "OfferNotOpen", "offer is not open")
	ErrInvalidParticipantTransition     = New(KindConflict, "InvalidParticipantTransition", "participant status cannot change that way")
	ErrUserHasAlreadyReportedThisReview = New(KindConflict, "UserHasAlreadyReportedThisReview", "user has already reported this review")
	ErrConcurrentModification           = New(KindConflict, "ConcurrentModification", "document was modified concurrently, reload and retry")
)

// Forbidden
var (
	ErrUserDoesNotOwnOffer  = New(KindForbidden, "UserDoesNotOwnOffer", "user does not own offer")
	ErrUserDoesNotOwnReview = New(KindForbidden, "UserDoesNotOwnReview", "user does not own review")
	ErrUserDoesNotOwnPhoto  = New(KindForbidden, "UserDoesNotOwnPhoto", "user does not own photo")
	ErrUserIsNotParticipant = New(KindForbidden, "UserIsNotParticipant", "user is not a participant of the offer")
	ErrUserLowTrust         = New(KindForbidden, "UserLowTrust", "user not trusted enough")
	ErrHostCannotLeaveOffer = New(KindForbidden, "HostCannotLeaveOffer", "host cannot withdraw from own offer")
)

// Invalid
var (
	ErrInvalidUpdateType    = New(KindInvalid, "InvalidUpdateType", "field cannot be updated")
	ErrInvalidHistory       = New(KindInvalid, "InvalidHistory", "malformed location patch")
	ErrInvalidOfferTime     = New(KindInvalid, "InvalidOfferTime", "invalid offer time")
	ErrInvalidOfferLocation = New(KindInvalid, "InvalidOfferLocation", "invalid offer location")
	ErrInvalidSearchWindow  = New(KindInvalid, "InvalidSearchWindow", "invalid search window")
	ErrInvalidInput         = New(KindInvalid, "InvalidInput", "invalid input")
)

// QuotaExceeded
var (
	ErrUserPostedTooManyPhotos            = New(KindQuotaExceeded, "UserPostedTooManyPhotos", "cannot post more photos for this location")
	ErrUserHasTooManyOngoingUpdateReports = New(KindQuotaExceeded, "UserHasTooManyOngoingUpdateReports", "user has too many open update reports")
)

// Unauthenticated
var (
	ErrInvalidCredentials = New(KindUnauthenticated, "InvalidCredentials", "invalid credentials")
	ErrInvalidToken       = New(KindUnauthenticated, "InvalidToken", "token invalid or expired")
)
