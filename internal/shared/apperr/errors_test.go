package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("%w: tag %q", ErrTagExists, "sport")

	assert.ErrorIs(t, err, ErrTagExists)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "TagExists", CodeOf(err))
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Empty(t, CodeOf(err))
}

func TestTaxonomy(t *testing.T) {
	cases := map[*Error]Kind{
		ErrLocationDoesNotExist:               KindNotFound,
		ErrInvalidBeforeData:                  KindConflict,
		ErrParticipantStatusUnchanged:         KindConflict,
		ErrUserDoesNotOwnOffer:                KindForbidden,
		ErrUserIsNotParticipant:               KindForbidden,
		ErrInvalidUpdateType:                  KindInvalid,
		ErrInvalidHistory:                     KindInvalid,
		ErrUserPostedTooManyPhotos:            KindQuotaExceeded,
		ErrUserHasTooManyOngoingUpdateReports: KindQuotaExceeded,
		ErrUserAlreadyExists:                  KindConflict,
		ErrInvalidCredentials:                 KindUnauthenticated,
		ErrInvalidToken:                       KindUnauthenticated,
	}
	for e, kind := range cases {
		assert.Equal(t, kind, e.Kind, e.Code)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unauthenticated", KindUnauthenticated.String())
	assert.Equal(t, "internal", KindInternal.String())
}
