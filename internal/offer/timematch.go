package offer

import (
	"errors"
	"fmt"
	"time"

	"backend-meetspot/internal/shared/apperr"
)

// ErrUnsupportedTimeCombination signals a pair of time descriptors Match has no rule for.
var ErrUnsupportedTimeCombination = errors.New("offer: unsupported time combination")

// Match reports whether two time descriptors overlap. Flexible matches anything;
// two single slots match when the closed intervals intersect.
func Match(a, b Time) (bool, error) {
	if a.Type == TimeFlexible || b.Type == TimeFlexible {
		return true, nil
	}
	if a.Type == TimeSingle && b.Type == TimeSingle && a.Times != nil && b.Times != nil {
		s1, e1 := a.Times.Start, a.Times.End
		s2, e2 := b.Times.Start, b.Times.End
		return between(s1, s2, e1) || between(s2, s1, e2), nil
	}
	return false, fmt.Errorf("%w: %q and %q", ErrUnsupportedTimeCombination, a.Type, b.Type)
}

// between reports lo <= t <= hi.
func between(lo, t, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// SearchWindow builds the requester side time descriptor from optional bounds.
// No bounds means flexible; a missing start is now and a missing end is now+horizon.
// Starts further back than lookback are rejected.
func SearchWindow(from, until *time.Time, now time.Time, lookback, horizon time.Duration) (Time, error) {
	if from == nil && until == nil {
		return Flexible(), nil
	}

	start := now
	if from != nil {
		if from.Before(now.Add(-lookback)) {
			return Time{}, fmt.Errorf("%w: from lies too far in the past", apperr.ErrInvalidSearchWindow)
		}
		start = *from
	}

	end := now.Add(horizon)
	if until != nil {
		if until.Before(start) {
			return Time{}, fmt.Errorf("%w: until before from", apperr.ErrInvalidSearchWindow)
		}
		end = *until
	}
	return Single(start, end), nil
}
