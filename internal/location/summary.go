package location

// MaxRecentReviews bounds ReviewSummary.Recent.
const MaxRecentReviews = 5

// ReviewSummary is maintained incrementally as reviews are added, changed and removed.
// Invariants: Count >= 0, Count == 0 implies AverageRating == 0, len(Recent) <= MaxRecentReviews,
// Recent is ordered newest first.
type ReviewSummary struct {
	AverageRating float64  `json:"average_rating"`
	Count         int      `json:"count"`
	Recent        []Review `json:"recent"`
}

func EmptySummary() ReviewSummary {
	return ReviewSummary{Recent: []Review{}}
}

func (s *ReviewSummary) Add(r Review) {
	s.AverageRating = (s.AverageRating*float64(s.Count) + r.OverallRating) / float64(s.Count+1)
	s.Count++

	recent := make([]Review, 0, len(s.Recent)+1)
	recent = append(recent, r)
	recent = append(recent, s.Recent...)
	if len(recent) > MaxRecentReviews {
		recent = recent[:MaxRecentReviews]
	}
	s.Recent = recent
}

// Remove drops r from the aggregate. A removed entry of Recent is not backfilled
// from older reviews; Recent refills as new reviews arrive.
func (s *ReviewSummary) Remove(r Review) {
	switch {
	case s.Count <= 1:
		s.AverageRating = 0
		s.Count = 0
	default:
		s.AverageRating = (s.AverageRating*float64(s.Count) - r.OverallRating) / float64(s.Count-1)
		s.Count--
	}

	for i := range s.Recent {
		if s.Recent[i].ID == r.ID {
			s.Recent = append(s.Recent[:i:i], s.Recent[i+1:]...)
			break
		}
	}
}

// Update replaces old with updated. The count is unchanged; the entry in Recent,
// if present, is replaced in place.
func (s *ReviewSummary) Update(old, updated Review) {
	if s.Count == 0 {
		return
	}
	s.AverageRating = (s.AverageRating*float64(s.Count) + updated.OverallRating - old.OverallRating) / float64(s.Count)

	for i := range s.Recent {
		if s.Recent[i].ID == old.ID {
			s.Recent[i] = updated
			break
		}
	}
}

func (s ReviewSummary) clone() ReviewSummary {
	out := s
	out.Recent = append([]Review(nil), s.Recent...)
	if out.Recent == nil {
		out.Recent = []Review{}
	}
	return out
}
