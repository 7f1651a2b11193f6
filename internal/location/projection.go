package location

import "slices"

// ShortFrom derives the short projection from a detailed document.
// Stores never build a Short any other way.
func ShortFrom(d Detailed) Short {
	var name *string
	if d.Name != nil {
		n := *d.Name
		name = &n
	}
	return Short{
		ID:            d.ID,
		ActivityTypes: slices.Clone(d.ActivityTypes),
		Location:      d.Location,
		Name:          name,
		TrustScore:    d.TrustScore,
		AverageRating: d.Reviews.AverageRating,
	}
}
