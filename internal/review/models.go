package review

import (
	"time"

	"backend-meetspot/internal/location"
)

// Input is the user supplied part of a review.
type Input struct {
	Description   location.ReviewDescription `json:"description"`
	OverallRating float64                    `json:"overall_rating" validate:"gte=0,lte=5"`
	Details       map[string]any             `json:"details"`
}

type Page struct {
	Reviews    []location.Review `json:"reviews"`
	NextOffset *int              `json:"next_offset"`
}

type Report struct {
	ID       string    `json:"id"`
	ReviewID string    `json:"review_id"`
	UserID   string    `json:"user_id"`
	Reason   string    `json:"reason"`
	Date     time.Time `json:"date"`
}
