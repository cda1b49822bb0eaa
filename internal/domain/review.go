package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5

	MinReviewLen = 10
	MaxReviewLen = 500
)

// Review is one reader review as stored in the review collection. CreatedAt
// is assigned by the backend at write time; a zero value means the server
// timestamp has not been observed yet.
type Review struct {
	ID         string    `json:"id"`
	BookID     string    `json:"bookId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AggregateStats is derived from a snapshot, never stored. Average is the
// mean rating rounded to one decimal place, 0 when Count is 0.
type AggregateStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}
