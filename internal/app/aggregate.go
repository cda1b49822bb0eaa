package app

import (
	"math"

	"bookhub/internal/domain"
)

// Aggregate derives count and mean rating from a snapshot. Pure; recomputed
// on every delivery and never stored.
func Aggregate(snapshot []domain.Review) domain.AggregateStats {
	n := len(snapshot)
	if n == 0 {
		return domain.AggregateStats{}
	}
	sum := 0
	for _, r := range snapshot {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return domain.AggregateStats{Count: n, Average: avg}
}
