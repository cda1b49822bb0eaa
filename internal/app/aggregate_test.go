package app_test

import (
	"testing"

	"bookhub/internal/app"
	"bookhub/internal/domain"
)

func TestAggregate_EmptySnapshot(t *testing.T) {
	got := app.Aggregate(nil)
	if got.Count != 0 || got.Average != 0 {
		t.Fatalf("empty snapshot: %+v", got)
	}
}

func TestAggregate_RoundsToOneDecimal(t *testing.T) {
	snap := []domain.Review{{Rating: 5}, {Rating: 5}, {Rating: 4}}
	got := app.Aggregate(snap)
	if got.Count != 3 || got.Average != 4.7 {
		t.Fatalf("want count=3 average=4.7, got %+v", got)
	}
}

func TestAggregate_SingleReview(t *testing.T) {
	got := app.Aggregate([]domain.Review{{Rating: 3}})
	if got.Count != 1 || got.Average != 3 {
		t.Fatalf("want count=1 average=3, got %+v", got)
	}
}

func TestAggregate_HalfwayRoundsUp(t *testing.T) {
	// 1+2 = 3, mean 1.5: stays 1.5 at one decimal.
	got := app.Aggregate([]domain.Review{{Rating: 1}, {Rating: 2}})
	if got.Average != 1.5 {
		t.Fatalf("want 1.5, got %v", got.Average)
	}
}
