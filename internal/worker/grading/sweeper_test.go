package gradingworker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-platform/internal/grading"
	"github.com/agrilink/agrilink-platform/internal/listing"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []listing.Listing
	updated map[uuid.UUID]struct {
		grade  string
		score  int
		failed bool
	}
}

func (s *fakeStore) ListPendingQuality(_ context.Context, _ int, _ time.Duration) ([]listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *fakeStore) UpdateQuality(_ context.Context, id uuid.UUID, grade string, score int, failed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated == nil {
		s.updated = map[uuid.UUID]struct {
			grade  string
			score  int
			failed bool
		}{}
	}
	s.updated[id] = struct {
		grade  string
		score  int
		failed bool
	}{grade, score, failed}
	return nil
}

type fakeGrader struct {
	res grading.Result
	err error
}

func (g *fakeGrader) Configured() bool { return true }

func (g *fakeGrader) Grade(context.Context, string, string) (grading.Result, error) {
	return g.res, g.err
}

func TestSweepGradesStaleListings(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{pending: []listing.Listing{{
		ID: id, ProductName: "Tomato", ImageURL: "/uploads/a.jpg",
	}}}
	sweeper := NewSweeper(store, &fakeGrader{res: grading.Result{Grade: "Grade A", Score: 88}},
		"https://agrilink.example.com", logging.Default())

	sweeper.sweep(context.Background())

	got := store.updated[id]
	if got.grade != "Grade A" || got.score != 88 || got.failed {
		t.Errorf("updated = %+v", got)
	}
}

func TestSweepAppliesFallbackOnGradingError(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{pending: []listing.Listing{
		{ID: id, ProductName: "Onion", ImageURL: "/uploads/b.jpg"},
	}}
	sweeper := NewSweeper(store, &fakeGrader{err: errors.New("service down")},
		"https://agrilink.example.com", logging.Default()).WithFallback("Grade C", 60)

	sweeper.sweep(context.Background())

	if got := store.updated[id]; got.grade != "Grade C" || got.score != 60 || !got.failed {
		t.Errorf("error case = %+v", got)
	}
}

func TestSweepMarksImagelessListingsUngraded(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{pending: []listing.Listing{
		{ID: id, ProductName: "Potato"},
	}}
	sweeper := NewSweeper(store, &fakeGrader{res: grading.Result{Grade: "Grade A", Score: 90}},
		"https://agrilink.example.com", logging.Default()).WithFallback("Grade C", 60)

	sweeper.sweep(context.Background())

	got := store.updated[id]
	if got.grade != listing.GradeUngraded || got.score != 0 || got.failed {
		t.Errorf("nothing to grade must not produce a fabricated grade: %+v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	sweeper := NewSweeper(store, nil, "", logging.Default()).WithInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
