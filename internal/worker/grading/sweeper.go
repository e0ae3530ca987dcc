package gradingworker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/agrilink-platform/internal/grading"
	"github.com/agrilink/agrilink-platform/internal/listing"
	"github.com/agrilink/agrilink-platform/internal/media"
	"github.com/agrilink/agrilink-platform/internal/observability/metrics"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

type pendingStore interface {
	ListPendingQuality(ctx context.Context, limit int, maxAge time.Duration) ([]listing.Listing, error)
	UpdateQuality(ctx context.Context, id uuid.UUID, grade string, score int, gradingFailed bool) error
}

type grader interface {
	Configured() bool
	Grade(ctx context.Context, imageURL, productName string) (grading.Result, error)
}

// Sweeper resolves listings whose grade stayed pending, typically because the
// process restarted before the in-request background task ran. Anything older
// than maxAge is graded again, marked ungraded when there is nothing to
// grade, or given the fallback grade on failure, so no listing is pending
// forever.
type Sweeper struct {
	store         pendingStore
	grader        grader
	logger        *logging.Logger
	metrics       *metrics.MessagingMetrics
	mediaBase     string
	fallbackGrade string
	fallbackScore int
	interval      time.Duration
	maxAge        time.Duration
	batchSize     int
}

func NewSweeper(store pendingStore, g grader, mediaBase string, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		store:         store,
		grader:        g,
		logger:        logger,
		mediaBase:     mediaBase,
		fallbackGrade: "Grade B",
		fallbackScore: 75,
		interval:      5 * time.Minute,
		maxAge:        10 * time.Minute,
		batchSize:     25,
	}
}

func (s *Sweeper) WithFallback(grade string, score int) *Sweeper {
	if grade != "" {
		s.fallbackGrade = grade
		s.fallbackScore = score
	}
	return s
}

func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Sweeper) WithMaxAge(d time.Duration) *Sweeper {
	if d > 0 {
		s.maxAge = d
	}
	return s
}

func (s *Sweeper) WithMetrics(m *metrics.MessagingMetrics) *Sweeper {
	s.metrics = m
	return s
}

func (s *Sweeper) WithBatchSize(n int) *Sweeper {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.store == nil {
		return
	}
	pending, err := s.store.ListPendingQuality(ctx, s.batchSize, s.maxAge)
	if err != nil {
		s.logger.Error("pending grade fetch failed", "error", err)
		return
	}
	for _, rec := range pending {
		grade, score, failed := s.resolve(ctx, rec)
		if err := s.store.UpdateQuality(ctx, rec.ID, grade, score, failed); err != nil {
			s.logger.Error("quality update failed", "error", err, "listing_id", rec.ID)
			continue
		}
		s.logger.Info("stale pending grade resolved",
			"listing_id", rec.ID, "product", rec.ProductName, "grade", grade)
	}
}

// resolve decides a stale listing's grade. Listings with nothing to grade
// (no photo, or no grading service) are marked ungraded rather than given a
// fabricated grade; the fallback is reserved for actual grading failures.
func (s *Sweeper) resolve(ctx context.Context, rec listing.Listing) (string, int, bool) {
	if rec.ImageURL == "" || s.grader == nil || !s.grader.Configured() {
		s.metrics.ObserveGrading("swept_ungraded")
		return listing.GradeUngraded, 0, false
	}
	res, err := s.grader.Grade(ctx, media.AbsoluteURL(s.mediaBase, rec.ImageURL), rec.ProductName)
	if err != nil {
		s.logger.Warn("sweep grading failed; applying fallback",
			"error", err, "listing_id", rec.ID)
		s.metrics.ObserveGrading("swept_fallback")
		return s.fallbackGrade, s.fallbackScore, true
	}
	s.metrics.ObserveGrading("swept_graded")
	return res.Grade, res.Score, false
}
