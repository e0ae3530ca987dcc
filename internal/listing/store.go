package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by a pgx pool or transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists listings in Postgres.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// Insert saves a new listing and returns its generated id.
func (s *Store) Insert(ctx context.Context, q Querier, rec Listing) (uuid.UUID, error) {
	if q == nil {
		q = s.pool
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusAvailable
	}
	if rec.QualityGrade == "" {
		rec.QualityGrade = GradePending
	}
	query := `
		INSERT INTO products (
			id, farmer_phone, farmer_name, farmer_location,
			product_name, quantity, image_url, status,
			quality_grade, quality_score
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`
	var id uuid.UUID
	if err := q.QueryRow(ctx, query,
		rec.ID, rec.FarmerPhone, rec.FarmerName, rec.FarmerLocation,
		rec.ProductName, rec.Quantity, rec.ImageURL, rec.Status,
		rec.QualityGrade, rec.QualityScore,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("listing: insert: %w", err)
	}
	return id, nil
}

// UpdateQuality patches the grade and score once grading resolves. gradingFailed
// marks listings whose grade is the configured fallback rather than a real result.
func (s *Store) UpdateQuality(ctx context.Context, id uuid.UUID, grade string, score int, gradingFailed bool) error {
	query := `
		UPDATE products
		SET quality_grade = $2,
			quality_score = $3,
			grading_failed = $4,
			updated_at = now()
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, query, id, grade, score, gradingFailed); err != nil {
		return fmt.Errorf("listing: update quality: %w", err)
	}
	return nil
}

// UpdateStatus moves a listing through its lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status string) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE products
		SET status = $2,
			updated_at = now()
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, id, status); err != nil {
		return fmt.Errorf("listing: update status: %w", err)
	}
	return nil
}

// SetBuyer records the buyer snapshot when an order is placed.
func (s *Store) SetBuyer(ctx context.Context, q Querier, id uuid.UUID, buyerName, buyerPhone string, orderedAt time.Time) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE products
		SET buyer_name = $2,
			buyer_phone = $3,
			ordered_at = $4,
			status = $5,
			updated_at = now()
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, id, buyerName, buyerPhone, orderedAt, StatusOrdered); err != nil {
		return fmt.Errorf("listing: set buyer: %w", err)
	}
	return nil
}

// GetByID fetches a single listing.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	query := `
		SELECT id, farmer_phone, farmer_name, farmer_location,
			product_name, quantity, image_url, status,
			quality_grade, quality_score, grading_failed, created_at
		FROM products
		WHERE id = $1
	`
	var rec Listing
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.FarmerPhone, &rec.FarmerName, &rec.FarmerLocation,
		&rec.ProductName, &rec.Quantity, &rec.ImageURL, &rec.Status,
		&rec.QualityGrade, &rec.QualityScore, &rec.GradingFailed, &rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("listing: get by id: %w", err)
	}
	return &rec, nil
}

// ListPendingQuality returns listings whose grade is still pending and older
// than maxAge. The sweeper uses this to resolve grades the in-request
// background task never finished.
func (s *Store) ListPendingQuality(ctx context.Context, limit int, maxAge time.Duration) ([]Listing, error) {
	query := `
		SELECT id, farmer_phone, product_name, quantity, image_url, created_at
		FROM products
		WHERE quality_grade = $1
			AND created_at <= $2
		ORDER BY created_at
		LIMIT $3
	`
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.pool.Query(ctx, query, GradePending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing: list pending quality: %w", err)
	}
	defer rows.Close()
	var out []Listing
	for rows.Next() {
		var rec Listing
		if err := rows.Scan(&rec.ID, &rec.FarmerPhone, &rec.ProductName, &rec.Quantity, &rec.ImageURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("listing: scan pending listing: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
