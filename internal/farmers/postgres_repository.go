package farmers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores farmers in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("farmers: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Farmer, error) {
	query := `
		SELECT id, name, phone, village, district, location,
			approval_status, is_active, welcome_sent, created_at
		FROM farmers
		WHERE phone = $1
	`
	var f Farmer
	if err := r.pool.QueryRow(ctx, query, phone).Scan(
		&f.ID, &f.Name, &f.Phone, &f.Village, &f.District, &f.Location,
		&f.ApprovalStatus, &f.IsActive, &f.WelcomeSent, &f.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("farmers: get by phone: %w", err)
	}
	return &f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, f *Farmer) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.ApprovalStatus == "" {
		f.ApprovalStatus = ApprovalPending
	}
	query := `
		INSERT INTO farmers (id, name, phone, village, district, location, approval_status, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		f.ID, f.Name, f.Phone, f.Village, f.District, f.Location, f.ApprovalStatus, f.IsActive,
	).Scan(&f.CreatedAt); err != nil {
		return fmt.Errorf("farmers: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetApproval(ctx context.Context, phone, status string) error {
	query := `
		UPDATE farmers
		SET approval_status = $2,
			is_active = ($2 = 'approved'),
			updated_at = now()
		WHERE phone = $1
	`
	ct, err := r.pool.Exec(ctx, query, phone, status)
	if err != nil {
		return fmt.Errorf("farmers: set approval: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkWelcomeSent(ctx context.Context, phone string) error {
	query := `
		UPDATE farmers
		SET welcome_sent = TRUE,
			updated_at = now()
		WHERE phone = $1
	`
	if _, err := r.pool.Exec(ctx, query, phone); err != nil {
		return fmt.Errorf("farmers: mark welcome sent: %w", err)
	}
	return nil
}
