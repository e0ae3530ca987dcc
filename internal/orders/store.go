package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agrilink/agrilink-platform/internal/listing"
)

// Order statuses. Product status mirrors these so buyers browsing the
// marketplace never see stock that is already spoken for.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusDispatched = "dispatched"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Order is a buyer's claim on one listing.
type Order struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	BuyerName  string
	BuyerPhone string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type beginQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists orders and keeps the mirrored product status in step inside
// one transaction.
type Store struct {
	pool     beginQuerier
	listings *listing.Store
}

func NewStore(pool beginQuerier, listings *listing.Store) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool, listings: listings}
}

// Create places an order against a listing: the order row is inserted and the
// product records the buyer snapshot and flips to ordered, atomically.
func (s *Store) Create(ctx context.Context, productID uuid.UUID, buyerName, buyerPhone string) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("orders: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	order := &Order{
		ID:         uuid.New(),
		ProductID:  productID,
		BuyerName:  buyerName,
		BuyerPhone: buyerPhone,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	query := `
		INSERT INTO orders (id, product_id, buyer_name, buyer_phone, status)
		VALUES ($1,$2,$3,$4,$5)
	`
	if _, err := tx.Exec(ctx, query, order.ID, order.ProductID, order.BuyerName, order.BuyerPhone, order.Status); err != nil {
		return nil, fmt.Errorf("orders: insert: %w", err)
	}
	if err := s.listings.SetBuyer(ctx, tx, productID, buyerName, buyerPhone, order.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("orders: commit: %w", err)
	}
	return order, nil
}

// UpdateStatus moves an order through its lifecycle and mirrors the new state
// onto the product in the same transaction.
func (s *Store) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	productStatus, ok := productStatusFor(status)
	if !ok {
		return fmt.Errorf("orders: unknown status %q", status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("orders: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING product_id
	`
	var productID uuid.UUID
	if err := tx.QueryRow(ctx, query, orderID, status).Scan(&productID); err != nil {
		return fmt.Errorf("orders: update status: %w", err)
	}
	if err := s.listings.UpdateStatus(ctx, tx, productID, productStatus); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("orders: commit: %w", err)
	}
	return nil
}

// GetByID fetches one order.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, product_id, buyer_name, buyer_phone, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	var o Order
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.ProductID, &o.BuyerName, &o.BuyerPhone, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("orders: get by id: %w", err)
	}
	return &o, nil
}

// productStatusFor maps an order status to the product status buyers see.
// A rejected or still-pending order leaves the listing available.
func productStatusFor(orderStatus string) (string, bool) {
	switch orderStatus {
	case StatusPending:
		return listing.StatusAvailable, true
	case StatusAccepted, StatusDispatched:
		return listing.StatusOrdered, true
	case StatusDelivered:
		return listing.StatusDelivered, true
	case StatusCancelled:
		return listing.StatusCancelled, true
	default:
		return "", false
	}
}
