package farmers

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetByPhone(ctx, "+919876543210"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	f := &Farmer{
		Name:           "Ravi",
		Phone:          "+919876543210",
		Location:       "Nashik, Maharashtra",
		ApprovalStatus: ApprovalPending,
	}
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByPhone(ctx, "+919876543210")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Error("pending farmer should not be active")
	}

	if err := repo.SetApproval(ctx, "+919876543210", ApprovalApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ = repo.GetByPhone(ctx, "+919876543210")
	if !got.IsActive || got.ApprovalStatus != ApprovalApproved {
		t.Errorf("expected approved active farmer, got %+v", got)
	}
	if got.WelcomeSent {
		t.Error("welcome should not be sent yet")
	}

	if err := repo.MarkWelcomeSent(ctx, "+919876543210"); err != nil {
		t.Fatalf("mark welcome: %v", err)
	}
	got, _ = repo.GetByPhone(ctx, "+919876543210")
	if !got.WelcomeSent {
		t.Error("expected welcome_sent true")
	}
}

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	_ = repo.Create(ctx, &Farmer{Phone: "+911111111111", Name: "A"})

	got, _ := repo.GetByPhone(ctx, "+911111111111")
	got.Name = "mutated"

	again, _ := repo.GetByPhone(ctx, "+911111111111")
	if again.Name != "A" {
		t.Errorf("repository leaked internal state: %q", again.Name)
	}
}
