package farmers

import (
	"time"

	"github.com/google/uuid"
)

// Approval lifecycle for self-registered farmers.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Farmer is a registered produce seller, keyed by canonical phone.
type Farmer struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Village        string
	District       string
	Location       string
	ApprovalStatus string
	IsActive       bool
	WelcomeSent    bool
	CreatedAt      time.Time
}
