package listing

import (
	"time"

	"github.com/google/uuid"
)

// Listing status lifecycle.
const (
	StatusAvailable = "available"
	StatusOrdered   = "ordered"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Quality grades. GradePending is the initial state until grading resolves.
// GradeUngraded marks listings that cannot be graded at all (no photo, or no
// grading service configured); the fallback grade is reserved for listings
// whose grading genuinely failed.
const (
	GradePending  = "pending"
	GradeUngraded = "ungraded"
	GradeA        = "Grade A"
	GradeB        = "Grade B"
	GradeC        = "Grade C"
)

// Listing is a marketplace product entry created from an inbound WhatsApp
// message. Farmer identity is denormalized at listing time so later farmer
// edits do not rewrite history.
type Listing struct {
	ID             uuid.UUID
	FarmerPhone    string
	FarmerName     string
	FarmerLocation string
	ProductName    string
	Quantity       string
	ImageURL       string
	Status         string
	QualityGrade   string
	QualityScore   int
	GradingFailed  bool
	BuyerName      string
	BuyerPhone     string
	OrderedAt      *time.Time
	CreatedAt      time.Time
}
