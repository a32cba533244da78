package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a delivery attempt.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Category tags the business event behind an outbound notification.
type Category string

const (
	CategoryWelcome        Category = "WELCOME"
	CategoryListingInquiry Category = "LISTING_INQUIRY"
	CategoryAgreement      Category = "AGREEMENT"
	CategoryDealAlert      Category = "DEAL_ALERT"
	CategoryDigest         Category = "DIGEST"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryWelcome, CategoryListingInquiry, CategoryAgreement, CategoryDealAlert, CategoryDigest:
		return true
	}
	return false
}

func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// DispatchRequest is the normalized inbound payload for one notification.
type DispatchRequest struct {
	Recipient     string
	Subject       string
	HTMLContent   string
	TextContent   string
	Category      Category
	CorrelationID string

	// BestEffort requests must never block the upstream business flow:
	// exhaustion is reported as a warning instead of a hard error.
	BestEffort bool
}

func (r *DispatchRequest) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(r.HTMLContent) == "" && strings.TrimSpace(r.TextContent) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, r.Category)
	}
	return nil
}

// DeliveryAttempt is one row of the durable delivery log: a single logical
// notification request, recorded at request granularity regardless of how
// many providers were tried. Rows are never deleted.
//
// Invariants:
//   - ErrorDetail is non-nil iff Status is FAILED.
//   - DeliveredAt is non-nil iff Status is DELIVERED.
//   - At most one row per correlation id reaches DELIVERED (partial unique
//     index); concurrent duplicates may race past the pre-send check, the
//     index keeps the log itself consistent.
type DeliveryAttempt struct {
	ID                string   `gorm:"type:uuid;primaryKey"`
	Recipient         string   `gorm:"type:varchar(255);not null"`
	Subject           string   `gorm:"type:varchar(998);not null"`
	Category          Category `gorm:"type:varchar(20);not null"`
	Status            Status   `gorm:"type:varchar(10);not null"`
	CorrelationID     string   `gorm:"type:varchar(255);not null"`
	Provider          *string  `gorm:"type:varchar(50)"`
	ProviderMessageID *string  `gorm:"type:varchar(255)"`
	AttemptCount      int      `gorm:"not null;default:0"`
	ErrorDetail       *string  `gorm:"type:text"`
	CreatedAt         time.Time
	DeliveredAt       *time.Time
}
