package repository

import (
	"time"

	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

// DeliveryAttemptModel is the persistence model for the delivery_attempts
// table, the durable audit log behind the idempotency guard.
type DeliveryAttemptModel struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	Recipient         string          `gorm:"type:varchar(255);not null"`
	Subject           string          `gorm:"type:varchar(998);not null"`
	Category          domain.Category `gorm:"type:varchar(20);not null"`
	Status            domain.Status   `gorm:"type:varchar(10);not null"`
	CorrelationID     string          `gorm:"type:varchar(255);not null"`
	Provider          *string         `gorm:"type:varchar(50)"`
	ProviderMessageID *string         `gorm:"type:varchar(255)"`
	AttemptCount      int             `gorm:"not null;default:0"`
	ErrorDetail       *string         `gorm:"type:text"`
	CreatedAt         time.Time
	DeliveredAt       *time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// EnrichmentJobModel is the persistence model for enrichment_jobs.
type EnrichmentJobModel struct {
	ID             string           `gorm:"type:uuid;primaryKey"`
	Status         domain.JobStatus `gorm:"type:varchar(20);not null"`
	Companies      []domain.Company `gorm:"serializer:json;type:jsonb;not null"`
	TotalCompanies int              `gorm:"not null"`
	ContactCount   int              `gorm:"not null;default:0"`
	ErrorDetail    *string          `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (EnrichmentJobModel) TableName() string {
	return "enrichment_jobs"
}

// ContactModel is the persistence model for contacts.
type ContactModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	JobID         string `gorm:"type:uuid;not null"`
	CompanyDomain string `gorm:"type:varchar(255);not null"`
	CompanyName   string `gorm:"type:varchar(255);not null"`
	FirstName     string `gorm:"type:varchar(100)"`
	LastName      string `gorm:"type:varchar(100)"`
	Title         string `gorm:"type:varchar(255)"`
	LinkedInURL   string `gorm:"type:varchar(500)"`
	GenericEmail  string `gorm:"type:varchar(255)"`
	SourceURL     string `gorm:"type:varchar(500)"`
	CompanyPhone  string `gorm:"type:varchar(50)"`
	CreatedAt     time.Time
}

func (ContactModel) TableName() string {
	return "contacts"
}

func deliveryModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:                a.ID,
		Recipient:         a.Recipient,
		Subject:           a.Subject,
		Category:          a.Category,
		Status:            a.Status,
		CorrelationID:     a.CorrelationID,
		Provider:          a.Provider,
		ProviderMessageID: a.ProviderMessageID,
		AttemptCount:      a.AttemptCount,
		ErrorDetail:       a.ErrorDetail,
		CreatedAt:         a.CreatedAt,
		DeliveredAt:       a.DeliveredAt,
	}
}

func deliveryModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:                m.ID,
		Recipient:         m.Recipient,
		Subject:           m.Subject,
		Category:          m.Category,
		Status:            m.Status,
		CorrelationID:     m.CorrelationID,
		Provider:          m.Provider,
		ProviderMessageID: m.ProviderMessageID,
		AttemptCount:      m.AttemptCount,
		ErrorDetail:       m.ErrorDetail,
		CreatedAt:         m.CreatedAt,
		DeliveredAt:       m.DeliveredAt,
	}
}

func jobModelFromDomain(j *domain.EnrichmentJob) *EnrichmentJobModel {
	if j == nil {
		return nil
	}

	return &EnrichmentJobModel{
		ID:             j.ID,
		Status:         j.Status,
		Companies:      j.Companies,
		TotalCompanies: j.TotalCompanies,
		ContactCount:   j.ContactCount,
		ErrorDetail:    j.ErrorDetail,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

func jobModelToDomain(m *EnrichmentJobModel) *domain.EnrichmentJob {
	if m == nil {
		return nil
	}

	return &domain.EnrichmentJob{
		ID:             m.ID,
		Status:         m.Status,
		Companies:      m.Companies,
		TotalCompanies: m.TotalCompanies,
		ContactCount:   m.ContactCount,
		ErrorDetail:    m.ErrorDetail,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func contactModelFromDomain(c *domain.Contact) *ContactModel {
	if c == nil {
		return nil
	}

	return &ContactModel{
		ID:            c.ID,
		JobID:         c.JobID,
		CompanyDomain: c.CompanyDomain,
		CompanyName:   c.CompanyName,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Title:         c.Title,
		LinkedInURL:   c.LinkedInURL,
		GenericEmail:  c.GenericEmail,
		SourceURL:     c.SourceURL,
		CompanyPhone:  c.CompanyPhone,
		CreatedAt:     c.CreatedAt,
	}
}

func contactModelToDomain(m *ContactModel) *domain.Contact {
	if m == nil {
		return nil
	}

	return &domain.Contact{
		ID:            m.ID,
		JobID:         m.JobID,
		CompanyDomain: m.CompanyDomain,
		CompanyName:   m.CompanyName,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Title:         m.Title,
		LinkedInURL:   m.LinkedInURL,
		GenericEmail:  m.GenericEmail,
		SourceURL:     m.SourceURL,
		CompanyPhone:  m.CompanyPhone,
		CreatedAt:     m.CreatedAt,
	}
}
