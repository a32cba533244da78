package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the processing state of an enrichment job.
type JobStatus string

const (
	JobStatusPending        JobStatus = "PENDING"
	JobStatusProcessing     JobStatus = "PROCESSING"
	JobStatusCompleted      JobStatus = "COMPLETED"
	JobStatusPartialFailure JobStatus = "PARTIAL_FAILURE"
	JobStatusFailed         JobStatus = "FAILED"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusPartialFailure, JobStatusFailed:
		return true
	}
	return false
}

// Company is one enrichment target: a marketplace listing's firm.
type Company struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

func (c *Company) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("%w: company domain is required", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	return nil
}

// EnrichmentJob groups the companies submitted together for decision-maker
// discovery. Companies are stored inline; contacts land in their own table
// keyed by job id.
type EnrichmentJob struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Status         JobStatus `gorm:"type:varchar(20);not null"`
	Companies      []Company `gorm:"serializer:json;type:jsonb;not null"`
	TotalCompanies int       `gorm:"not null"`
	ContactCount   int       `gorm:"not null;default:0"`
	ErrorDetail    *string   `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contact is a decision maker, mid-level contact, or generic company email
// extracted from search results for a company.
type Contact struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	JobID         string `gorm:"type:uuid;not null"`
	CompanyDomain string `gorm:"type:varchar(255);not null"`
	CompanyName   string `gorm:"type:varchar(255);not null"`
	FirstName     string `gorm:"type:varchar(100)" json:"first_name"`
	LastName      string `gorm:"type:varchar(100)" json:"last_name"`
	Title         string `gorm:"type:varchar(255)" json:"title"`
	LinkedInURL   string `gorm:"type:varchar(500)" json:"linkedin_url"`
	GenericEmail  string `gorm:"type:varchar(255)" json:"generic_email"`
	SourceURL     string `gorm:"type:varchar(500)" json:"source_url"`
	CompanyPhone  string `gorm:"type:varchar(50)" json:"company_phone"`
	CreatedAt     time.Time
}

var disallowedLinkedInSegments = []string{
	"linkedin.com/company/",
	"linkedin.com/posts/",
	"linkedin.com/pub/dir/",
	"linkedin.com/feed/",
	"linkedin.com/jobs/",
	"linkedin.com/school/",
}

// ValidateLinkedInURL returns the URL only when it points at a personal
// LinkedIn profile, otherwise the empty string. Extracted URLs frequently
// point at company pages or posts; those are dropped rather than stored.
func ValidateLinkedInURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.Contains(url, "linkedin.com/in/") {
		return ""
	}
	for _, segment := range disallowedLinkedInSegments {
		if strings.Contains(url, segment) {
			return ""
		}
	}
	return url
}
