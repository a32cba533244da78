package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
)

// EnrichmentService accepts and reads back decision-maker enrichment jobs.
type EnrichmentService interface {
	SubmitJob(ctx context.Context, companies []domain.Company, correlationID string) (*domain.EnrichmentJob, error)
	GetJob(ctx context.Context, id string) (*domain.EnrichmentJob, error)
	ListContacts(ctx context.Context, jobID string) ([]domain.Contact, error)
}

type EnrichmentHandler struct {
	service EnrichmentService
}

func NewEnrichmentHandler(service EnrichmentService) (*EnrichmentHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("enrichment service is required")
	}
	return &EnrichmentHandler{service: service}, nil
}

func RegisterEnrichmentRoutes(router fiber.Router, service EnrichmentService) error {
	h, err := NewEnrichmentHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/enrichment/jobs", h.SubmitJob)
	v1.Get("/enrichment/jobs/:id", h.GetJob)
	v1.Get("/enrichment/jobs/:id/contacts", h.ListContacts)

	return nil
}

type submitJobRequest struct {
	Companies []companyPayload `json:"companies"`
}

type companyPayload struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

type jobResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	TotalCompanies int       `json:"totalCompanies"`
	ContactCount   int       `json:"contactCount"`
	ErrorDetail    *string   `json:"errorDetail,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type contactResponse struct {
	ID            string `json:"id"`
	CompanyDomain string `json:"companyDomain"`
	CompanyName   string `json:"companyName"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Title         string `json:"title"`
	LinkedInURL   string `json:"linkedinUrl,omitempty"`
	GenericEmail  string `json:"genericEmail,omitempty"`
	SourceURL     string `json:"sourceUrl,omitempty"`
	CompanyPhone  string `json:"companyPhone,omitempty"`
}

type listContactsResponse struct {
	JobID string            `json:"jobId"`
	Data  []contactResponse `json:"data"`
}

func (h *EnrichmentHandler) SubmitJob(c *fiber.Ctx) error {
	var req submitJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	companies := make([]domain.Company, 0, len(req.Companies))
	for _, item := range req.Companies {
		companies = append(companies, domain.Company{
			Domain: strings.TrimSpace(item.Domain),
			Name:   strings.TrimSpace(item.Name),
		})
	}

	job, err := h.service.SubmitJob(c.Context(), companies, requestCorrelationID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(job))
}

func (h *EnrichmentHandler) GetJob(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	job, err := h.service.GetJob(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toJobResponse(job))
}

func (h *EnrichmentHandler) ListContacts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	contacts, err := h.service.ListContacts(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]contactResponse, 0, len(contacts))
	for _, contact := range contacts {
		responses = append(responses, contactResponse{
			ID:            contact.ID,
			CompanyDomain: contact.CompanyDomain,
			CompanyName:   contact.CompanyName,
			FirstName:     contact.FirstName,
			LastName:      contact.LastName,
			Title:         contact.Title,
			LinkedInURL:   contact.LinkedInURL,
			GenericEmail:  contact.GenericEmail,
			SourceURL:     contact.SourceURL,
			CompanyPhone:  contact.CompanyPhone,
		})
	}

	return c.Status(fiber.StatusOK).JSON(listContactsResponse{
		JobID: id,
		Data:  responses,
	})
}

func toJobResponse(job *domain.EnrichmentJob) jobResponse {
	if job == nil {
		return jobResponse{}
	}

	return jobResponse{
		ID:             job.ID,
		Status:         job.Status.String(),
		TotalCompanies: job.TotalCompanies,
		ContactCount:   job.ContactCount,
		ErrorDetail:    job.ErrorDetail,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}
