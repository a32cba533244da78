package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/dispatch"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/domain"
	"github.com/sourcecodeals/market-nexus-dispatch/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// DispatchService runs one notification through the provider chain.
type DispatchService interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (*dispatch.Result, error)
}

// DeliveryLog is the read side of the delivery audit trail.
type DeliveryLog interface {
	GetByID(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.DeliveryAttempt, int64, error)
}

type DispatchHandler struct {
	dispatcher DispatchService
	deliveries DeliveryLog
}

func NewDispatchHandler(dispatcher DispatchService, deliveries DeliveryLog) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery log is required")
	}
	return &DispatchHandler{dispatcher: dispatcher, deliveries: deliveries}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher DispatchService, deliveries DeliveryLog) error {
	h, err := NewDispatchHandler(dispatcher, deliveries)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.DispatchNotification)
	v1.Get("/deliveries/:id", h.GetDelivery)
	v1.Get("/deliveries", h.ListDeliveries)

	return nil
}

type dispatchRequest struct {
	Recipient     string `json:"recipient"`
	Subject       string `json:"subject"`
	HTMLContent   string `json:"htmlContent"`
	TextContent   string `json:"textContent"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlationId"`
	BestEffort    bool   `json:"bestEffort"`
}

type dispatchResponse struct {
	DeliveryID        string `json:"deliveryId"`
	Status            string `json:"status"`
	Provider          string `json:"provider,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	Idempotent        bool   `json:"idempotent,omitempty"`
	Warning           string `json:"warning,omitempty"`
}

type deliveryResponse struct {
	ID                string     `json:"id"`
	Recipient         string     `json:"recipient"`
	Subject           string     `json:"subject"`
	Category          string     `json:"category"`
	Status            string     `json:"status"`
	CorrelationID     string     `json:"correlationId"`
	Provider          *string    `json:"provider,omitempty"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	AttemptCount      int        `json:"attemptCount"`
	ErrorDetail       *string    `json:"errorDetail,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
}

type listDeliveriesResponse struct {
	Data []deliveryResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *DispatchHandler) DispatchNotification(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	category, err := domain.ParseCategoryFromString(req.Category)
	if err != nil {
		return toHTTPError(err)
	}

	dispatchReq := domain.DispatchRequest{
		Recipient:     strings.TrimSpace(req.Recipient),
		Subject:       strings.TrimSpace(req.Subject),
		HTMLContent:   req.HTMLContent,
		TextContent:   req.TextContent,
		Category:      category,
		CorrelationID: strings.TrimSpace(req.CorrelationID),
		BestEffort:    req.BestEffort,
	}
	if dispatchReq.CorrelationID == "" {
		dispatchReq.CorrelationID = requestCorrelationID(c)
	}

	result, err := h.dispatcher.Dispatch(c.Context(), dispatchReq)
	if err != nil {
		if errors.Is(err, domain.ErrProvidersExhausted) && result != nil {
			// Best-effort sends report exhaustion as a warning so the
			// upstream business flow keeps moving; must-deliver sends
			// surface it as a gateway failure.
			if dispatchReq.BestEffort {
				return c.Status(fiber.StatusAccepted).JSON(dispatchResponse{
					DeliveryID: result.DeliveryID,
					Status:     domain.StatusFailed.String(),
					Warning:    result.Detail,
				})
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(dispatchResponse{
		DeliveryID:        result.DeliveryID,
		Status:            domain.StatusDelivered.String(),
		Provider:          result.Provider,
		ProviderMessageID: result.MessageID,
		Idempotent:        result.Idempotent,
	})
}

func (h *DispatchHandler) GetDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	delivery, err := h.deliveries.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(delivery))
}

func (h *DispatchHandler) ListDeliveries(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	deliveries, total, err := h.deliveries.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]deliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		responses = append(responses, toDeliveryResponse(&deliveries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listDeliveriesResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawCategory := strings.TrimSpace(c.Query("category")); rawCategory != "" {
		category, err := domain.ParseCategoryFromString(rawCategory)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Category = &category
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toDeliveryResponse(d *domain.DeliveryAttempt) deliveryResponse {
	if d == nil {
		return deliveryResponse{}
	}

	return deliveryResponse{
		ID:                d.ID,
		Recipient:         d.Recipient,
		Subject:           d.Subject,
		Category:          d.Category.String(),
		Status:            d.Status.String(),
		CorrelationID:     d.CorrelationID,
		Provider:          d.Provider,
		ProviderMessageID: d.ProviderMessageID,
		AttemptCount:      d.AttemptCount,
		ErrorDetail:       d.ErrorDetail,
		CreatedAt:         d.CreatedAt,
		DeliveredAt:       d.DeliveredAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAuditWrite):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
