package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/api/respond"
	"github.com/igronus/notify/internal/config"
	"github.com/igronus/notify/internal/model"
	notifrepo "github.com/igronus/notify/internal/repository/notification"
)

// topRecipientsLimit caps the recipient-stats report.
const topRecipientsLimit = 10

// notificationService defines the interface that the Handler depends on.
//
// It abstracts the authoring operations: creating delayed notifications and
// reading records, statuses, and recipient statistics.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks
type notificationService interface {
	CreateNotification(context.Context, retry.Strategy, model.Notification) (model.Notification, error)
	GetNotificationByID(context.Context, string) (model.Notification, error)
	GetNotificationStatusByID(context.Context, retry.Strategy, string) (model.Status, error)
	TopRecipients(context.Context, int64) ([]notifrepo.RecipientStats, error)
}

// Handler handles HTTP requests of the notification authoring API.
type Handler struct {
	service   notificationService
	validator *validator.Validate
	cfg       *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(
	s notificationService,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// CreateRequest represents the JSON body expected in a notification creation request.
type CreateRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Time        int64  `json:"time" validate:"required"`
	Text        string `json:"text" validate:"required"`
}

// Create handles HTTP POST requests to create a new delayed notification.
//
// It validates the request body, rejects non-future delivery times, creates
// the PENDING record and returns it together with its generated id.
func (h *Handler) Create(c *ginext.Context) {
	var req CreateRequest

	// Decode JSON request body into CreateRequest struct.
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	// Validate request fields using go-playground/validator.
	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing required fields: recipientId, time, text"))
		return
	}

	// The delivery time must lie in the future, in epoch milliseconds.
	if req.Time <= time.Now().UnixMilli() {
		zlog.Logger.Warn().Int64("time", req.Time).Msg("non-future delivery time rejected")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("time must be a future unix timestamp in milliseconds"))
		return
	}

	notif := model.Notification{
		RecipientID: req.RecipientID,
		ScheduledAt: req.Time,
		Text:        req.Text,
	}

	created, err := h.service.CreateNotification(c.Request.Context(), h.cfg.Retry, notif)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("recipient", req.RecipientID).Msg("failed to create notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	// Respond with the created record.
	respond.Created(c.Writer, created)
}

// GetByID handles HTTP GET requests to retrieve a notification record.
func (h *Handler) GetByID(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	notif, err := h.service.GetNotificationByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNotificationNotFound) {
			zlog.Logger.Warn().Str("id", id).Msg("notification not found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to get notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notif)
}

// GetStatus handles HTTP GET requests to retrieve only a notification's status.
func (h *Handler) GetStatus(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing id"))
		return
	}

	status, err := h.service.GetNotificationStatusByID(c.Request.Context(), h.cfg.Retry, id)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNotificationNotFound) {
			zlog.Logger.Warn().Str("id", id).Msg("notification not found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}

// TopRecipients handles HTTP GET requests for the busiest-recipients report.
func (h *Handler) TopRecipients(c *ginext.Context) {
	stats, err := h.service.TopRecipients(c.Request.Context(), topRecipientsLimit)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to get recipient stats")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, stats)
}

// Health reports service liveness.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c.Writer, map[string]string{
		"status":  "healthy",
		"message": "notification service is running",
	})
}
