package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"beacon/internal/delivery/http/response"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// defaultMessageLimit caps operator list queries without an explicit limit.
const defaultMessageLimit = 50

// MessageHandlerParams holds dependencies for MessageHandler, injected by Fx.
type MessageHandlerParams struct {
	fx.In

	MessageUC usecase.MessageUsecase
	Logger    *slog.Logger
}

// MessageHandler holds dependencies for emergency message handlers
type MessageHandler struct {
	messageUC usecase.MessageUsecase
	logger    *slog.Logger
}

// NewMessageHandler is the constructor for MessageHandler
func NewMessageHandler(params MessageHandlerParams) *MessageHandler {
	return &MessageHandler{
		messageUC: params.MessageUC,
		logger:    params.Logger,
	}
}

// SendMessageRequest represents the request body for sending an emergency message
type SendMessageRequest struct {
	AuthorID       string                     `json:"author_id" validate:"required"`
	Message        string                     `json:"message" validate:"required"`
	Location       *entity.LocationDescriptor `json:"location,omitempty"`
	Attachments    []entity.Attachment        `json:"attachments,omitempty"`
	IdempotencyKey string                     `json:"idempotency_key,omitempty"`
}

// UpdateStatusRequest represents the request body for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SendSOS handles submitting an SOS message
func (h *MessageHandler) SendSOS(c echo.Context) error {
	return h.send(c, h.messageUC.SendSOS)
}

// SendReport handles submitting an incident report
func (h *MessageHandler) SendReport(c echo.Context) error {
	return h.send(c, h.messageUC.SendReport)
}

func (h *MessageHandler) send(c echo.Context, sendFunc func(context.Context, *usecase.SendMessageInput) (*entity.SendResult, error)) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid message input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	input := &usecase.SendMessageInput{
		AuthorID:       req.AuthorID,
		Message:        req.Message,
		Location:       req.Location,
		Attachments:    req.Attachments,
		IdempotencyKey: req.IdempotencyKey,
	}

	result, err := sendFunc(c.Request().Context(), input)
	if err != nil {
		return h.handleAppError(c, err)
	}

	// A queued message is an accepted success, not an error.
	if result.Queued {
		return response.Success(c, http.StatusAccepted, result, "Message queued for delivery")
	}

	return response.Success(c, http.StatusCreated, result, "Message delivered")
}

// FlushOutbox replays the outbound queue, typically on connectivity recovery.
func (h *MessageHandler) FlushOutbox(c echo.Context) error {
	result, err := h.messageUC.FlushOutbox(c.Request().Context())
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, result, "Outbox flushed")
}

// PendingCount reports how many messages await delivery.
func (h *MessageHandler) PendingCount(c echo.Context) error {
	count, err := h.messageUC.PendingCount(c.Request().Context())
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"pending": count}, "Pending count retrieved")
}

// ListMessages handles the operator list over one message kind
func (h *MessageHandler) ListMessages(c echo.Context) error {
	kind, err := h.messageKind(c)
	if err != nil {
		return err
	}

	limit := defaultMessageLimit
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			return response.BadRequest(c, "VALIDATION_ERROR", "limit must be a positive integer")
		}
		limit = parsed
	}

	crit := entity.LocationCriteria{
		Region:    c.QueryParam("region"),
		SubRegion: c.QueryParam("sub_region"),
	}

	messages, err := h.messageUC.ListMessages(c.Request().Context(), kind, limit, crit)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, messages, "Messages retrieved successfully")
}

// GetMessage handles retrieving one message by kind and ID
func (h *MessageHandler) GetMessage(c echo.Context) error {
	kind, err := h.messageKind(c)
	if err != nil {
		return err
	}

	message, err := h.messageUC.GetMessage(c.Request().Context(), kind, c.Param("id"))
	if err != nil {
		return h.handleAppError(c, err)
	}
	if message == nil {
		return response.NotFound(c, "MESSAGE_NOT_FOUND", "Emergency message not found")
	}

	return response.Success(c, http.StatusOK, message, "Message retrieved successfully")
}

// UpdateStatus handles the operator status transition
func (h *MessageHandler) UpdateStatus(c echo.Context) error {
	kind, err := h.messageKind(c)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid status input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	if err := h.messageUC.UpdateStatus(c.Request().Context(), kind, c.Param("id"), entity.MessageStatus(req.Status)); err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"status": req.Status}, "Status updated successfully")
}

// messageKind parses the :kind path parameter.
func (h *MessageHandler) messageKind(c echo.Context) (entity.MessageKind, error) {
	kind := entity.MessageKind(c.Param("kind"))
	if kind != entity.KindSOS && kind != entity.KindReport {
		return "", response.BadRequest(c, "VALIDATION_ERROR", "kind must be sos or report")
	}

	return kind, nil
}

// handleAppError handles application errors
func (h *MessageHandler) handleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
