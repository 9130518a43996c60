// Package handler contains the echo request handlers.
package handler

import (
	"encoding/json"
	"fmt"
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

// AlertHandlerParams holds dependencies for AlertHandler, injected by Fx.
type AlertHandlerParams struct {
	fx.In

	AlertUC usecase.AlertUsecase
	Logger  *slog.Logger
}

// AlertHandler holds dependencies for alert-related handlers
type AlertHandler struct {
	alertUC usecase.AlertUsecase
	logger  *slog.Logger
}

// NewAlertHandler is the constructor for AlertHandler
func NewAlertHandler(params AlertHandlerParams) *AlertHandler {
	return &AlertHandler{
		alertUC: params.AlertUC,
		logger:  params.Logger,
	}
}

// CreateAlertRequest represents the request body for creating an alert
type CreateAlertRequest struct {
	Title       string                    `json:"title" validate:"required"`
	Description string                    `json:"description"`
	Category    string                    `json:"category"`
	Severity    string                    `json:"severity" validate:"required"`
	Location    entity.LocationDescriptor `json:"location"`
	ExpiresAt   string                    `json:"expires_at" validate:"required"`
}

// SetActiveRequest represents the request body for toggling the active flag
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// ListAlerts handles listing alerts with the location hierarchy filter
func (h *AlertHandler) ListAlerts(c echo.Context) error {
	activeOnly := c.QueryParam("active") != "false"
	crit := entity.LocationCriteria{
		Region:    c.QueryParam("region"),
		SubRegion: c.QueryParam("sub_region"),
	}

	alerts, err := h.alertUC.ListAlerts(c.Request().Context(), activeOnly, crit)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, alerts, "Alerts retrieved successfully")
}

// GetAlert handles retrieving one alert by ID
func (h *AlertHandler) GetAlert(c echo.Context) error {
	alert, err := h.alertUC.GetAlert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, alert, "Alert retrieved successfully")
}

// CreateAlert handles creating a new alert
func (h *AlertHandler) CreateAlert(c echo.Context) error {
	var req CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid alert input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	expiresAt, err := parseRFC3339(req.ExpiresAt)
	if err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", "expires_at must be an RFC 3339 timestamp")
	}

	input := &usecase.CreateAlertInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Severity:    entity.Severity(req.Severity),
		Location:    req.Location,
		ExpiresAt:   expiresAt,
	}

	alert, err := h.alertUC.CreateAlert(c.Request().Context(), input)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, alert, "Alert created successfully")
}

// SetAlertActive handles toggling the active flag of an alert
func (h *AlertHandler) SetAlertActive(c echo.Context) error {
	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}

	if err := h.alertUC.SetAlertActive(c.Request().Context(), c.Param("id"), req.Active); err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"active": req.Active}, "Alert updated successfully")
}

// StreamNearby serves the geofenced live feed as Server-Sent Events. Each
// event carries the full re-sorted alert list for the client geofence.
func (h *AlertHandler) StreamNearby(c echo.Context) error {
	opts, err := h.feedOptions(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	// Buffered with replace-latest semantics: a slow client always gets the
	// most recent snapshot instead of a backlog.
	updates := make(chan []*entity.Alert, 1)
	streamErrs := make(chan error, 1)

	opts.OnError = func(streamErr error) {
		select {
		case streamErrs <- streamErr:
		default:
		}
	}

	stop, err := h.alertUC.SubscribeNearby(ctx, opts, func(alerts []*entity.Alert) {
		for {
			select {
			case updates <- alerts:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		return h.handleAppError(c, err)
	}
	defer stop()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for {
		select {
		case <-ctx.Done():
			return nil
		case streamErr := <-streamErrs:
			h.logger.Warn("alert feed stream ended",
				slog.Any("error", streamErr),
			)

			return nil
		case alerts := <-updates:
			data, err := json.Marshal(alerts)
			if err != nil {
				return errors.WithStack(err)
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// feedOptions parses the geofence query parameters.
func (h *AlertHandler) feedOptions(c echo.Context) (usecase.FeedOptions, error) {
	opts := usecase.FeedOptions{DeviceID: c.QueryParam("device_id")}

	if radiusParam := c.QueryParam("radius_km"); radiusParam != "" {
		radius, err := strconv.ParseFloat(radiusParam, 64)
		if err != nil || radius <= 0 {
			return opts, response.BadRequest(c, "VALIDATION_ERROR", "radius_km must be a positive number")
		}
		opts.RadiusKm = radius
	}

	latParam, lngParam := c.QueryParam("lat"), c.QueryParam("lng")
	if latParam == "" && lngParam == "" {
		return opts, nil
	}

	lat, latErr := strconv.ParseFloat(latParam, 64)
	lng, lngErr := strconv.ParseFloat(lngParam, 64)
	if latErr != nil || lngErr != nil {
		return opts, response.BadRequest(c, "VALIDATION_ERROR", "lat and lng must both be valid numbers")
	}

	opts.Center = &entity.Coordinate{Latitude: lat, Longitude: lng}

	return opts, nil
}

// handleAppError handles application errors
func (h *AlertHandler) handleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
