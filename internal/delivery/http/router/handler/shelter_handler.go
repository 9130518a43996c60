package handler

import (
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

// ShelterHandlerParams holds dependencies for ShelterHandler, injected by Fx.
type ShelterHandlerParams struct {
	fx.In

	ShelterUC usecase.ShelterUsecase
	Logger    *slog.Logger
}

// ShelterHandler holds dependencies for shelter directory handlers
type ShelterHandler struct {
	shelterUC usecase.ShelterUsecase
	logger    *slog.Logger
}

// NewShelterHandler is the constructor for ShelterHandler
func NewShelterHandler(params ShelterHandlerParams) *ShelterHandler {
	return &ShelterHandler{
		shelterUC: params.ShelterUC,
		logger:    params.Logger,
	}
}

// CreateShelterRequest represents the request body for registering a shelter
type CreateShelterRequest struct {
	Name      string                    `json:"name" validate:"required"`
	Address   string                    `json:"address"`
	Location  entity.LocationDescriptor `json:"location"`
	Capacity  int                       `json:"capacity" validate:"gte=0"`
	Amenities []string                  `json:"amenities,omitempty"`
}

// UpdateOccupancyRequest represents the request body for an occupancy update
type UpdateOccupancyRequest struct {
	Occupancy int `json:"occupancy" validate:"gte=0"`
}

// ListShelters handles retrieving the shelter directory
func (h *ShelterHandler) ListShelters(c echo.Context) error {
	forceRefresh := c.QueryParam("refresh") == "true"

	shelters, err := h.shelterUC.GetAll(c.Request().Context(), forceRefresh)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, shelters, "Shelters retrieved successfully")
}

// NearbyShelters handles the radius query over the directory
func (h *ShelterHandler) NearbyShelters(c echo.Context) error {
	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if latErr != nil || lngErr != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", "lat and lng must both be valid numbers")
	}

	radius := 10.0
	if radiusParam := c.QueryParam("radius_km"); radiusParam != "" {
		parsed, err := strconv.ParseFloat(radiusParam, 64)
		if err != nil || parsed <= 0 {
			return response.BadRequest(c, "VALIDATION_ERROR", "radius_km must be a positive number")
		}
		radius = parsed
	}

	center := entity.Coordinate{Latitude: lat, Longitude: lng}
	shelters, err := h.shelterUC.GetNearby(c.Request().Context(), center, radius, c.QueryParam("amenity"))
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, shelters, "Nearby shelters retrieved successfully")
}

// GetShelter handles retrieving one shelter by ID
func (h *ShelterHandler) GetShelter(c echo.Context) error {
	shelter, err := h.shelterUC.GetShelter(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, shelter, "Shelter retrieved successfully")
}

// ShelterQR serves the PNG placard QR code for a shelter site
func (h *ShelterHandler) ShelterQR(c echo.Context) error {
	png, err := h.shelterUC.ShelterQR(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.handleAppError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// CreateShelter handles registering a new shelter
func (h *ShelterHandler) CreateShelter(c echo.Context) error {
	var req CreateShelterRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid shelter input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	shelter, err := h.shelterUC.CreateShelter(c.Request().Context(), &usecase.CreateShelterInput{
		Name:      req.Name,
		Address:   req.Address,
		Location:  req.Location,
		Capacity:  req.Capacity,
		Amenities: req.Amenities,
	})
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, shelter, "Shelter created successfully")
}

// UpdateOccupancy handles the occupancy update
func (h *ShelterHandler) UpdateOccupancy(c echo.Context) error {
	var req UpdateOccupancyRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid occupancy input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	if err := h.shelterUC.UpdateOccupancy(c.Request().Context(), c.Param("id"), req.Occupancy); err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"occupancy": req.Occupancy}, "Occupancy updated successfully")
}

// handleAppError handles application errors
func (h *ShelterHandler) handleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
