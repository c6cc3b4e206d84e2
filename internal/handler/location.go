package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/service"
)

// LocationHandler serves the location endpoints. Reads are open to any
// authenticated member; writes are admin only.
type LocationHandler struct {
	Locations *service.LocationService
}

func NewLocationHandler(locations *service.LocationService) *LocationHandler {
	return &LocationHandler{Locations: locations}
}

type locationResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	Description *string   `json:"description,omitempty"`
	URL         string    `json:"url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toLocationResp(l model.Location) locationResp {
	return locationResp{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Description: l.Description,
		URL:         l.URL,
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt,
	}
}

func toLocationResps(ls []model.Location) []locationResp {
	out := make([]locationResp, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLocationResp(l))
	}
	return out
}

// Create registers a location. Admin only.
func (h *LocationHandler) Create(c echo.Context) error {
	var req service.LocationInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	l, err := h.Locations.Create(c.Request().Context(), callCtx(c), req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toLocationResp(l))
}

// Get returns one location.
func (h *LocationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	l, err := h.Locations.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResp(l))
}

// List returns locations; ?active=true narrows to active ones and
// ?name= performs a substring search.
func (h *LocationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if name := c.QueryParam("name"); name != "" {
		ls, err := h.Locations.Search(ctx, name)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(http.StatusOK, toLocationResps(ls))
	}
	var (
		ls  []model.Location
		err error
	)
	if c.QueryParam("active") == "true" {
		ls, err = h.Locations.ListActive(ctx)
	} else {
		ls, err = h.Locations.List(ctx)
	}
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResps(ls))
}

// Active returns only the locations usable for new reservations.
func (h *LocationHandler) Active(c echo.Context) error {
	ls, err := h.Locations.ListActive(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResps(ls))
}

// Search performs a case-insensitive substring match on the name.
func (h *LocationHandler) Search(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return writeError(c, http.StatusBadRequest, "name required")
	}
	ls, err := h.Locations.Search(c.Request().Context(), name)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResps(ls))
}

// InUse returns locations referenced by current-or-future
// reservations.
func (h *LocationHandler) InUse(c echo.Context) error {
	ls, err := h.Locations.ListInUse(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResps(ls))
}

// Update overwrites a location. Admin only.
func (h *LocationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	var req service.LocationInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid body")
	}
	l, err := h.Locations.Update(c.Request().Context(), callCtx(c), id, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResp(l))
}

// Activate re-enables a location for new reservations. Admin only.
func (h *LocationHandler) Activate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Locations.Activate(c.Request().Context(), callCtx(c), id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "location activated"})
}

// Deactivate hides a location from new reservations. Admin only.
func (h *LocationHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.Locations.Deactivate(c.Request().Context(), callCtx(c), id); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "location deactivated"})
}
