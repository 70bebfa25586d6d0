package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type PartHandler struct {
	svc service.PartService
}

func NewPartHandler(svc service.PartService) *PartHandler {
	return &PartHandler{svc: svc}
}

type CreatePartRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unitPrice" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

type PartResponse struct {
	ID             uint64 `json:"id"`
	SellerUID      string `json:"sellerUid"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	UnitPrice      int64  `json:"unitPrice"`
	AvailableStock int    `json:"availableStock"`
	ReservedStock  int    `json:"reservedStock"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func toPartResponse(p *model.Part) PartResponse {
	return PartResponse{
		ID:             p.ID,
		SellerUID:      p.SellerUID,
		Name:           p.Name,
		Description:    p.Description,
		UnitPrice:      p.UnitPrice,
		AvailableStock: p.AvailableStock,
		ReservedStock:  p.ReservedStock,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *PartHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body CreatePartRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	part, err := h.svc.Create(c.Request().Context(), uid, body.Name, body.Description, body.UnitPrice, body.Stock)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, toPartResponse(part))
}

func (h *PartHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid part id"))
	}
	part, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if err == service.ErrNotFound {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "part not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch part"))
	}
	return c.JSON(http.StatusOK, toPartResponse(part))
}

func (h *PartHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	parts, total, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch parts"))
	}
	resp := make([]PartResponse, 0, len(parts))
	for i := range parts {
		resp = append(resp, toPartResponse(&parts[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"parts": resp,
		"total": total,
	})
}
