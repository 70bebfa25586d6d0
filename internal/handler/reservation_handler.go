package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type ReservationHandler struct {
	svc service.ReservationService
}

func NewReservationHandler(svc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type ReserveRequest struct {
	Quantity        int     `json:"quantity" validate:"required,min=1"`
	VehicleID       *string `json:"vehicleId"`
	DeliveryMethod  string  `json:"deliveryMethod" validate:"required,oneof=pickup standard express"`
	DeliveryAddress *string `json:"deliveryAddress"`
	PaymentMethod   string  `json:"paymentMethod" validate:"required,oneof=cash card transfer"`
	IdempotencyKey  string  `json:"idempotencyKey"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor" validate:"required,oneof=buyer seller"`
}

type ProposeRequest struct {
	NegotiatedPrice int64 `json:"negotiatedPrice" validate:"required,gt=0"`
}

type RespondRequest struct {
	Action       string `json:"action" validate:"required,oneof=accept reject"`
	CounterPrice *int64 `json:"counterPrice"`
}

type ReservationResponse struct {
	ID                 string  `json:"id"`
	PartID             uint64  `json:"partId"`
	BuyerUID           string  `json:"buyerUid"`
	SellerUID          string  `json:"sellerUid"`
	VehicleID          *string `json:"vehicleId,omitempty"`
	Quantity           int     `json:"quantity"`
	UnitPrice          int64   `json:"unitPrice"`
	TotalPrice         int64   `json:"totalPrice"`
	NegotiatedPrice    *int64  `json:"negotiatedPrice,omitempty"`
	NegotiatedBy       *string `json:"negotiatedBy,omitempty"`
	EffectivePrice     int64   `json:"effectivePrice"`
	DeliveryMethod     string  `json:"deliveryMethod"`
	DeliveryAddress    *string `json:"deliveryAddress,omitempty"`
	PaymentMethod      string  `json:"paymentMethod"`
	PaymentStatus      string  `json:"paymentStatus"`
	Status             string  `json:"status"`
	CancellationReason string  `json:"cancellationReason,omitempty"`
	CancelledBy        *string `json:"cancelledBy,omitempty"`
	StockRestored      bool    `json:"stockRestored"`
	ExpiresAt          string  `json:"expiresAt"`
	ConfirmedAt        *string `json:"confirmedAt,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`
	DeliveredAt        *string `json:"deliveredAt,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	val := t.Format(time.RFC3339)
	return &val
}

func actorString(a *model.Actor) *string {
	if a == nil {
		return nil
	}
	val := string(*a)
	return &val
}

func toReservationResponse(r *model.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:                 r.ID,
		PartID:             r.PartID,
		BuyerUID:           r.BuyerUID,
		SellerUID:          r.SellerUID,
		VehicleID:          r.VehicleID,
		Quantity:           r.Quantity,
		UnitPrice:          r.UnitPrice,
		TotalPrice:         r.TotalPrice,
		NegotiatedPrice:    r.NegotiatedPrice,
		NegotiatedBy:       actorString(r.NegotiatedBy),
		EffectivePrice:     r.EffectivePrice(),
		DeliveryMethod:     string(r.DeliveryMethod),
		DeliveryAddress:    r.DeliveryAddress,
		PaymentMethod:      string(r.PaymentMethod),
		PaymentStatus:      string(r.PaymentStatus),
		Status:             string(r.Status),
		CancellationReason: r.CancellationReason,
		CancelledBy:        actorString(r.CancelledBy),
		StockRestored:      r.StockRestored,
		ExpiresAt:          r.ExpiresAt.Format(time.RFC3339),
		ConfirmedAt:        formatTime(r.ConfirmedAt),
		CancelledAt:        formatTime(r.CancelledAt),
		DeliveredAt:        formatTime(r.DeliveredAt),
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}
}

// engineError maps the engine's sentinel failures onto HTTP codes; every
// failure is surfaced, none swallowed.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "reservation not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	case errors.Is(err, service.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, NewErrorResponse("insufficient_stock", "not enough stock"))
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_transition", "reservation state does not allow this"))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", "concurrent update, re-fetch and retry"))
	case errors.Is(err, service.ErrDuplicateRequest):
		return c.JSON(http.StatusConflict, NewErrorResponse("duplicate_request", "request already processed"))
	case errors.Is(err, service.ErrExpired):
		return c.JSON(http.StatusGone, NewErrorResponse("expired", "reservation expired"))
	case errors.Is(err, service.ErrInvalidNegotiationPrice):
		return c.JSON(http.StatusUnprocessableEntity, NewErrorResponse("invalid_negotiation_price", "price outside the allowed bounds"))
	default:
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
}

func (h *ReservationHandler) Reserve(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	partID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid part id"))
	}
	var body ReserveRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	r, err := h.svc.Reserve(c.Request().Context(), uid, service.ReserveInput{
		PartID:          partID,
		Quantity:        body.Quantity,
		VehicleID:       body.VehicleID,
		DeliveryMethod:  model.DeliveryMethod(body.DeliveryMethod),
		DeliveryAddress: body.DeliveryAddress,
		PaymentMethod:   model.PaymentMethod(body.PaymentMethod),
		IdempotencyKey:  body.IdempotencyKey,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

func (h *ReservationHandler) Get(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	r, err := h.svc.Get(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListMine serves both the buyer and the seller view of a user's
// reservations, optionally filtered by a comma-separated status list.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	role := model.Actor(c.QueryParam("role"))
	if role == "" {
		role = model.ActorBuyer
	}
	var statuses []model.Status
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, model.Status(strings.TrimSpace(s)))
		}
	}
	list, err := h.svc.List(c.Request().Context(), uid, role, statuses)
	if err != nil {
		return engineError(c, err)
	}
	resp := make([]ReservationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toReservationResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ReservationHandler) Approve(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	r, err := h.svc.Approve(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body CancelRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	r, err := h.svc.Cancel(c.Request().Context(), uid, model.Actor(body.Actor), c.Param("id"), body.Reason)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

func (h *ReservationHandler) Propose(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body ProposeRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	r, err := h.svc.ProposeNegotiation(c.Request().Context(), uid, c.Param("id"), body.NegotiatedPrice)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

func (h *ReservationHandler) Respond(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body RespondRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	r, err := h.svc.RespondToNegotiation(c.Request().Context(), uid, c.Param("id"), service.NegotiationResponse{
		Action:       service.NegotiationAction(body.Action),
		CounterPrice: body.CounterPrice,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

func (h *ReservationHandler) MarkDelivered(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	r, err := h.svc.MarkDelivered(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

func (h *ReservationHandler) Complete(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	r, err := h.svc.Complete(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
