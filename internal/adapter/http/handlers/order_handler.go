package handlers

import (
	"errors"
	"log"
	"net/http"

	"vendomat/internal/adapter/http/dto/request"
	"vendomat/internal/adapter/http/dto/response"
	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase"
	"vendomat/pkg"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles HTTP requests for order placement and storefront
// order reads.

type OrderHandler struct {
	usecase usecase.IOrderUseCase
}

func NewOrderHandler(uc usecase.IOrderUseCase) *OrderHandler {
	return &OrderHandler{usecase: uc}
}

// Create places a new order for the authenticated user.
func (h *OrderHandler) Create(c *gin.Context) {
	uid := userID(c)

	var req request.OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[order][handler] create invalid payload uid=%s err=%v", uid, err)
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	created, err := h.usecase.Create(c.Request.Context(), uid, req.MachineID, req.Lines())
	if err != nil {
		log.Printf("[order][handler] create failed uid=%s machine_id=%s err=%v", uid, req.MachineID, err)
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	log.Printf("[order][handler] create success uid=%s order_id=%s total=%.2f", uid, created.ID, created.Amount.Total)
	c.JSON(http.StatusCreated, response.FromOrder(created))
}

// Latest returns the authenticated user's most recent order.
func (h *OrderHandler) Latest(c *gin.Context) {
	uid := userID(c)

	order, err := h.usecase.GetLatestByUserID(c.Request.Context(), uid)
	if err != nil {
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromOrder(order))
}

// PickupCode hands the pickup code to the owner of a ready order.
func (h *OrderHandler) PickupCode(c *gin.Context) {
	uid := userID(c)

	order, err := h.usecase.GetPickupCode(c.Request.Context(), uid)
	if err != nil {
		log.Printf("[order][handler] pickup-code failed uid=%s err=%v", uid, err)
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromOrderWithPickupCode(order))
}

// Preparing answers the storefront poll "is my latest order being prepared".
func (h *OrderHandler) Preparing(c *gin.Context) {
	h.flag(c, func(o entities.Order) bool { return o.Status == entities.OrderStatusPreparing })
}

// Completed answers the storefront poll "is my latest order done".
func (h *OrderHandler) Completed(c *gin.Context) {
	h.flag(c, func(o entities.Order) bool { return o.Completed })
}

func (h *OrderHandler) flag(c *gin.Context, pred func(entities.Order) bool) {
	uid := userID(c)

	order, err := h.usecase.GetLatestByUserID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, usecase.ErrOrderNotFound) {
			c.JSON(http.StatusOK, response.OrderFlagResponse{Value: false})
			return
		}
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.OrderFlagResponse{OrderID: order.ID, Value: pred(order)})
}

func mapOrderError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidOrderItems):
		return pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrItemNotFound), errors.Is(err, usecase.ErrItemUnavailable):
		return pkg.NewDomainErrorSimple("ITEM_UNAVAILABLE", err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrMachineNotFound):
		return pkg.NewDomainErrorSimple("MACHINE_NOT_FOUND", "Machine not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrMachineInactive):
		return pkg.NewDomainErrorSimple("MACHINE_INACTIVE", "Machine is currently not available", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrActiveOrderExists):
		return pkg.NewDomainErrorSimple("ACTIVE_ORDER_EXISTS", err.Error(), http.StatusConflict)
	case errors.Is(err, usecase.ErrOrderNotFound):
		return pkg.NewDomainErrorSimple("ORDER_NOT_FOUND", "Order not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrOrderNotReady):
		return pkg.NewDomainErrorSimple("ORDER_NOT_READY", "Order is not ready for pickup", http.StatusConflict)
	case errors.Is(err, usecase.ErrNotOrderOwner):
		return pkg.NewDomainErrorSimple("FORBIDDEN", "Order does not belong to user", http.StatusForbidden)
	case errors.Is(err, entities.ErrInvalidTransition):
		return pkg.NewDomainErrorSimple("INVALID_TRANSITION", "Order state does not permit this operation", http.StatusConflict)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
