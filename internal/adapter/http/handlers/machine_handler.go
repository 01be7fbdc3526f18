package handlers

import (
	"errors"
	"log"
	"net/http"

	"vendomat/internal/adapter/http/dto/request"
	"vendomat/internal/adapter/http/dto/response"
	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase"
	"vendomat/internal/usecase/interfaces"
	"vendomat/pkg"

	"github.com/gin-gonic/gin"
)

type MachineHandler struct {
	usecase usecase.IMachineUseCase
	limiter interfaces.IRateLimiter
}

func NewMachineHandler(uc usecase.IMachineUseCase, limiter interfaces.IRateLimiter) *MachineHandler {
	return &MachineHandler{usecase: uc, limiter: limiter}
}

// Start godoc
// @Summary      Start preparation for a pickup code
// @Description  Redeems a pickup code on a machine and moves the matching order to PREPARING
// @Tags         machine
// @Accept       json
// @Produce      json
// @Param        start  body      request.MachineStartRequest  true  "Machine start data"
// @Success      200    {object}  response.MachineStartResponse
// @Failure      400    {object}  pkg.HTTPError
// @Failure      404    {object}  pkg.HTTPError
// @Failure      429    {object}  pkg.HTTPError
// @Router       /machine/start [post]
func (h *MachineHandler) Start(c *gin.Context) {
	var req request.MachineStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[machine][handler] invalid start payload err=%v", err)
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), "machine:start:"+req.MachineID)
		if err != nil {
			log.Printf("[machine][handler] rate limiter unavailable err=%v", err)
		} else if !allowed {
			appErr := pkg.NewDomainErrorSimple("RATE_LIMITED", "too many attempts, slow down", http.StatusTooManyRequests)
			c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
			return
		}
	}

	order, machine, err := h.usecase.Start(c.Request.Context(), req.MachineID, req.PickupCode)
	if err != nil {
		appErr := mapMachineError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.StartResponse(order, machine))
}

// DispenseComplete godoc
// @Summary      Mark an order as dispensed
// @Description  Moves a PREPARING order to COMPLETED after the machine finishes dispensing
// @Tags         machine
// @Produce      json
// @Param        order_id  path      string  true  "Order ID"
// @Success      200       {object}  response.OrderResponse
// @Failure      404       {object}  pkg.HTTPError
// @Failure      409       {object}  pkg.HTTPError
// @Router       /machine/dispense-complete/{order_id} [post]
func (h *MachineHandler) DispenseComplete(c *gin.Context) {
	orderID := c.Param("order_id")

	order, err := h.usecase.DispenseComplete(c.Request.Context(), orderID)
	if err != nil {
		appErr := mapMachineError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromOrder(order))
}

// GetByCode godoc
// @Summary      Get machine by code
// @Tags         machine
// @Produce      json
// @Param        mid  path      string  true  "Machine code"
// @Success      200  {object}  response.MachineResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /machines/{mid} [get]
func (h *MachineHandler) GetByCode(c *gin.Context) {
	machine, err := h.usecase.GetByCode(c.Request.Context(), c.Param("mid"))
	if err != nil {
		appErr := mapMachineError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromMachine(machine))
}

func mapMachineError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidPickupCode):
		return pkg.NewDomainErrorSimple("INVALID_CODE", "invalid code", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrMachineNotFound):
		return pkg.NewDomainErrorSimple("MACHINE_NOT_FOUND", "machine not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrMachineInactive):
		return pkg.NewDomainErrorSimple("MACHINE_INACTIVE", "machine is not active", http.StatusForbidden)
	case errors.Is(err, usecase.ErrOrderNotFound):
		return pkg.NewDomainErrorSimple("ORDER_NOT_FOUND", "order not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrInvalidTransition):
		return pkg.NewDomainErrorSimple("INVALID_TRANSITION", "order is not in a dispensable state", http.StatusConflict)
	default:
		log.Printf("[machine][handler] unexpected error err=%v", err)
		return pkg.NewDomainErrorSimple("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	}
}
