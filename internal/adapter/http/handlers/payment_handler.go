package handlers

import (
	"errors"
	"log"
	"net/http"

	"vendomat/internal/adapter/http/dto/request"
	"vendomat/internal/adapter/http/dto/response"
	"vendomat/internal/usecase"
	"vendomat/pkg"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles checkout-session creation and the client-confirmed
// verification channel.

type PaymentHandler struct {
	usecase usecase.IPaymentUseCase
}

func NewPaymentHandler(uc usecase.IPaymentUseCase) *PaymentHandler {
	return &PaymentHandler{usecase: uc}
}

// CreateSession opens a gateway checkout session for a pending order.
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	uid := userID(c)

	var req request.PaymentSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	created, err := h.usecase.CreateSession(c.Request.Context(), uid, req.OrderID)
	if err != nil {
		log.Printf("[payment][handler] session failed uid=%s order_id=%s err=%v", uid, req.OrderID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	log.Printf("[payment][handler] session success uid=%s order_id=%s payment_id=%s", uid, req.OrderID, created.ID)
	c.JSON(http.StatusCreated, response.SessionFromPayment(created))
}

// Verify runs the client-confirmed verification. The response only says
// whether the payment verified; a signature mismatch is a 400 with no state
// change.
func (h *PaymentHandler) Verify(c *gin.Context) {
	uid := userID(c)

	var req request.PaymentVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	verified, err := h.usecase.VerifyClient(c.Request.Context(), uid, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		log.Printf("[payment][handler] verify failed uid=%s gateway_order_id=%s err=%v", uid, req.GatewayOrderID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.VerifyResponse{Verified: verified})
}

// GetByOrderID returns the latest payment attempt for the owner's order.
func (h *PaymentHandler) GetByOrderID(c *gin.Context) {
	uid := userID(c)
	orderID := c.Param("order_id")

	p, err := h.usecase.GetLatestByOrderID(c.Request.Context(), uid, orderID)
	if err != nil {
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromPayment(p))
}

func mapPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidSignature):
		return pkg.NewDomainErrorSimple("INVALID_SIGNATURE", "Payment signature verification failed", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrOrderNotFound):
		return pkg.NewDomainErrorSimple("ORDER_NOT_FOUND", "Order not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrPaymentNotFound):
		return pkg.NewDomainErrorSimple("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrOrderNotPending):
		return pkg.NewDomainErrorSimple("ORDER_NOT_PENDING", "Order is not awaiting payment", http.StatusConflict)
	case errors.Is(err, usecase.ErrNotOrderOwner):
		return pkg.NewDomainErrorSimple("FORBIDDEN", "Order does not belong to user", http.StatusForbidden)
	case errors.Is(err, usecase.ErrGatewayUnavailable):
		return pkg.NewDomainErrorSimple("GATEWAY_UNAVAILABLE", "Payment gateway unavailable, retry later", http.StatusBadGateway)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
