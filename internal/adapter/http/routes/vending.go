package routes

import (
	"vendomat/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
)

const (
	PathOrders   = "/orders"
	PathPayments = "/payments"
	PathWebhooks = "/webhooks"
	PathMachine  = "/machine"
	PathMachines = "/machines"
)

func addVendingRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, paymentHandler *handlers.PaymentHandler, webhookHandler *handlers.WebhookHandler, machineHandler *handlers.MachineHandler) {
	orders := rg.Group(PathOrders, handlers.RequireUser())
	{
		orders.POST("", orderHandler.Create)
		orders.GET("/latest", orderHandler.Latest)
		orders.GET("/pickup-code", orderHandler.PickupCode)
		orders.GET("/preparing", orderHandler.Preparing)
		orders.GET("/completed", orderHandler.Completed)
	}

	payments := rg.Group(PathPayments, handlers.RequireUser())
	{
		payments.POST("/session", paymentHandler.CreateSession)
		payments.POST("/verify", paymentHandler.Verify)
		payments.GET("/:order_id", paymentHandler.GetByOrderID)
	}

	// Gateway callbacks carry their own HMAC, no user auth here.
	webhooks := rg.Group(PathWebhooks)
	{
		webhooks.POST("/payment", webhookHandler.HandlePaymentWebhook)
	}

	machine := rg.Group(PathMachine)
	{
		machine.POST("/start", machineHandler.Start)
		machine.POST("/dispense-complete/:order_id", machineHandler.DispenseComplete)
	}

	machines := rg.Group(PathMachines)
	{
		machines.GET("/:mid", machineHandler.GetByCode)
	}
}
