package routes

import (
	"log"
	"os"
	"strconv"

	_ "vendomat/docs" // This will be auto-generated
	"vendomat/internal/adapter/http/handlers"
	repository2 "vendomat/internal/adapter/persistence/repository"
	"vendomat/internal/infrastructure/cache"
	"vendomat/internal/infrastructure/database"
	"vendomat/internal/infrastructure/payments"
	"vendomat/internal/usecase"
	"vendomat/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var router = gin.Default()

const PORT = 8080

// Run will start the server
func Run() {
	setMiddlewares()

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	getRoutes()

	err := router.Run(":" + strconv.Itoa(PORT))
	if err != nil {
		log.Fatalf("Failed to startup the application: %v", err.Error())
	}
}

func getRoutes() {
	ddb := database.ConnectDynamoDB()

	orderRepo := repository2.NewOrderDynamoRepository(ddb)
	paymentRepo := repository2.NewPaymentDynamoRepository(ddb)
	itemRepo := repository2.NewItemDynamoRepository(ddb)
	machineRepo := repository2.NewMachineDynamoRepository(ddb)

	orderUseCase := usecase.NewOrderUseCase(orderRepo, itemRepo, machineRepo)

	var paymentGateway interfaces.IPaymentGateway
	mpGateway, err := payments.NewMercadoPagoGateway(os.Getenv("MERCADOPAGO_ACCESS_TOKEN"))
	if err != nil {
		log.Printf("Mercado Pago gateway not configured: %v", err)
	} else {
		paymentGateway = mpGateway
	}

	currency := os.Getenv("PAYMENT_CURRENCY")
	if currency == "" {
		currency = "INR"
	}
	paymentUseCase := usecase.NewPaymentUseCase(
		paymentRepo,
		orderUseCase,
		paymentGateway,
		currency,
		os.Getenv("PAYMENT_KEY_SECRET"),
		os.Getenv("PAYMENT_WEBHOOK_SECRET"),
	)
	machineUseCase := usecase.NewMachineUseCase(machineRepo, orderUseCase, orderRepo)

	var limiter interfaces.IRateLimiter
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		limiter = cache.NewRedisRateLimiter(addr)
	}

	orderHandler := handlers.NewOrderHandler(orderUseCase)
	paymentHandler := handlers.NewPaymentHandler(paymentUseCase)
	webhookHandler := handlers.NewWebhookHandler(paymentUseCase)
	machineHandler := handlers.NewMachineHandler(machineUseCase, limiter)

	// Rotas publicas
	v1 := router.Group("/v1")
	addPingRoutes(v1)
	addVendingRoutes(v1, orderHandler, paymentHandler, webhookHandler, machineHandler)
}

func addPingRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
}

func setMiddlewares() {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatus(500)
	}))
}
