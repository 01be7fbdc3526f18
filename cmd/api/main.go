package main

import (
	_ "vendomat/docs"
	"vendomat/internal/adapter/http/routes"

	_ "github.com/joho/godotenv/autoload"
)

// @title           Vendomat Ordering API
// @version         1.0
// @description     Vending-machine food ordering (orders, payments, pickup) backed by DynamoDB.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey UserID
// @in header
// @name X-User-ID
// @description Authenticated user identifier injected by the API gateway.

func main() {
	routes.Run()
}
