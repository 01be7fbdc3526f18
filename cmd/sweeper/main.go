package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	repository2 "vendomat/internal/adapter/persistence/repository"
	"vendomat/internal/infrastructure/database"
	"vendomat/internal/usecase"

	_ "github.com/joho/godotenv/autoload"
	"github.com/robfig/cron/v3"
)

// The sweeper cancels PENDING orders whose payment window has expired, so an
// abandoned checkout stops blocking its owner. It runs as its own process;
// the cancel itself rides the same conditional writes as every other
// transition, so overlapping sweeps or a payment landing mid-sweep are safe.

const (
	defaultTTLMinutes = 10
	defaultCronSpec   = "*/1 * * * *"
)

func main() {
	ttl := time.Duration(envInt("PENDING_ORDER_TTL_MINUTES", defaultTTLMinutes)) * time.Minute
	spec := os.Getenv("SWEEP_CRON_SPEC")
	if spec == "" {
		spec = defaultCronSpec
	}

	ddb := database.ConnectDynamoDB()
	orderRepo := repository2.NewOrderDynamoRepository(ddb)
	itemRepo := repository2.NewItemDynamoRepository(ddb)
	machineRepo := repository2.NewMachineDynamoRepository(ddb)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, itemRepo, machineRepo)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cancelled, err := orderUseCase.CancelStalePending(ctx, ttl)
		if err != nil {
			log.Printf("[sweeper] sweep failed err=%v", err)
			return
		}
		if cancelled > 0 {
			log.Printf("[sweeper] expired orders cancelled count=%d ttl=%s", cancelled, ttl)
		}
	})
	if err != nil {
		log.Fatalf("invalid cron spec %q: %v", spec, err)
	}

	log.Printf("[sweeper] started spec=%q ttl=%s", spec, ttl)
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("[sweeper] shutting down")
	<-c.Stop().Done()
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[sweeper] ignoring invalid %s=%q", key, v)
		return def
	}
	return n
}
