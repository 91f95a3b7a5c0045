package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/cart"
	c "github.com/fjod/go_checkout/internal/cart/cache"
	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/config"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/fjod/go_checkout/internal/inventory"
	"github.com/fjod/go_checkout/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadCart()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	repo := repository.NewMongoRepository(mongoDB)
	log.Printf("Connected to MongoDB at %s", cfg.Mongo.URI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	cache := c.NewRedisCache(redisClient)

	lookup := inventory.NewHTTPLookup(cfg.InventoryAddr)
	guard := inventory.NewAvailabilityGuard(lookup)

	kafkaBus := bus.NewKafkaBus("cart-service", cfg.Brokers...)
	defer kafkaBus.Close()

	service := cart.NewCartService(repo, cache, guard, kafkaBus)

	saga := metrics.NewSagaMetrics("cart")
	kafkaBus.Subscribe(events.TopicOrderCompleted,
		metrics.Counted(saga, events.TopicOrderCompleted, service.HandleOrderCompleted))
	kafkaBus.Subscribe(events.TopicCheckoutFailed,
		metrics.Counted(saga, events.TopicCheckoutFailed, service.HandleCheckoutFailed))

	go kafkaBus.Run(ctx)
	log.Printf("Cart service consuming saga events from %v", cfg.Brokers)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: ":" + cfg.OpsPort, Handler: router}
	go func() {
		log.Printf("Cart service ops endpoint on port %s", cfg.OpsPort)
		if errServe := server.ListenAndServe(); errServe != nil && errServe != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", errServe)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down cart service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	_ = mongoDB.Client().Disconnect(shutdownCtx)
	log.Println("Cart service stopped")
}
