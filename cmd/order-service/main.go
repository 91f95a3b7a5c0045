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
	"github.com/fjod/go_checkout/internal/config"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/fjod/go_checkout/internal/metrics"
	"github.com/fjod/go_checkout/internal/order"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.LoadOrder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cred := &order.Credentials{
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.DBName,
		MigrationsDirPath: cfg.DB.MigrationsDirPath,
	}
	repo, err := order.NewPostgresRepository(cred)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.DB.Host, cfg.DB.Port)

	kafkaBus := bus.NewKafkaBus("order-service", cfg.Brokers...)
	defer kafkaBus.Close()

	saga := metrics.NewSagaMetrics("order")
	finalizer := order.NewFinalizer(repo, kafkaBus, saga)

	kafkaBus.Subscribe(events.TopicCheckoutInitiated,
		metrics.Counted(saga, events.TopicCheckoutInitiated, finalizer.HandleCheckoutInitiated))
	kafkaBus.Subscribe(events.TopicInventoryReserved,
		metrics.Counted(saga, events.TopicInventoryReserved, finalizer.HandleInventoryReserved))
	kafkaBus.Subscribe(events.TopicInventoryReservationFailed,
		metrics.Counted(saga, events.TopicInventoryReservationFailed, finalizer.HandleInventoryReservationFailed))
	kafkaBus.Subscribe(events.TopicPaymentSucceeded,
		metrics.Counted(saga, events.TopicPaymentSucceeded, finalizer.HandlePaymentSucceeded))
	kafkaBus.Subscribe(events.TopicPaymentFailed,
		metrics.Counted(saga, events.TopicPaymentFailed, finalizer.HandlePaymentFailed))

	go kafkaBus.Run(ctx)
	log.Printf("Order service consuming saga events from %v", cfg.Brokers)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: ":" + cfg.OpsPort, Handler: router}
	go func() {
		log.Printf("Order service ops endpoint on port %s", cfg.OpsPort)
		if errServe := server.ListenAndServe(); errServe != nil && errServe != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", errServe)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down order service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Println("Order service stopped")
}
