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
	"github.com/fjod/go_checkout/internal/inventory"
	"github.com/fjod/go_checkout/internal/inventory/store"
	"github.com/fjod/go_checkout/internal/metrics"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.LoadInventory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cred := &store.Credentials{
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.DBName,
		MigrationsDirPath: cfg.DB.MigrationsDirPath,
	}
	pgStore, err := store.NewPostgresStore(cred)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pgStore.Close()
	if err := pgStore.RunMigrations(cred); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.DB.Host, cfg.DB.Port)

	kafkaBus := bus.NewKafkaBus("inventory-service", cfg.Brokers...)
	defer kafkaBus.Close()

	manager := inventory.NewManager(pgStore, kafkaBus, cfg.ReservationTTL)

	saga := metrics.NewSagaMetrics("inventory")
	kafkaBus.Subscribe(events.TopicCheckoutInitiated,
		metrics.Counted(saga, events.TopicCheckoutInitiated, manager.HandleCheckoutInitiated))
	kafkaBus.Subscribe(events.TopicOrderCompleted,
		metrics.Counted(saga, events.TopicOrderCompleted, manager.HandleOrderCompleted))
	kafkaBus.Subscribe(events.TopicCheckoutFailed,
		metrics.Counted(saga, events.TopicCheckoutFailed, manager.HandleCheckoutFailed))

	go kafkaBus.Run(ctx)
	go manager.RunExpirySweep(ctx, cfg.SweepInterval)
	log.Printf("Inventory service consuming saga events from %v", cfg.Brokers)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: ":" + cfg.OpsPort, Handler: router}
	go func() {
		log.Printf("Inventory service ops endpoint on port %s", cfg.OpsPort)
		if errServe := server.ListenAndServe(); errServe != nil && errServe != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", errServe)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down inventory service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Println("Inventory service stopped")
}
