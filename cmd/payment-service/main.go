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
	"github.com/fjod/go_checkout/internal/payment"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.LoadPayment()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cred := &payment.Credentials{
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.DBName,
		MigrationsDirPath: cfg.DB.MigrationsDirPath,
	}
	repo, err := payment.NewPostgresRepository(cred)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.DB.Host, cfg.DB.Port)

	kafkaBus := bus.NewKafkaBus("payment-service", cfg.Brokers...)
	defer kafkaBus.Close()

	gateway := payment.NewHTTPGateway(cfg.GatewayAddr)
	processor := payment.NewProcessor(repo, gateway, kafkaBus)

	saga := metrics.NewSagaMetrics("payment")
	kafkaBus.Subscribe(events.TopicInventoryReserved,
		metrics.Counted(saga, events.TopicInventoryReserved, processor.HandleInventoryReserved))

	go kafkaBus.Run(ctx)
	log.Printf("Payment service consuming saga events from %v", cfg.Brokers)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: ":" + cfg.OpsPort, Handler: router}
	go func() {
		log.Printf("Payment service ops endpoint on port %s", cfg.OpsPort)
		if errServe := server.ListenAndServe(); errServe != nil && errServe != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", errServe)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down payment service...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Println("Payment service stopped")
}
