package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/capture"
	"NetSentinel/internal/config"
	"NetSentinel/internal/correlator"
	"NetSentinel/internal/model"
	"NetSentinel/internal/notification"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Model artifacts; incompatibility is fatal before the server binds.
	bundle, err := artifact.Load(cfg.Artifacts.Dir, cfg.Ensemble.DetectionThreshold)
	if err != nil {
		log.Fatalf("Failed to load model artifacts: %v", err)
	}

	store, err := correlator.NewStore(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect alert store: %v", err)
	}
	var redisClient *redis.Client
	if store != nil {
		redisClient = store.Client()
	}

	corr, err := correlator.New(&cfg.Correlator, notification.Build(cfg.Notifications, redisClient, cfg.Redis.Channel), store)
	if err != nil {
		log.Fatalf("Failed to create correlator: %v", err)
	}

	// Alerts raised through API detections also go out on the bus.
	alertPub, err := capture.NewAlertPublisher(cfg.NATS)
	if err != nil {
		log.Printf("NATS unavailable, alerts stay local: %v", err)
	} else {
		defer alertPub.Close()
		corr.OnAlert = func(alert *model.Alert) {
			if err := alertPub.Publish(alert); err != nil {
				log.Printf("Failed to publish alert %s: %v", alert.ID, err)
			}
		}
	}

	// The API drives the detection stages directly; the flow tracker
	// inside the pipeline stays idle.
	pipe, err := pipeline.New(cfg, bundle, corr, nil)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// Flow history queries are only available with persistence on.
	var querier *storage.Querier
	if cfg.ClickHouse.Enabled {
		querier, err = storage.NewQuerier(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
		defer querier.Close()
	}

	// Initialize router
	r := mux.NewRouter()

	apiHandler := &APIHandler{cfg: cfg, bundle: bundle, pipe: pipe, corr: corr, querier: querier}

	// Define API routes
	r.HandleFunc("/api/v1/health", apiHandler.healthHandler).Methods("GET")
	r.HandleFunc("/api/v1/models/info", apiHandler.modelsInfoHandler).Methods("GET")
	r.HandleFunc("/api/v1/detect/single", apiHandler.detectHandler).Methods("POST")
	r.HandleFunc("/api/v1/detect/batch", apiHandler.detectBatchHandler).Methods("POST")
	r.HandleFunc("/api/v1/detect/csv", apiHandler.detectCSVHandler).Methods("POST")
	r.HandleFunc("/api/v1/alerts", apiHandler.listAlertsHandler).Methods("GET")
	r.HandleFunc("/api/v1/alerts/stats", apiHandler.alertStatsHandler).Methods("GET")
	r.HandleFunc("/api/v1/alerts/{id}", apiHandler.getAlertHandler).Methods("GET")
	r.HandleFunc("/api/v1/alerts/{id}/acknowledge", apiHandler.acknowledgeHandler).Methods("POST")
	r.HandleFunc("/api/v1/alerts/{id}/false-positive", apiHandler.falsePositiveHandler).Methods("POST")
	r.HandleFunc("/api/v1/flows/recent", apiHandler.recentFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/flows/summary", apiHandler.flowSummaryHandler).Methods("GET")

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if store != nil {
		store.Close()
	}
	log.Println("API server exited.")
}
