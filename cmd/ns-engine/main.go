package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/capture"
	"NetSentinel/internal/config"
	"NetSentinel/internal/correlator"
	"NetSentinel/internal/model"
	"NetSentinel/internal/notification"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/storage"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting ns-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Load model artifacts; any incompatibility is fatal here.
	bundle, err := artifact.Load(cfg.Artifacts.Dir, cfg.Ensemble.DetectionThreshold)
	if err != nil {
		log.Fatalf("Failed to load model artifacts: %v", err)
	}

	// 3. Alert store and notification channels
	store, err := correlator.NewStore(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect alert store: %v", err)
	}
	var redisClient *redis.Client
	if store != nil {
		redisClient = store.Client()
	}
	notifiers := notification.Build(cfg.Notifications, redisClient, cfg.Redis.Channel)

	corr, err := correlator.New(&cfg.Correlator, notifiers, store)
	if err != nil {
		log.Fatalf("Failed to create correlator: %v", err)
	}

	// 4. Publish alerts on the message bus for external consumers.
	alertPub, err := capture.NewAlertPublisher(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer alertPub.Close()
	corr.OnAlert = func(alert *model.Alert) {
		if err := alertPub.Publish(alert); err != nil {
			log.Printf("Failed to publish alert %s: %v", alert.ID, err)
		}
	}

	// 5. Optional flow/verdict persistence
	var writer model.RecordWriter
	if cfg.ClickHouse.Enabled {
		writer, err = storage.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
	}

	// 6. Assemble and start the detection pipeline
	pipe, err := pipeline.New(cfg, bundle, corr, writer)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	pipe.Start()

	// 7. Feed packets from the bus into the pipeline
	sub, err := capture.NewSubscriber(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	if err := sub.Start(func(pkt *model.Packet) {
		pipe.Input() <- pkt
	}); err != nil {
		log.Fatalf("Failed to subscribe to packet stream: %v", err)
	}
	log.Printf("Subscribed to %s, detection running.", cfg.NATS.PacketSubject)

	// 8. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping pipeline...")
	sub.Close()
	pipe.Stop()
	if store != nil {
		store.Close()
	}
	log.Println("Shutdown complete.")
}
