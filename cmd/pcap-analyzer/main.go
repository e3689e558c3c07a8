package main

import (
	"fmt"
	"log"
	"os"
	"sync"

	"NetSentinel/internal/artifact"
	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
	"NetSentinel/internal/pipeline"
	"NetSentinel/internal/storage"
	"NetSentinel/pkg/pcap"
)

func main() {
	// 1. Get pcap file path from command-line arguments
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/pcap-analyzer/main.go <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := os.Args[1]

	// 2. Load configuration and artifacts
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	bundle, err := artifact.Load(cfg.Artifacts.Dir, cfg.Ensemble.DetectionThreshold)
	if err != nil {
		log.Fatalf("Failed to load model artifacts: %v", err)
	}

	var writer model.RecordWriter
	if cfg.ClickHouse.Enabled {
		writer, err = storage.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
	}

	// 3. Assemble the pipeline with a verdict tally instead of alerting
	pipe, err := pipeline.New(cfg, bundle, nil, writer)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	var mu sync.Mutex
	var flows, attacks, anomalies int
	pipe.OnVerdict = func(v *model.Verdict) {
		mu.Lock()
		defer mu.Unlock()
		flows++
		if v.Attack {
			attacks++
			log.Printf("ATTACK %s category=%s confidence=%.2f source=%s",
				verdictTag(v), v.Category, v.Confidence, v.SourceAddr)
		}
		if v.Anomalous {
			anomalies++
		}
	}

	pcapReader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer pcapReader.Close()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// 4. Start the processing pipeline and feed it the capture
	pipe.Start()

	packets := make(chan *model.Packet, 256)
	go pcapReader.ReadPackets(packets)
	count := 0
	for pkt := range packets {
		pipe.Input() <- pkt
		count++
	}
	log.Printf("Finished reading %d packets from pcap file.", count)

	// 5. Flush open flows and report
	pipe.Stop()

	mu.Lock()
	defer mu.Unlock()
	log.Printf("Analysis complete: %d flows, %d attacks, %d anomaly-flagged.", flows, attacks, anomalies)
}

func verdictTag(v *model.Verdict) string {
	if v.Degraded {
		return fmt.Sprintf("record=%d (degraded)", v.RecordID)
	}
	return fmt.Sprintf("record=%d", v.RecordID)
}
