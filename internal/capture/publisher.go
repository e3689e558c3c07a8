package capture

import (
	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// Publisher publishes packet metadata to the NATS packet subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to NATS and returns a packet publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{nc: nc, subject: cfg.PacketSubject}, nil
}

// Publish serializes a Packet to JSON and publishes it.
func (p *Publisher) Publish(pkt *model.Packet) error {
	data, err := json.Marshal(pkt)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}

// AlertPublisher publishes correlated alerts on the alert subject. It is
// the pipeline's alert output contract; dashboards and dispatchers
// subscribe externally.
type AlertPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewAlertPublisher connects to NATS and returns an alert publisher.
func NewAlertPublisher(cfg config.NATSConfig) (*AlertPublisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	return &AlertPublisher{nc: nc, subject: cfg.AlertSubject}, nil
}

// Publish serializes an Alert to JSON and publishes it.
func (p *AlertPublisher) Publish(alert *model.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *AlertPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
