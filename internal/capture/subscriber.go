package capture

import (
	"NetSentinel/internal/config"
	"NetSentinel/internal/model"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// PacketHandler is a function that processes a received Packet.
type PacketHandler func(pkt *model.Packet)

// Subscriber subscribes to the NATS packet subject and hands each decoded
// packet to a handler.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to NATS and returns a packet subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.PacketSubject}, nil
}

// Start subscribes and begins processing messages with the handler.
func (s *Subscriber) Start(handler PacketHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var pkt model.Packet
		if err := json.Unmarshal(msg.Data, &pkt); err != nil {
			log.Printf("Error unmarshalling packet: %v", err)
			return
		}
		handler(&pkt)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for packets...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
