package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject combat events are published on.
const DefaultSubject = "starfall.combat.events"

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events as JSON to a NATS subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

// NewNATSSink creates a NATSSink. An empty subject uses DefaultSubject.
//
// Precondition: pub must be non-nil.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

// Emit implements Sink. The subject is "<subject>.<event name>".
func (s *NATSSink) Emit(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal telemetry event %q: %w", e.Name, err)
	}
	if err := s.pub.Publish(s.subject+"."+e.Name, data); err != nil {
		return fmt.Errorf("publish telemetry event %q: %w", e.Name, err)
	}
	return nil
}

// DialNATS connects to url with a client name.
func DialNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("starfall-combat"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %q: %w", url, err)
	}
	return conn, nil
}
