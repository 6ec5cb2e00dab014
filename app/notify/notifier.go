package notify

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/pattayaone/tidal/app/content"
)

// Notifier is the entity-mention side channel. NotifyMention is
// fire-and-forget: a failed publish is logged by the caller, never
// propagated to fail the item being ingested.
type Notifier interface {
	NotifyMention(entity string, record *content.Record) error
	Close()
}

// NATSNotifier publishes mention events to a NATS subject consumed by the
// business-notification service.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSNotifier{conn: conn, subject: subject}, nil
}

var _ Notifier = (*NATSNotifier)(nil)

type mentionEvent struct {
	Entity     string `json:"entity"`
	RecordID   string `json:"record_id"`
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Link       string `json:"link"`
	Platform   string `json:"platform"`
	Author     string `json:"author"`
	OccurredAt string `json:"occurred_at"`
}

func (n *NATSNotifier) NotifyMention(entity string, record *content.Record) error {
	event := mentionEvent{
		Entity:     entity,
		RecordID:   record.ID,
		Collection: record.Collection,
		Title:      record.Title,
		Link:       record.Link,
		Platform:   record.Platform,
		Author:     record.Author,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal mention event: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("failed to publish mention event: %w", err)
	}

	return nil
}

func (n *NATSNotifier) Close() {
	n.conn.Close()
}

// Noop is used when no NATS server is configured.
type Noop struct{}

var _ Notifier = Noop{}

func (Noop) NotifyMention(string, *content.Record) error { return nil }

func (Noop) Close() {}
