// Package events fans out order line changes to kitchen screens and, when
// configured, to a NATS subject for other consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/ws"
)

// Event types.
const (
	DetailAdded         = "order_detail.added"
	DetailSent          = "order_detail.sent"
	DetailStatusChanged = "order_detail.status_changed"
	DetailRemoved       = "order_detail.removed"
)

// DefaultSubject is the NATS subject order line events are published on.
const DefaultSubject = "orders.details"

// OrderDetailEvent describes one line change.
type OrderDetailEvent struct {
	Type         string    `json:"type"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OrderID      uuid.UUID `json:"order_id"`
	DetailID     uuid.UUID `json:"order_detail_id"`
	Status       string    `json:"status"`
	Station      string    `json:"station,omitempty"`
	ProductName  string    `json:"product_name"`
	UnitName     string    `json:"unit_name"`
	Quantity     int32     `json:"quantity"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// FromDetail builds an event of type typ for d.
func FromDetail(typ string, restaurantID uuid.UUID, d database.OrderDetail) OrderDetailEvent {
	return OrderDetailEvent{
		Type:         typ,
		RestaurantID: restaurantID,
		OrderID:      d.OrderID,
		DetailID:     d.ID,
		Status:       d.Status,
		Station:      d.Station.String,
		ProductName:  d.ProductName,
		UnitName:     d.UnitName,
		Quantity:     d.Quantity,
		OccurredAt:   time.Now().UTC(),
	}
}

// Publisher delivers order line events.
type Publisher interface {
	Publish(ctx context.Context, evt OrderDetailEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt OrderDetailEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event ws.Event)
}

// HubPublisher pushes events to the restaurant's kitchen screens.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, evt OrderDetailEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.hub.BroadcastToRestaurant(evt.RestaurantID, ws.Event{
		Type:    evt.Type,
		Station: evt.Station,
		Payload: payload,
	})
	return nil
}

// NATSPublisher publishes events as JSON on a subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. An empty subject uses DefaultSubject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("tablepos-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSPublisherFromConn(conn, subject), nil
}

// NewNATSPublisherFromConn wraps an existing connection.
func NewNATSPublisherFromConn(conn *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Publish(ctx context.Context, evt OrderDetailEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject+"."+evt.RestaurantID.String(), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, OrderDetailEvent) error { return nil }
