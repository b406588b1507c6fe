// Package events publishes change notifications for tenant data on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subject layout: tenantcrm.<org_id>.<resource>.<action>
const (
	SubjectPrefix = "tenantcrm"
	subjectFormat = SubjectPrefix + ".%s.%s.%s"
)

// Resources and actions used in subjects and Event.Type.
const (
	ResourceOrganization = "organization"
	ResourceCustomer     = "customer"
	ResourceDataType     = "data_type"
	ResourceEntry        = "entry"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Subject builds the subject for a change to resource in orgID.
func Subject(orgID, resource, action string) string {
	return fmt.Sprintf(subjectFormat, orgID, resource, action)
}

// Event is the JSON payload published for every change.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	ResourceID     string    `json:"resource_id"`
	ActorID        string    `json:"actor_id,omitempty"`
	Data           any       `json:"data,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher emits change events. Publishing is best-effort: callers have
// already committed the change, so failures are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, orgID, resource, action, resourceID, actorID string, data any)
	Close()
}

// NewEvent fills in the envelope for a change.
func NewEvent(orgID, resource, action, resourceID, actorID string, data any) Event {
	return Event{
		ID:             uuid.New().String(),
		Type:           resource + "." + action,
		OrganizationID: orgID,
		ResourceID:     resourceID,
		ActorID:        actorID,
		Data:           data,
		Timestamp:      time.Now().UTC(),
	}
}

// NATSPublisher publishes events on a core NATS connection.
type NATSPublisher struct {
	nc  *nats.Conn
	log *slog.Logger
}

// Connect dials url and returns a NATSPublisher. An empty url yields a
// Noop publisher.
func Connect(url string, log *slog.Logger) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("tenantcrm"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc, log: log}, nil
}

// Publish marshals the event and publishes it without waiting for acks.
func (p *NATSPublisher) Publish(_ context.Context, orgID, resource, action, resourceID, actorID string, data any) {
	ev := NewEvent(orgID, resource, action, resourceID, actorID, data)
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	subject := Subject(orgID, resource, action)
	if err := p.nc.Publish(subject, b); err != nil {
		p.log.Error("publish event", "subject", subject, "err", err)
		return
	}
	p.log.Debug("published event", "subject", subject, "id", ev.ID)
}

// Close drains the connection, flushing pending publishes.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain", "err", err)
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, string, string, string, any) {}
func (Noop) Close()                                                               {}
