// Package events publishes workflow events (submission, review, pickup) to
// Redis Streams for the activity feed and to MQTT for live scanner screens.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonredis "github.com/iamyinka/reliefproj/internal/common/redis"

	"github.com/go-redis/redis/v8"
)

const (
	ApplicationSubmitted = "application.submitted"
	ApplicationApproved  = "application.approved"
	ApplicationRejected  = "application.rejected"
	PickupCompleted      = "pickup.completed"
	PickupStatusChanged  = "pickup.status_changed"
	PackageRestocked     = "package.restocked"
	PackageCreated       = "package.created"
	PackageUpdated       = "package.updated"
)

type Event struct {
	Type            string    `json:"type"`
	ApplicationID   string    `json:"application_id,omitempty"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	PickupCode      string    `json:"pickup_code,omitempty"`
	PackageID       int64     `json:"package_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	Actor           string    `json:"actor,omitempty"`
	At              time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StreamPublisher appends events to a capped Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, e Event) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, e); err != nil {
		return fmt.Errorf("failed to publish %s to stream %s: %w", e.Type, p.stream, err)
	}
	return nil
}

// Recent returns up to n events, newest first. Entries that fail to decode are skipped.
func (p *StreamPublisher) Recent(ctx context.Context, n int64) ([]Event, error) {
	msgs, err := commonredis.ReadRecent(ctx, p.client, p.stream, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", p.stream, err)
	}
	out := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MQTTClient is the subset of the common mqtt client used here.
type MQTTClient interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTPublisher sends each event to <prefix>/<type>, e.g. relief/pickups/pickup.completed.
type MQTTPublisher struct {
	client MQTTClient
	prefix string
}

func NewMQTTPublisher(client MQTTClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) Publish(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(p.prefix+"/"+e.Type, false, payload)
}
