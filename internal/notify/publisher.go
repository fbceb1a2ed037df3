// Package notify publishes job lifecycle events. Events are decoupled from
// the transactions that trigger them: a failed publish is logged and never
// surfaces to the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventJobStarted     = "job.started"
	EventJobCompleted   = "job.completed"
	EventJobCancelled   = "job.cancelled"
	EventJobRescheduled = "job.rescheduled"
)

// JobEvent is the payload published on a job lifecycle transition.
type JobEvent struct {
	Type           string    `json:"type"`
	OrganizationID uuid.UUID `json:"organization_id"`
	JobID          uuid.UUID `json:"job_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher delivers job lifecycle events to interested consumers.
type Publisher interface {
	PublishJobEvent(ctx context.Context, event JobEvent) error
}

// RedisPublisher publishes events on a per-organization Redis channel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Channel returns the pub/sub channel name for an organization.
func Channel(orgID uuid.UUID) string {
	return fmt.Sprintf("jobs.events.%s", orgID)
}

func (p *RedisPublisher) PublishJobEvent(ctx context.Context, event JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(event.OrganizationID), payload).Err(); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}
