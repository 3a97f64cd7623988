// Package events publishes domain changes to Kafka.
package events

import (
	"strconv"
	"strings"
	"time"
)

type EventType string

const (
	CompanyCreated  EventType = "company_created"
	CompanyUpdated  EventType = "company_updated"
	CompanyDeleted  EventType = "company_deleted"
	CompanyRestored EventType = "company_restored"

	ProjectCreated        EventType = "project_created"
	ProjectUpdated        EventType = "project_updated"
	ProjectMembersChanged EventType = "project_members_changed"
	ProjectDeleted        EventType = "project_deleted"
	ProjectRestored       EventType = "project_restored"

	TaskCreated          EventType = "task_created"
	TaskUpdated          EventType = "task_updated"
	TaskStatusChanged    EventType = "task_status_changed"
	TaskAssigneesChanged EventType = "task_assignees_changed"
	TaskDeleted          EventType = "task_deleted"
	TaskRestored         EventType = "task_restored"

	UserRegistered EventType = "user_registered"
	UserUpdated    EventType = "user_updated"
	UserDeleted    EventType = "user_deleted"
	UserRestored   EventType = "user_restored"
)

// Event describes one change. Data holds a small event-specific payload.
type Event struct {
	Type       EventType   `json:"type"`
	EntityID   uint64      `json:"entity_id"`
	ActorID    uint64      `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

// Entity is the kind of entity the event is about, e.g. "task".
func (e Event) Entity() string {
	kind, _, _ := strings.Cut(string(e.Type), "_")
	return kind
}

// Key partitions events so every change to one entity stays ordered.
func (e Event) Key() string {
	return e.Entity() + ":" + strconv.FormatUint(e.EntityID, 10)
}

// Publisher accepts events without blocking the request path.
type Publisher interface {
	Publish(event Event)
	Close()
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

func (NoopPublisher) Close() {}
