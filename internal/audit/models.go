package audit

import (
	"time"

	"onsd/pkg/domain"
)

// Event records a successful registry mutation. Events are emitted from the
// service layer to an append-only side channel; they carry the caller and
// the affected keys but never gate or alter control flow.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Caller    domain.CallerID `json:"caller"`
	Action    string          `json:"action"`
	// Key is the primary affected entity key.
	Key string `json:"key"`
	// ParentKey names the owning GS1 code on record events.
	ParentKey string `json:"parent_key,omitempty"`
	// ServiceType names the referenced service type on record creation.
	ServiceType string `json:"service_type,omitempty"`
}

// Action is the enumerated event name.
type Action string

const (
	EventCodeCreated        Action = "gs1_code_created"
	EventCodeDeleted        Action = "gs1_code_deleted"
	EventRecordCreated      Action = "ons_record_created"
	EventRecordDeleted      Action = "ons_record_deleted"
	EventServiceTypeCreated Action = "service_type_created"
	EventServiceTypeDeleted Action = "service_type_deleted"
)
