package change

import "time"

// Operation classifies a document write observed by the dispatcher.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Envelope is the shared document-change shape delivered to trigger handlers.
// Before/After carry snapshots of the document around the write; Before is
// nil for creates and After is nil for deletes.
type Envelope struct {
	ChangeID      string    `json:"change_id"`
	Operation     Operation `json:"operation"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	OccurredAtUTC time.Time `json:"occurred_at_utc"`
	Attempt       int       `json:"attempt"`
	Before        any       `json:"before,omitempty"`
	After         any       `json:"after,omitempty"`
}
