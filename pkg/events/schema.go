package events

import (
	"time"
)

// EventType defines the type of event
type EventType string

const (
	// Activity events
	EventTypeActivityMaterialized EventType = "activity.materialized"
	EventTypeActivityRejected     EventType = "activity.rejected"
	EventTypeActivityDeleted      EventType = "activity.deleted"

	// Dataset events
	EventTypeDatasetParsed EventType = "dataset.parsed"

	// Aggregation events
	EventTypeAggregationUpdated EventType = "aggregation.updated"
)

// ActivityMaterializedEvent is emitted after an activity commit.
type ActivityMaterializedEvent struct {
	ActivityID     string     `json:"activity_id"`
	IATIIdentifier string     `json:"iati_identifier"`
	DatasetID      string     `json:"dataset_id"`
	Hierarchy      int        `json:"hierarchy"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

// ActivityRejectedEvent is emitted when an activity fails validation and is
// not persisted.
type ActivityRejectedEvent struct {
	IATIIdentifier string `json:"iati_identifier,omitempty"`
	DatasetID      string `json:"dataset_id"`
	Reason         string `json:"reason"`
}

// ActivityDeletedEvent is emitted when reconciliation removes an activity the
// latest document no longer contains.
type ActivityDeletedEvent struct {
	IATIIdentifier string `json:"iati_identifier"`
	DatasetID      string `json:"dataset_id"`
}

// DatasetParsedEvent summarizes a completed parse pass.
type DatasetParsedEvent struct {
	DatasetID          string `json:"dataset_id"`
	Identifier         string `json:"identifier"`
	Publisher          string `json:"publisher"`
	SchemaVersion      string `json:"schema_version,omitempty"`
	ActivitiesSeen     int    `json:"activities_seen"`
	ActivitiesSaved    int    `json:"activities_saved"`
	ActivitiesSkipped  int    `json:"activities_skipped"`
	ActivitiesRejected int    `json:"activities_rejected"`
	ActivitiesDeleted  int    `json:"activities_deleted"`
	Notes              int    `json:"notes"`
}

// AggregationUpdatedEvent is emitted when an activity's aggregation rows are
// rebuilt.
type AggregationUpdatedEvent struct {
	ActivityID string `json:"activity_id"`
}
