// Package events handles event emission for activity and dataset lifecycle
// changes.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for fern
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ActivityMaterialized emits an activity.materialized event
func (e *Emitter) ActivityMaterialized(ctx context.Context, act *models.Activity) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ActivityMaterialized")
	defer span.End()

	payload := ActivityMaterializedEvent{
		ActivityID:     act.ID,
		IATIIdentifier: act.IATIIdentifier,
		DatasetID:      act.DatasetID,
		Hierarchy:      act.Hierarchy,
		StartDate:      act.StartDate,
		EndDate:        act.EndDate,
	}
	return e.publish(ctx, EventTypeActivityMaterialized, act.IATIIdentifier, act.DatasetID, payload)
}

// ActivityRejected emits an activity.rejected event
func (e *Emitter) ActivityRejected(ctx context.Context, datasetID, identifier, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ActivityRejected")
	defer span.End()

	payload := ActivityRejectedEvent{
		IATIIdentifier: identifier,
		DatasetID:      datasetID,
		Reason:         reason,
	}
	return e.publish(ctx, EventTypeActivityRejected, identifier, datasetID, payload)
}

// ActivityDeleted emits an activity.deleted event for a reconciled activity
func (e *Emitter) ActivityDeleted(ctx context.Context, datasetID, identifier string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ActivityDeleted")
	defer span.End()

	payload := ActivityDeletedEvent{
		IATIIdentifier: identifier,
		DatasetID:      datasetID,
	}
	return e.publish(ctx, EventTypeActivityDeleted, identifier, datasetID, payload)
}

// DatasetParsed emits a dataset.parsed event summarizing a parse pass
func (e *Emitter) DatasetParsed(ctx context.Context, ds *models.Dataset, result *models.ParseResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.DatasetParsed")
	defer span.End()

	payload := DatasetParsedEvent{
		DatasetID:          ds.ID,
		Identifier:         ds.Identifier,
		Publisher:          ds.Publisher,
		ActivitiesSeen:     result.ActivitiesSeen,
		ActivitiesSaved:    result.ActivitiesSaved,
		ActivitiesSkipped:  result.ActivitiesSkipped,
		ActivitiesRejected: result.ActivitiesRejected,
		ActivitiesDeleted:  result.ActivitiesDeleted,
		Notes:              result.Notes,
	}
	if ds.SchemaVersion != nil {
		payload.SchemaVersion = *ds.SchemaVersion
	}
	return e.publish(ctx, EventTypeDatasetParsed, ds.Identifier, ds.ID, payload)
}

// AggregationUpdated emits an aggregation.updated event
func (e *Emitter) AggregationUpdated(ctx context.Context, activityID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.AggregationUpdated")
	defer span.End()

	payload := AggregationUpdatedEvent{ActivityID: activityID}
	return e.publish(ctx, EventTypeAggregationUpdated, activityID, "", payload)
}

func (e *Emitter) publish(ctx context.Context, eventType EventType, key, datasetID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.Event{
		EventType: string(eventType),
		Key:       key,
		DatasetID: datasetID,
		Data:      data,
	}

	if err := e.producer.Publish(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("Failed to emit event")
		return err
	}
	return nil
}
