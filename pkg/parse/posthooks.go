package parse

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// PostSaveStore is the activity repository surface the hooks write through.
type PostSaveStore interface {
	UpdateDerivedDates(ctx context.Context, act *models.Activity) error
	UpdateSearchText(ctx context.Context, id, searchText string) error
	ResolveRelatedTo(ctx context.Context, identifier, activityID string) error
}

// GraphProjector mirrors the activity hierarchy into the graph database.
type GraphProjector interface {
	ProjectActivity(ctx context.Context, act *models.Activity, related []*models.RelatedActivity) error
}

// Aggregator recomputes derived financial totals for an activity and its
// ancestors.
type Aggregator interface {
	RecomputeTree(ctx context.Context, activityID string) error
}

// Emitter publishes activity lifecycle events.
type Emitter interface {
	ActivityMaterialized(ctx context.Context, act *models.Activity) error
	AggregationUpdated(ctx context.Context, activityID string) error
}

// PostSave runs the steps that happen after an activity commit: derived
// dates, search text, cross-activity reference resolution, graph projection,
// aggregation and events. The activity is already durable at this point, so
// hook failures are logged and skipped rather than undoing the save.
type PostSave struct {
	store      PostSaveStore
	projector  GraphProjector
	aggregator Aggregator
	emitter    Emitter
	logger     ectologger.Logger
}

// NewPostSave wires the hook runner. Projector, aggregator and emitter may
// be nil when the corresponding subsystem is disabled.
func NewPostSave(store PostSaveStore, projector GraphProjector, aggregator Aggregator, emitter Emitter, logger ectologger.Logger) *PostSave {
	return &PostSave{
		store:      store,
		projector:  projector,
		aggregator: aggregator,
		emitter:    emitter,
		logger:     logger,
	}
}

// Run executes every hook for a just-saved activity.
func (p *PostSave) Run(ctx context.Context, bundle *models.ActivityBundle) {
	ctx, span := tracing.StartSpan(ctx, "parse.PostSave.Run")
	defer span.End()

	act := bundle.Activity
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"activity_id":     act.ID,
		"iati_identifier": act.IATIIdentifier,
	})

	deriveDates(act, bundle.ActivityDates)
	if err := p.store.UpdateDerivedDates(ctx, act); err != nil {
		log.WithError(err).Warn("Post-save derived dates failed")
	}

	act.SearchText = buildSearchText(bundle)
	if err := p.store.UpdateSearchText(ctx, act.ID, act.SearchText); err != nil {
		log.WithError(err).Warn("Post-save search text failed")
	}

	if err := p.store.ResolveRelatedTo(ctx, act.IATIIdentifier, act.ID); err != nil {
		log.WithError(err).Warn("Post-save related resolution failed")
	}

	if p.projector != nil {
		if err := p.projector.ProjectActivity(ctx, act, bundle.RelatedActivities); err != nil {
			log.WithError(err).Warn("Post-save graph projection failed")
		}
	}

	if p.aggregator != nil {
		if err := p.aggregator.RecomputeTree(ctx, act.ID); err != nil {
			log.WithError(err).Warn("Post-save aggregation failed")
		} else if p.emitter != nil {
			if err := p.emitter.AggregationUpdated(ctx, act.ID); err != nil {
				log.WithError(err).Warn("Post-save aggregation event emit failed")
			}
		}
	}

	if p.emitter != nil {
		if err := p.emitter.ActivityMaterialized(ctx, act); err != nil {
			log.WithError(err).Warn("Post-save event emit failed")
		}
	}
}

// deriveDates fills the flattened date fields from the typed date rows. The
// first occurrence of each type wins; start/end prefer actual over planned.
func deriveDates(act *models.Activity, dates []*models.ActivityDate) {
	pick := func(dateType string) *time.Time {
		for _, d := range dates {
			if d.Type == dateType {
				t := d.ISODate
				return &t
			}
		}
		return nil
	}

	act.PlannedStart = pick(models.DateTypePlannedStart)
	act.ActualStart = pick(models.DateTypeActualStart)
	act.PlannedEnd = pick(models.DateTypePlannedEnd)
	act.ActualEnd = pick(models.DateTypeActualEnd)

	act.StartDate = act.ActualStart
	if act.StartDate == nil {
		act.StartDate = act.PlannedStart
	}
	act.EndDate = act.ActualEnd
	if act.EndDate == nil {
		act.EndDate = act.PlannedEnd
	}
}

func buildSearchText(bundle *models.ActivityBundle) string {
	fragments := make([]string, 0, len(bundle.Narratives))
	for _, n := range bundle.Narratives {
		fragments = append(fragments, n.Content)
	}
	return normalizers.SearchText(bundle.Activity.IATIIdentifier, fragments)
}
