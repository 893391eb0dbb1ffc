package parse

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/codelist"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/xmltree"
)

// DatasetStore is the dataset repository surface the engine needs.
type DatasetStore interface {
	MarkParseStarted(ctx context.Context, id, contentHash, schemaVersion string, startedAt time.Time) error
	MarkParsed(ctx context.Context, id string) error
	AddNotes(ctx context.Context, notes []*models.DatasetNote) error
	ClearNotes(ctx context.Context, datasetID string) error
}

// ReconciliationStore removes activities a new parse no longer mentions.
// The keep list names identifiers the pass saw but did not re-save, which
// must survive reconciliation.
type ReconciliationStore interface {
	DeleteUnseen(ctx context.Context, datasetID string, parseStartedAt time.Time, keep []string) ([]string, error)
}

// DatasetEmitter publishes dataset lifecycle events.
type DatasetEmitter interface {
	DatasetParsed(ctx context.Context, ds *models.Dataset, result *models.ParseResult) error
	ActivityRejected(ctx context.Context, datasetID, identifier, reason string) error
	ActivityDeleted(ctx context.Context, datasetID, identifier string) error
}

// Engine parses a full dataset document: walk each activity, persist it, run
// post-save hooks, then reconcile away activities the document dropped.
// Activities are independent failure domains; only document-level errors
// abort the pass.
type Engine struct {
	walker     *Walker
	persister  *Persister
	postSave   *PostSave
	datasets   DatasetStore
	activities ReconciliationStore
	emitter    DatasetEmitter
	codelists  *codelist.Resolver
	logger     ectologger.Logger
}

// NewEngine wires the dataset parse engine. The emitter may be nil.
func NewEngine(
	walker *Walker,
	persister *Persister,
	postSave *PostSave,
	datasets DatasetStore,
	activities ReconciliationStore,
	emitter DatasetEmitter,
	codelists *codelist.Resolver,
	logger ectologger.Logger,
) *Engine {
	return &Engine{
		walker:     walker,
		persister:  persister,
		postSave:   postSave,
		datasets:   datasets,
		activities: activities,
		emitter:    emitter,
		codelists:  codelists,
		logger:     logger,
	}
}

// ParseDataset runs one full parse pass over a dataset document.
func (e *Engine) ParseDataset(ctx context.Context, ds *models.Dataset, content []byte) (*models.ParseResult, error) {
	ctx, span := tracing.StartSpan(ctx, "parse.Engine.ParseDataset")
	defer span.End()

	startedAt := time.Now().UTC()
	result := &models.ParseResult{DatasetID: ds.ID}
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": ds.ID,
		"identifier": ds.Identifier,
	})

	contentHash := fingerprint.Generate(content)
	if ds.LastParsed != nil && !fingerprint.HasChanged(ds.ContentHash, contentHash) {
		log.Info("Dataset content unchanged, skipping parse")
		return result, nil
	}

	root, err := xmltree.Decode(content)
	if err != nil {
		return result, e.failDataset(ctx, ds, result, iatierrors.NewParserError("malformed XML: "+err.Error()))
	}

	version, err := DetectVersion(root)
	if err != nil {
		return result, e.failDataset(ctx, ds, result, iatierrors.WrapParseError(err))
	}

	if err := e.datasets.ClearNotes(ctx, ds.ID); err != nil {
		return result, err
	}
	if err := e.datasets.MarkParseStarted(ctx, ds.ID, contentHash, version, startedAt); err != nil {
		return result, err
	}

	var notes []*models.DatasetNote
	var keep []string
	for _, activityEl := range root.Children {
		if activityEl.Tag() != "iati-activity" {
			continue
		}
		result.ActivitiesSeen++

		identifier := activityEl.ChildText("iati-identifier")
		activityNotes, outcome, err := e.parseActivity(ctx, ds, version, identifier, activityEl)
		notes = append(notes, activityNotes...)
		if err != nil {
			// Document-level failure; record what we have and stop.
			notes = append(notes, iatierrors.WrapParseError(err).ToNote(ds.ID))
			e.flushNotes(ctx, notes)
			return result, err
		}

		switch outcome {
		case outcomeSaved:
			result.ActivitiesSaved++
		case outcomeSkipped:
			result.ActivitiesSkipped++
		case outcomeRejected:
			result.ActivitiesRejected++
		}
		if outcome != outcomeSaved && identifier != "" {
			// Seen but not re-saved; the stored record predates the pass
			// and must not be reconciled away.
			keep = append(keep, identifier)
		}
		metrics.RecordActivity(ds.Publisher, string(outcome))
	}

	deleted, err := e.activities.DeleteUnseen(ctx, ds.ID, startedAt, keep)
	if err != nil {
		return result, err
	}
	result.ActivitiesDeleted = len(deleted)
	if e.emitter != nil {
		for _, identifier := range deleted {
			if err := e.emitter.ActivityDeleted(ctx, ds.ID, identifier); err != nil {
				log.WithError(err).Warn("Failed to emit activity deleted event")
			}
		}
	}

	result.Notes = len(notes)
	e.flushNotes(ctx, notes)

	if err := e.datasets.MarkParsed(ctx, ds.ID); err != nil {
		return result, err
	}

	if e.emitter != nil {
		if err := e.emitter.DatasetParsed(ctx, ds, result); err != nil {
			log.WithError(err).Warn("Failed to emit dataset parsed event")
		}
	}

	metrics.RecordDatasetParse(ds.Publisher, time.Since(startedAt).Seconds())
	log.WithFields(map[string]any{
		"seen":     result.ActivitiesSeen,
		"saved":    result.ActivitiesSaved,
		"skipped":  result.ActivitiesSkipped,
		"rejected": result.ActivitiesRejected,
		"deleted":  result.ActivitiesDeleted,
		"notes":    result.Notes,
	}).Info("Parsed dataset")
	return result, nil
}

type activityOutcome string

const (
	outcomeSaved    activityOutcome = "saved"
	outcomeSkipped  activityOutcome = "skipped"
	outcomeRejected activityOutcome = "rejected"
)

func (e *Engine) parseActivity(ctx context.Context, ds *models.Dataset, version, identifier string, activityEl *xmltree.Element) ([]*models.DatasetNote, activityOutcome, error) {
	if identifier == "" {
		pe := iatierrors.NewRequiredFieldError("activity", "iati-identifier").AddElementPath("iati_activity/iati_identifier")
		e.emitRejected(ctx, ds.ID, identifier, pe)
		return []*models.DatasetNote{noteFor(pe, ds.ID)}, outcomeRejected, nil
	}

	var lastUpdated *time.Time
	if raw := activityEl.Attr("last-updated-datetime"); raw != "" {
		if t, ok := parseISODate(raw); ok {
			lastUpdated = &t
		}
	}

	if err := e.persister.CheckUpToDate(ctx, identifier, lastUpdated); err != nil {
		if errors.Is(err, iatierrors.ErrNoUpdateRequired) {
			return nil, outcomeSkipped, nil
		}
		if iatierrors.IsParseError(err) {
			pe := iatierrors.WrapParseError(err)
			e.emitRejected(ctx, ds.ID, identifier, pe)
			return []*models.DatasetNote{noteFor(pe, ds.ID)}, outcomeRejected, nil
		}
		return nil, outcomeRejected, err
	}

	c := NewContext(ctx, ds, version, e.codelists)

	if err := e.walker.Walk(c, activityEl); err != nil {
		pe := iatierrors.WrapParseError(err).AddActivityIdentifier(identifier)
		if iatierrors.IsFatal(pe) {
			return notesFor(c.Errors(), ds.ID), outcomeRejected, pe
		}
		e.emitRejected(ctx, ds.ID, identifier, pe)
		notes := notesFor(c.Errors(), ds.ID)
		return append(notes, noteFor(pe, ds.ID)), outcomeRejected, nil
	}

	if err := e.persister.Save(c.Ctx, c); err != nil {
		if iatierrors.IsParseError(err) {
			pe := iatierrors.WrapParseError(err).AddActivityIdentifier(identifier)
			e.emitRejected(ctx, ds.ID, identifier, pe)
			notes := notesFor(c.Errors(), ds.ID)
			return append(notes, noteFor(pe, ds.ID)), outcomeRejected, nil
		}
		return notesFor(c.Errors(), ds.ID), outcomeRejected, err
	}

	e.postSave.Run(c.Ctx, c.Bundle)
	return notesFor(c.Errors(), ds.ID), outcomeSaved, nil
}

func (e *Engine) emitRejected(ctx context.Context, datasetID, identifier string, pe *iatierrors.ParseError) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.ActivityRejected(ctx, datasetID, identifier, pe.Error()); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to emit activity rejected event")
	}
}

// failDataset records a fatal document error as a note and marks the pass.
func (e *Engine) failDataset(ctx context.Context, ds *models.Dataset, result *models.ParseResult, pe *iatierrors.ParseError) error {
	e.flushNotes(ctx, []*models.DatasetNote{noteFor(pe, ds.ID)})
	result.Notes++
	return pe
}

func (e *Engine) flushNotes(ctx context.Context, notes []*models.DatasetNote) {
	if len(notes) == 0 {
		return
	}
	for _, n := range notes {
		metrics.RecordNote(n.Kind)
	}
	if err := e.datasets.AddNotes(ctx, notes); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to record dataset notes")
	}
}

func noteFor(pe *iatierrors.ParseError, datasetID string) *models.DatasetNote {
	return pe.ToNote(datasetID)
}

func notesFor(errs []*iatierrors.ParseError, datasetID string) []*models.DatasetNote {
	notes := make([]*models.DatasetNote, 0, len(errs))
	for _, pe := range errs {
		notes = append(notes, pe.ToNote(datasetID))
	}
	return notes
}
