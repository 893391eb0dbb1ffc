package narrative

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var narrativeColumns = []string{
	"id", "activity_id", "owner_type", "owner_id", "language", "content",
}

var organisationNarrativeColumns = []string{
	"id", "organisation_id", "language", "content",
}

// Repository handles narrative persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new narrative repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// InsertMany inserts narratives inside the given transaction. Owner rows
// must already exist so the polymorphic owner_id points at something real.
func (r *Repository) InsertMany(ctx context.Context, tx database.Tx, narratives []*models.Narrative) error {
	ctx, span := tracing.StartSpan(ctx, "narrative.Repository.InsertMany")
	defer span.End()

	if len(narratives) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("narratives")
	ib.Cols(narrativeColumns...)
	for _, n := range narratives {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		ib.Values(n.ID, n.ActivityID, n.OwnerType, n.OwnerID, n.Language, n.Content)
	}

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(narratives)}).Error("Failed to insert narratives")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert narratives")
	}
	return nil
}

// ReplaceForOrganisation swaps an organisation's name narratives for the
// given set. Organisation narratives live in their own table, outside any
// activity transaction, so a later activity naming the same organisation
// refreshes the text in place.
func (r *Repository) ReplaceForOrganisation(ctx context.Context, organisationID string, narratives []*models.OrganisationNarrative) error {
	ctx, span := tracing.StartSpan(ctx, "narrative.Repository.ReplaceForOrganisation")
	defer span.End()

	if len(narratives) == 0 {
		return nil
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("organisation_narratives")
	db.Where(db.Equal("organisation_id", organisationID))
	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organisation_id": organisationID}).Error("Failed to clear organisation narratives")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear organisation narratives")
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("organisation_narratives")
	ib.Cols(organisationNarrativeColumns...)
	for _, n := range narratives {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		ib.Values(n.ID, organisationID, n.Language, n.Content)
	}
	query, args = ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organisation_id": organisationID, "count": len(narratives)}).Error("Failed to insert organisation narratives")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert organisation narratives")
	}
	return nil
}

// ListByOrganisation retrieves an organisation's name narratives.
func (r *Repository) ListByOrganisation(ctx context.Context, organisationID string) ([]models.OrganisationNarrative, error) {
	ctx, span := tracing.StartSpan(ctx, "narrative.Repository.ListByOrganisation")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(organisationNarrativeColumns...)
	sb.From("organisation_narratives")
	sb.Where(sb.Equal("organisation_id", organisationID))

	query, args := sb.Build()
	var narratives []models.OrganisationNarrative
	if err := r.db.SelectContext(ctx, &narratives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organisation_id": organisationID}).Error("Failed to list organisation narratives")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list organisation narratives")
	}
	return narratives, nil
}

// ListByOwner retrieves the narratives attached to one owner row.
func (r *Repository) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]models.Narrative, error) {
	ctx, span := tracing.StartSpan(ctx, "narrative.Repository.ListByOwner")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(narrativeColumns...)
	sb.From("narratives")
	sb.Where(
		sb.Equal("owner_type", ownerType),
		sb.Equal("owner_id", ownerID),
	)

	query, args := sb.Build()
	var narratives []models.Narrative
	if err := r.db.SelectContext(ctx, &narratives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"owner_type": ownerType, "owner_id": ownerID}).Error("Failed to list narratives")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list narratives")
	}
	return narratives, nil
}

// ListByActivity retrieves every narrative scoped to an activity.
func (r *Repository) ListByActivity(ctx context.Context, activityID string) ([]models.Narrative, error) {
	ctx, span := tracing.StartSpan(ctx, "narrative.Repository.ListByActivity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(narrativeColumns...)
	sb.From("narratives")
	sb.Where(sb.Equal("activity_id", activityID))

	query, args := sb.Build()
	var narratives []models.Narrative
	if err := r.db.SelectContext(ctx, &narratives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to list activity narratives")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list narratives")
	}
	return narratives, nil
}
