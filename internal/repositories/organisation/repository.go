package organisation

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var organisationColumns = []string{
	"id", "organisation_identifier", "name", "type",
	"reported_in_dataset_id", "created_at", "updated_at",
}

// Repository handles organisation persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new organisation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByIdentifier retrieves an organisation by its IATI organisation
// identifier. Returns nil when absent.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.Organisation, error) {
	ctx, span := tracing.StartSpan(ctx, "organisation.Repository.GetByIdentifier")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(organisationColumns...)
	sb.From("organisations")
	sb.Where(sb.Equal("organisation_identifier", identifier))
	sb.Limit(1)

	query, args := sb.Build()
	var org models.Organisation
	if err := r.db.GetContext(ctx, &org, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organisation_identifier": identifier}).Error("Failed to get organisation by identifier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get organisation")
	}
	return &org, nil
}

// Upsert lazily creates the organisation for a ref the first time it shows
// up in any activity. Later sightings can only fill in fields that are still
// empty; an existing name or type is never overwritten.
func (r *Repository) Upsert(ctx context.Context, identifier string, name, orgType *string, datasetID string) (*models.Organisation, error) {
	ctx, span := tracing.StartSpan(ctx, "organisation.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	query := `
		INSERT INTO organisations (
			id, organisation_identifier, name, type, reported_in_dataset_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organisation_identifier)
		DO UPDATE SET
			name = COALESCE(organisations.name, EXCLUDED.name),
			type = COALESCE(organisations.type, EXCLUDED.type),
			updated_at = EXCLUDED.updated_at
		RETURNING id, organisation_identifier, name, type, reported_in_dataset_id, created_at, updated_at
	`

	var org models.Organisation
	if err := r.db.GetContext(ctx, &org, query, id, identifier, name, orgType, datasetID, now, now); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"organisation_identifier": identifier}).Error("Failed to upsert organisation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert organisation")
	}
	return &org, nil
}

// List retrieves organisations with pagination, ordered by identifier.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Organisation, error) {
	ctx, span := tracing.StartSpan(ctx, "organisation.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(organisationColumns...)
	sb.From("organisations")
	sb.OrderBy("organisation_identifier ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var orgs []models.Organisation
	if err := r.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to list organisations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list organisations")
	}
	return orgs, nil
}
