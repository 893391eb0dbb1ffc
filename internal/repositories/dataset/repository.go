package dataset

import (
	"context"
	"fmt"
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

var datasetColumns = []string{
	"id", "identifier", "publisher", "schema_version", "source_url",
	"content_hash", "parse_started", "last_parsed", "created_at", "updated_at",
}

// Repository handles dataset and dataset note persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dataset repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a dataset ahead of its first parse.
func (r *Repository) Create(ctx context.Context, req models.CreateDatasetRequest) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	ds := models.Dataset{
		ID:         uuid.New().String(),
		Identifier: req.Identifier,
		Publisher:  req.Publisher,
		SourceURL:  req.SourceURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("datasets")
	ib.Cols("id", "identifier", "publisher", "source_url", "content_hash", "created_at", "updated_at")
	ib.Values(ds.ID, ds.Identifier, ds.Publisher, ds.SourceURL, "", now, now)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"identifier": req.Identifier}).Error("Failed to create dataset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create dataset")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": ds.ID, "identifier": ds.Identifier}).Info("Created dataset")
	return &ds, nil
}

// Get retrieves a dataset by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(datasetColumns...)
	sb.From("datasets")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var ds models.Dataset
	if err := r.db.GetContext(ctx, &ds, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "dataset %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get dataset")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset")
	}

	return &ds, nil
}

// GetByIdentifier retrieves a dataset by registry identifier. Returns nil
// when absent.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.GetByIdentifier")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(datasetColumns...)
	sb.From("datasets")
	sb.Where(sb.Equal("identifier", identifier))
	sb.Limit(1)

	query, args := sb.Build()
	var ds models.Dataset
	if err := r.db.GetContext(ctx, &ds, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"identifier": identifier}).Error("Failed to get dataset by identifier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dataset")
	}

	return &ds, nil
}

// List retrieves datasets with pagination
func (r *Repository) List(ctx context.Context, publisher *string, page, pageSize int) (*models.DatasetListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("datasets")
	if publisher != nil {
		countSb.Where(countSb.Equal("publisher", *publisher))
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count datasets")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count datasets")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(datasetColumns...)
	sb.From("datasets")
	if publisher != nil {
		sb.Where(sb.Equal("publisher", *publisher))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var datasets []models.Dataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to list datasets")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list datasets")
	}

	return &models.DatasetListResponse{
		Items:      datasets,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// MarkParseStarted records the start of a parse pass along with the content
// hash and detected schema version of the document being parsed.
func (r *Repository) MarkParseStarted(ctx context.Context, id, contentHash, schemaVersion string, startedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.MarkParseStarted")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("datasets")
	sb.Set(
		sb.Assign("parse_started", startedAt),
		sb.Assign("content_hash", contentHash),
		sb.Assign("schema_version", schemaVersion),
		sb.Assign("updated_at", startedAt),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to mark parse started")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update dataset")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("dataset %s not found", id))
	}
	return nil
}

// MarkParsed records the completion of a parse pass.
func (r *Repository) MarkParsed(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.MarkParsed")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("datasets")
	sb.Set(
		sb.Assign("last_parsed", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to mark dataset parsed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update dataset")
	}
	return nil
}
