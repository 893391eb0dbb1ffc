package codelist

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

// Repository handles codelist persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new codelist repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetAll returns every codelist item. The resolver loads these into memory
// once per process; codelists are small and change rarely.
func (r *Repository) GetAll(ctx context.Context) ([]models.CodelistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "codelist.Repository.GetAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "list", "code", "name", "category")
	sb.From("codelist_items")
	sb.OrderBy("list ASC", "code ASC")

	query, args := sb.Build()
	var items []models.CodelistItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load codelist items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load codelist items")
	}
	return items, nil
}

// UpsertItems loads or refreshes a batch of codelist entries.
func (r *Repository) UpsertItems(ctx context.Context, items []models.CodelistItem) error {
	ctx, span := tracing.StartSpan(ctx, "codelist.Repository.UpsertItems")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("codelist_items")
	ib.Cols("id", "list", "code", "name", "category")
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		ib.Values(item.ID, item.List, item.Code, item.Name, item.Category)
	}
	ib.SQL("ON CONFLICT (list, code) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(items)}).Error("Failed to upsert codelist items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert codelist items")
	}
	return nil
}
