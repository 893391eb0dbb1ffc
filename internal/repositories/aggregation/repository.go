package aggregation

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

var aggregationColumns = []string{
	"id", "activity_id", "kind", "category", "currency", "value", "updated_at",
}

// Repository handles derived aggregation persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new aggregation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForActivity atomically swaps all aggregation rows for one activity.
// Concurrent recomputes can race on the insert; the loser's rows are
// equivalent so conflicts are ignored rather than surfaced.
func (r *Repository) ReplaceForActivity(ctx context.Context, activityID string, rows []models.AggregationRow) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Repository.ReplaceForActivity")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("activity_aggregations")
	db.Where(db.Equal("activity_id", activityID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to clear aggregations")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear aggregations")
	}

	if len(rows) > 0 {
		now := time.Now().UTC()
		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto("activity_aggregations")
		ib.Cols(aggregationColumns...)
		for i := range rows {
			if rows[i].ID == "" {
				rows[i].ID = uuid.New().String()
			}
			rows[i].ActivityID = activityID
			rows[i].UpdatedAt = now
			ib.Values(rows[i].ID, rows[i].ActivityID, rows[i].Kind, rows[i].Category, rows[i].Currency, rows[i].Value, rows[i].UpdatedAt)
		}
		ib.SQL("ON CONFLICT (activity_id, kind, category) DO NOTHING")

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID, "count": len(rows)}).Error("Failed to insert aggregations")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert aggregations")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit aggregations")
	}
	return nil
}

// GetByActivity returns an activity's aggregation rows, optionally filtered
// by kind.
func (r *Repository) GetByActivity(ctx context.Context, activityID string, kind *string) ([]models.AggregationRow, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Repository.GetByActivity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(aggregationColumns...)
	sb.From("activity_aggregations")
	where := []string{sb.Equal("activity_id", activityID)}
	if kind != nil {
		where = append(where, sb.Equal("kind", *kind))
	}
	sb.Where(where...)
	sb.OrderBy("kind ASC", "category ASC")

	query, args := sb.Build()
	var rows []models.AggregationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get aggregations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get aggregations")
	}
	return rows, nil
}
