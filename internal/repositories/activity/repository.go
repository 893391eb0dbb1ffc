package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var activityColumns = []string{
	"id", "dataset_id", "iati_identifier", "schema_version", "default_currency",
	"default_language", "hierarchy", "humanitarian", "last_updated",
	"activity_status", "activity_scope", "collaboration_type",
	"default_flow_type", "default_finance_type", "default_aid_type",
	"default_tied_status", "linked_data_uri", "actual_start", "planned_start",
	"actual_end", "planned_end", "start_date", "end_date", "search_text",
	"last_saved_at", "created_at", "updated_at",
}

// Repository handles activity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new activity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an activity by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Activity, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(activityColumns...)
	sb.From("activities")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var act models.Activity
	if err := r.db.GetContext(ctx, &act, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "activity %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get activity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get activity")
	}
	return &act, nil
}

// GetByIdentifier retrieves an activity by its IATI identifier. Returns nil
// when absent; identifiers are globally unique across datasets.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.Activity, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetByIdentifier")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(activityColumns...)
	sb.From("activities")
	sb.Where(sb.Equal("iati_identifier", identifier))
	sb.Limit(1)

	query, args := sb.Build()
	var act models.Activity
	if err := r.db.GetContext(ctx, &act, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"iati_identifier": identifier}).Error("Failed to get activity by identifier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get activity")
	}
	return &act, nil
}

// GetIDsByIdentifiers returns a map of iati_identifier to activity ID for
// the identifiers that exist locally. Used to resolve cross-activity refs.
func (r *Repository) GetIDsByIdentifiers(ctx context.Context, identifiers []string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetIDsByIdentifiers")
	defer span.End()

	if len(identifiers) == 0 {
		return map[string]string{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "iati_identifier")
	sb.From("activities")
	sb.Where(sb.In("iati_identifier", sqlbuilder.Flatten(identifiers)...))

	query, args := sb.Build()
	var rows []struct {
		ID             string `db:"id"`
		IATIIdentifier string `db:"iati_identifier"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(identifiers)}).Error("Failed to resolve activity identifiers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve activity identifiers")
	}

	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.IATIIdentifier] = row.ID
	}
	return result, nil
}

// Delete removes an activity by IATI identifier inside the given transaction.
// Child rows and activity-scoped narratives go with it via FK cascade.
func (r *Repository) Delete(ctx context.Context, tx database.Tx, identifier string) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("activities")
	db.Where(db.Equal("iati_identifier", identifier))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"iati_identifier": identifier}).Error("Failed to delete activity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete activity")
	}
	return nil
}

// UpdateDerivedDates writes the post-save date fields computed from the
// activity's typed dates.
func (r *Repository) UpdateDerivedDates(ctx context.Context, act *models.Activity) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.UpdateDerivedDates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("activities")
	sb.Set(
		sb.Assign("actual_start", act.ActualStart),
		sb.Assign("planned_start", act.PlannedStart),
		sb.Assign("actual_end", act.ActualEnd),
		sb.Assign("planned_end", act.PlannedEnd),
		sb.Assign("start_date", act.StartDate),
		sb.Assign("end_date", act.EndDate),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", act.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": act.ID}).Error("Failed to update derived dates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update activity dates")
	}
	return nil
}

// UpdateSearchText writes the materialized search text for an activity.
func (r *Repository) UpdateSearchText(ctx context.Context, id, searchText string) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.UpdateSearchText")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("activities")
	sb.Set(sb.Assign("search_text", searchText))
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update search text")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update search text")
	}
	return nil
}

// DeleteUnseen removes every activity of the dataset that was not saved
// during the current parse pass, i.e. whose last_saved_at predates it. The
// keep list holds identifiers the pass encountered without re-saving
// (up-to-date skips, rejects); those rows stay. The removed identifiers are
// returned so callers can emit deletion events.
func (r *Repository) DeleteUnseen(ctx context.Context, datasetID string, parseStartedAt time.Time, keep []string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.DeleteUnseen")
	defer span.End()

	query := `
		DELETE FROM activities
		WHERE dataset_id = $1
		  AND last_saved_at < $2
		  AND NOT (iati_identifier = ANY($3))
		RETURNING iati_identifier
	`

	rows, err := r.db.QueryxContext(ctx, query, datasetID, parseStartedAt, pq.Array(keep))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to delete unseen activities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete unseen activities")
	}
	defer rows.Close()

	var identifiers []string
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to scan deleted activity identifier")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete unseen activities")
		}
		identifiers = append(identifiers, identifier)
	}

	if len(identifiers) > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"dataset_id": datasetID,
			"count":      len(identifiers),
		}).Info("Deleted activities missing from latest parse")
	}
	return identifiers, nil
}

// ResolveRelatedTo fills related_id on any related-activity rows elsewhere
// that point at the given identifier. Called after an activity is saved so
// earlier-ingested activities pick up the late arrival.
func (r *Repository) ResolveRelatedTo(ctx context.Context, identifier, activityID string) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.ResolveRelatedTo")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("related_activities")
	sb.Set(sb.Assign("related_id", activityID))
	sb.Where(
		sb.Equal("ref", identifier),
		sb.IsNull("related_id"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"iati_identifier": identifier}).Error("Failed to resolve inbound related activities")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve related activities")
	}

	// Transactions referring to this activity as provider or receiver.
	for _, cols := range [][2]string{
		{"provider_activity_ref", "provider_activity_id"},
		{"receiver_activity_ref", "receiver_activity_id"},
	} {
		ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		ub.Update("transactions")
		ub.Set(ub.Assign(cols[1], activityID))
		ub.Where(
			ub.Equal(cols[0], identifier),
			ub.IsNull(cols[1]),
		)
		query, args := ub.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"iati_identifier": identifier, "column": cols[1]}).Error("Failed to resolve transaction activity refs")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve related activities")
		}
	}
	return nil
}

// GetRelated returns the related-activity rows declared by an activity.
func (r *Repository) GetRelated(ctx context.Context, activityID string) ([]models.RelatedActivity, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetRelated")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "activity_id", "ref", "type", "related_id")
	sb.From("related_activities")
	sb.Where(sb.Equal("activity_id", activityID))

	query, args := sb.Build()
	var related []models.RelatedActivity
	if err := r.db.SelectContext(ctx, &related, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get related activities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get related activities")
	}
	return related, nil
}

// GetDirectChildIDs returns the IDs of resolved direct children. A child is
// an activity that declares this one as parent, or one this activity
// declares as child.
func (r *Repository) GetDirectChildIDs(ctx context.Context, activityID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetDirectChildIDs")
	defer span.End()

	query := `
		SELECT related_id FROM related_activities
		WHERE activity_id = $1 AND type = $2 AND related_id IS NOT NULL
		UNION
		SELECT activity_id FROM related_activities
		WHERE related_id = $1 AND type = $3
	`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, activityID, models.RelatedActivityChild, models.RelatedActivityParent); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get child activity IDs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get child activities")
	}
	return ids, nil
}

// GetDirectParentIDs returns the IDs of resolved direct parents.
func (r *Repository) GetDirectParentIDs(ctx context.Context, activityID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetDirectParentIDs")
	defer span.End()

	query := `
		SELECT related_id FROM related_activities
		WHERE activity_id = $1 AND type = $2 AND related_id IS NOT NULL
		UNION
		SELECT activity_id FROM related_activities
		WHERE related_id = $1 AND type = $3
	`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, activityID, models.RelatedActivityParent, models.RelatedActivityChild); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get parent activity IDs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get parent activities")
	}
	return ids, nil
}

// GetBudgets returns an activity's budgets for aggregation.
func (r *Repository) GetBudgets(ctx context.Context, activityID string) ([]models.Budget, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetBudgets")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "activity_id", "type", "status", "period_start", "period_end", "value", "value_date", "currency", "value_usd", "value_eur", "value_gbp", "value_jpy", "value_xdr")
	sb.From("budgets")
	sb.Where(sb.Equal("activity_id", activityID))

	query, args := sb.Build()
	var budgets []models.Budget
	if err := r.db.SelectContext(ctx, &budgets, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get budgets")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get budgets")
	}
	return budgets, nil
}

// GetPlannedDisbursements returns an activity's planned disbursements.
func (r *Repository) GetPlannedDisbursements(ctx context.Context, activityID string) ([]models.PlannedDisbursement, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetPlannedDisbursements")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "activity_id", "type", "period_start", "period_end", "value", "value_date", "currency", "value_usd", "value_eur", "value_gbp", "value_jpy", "value_xdr")
	sb.From("planned_disbursements")
	sb.Where(sb.Equal("activity_id", activityID))

	query, args := sb.Build()
	var pds []models.PlannedDisbursement
	if err := r.db.SelectContext(ctx, &pds, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get planned disbursements")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get planned disbursements")
	}
	return pds, nil
}

// GetTransactions returns an activity's transactions for aggregation.
func (r *Repository) GetTransactions(ctx context.Context, activityID string) ([]models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.GetTransactions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(transactionColumns...)
	sb.From("transactions")
	sb.Where(sb.Equal("activity_id", activityID))
	sb.OrderBy("transaction_date ASC")

	query, args := sb.Build()
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"activity_id": activityID}).Error("Failed to get transactions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get transactions")
	}
	return txns, nil
}
