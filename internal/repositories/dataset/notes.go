package dataset

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var noteColumns = []string{
	"id", "dataset_id", "activity_identifier", "kind", "model", "field",
	"message", "element_path", "line", "created_at",
}

// AddNotes inserts a batch of parse notes for a dataset.
func (r *Repository) AddNotes(ctx context.Context, notes []*models.DatasetNote) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.AddNotes")
	defer span.End()

	if len(notes) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("dataset_notes")
	ib.Cols(noteColumns...)
	for _, n := range notes {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		n.CreatedAt = now
		ib.Values(n.ID, n.DatasetID, n.ActivityIdentifier, n.Kind, n.Model, n.Field, n.Message, n.ElementPath, n.Line, n.CreatedAt)
	}

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": notes[0].DatasetID, "count": len(notes)}).Error("Failed to insert dataset notes")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert dataset notes")
	}
	return nil
}

// ClearNotes removes all notes for a dataset. Called at the start of a parse
// pass so the note list always reflects the latest parse.
func (r *Repository) ClearNotes(ctx context.Context, datasetID string) error {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.ClearNotes")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("dataset_notes")
	db.Where(db.Equal("dataset_id", datasetID))

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to clear dataset notes")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear dataset notes")
	}
	return nil
}

// ListNotes retrieves notes for a dataset with pagination
func (r *Repository) ListNotes(ctx context.Context, datasetID string, kind *string, page, pageSize int) (*models.DatasetNoteListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset.Repository.ListNotes")
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
	countSb.From("dataset_notes")
	countWhere := []string{countSb.Equal("dataset_id", datasetID)}
	if kind != nil {
		countWhere = append(countWhere, countSb.Equal("kind", *kind))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to count dataset notes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count dataset notes")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(noteColumns...)
	sb.From("dataset_notes")
	where := []string{sb.Equal("dataset_id", datasetID)}
	if kind != nil {
		where = append(where, sb.Equal("kind", *kind))
	}
	sb.Where(where...)
	sb.OrderBy("created_at ASC", "line ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var notes []models.DatasetNote
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dataset_id": datasetID}).Error("Failed to list dataset notes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dataset notes")
	}

	return &models.DatasetNoteListResponse{
		Items:      notes,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
