package models

import (
	"time"
)

// Dataset represents one submitted IATI XML document from a publisher.
// Field order matches schema: id, identifier, publisher, schema_version, ...
type Dataset struct {
	ID            string     `json:"id" db:"id"`
	Identifier    string     `json:"identifier" db:"identifier"`
	Publisher     string     `json:"publisher" db:"publisher"`
	SchemaVersion *string    `json:"schema_version,omitempty" db:"schema_version"`
	SourceURL     string     `json:"source_url" db:"source_url"`
	ContentHash   string     `json:"content_hash" db:"content_hash"`
	ParseStarted  *time.Time `json:"parse_started,omitempty" db:"parse_started"`
	LastParsed    *time.Time `json:"last_parsed,omitempty" db:"last_parsed"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateDatasetRequest registers a dataset before its first parse.
type CreateDatasetRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Publisher  string `json:"publisher" validate:"required"`
	SourceURL  string `json:"source_url" validate:"required,url"`
}

// DatasetListResponse is the response for listing datasets.
type DatasetListResponse struct {
	Items      []Dataset `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

// DatasetNote is a structured parse failure or informational note recorded
// against a dataset. Notes are the only user-visible failure surface; a bad
// activity never aborts the whole dataset.
type DatasetNote struct {
	ID                 string    `json:"id" db:"id"`
	DatasetID          string    `json:"dataset_id" db:"dataset_id"`
	ActivityIdentifier *string   `json:"activity_identifier,omitempty" db:"activity_identifier"`
	Kind               string    `json:"kind" db:"kind"` // required_field, field_validation, ignored_vocabulary, parser_error
	Model              string    `json:"model" db:"model"`
	Field              string    `json:"field" db:"field"`
	Message            string    `json:"message" db:"message"`
	ElementPath        string    `json:"element_path" db:"element_path"`
	Line               int       `json:"line" db:"line"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// DatasetNoteListResponse is the response for listing dataset notes.
type DatasetNoteListResponse struct {
	Items      []DatasetNote `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// ParseResult summarizes one parse pass over a dataset.
type ParseResult struct {
	DatasetID          string `json:"dataset_id"`
	ActivitiesSeen     int    `json:"activities_seen"`
	ActivitiesSaved    int    `json:"activities_saved"`
	ActivitiesSkipped  int    `json:"activities_skipped"` // up to date, NoUpdateRequired
	ActivitiesRejected int    `json:"activities_rejected"`
	ActivitiesDeleted  int    `json:"activities_deleted"` // removed by reconciliation
	Notes              int    `json:"notes"`
}
