package models

import (
	"time"
)

// Organisation is a lazily created organisation record. Rows are upserted the
// first time a ref shows up in any activity; later sightings can only fill in
// fields that are still empty.
type Organisation struct {
	ID                      string    `json:"id" db:"id"`
	OrganisationIdentifier  string    `json:"organisation_identifier" db:"organisation_identifier"`
	Name                    *string   `json:"name,omitempty" db:"name"`
	Type                    *string   `json:"type,omitempty" db:"type"`
	ReportedInDatasetID     *string   `json:"reported_in_dataset_id,omitempty" db:"reported_in_dataset_id"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}
