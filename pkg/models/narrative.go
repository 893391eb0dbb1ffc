package models

// Narrative owner kinds. The owner is polymorphic; OwnerType names the model
// the text belongs to and OwnerID points at that row.
const (
	NarrativeOwnerTitle               = "title"
	NarrativeOwnerDescription         = "description"
	NarrativeOwnerParticipatingOrg    = "participating_org"
	NarrativeOwnerReportingOrg        = "reporting_org"
	NarrativeOwnerSector              = "sector"
	NarrativeOwnerRecipientCountry    = "recipient_country"
	NarrativeOwnerRecipientRegion     = "recipient_region"
	NarrativeOwnerLocation            = "location"
	NarrativeOwnerDocumentLink        = "document_link"
	NarrativeOwnerResult              = "result"
	NarrativeOwnerTransactionProvider = "transaction_provider_org"
	NarrativeOwnerTransactionReceiver = "transaction_receiver_org"
	NarrativeOwnerTransactionDesc     = "transaction_description"
	NarrativeOwnerOrganisationName    = "organisation_name"
)

// Narrative is one language-tagged text fragment scoped to an activity. The
// ActivityID lets a re-ingest drop every fragment in one pass.
type Narrative struct {
	ID         string  `json:"id" db:"id"`
	ActivityID string  `json:"activity_id" db:"activity_id"`
	OwnerType  string  `json:"owner_type" db:"owner_type"`
	OwnerID    string  `json:"owner_id" db:"owner_id"`
	Language   *string `json:"language,omitempty" db:"language"`
	Content    string  `json:"content" db:"content"`
}

// OrganisationNarrative is one language-tagged name fragment for an
// organisation. Organisations outlive any single activity or dataset, so
// their narratives live in their own table keyed by organisation.
type OrganisationNarrative struct {
	ID             string  `json:"id" db:"id"`
	OrganisationID string  `json:"organisation_id" db:"organisation_id"`
	Language       *string `json:"language,omitempty" db:"language"`
	Content        string  `json:"content" db:"content"`
}
