package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Activity is the root IATI model. Everything underneath it (titles,
// transactions, budgets, ...) hangs off ActivityID and is replaced wholesale
// whenever the activity is re-ingested.
type Activity struct {
	ID                string     `json:"id" db:"id"`
	DatasetID         string     `json:"dataset_id" db:"dataset_id"`
	IATIIdentifier    string     `json:"iati_identifier" db:"iati_identifier"`
	SchemaVersion     string     `json:"schema_version" db:"schema_version"`
	DefaultCurrency   *string    `json:"default_currency,omitempty" db:"default_currency"`
	DefaultLanguage   *string    `json:"default_language,omitempty" db:"default_language"`
	Hierarchy         int        `json:"hierarchy" db:"hierarchy"`
	Humanitarian      bool       `json:"humanitarian" db:"humanitarian"`
	LastUpdated       *time.Time `json:"last_updated,omitempty" db:"last_updated"`
	ActivityStatus    *string    `json:"activity_status,omitempty" db:"activity_status"`
	ActivityScope     *string    `json:"activity_scope,omitempty" db:"activity_scope"`
	CollaborationType *string    `json:"collaboration_type,omitempty" db:"collaboration_type"`
	DefaultFlowType   *string    `json:"default_flow_type,omitempty" db:"default_flow_type"`
	DefaultFinance    *string    `json:"default_finance_type,omitempty" db:"default_finance_type"`
	DefaultAid        *string    `json:"default_aid_type,omitempty" db:"default_aid_type"`
	DefaultTied       *string    `json:"default_tied_status,omitempty" db:"default_tied_status"`
	LinkedDataURI     *string    `json:"linked_data_uri,omitempty" db:"linked_data_uri"`

	// Derived post-save fields.
	ActualStart  *time.Time `json:"actual_start,omitempty" db:"actual_start"`
	PlannedStart *time.Time `json:"planned_start,omitempty" db:"planned_start"`
	ActualEnd    *time.Time `json:"actual_end,omitempty" db:"actual_end"`
	PlannedEnd   *time.Time `json:"planned_end,omitempty" db:"planned_end"`
	StartDate    *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	SearchText   string     `json:"-" db:"search_text"`

	LastSavedAt time.Time `json:"last_saved_at" db:"last_saved_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ReportingOrg links an activity to the organisation that published it.
type ReportingOrg struct {
	ID                string  `json:"id" db:"id"`
	ActivityID        string  `json:"activity_id" db:"activity_id"`
	OrganisationID    *string `json:"organisation_id,omitempty" db:"organisation_id"`
	Ref               string  `json:"ref" db:"ref"`
	Type              *string `json:"type,omitempty" db:"type"`
	SecondaryReporter bool    `json:"secondary_reporter" db:"secondary_reporter"`
}

// Title holds the activity title; its text lives in narratives keyed on this row.
type Title struct {
	ID         string `json:"id" db:"id"`
	ActivityID string `json:"activity_id" db:"activity_id"`
}

// Description is a typed activity description (general, objectives, ...).
type Description struct {
	ID         string  `json:"id" db:"id"`
	ActivityID string  `json:"activity_id" db:"activity_id"`
	Type       *string `json:"type,omitempty" db:"type"`
}

// ParticipatingOrg is an organisation taking a role in the activity.
type ParticipatingOrg struct {
	ID             string  `json:"id" db:"id"`
	ActivityID     string  `json:"activity_id" db:"activity_id"`
	OrganisationID *string `json:"organisation_id,omitempty" db:"organisation_id"`
	Ref            *string `json:"ref,omitempty" db:"ref"`
	Role           string  `json:"role" db:"role"`
	Type           *string `json:"type,omitempty" db:"type"`
	ActivityRef    *string `json:"activity_ref,omitempty" db:"activity_ref"`
}

// ActivityDate types per the IATI codelist.
const (
	DateTypePlannedStart = "1"
	DateTypeActualStart  = "2"
	DateTypePlannedEnd   = "3"
	DateTypeActualEnd    = "4"
)

// ActivityDate is a typed activity milestone date.
type ActivityDate struct {
	ID         string    `json:"id" db:"id"`
	ActivityID string    `json:"activity_id" db:"activity_id"`
	Type       string    `json:"type" db:"type"`
	ISODate    time.Time `json:"iso_date" db:"iso_date"`
}

// ContactInfo holds publisher contact details for an activity.
type ContactInfo struct {
	ID           string  `json:"id" db:"id"`
	ActivityID   string  `json:"activity_id" db:"activity_id"`
	Type         *string `json:"type,omitempty" db:"type"`
	Organisation *string `json:"organisation,omitempty" db:"organisation"`
	PersonName   *string `json:"person_name,omitempty" db:"person_name"`
	Telephone    *string `json:"telephone,omitempty" db:"telephone"`
	Email        *string `json:"email,omitempty" db:"email"`
	Website      *string `json:"website,omitempty" db:"website"`
	MailingAddr  *string `json:"mailing_address,omitempty" db:"mailing_address"`
}

// Sector is a sector classification on the activity or one of its transactions.
type Sector struct {
	ID            string           `json:"id" db:"id"`
	ActivityID    string           `json:"activity_id" db:"activity_id"`
	TransactionID *string          `json:"transaction_id,omitempty" db:"transaction_id"`
	Code          string           `json:"code" db:"code"`
	Vocabulary    string           `json:"vocabulary" db:"vocabulary"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty" db:"percentage"`
}

// RecipientCountry is a country an activity benefits, with an optional split.
type RecipientCountry struct {
	ID         string           `json:"id" db:"id"`
	ActivityID string           `json:"activity_id" db:"activity_id"`
	Code       string           `json:"code" db:"code"`
	Percentage *decimal.Decimal `json:"percentage,omitempty" db:"percentage"`
}

// RecipientRegion is a supranational region an activity benefits.
type RecipientRegion struct {
	ID         string           `json:"id" db:"id"`
	ActivityID string           `json:"activity_id" db:"activity_id"`
	Code       string           `json:"code" db:"code"`
	Vocabulary string           `json:"vocabulary" db:"vocabulary"`
	Percentage *decimal.Decimal `json:"percentage,omitempty" db:"percentage"`
}

// Location is a named place attached to an activity.
type Location struct {
	ID         string  `json:"id" db:"id"`
	ActivityID string  `json:"activity_id" db:"activity_id"`
	Ref        *string `json:"ref,omitempty" db:"ref"`
	PointPos   *string `json:"point_pos,omitempty" db:"point_pos"`
	Exactness  *string `json:"exactness,omitempty" db:"exactness"`
}

// ConvertedValues carries a monetary value restated in each target currency.
// A null slot means the rate for that day was unavailable.
type ConvertedValues struct {
	ValueUSD decimal.NullDecimal `json:"value_usd" db:"value_usd"`
	ValueEUR decimal.NullDecimal `json:"value_eur" db:"value_eur"`
	ValueGBP decimal.NullDecimal `json:"value_gbp" db:"value_gbp"`
	ValueJPY decimal.NullDecimal `json:"value_jpy" db:"value_jpy"`
	ValueXDR decimal.NullDecimal `json:"value_xdr" db:"value_xdr"`
}

// Budget is a declared spending plan for a period of the activity.
type Budget struct {
	ID          string          `json:"id" db:"id"`
	ActivityID  string          `json:"activity_id" db:"activity_id"`
	Type        string          `json:"type" db:"type"`     // 1 original, 2 revised
	Status      string          `json:"status" db:"status"` // 1 indicative, 2 committed
	PeriodStart time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time       `json:"period_end" db:"period_end"`
	Value       decimal.Decimal `json:"value" db:"value"`
	ValueDate   time.Time       `json:"value_date" db:"value_date"`
	Currency    *string         `json:"currency,omitempty" db:"currency"`
	ConvertedValues
}

// PlannedDisbursement is a scheduled outgoing payment.
type PlannedDisbursement struct {
	ID          string          `json:"id" db:"id"`
	ActivityID  string          `json:"activity_id" db:"activity_id"`
	Type        *string         `json:"type,omitempty" db:"type"`
	PeriodStart time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty" db:"period_end"`
	Value       decimal.Decimal `json:"value" db:"value"`
	ValueDate   time.Time       `json:"value_date" db:"value_date"`
	Currency    *string         `json:"currency,omitempty" db:"currency"`
	ConvertedValues
}

// Transaction types per the IATI codelist (canonical 2.x numeric codes).
const (
	TransactionTypeIncomingFunds      = "1"
	TransactionTypeCommitment         = "2"
	TransactionTypeDisbursement       = "3"
	TransactionTypeExpenditure        = "4"
	TransactionTypeInterestPayment    = "5"
	TransactionTypeLoanRepayment      = "6"
	TransactionTypeReimbursement      = "7"
	TransactionTypePurchaseOfEquity   = "8"
	TransactionTypeSaleOfEquity       = "9"
	TransactionTypeCreditGuarantee    = "10"
	TransactionTypeIncomingCommitment = "11"
)

// Transaction is a single financial flow on an activity.
type Transaction struct {
	ID              string          `json:"id" db:"id"`
	ActivityID      string          `json:"activity_id" db:"activity_id"`
	Ref             *string         `json:"ref,omitempty" db:"ref"`
	Type            string          `json:"type" db:"type"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	Value           decimal.Decimal `json:"value" db:"value"`
	ValueDate       time.Time       `json:"value_date" db:"value_date"`
	Currency        *string         `json:"currency,omitempty" db:"currency"`
	Humanitarian    *bool           `json:"humanitarian,omitempty" db:"humanitarian"`
	DisbursementCh  *string         `json:"disbursement_channel,omitempty" db:"disbursement_channel"`
	FlowType        *string         `json:"flow_type,omitempty" db:"flow_type"`
	FinanceType     *string         `json:"finance_type,omitempty" db:"finance_type"`
	AidType         *string         `json:"aid_type,omitempty" db:"aid_type"`
	TiedStatus      *string         `json:"tied_status,omitempty" db:"tied_status"`

	ProviderOrgRef      *string `json:"provider_org_ref,omitempty" db:"provider_org_ref"`
	ProviderOrgID       *string `json:"provider_org_id,omitempty" db:"provider_org_id"`
	ProviderActivityRef *string `json:"provider_activity_ref,omitempty" db:"provider_activity_ref"`
	ProviderActivityID  *string `json:"provider_activity_id,omitempty" db:"provider_activity_id"`
	ReceiverOrgRef      *string `json:"receiver_org_ref,omitempty" db:"receiver_org_ref"`
	ReceiverOrgID       *string `json:"receiver_org_id,omitempty" db:"receiver_org_id"`
	ReceiverActivityRef *string `json:"receiver_activity_ref,omitempty" db:"receiver_activity_ref"`
	ReceiverActivityID  *string `json:"receiver_activity_id,omitempty" db:"receiver_activity_id"`

	ConvertedValues
}

// DocumentLink points at an external document published with the activity.
type DocumentLink struct {
	ID         string     `json:"id" db:"id"`
	ActivityID string     `json:"activity_id" db:"activity_id"`
	URL        string     `json:"url" db:"url"`
	Format     *string    `json:"format,omitempty" db:"format"`
	Category   *string    `json:"category,omitempty" db:"category"`
	DocDate    *time.Time `json:"document_date,omitempty" db:"document_date"`
}

// Result is a declared outcome or output measurement frame.
type Result struct {
	ID                string  `json:"id" db:"id"`
	ActivityID        string  `json:"activity_id" db:"activity_id"`
	Type              *string `json:"type,omitempty" db:"type"`
	AggregationStatus *bool   `json:"aggregation_status,omitempty" db:"aggregation_status"`
}

// RelatedActivity relationship types per the IATI codelist.
const (
	RelatedActivityParent     = "1"
	RelatedActivityChild      = "2"
	RelatedActivitySibling    = "3"
	RelatedActivityCofunded   = "4"
	RelatedActivityThirdParty = "5"
)

// RelatedActivity declares a relationship to another IATI activity by
// identifier. RelatedID is filled in once the counterpart is known locally.
type RelatedActivity struct {
	ID         string  `json:"id" db:"id"`
	ActivityID string  `json:"activity_id" db:"activity_id"`
	Ref        string  `json:"ref" db:"ref"`
	Type       string  `json:"type" db:"type"`
	RelatedID  *string `json:"related_id,omitempty" db:"related_id"`
}

// ActivityBundle is the fully assembled activity plus every child row, built
// up during a walk and persisted in one transaction.
type ActivityBundle struct {
	Activity             *Activity
	ReportingOrg         *ReportingOrg
	Title                *Title
	Descriptions         []*Description
	ParticipatingOrgs    []*ParticipatingOrg
	ActivityDates        []*ActivityDate
	ContactInfos         []*ContactInfo
	Sectors              []*Sector
	RecipientCountries   []*RecipientCountry
	RecipientRegions     []*RecipientRegion
	Locations            []*Location
	Budgets              []*Budget
	PlannedDisbursements []*PlannedDisbursement
	Transactions         []*Transaction
	DocumentLinks        []*DocumentLink
	Results              []*Result
	RelatedActivities    []*RelatedActivity
	Narratives           []*Narrative
}
