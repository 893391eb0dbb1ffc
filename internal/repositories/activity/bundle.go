package activity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var transactionColumns = []string{
	"id", "activity_id", "ref", "type", "transaction_date", "value",
	"value_date", "currency", "humanitarian", "disbursement_channel",
	"flow_type", "finance_type", "aid_type", "tied_status",
	"provider_org_ref", "provider_org_id", "provider_activity_ref", "provider_activity_id",
	"receiver_org_ref", "receiver_org_id", "receiver_activity_ref", "receiver_activity_id",
	"value_usd", "value_eur", "value_gbp", "value_jpy", "value_xdr",
}

// SaveBundle inserts an assembled activity and all of its child rows inside
// the given transaction. The caller is expected to have deleted any previous
// version of the activity first; IDs are assigned here where still empty.
func (r *Repository) SaveBundle(ctx context.Context, tx database.Tx, bundle *models.ActivityBundle) error {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.SaveBundle")
	defer span.End()

	now := time.Now().UTC()
	act := bundle.Activity
	if act.ID == "" {
		act.ID = uuid.New().String()
	}
	act.LastSavedAt = now
	act.CreatedAt = now
	act.UpdatedAt = now

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"activity_id":     act.ID,
		"iati_identifier": act.IATIIdentifier,
		"dataset_id":      act.DatasetID,
	})

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("activities")
	ib.Cols(activityColumns...)
	ib.Values(
		act.ID, act.DatasetID, act.IATIIdentifier, act.SchemaVersion, act.DefaultCurrency,
		act.DefaultLanguage, act.Hierarchy, act.Humanitarian, act.LastUpdated,
		act.ActivityStatus, act.ActivityScope, act.CollaborationType,
		act.DefaultFlowType, act.DefaultFinance, act.DefaultAid,
		act.DefaultTied, act.LinkedDataURI, act.ActualStart, act.PlannedStart,
		act.ActualEnd, act.PlannedEnd, act.StartDate, act.EndDate, act.SearchText,
		act.LastSavedAt, act.CreatedAt, act.UpdatedAt,
	)
	if err := r.execInsert(ctx, tx, ib); err != nil {
		log.WithError(err).Error("Failed to insert activity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert activity")
	}

	if err := r.insertReportingOrg(ctx, tx, act.ID, bundle.ReportingOrg); err != nil {
		log.WithError(err).Error("Failed to insert reporting org")
		return err
	}
	if err := r.insertTitle(ctx, tx, act.ID, bundle.Title); err != nil {
		log.WithError(err).Error("Failed to insert title")
		return err
	}
	if err := r.insertDescriptions(ctx, tx, act.ID, bundle.Descriptions); err != nil {
		log.WithError(err).Error("Failed to insert descriptions")
		return err
	}
	if err := r.insertParticipatingOrgs(ctx, tx, act.ID, bundle.ParticipatingOrgs); err != nil {
		log.WithError(err).Error("Failed to insert participating orgs")
		return err
	}
	if err := r.insertActivityDates(ctx, tx, act.ID, bundle.ActivityDates); err != nil {
		log.WithError(err).Error("Failed to insert activity dates")
		return err
	}
	if err := r.insertContactInfos(ctx, tx, act.ID, bundle.ContactInfos); err != nil {
		log.WithError(err).Error("Failed to insert contact infos")
		return err
	}
	if err := r.insertTransactions(ctx, tx, act.ID, bundle.Transactions); err != nil {
		log.WithError(err).Error("Failed to insert transactions")
		return err
	}
	if err := r.insertSectors(ctx, tx, act.ID, bundle.Sectors); err != nil {
		log.WithError(err).Error("Failed to insert sectors")
		return err
	}
	if err := r.insertRecipientCountries(ctx, tx, act.ID, bundle.RecipientCountries); err != nil {
		log.WithError(err).Error("Failed to insert recipient countries")
		return err
	}
	if err := r.insertRecipientRegions(ctx, tx, act.ID, bundle.RecipientRegions); err != nil {
		log.WithError(err).Error("Failed to insert recipient regions")
		return err
	}
	if err := r.insertLocations(ctx, tx, act.ID, bundle.Locations); err != nil {
		log.WithError(err).Error("Failed to insert locations")
		return err
	}
	if err := r.insertBudgets(ctx, tx, act.ID, bundle.Budgets); err != nil {
		log.WithError(err).Error("Failed to insert budgets")
		return err
	}
	if err := r.insertPlannedDisbursements(ctx, tx, act.ID, bundle.PlannedDisbursements); err != nil {
		log.WithError(err).Error("Failed to insert planned disbursements")
		return err
	}
	if err := r.insertDocumentLinks(ctx, tx, act.ID, bundle.DocumentLinks); err != nil {
		log.WithError(err).Error("Failed to insert document links")
		return err
	}
	if err := r.insertResults(ctx, tx, act.ID, bundle.Results); err != nil {
		log.WithError(err).Error("Failed to insert results")
		return err
	}
	if err := r.insertRelatedActivities(ctx, tx, act.ID, bundle.RelatedActivities); err != nil {
		log.WithError(err).Error("Failed to insert related activities")
		return err
	}

	log.Debug("Saved activity bundle")
	return nil
}

func (r *Repository) execInsert(ctx context.Context, tx database.Tx, ib *sqlbuilder.InsertBuilder) error {
	query, args := ib.Build()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) insertReportingOrg(ctx context.Context, tx database.Tx, activityID string, ro *models.ReportingOrg) error {
	if ro == nil {
		return nil
	}
	if ro.ID == "" {
		ro.ID = uuid.New().String()
	}
	ro.ActivityID = activityID

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("reporting_orgs")
	ib.Cols("id", "activity_id", "organisation_id", "ref", "type", "secondary_reporter")
	ib.Values(ro.ID, ro.ActivityID, ro.OrganisationID, ro.Ref, ro.Type, ro.SecondaryReporter)
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert reporting org")
	}
	return nil
}

func (r *Repository) insertTitle(ctx context.Context, tx database.Tx, activityID string, title *models.Title) error {
	if title == nil {
		return nil
	}
	if title.ID == "" {
		title.ID = uuid.New().String()
	}
	title.ActivityID = activityID

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("titles")
	ib.Cols("id", "activity_id")
	ib.Values(title.ID, title.ActivityID)
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert title")
	}
	return nil
}

func (r *Repository) insertDescriptions(ctx context.Context, tx database.Tx, activityID string, descs []*models.Description) error {
	if len(descs) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("descriptions")
	ib.Cols("id", "activity_id", "type")
	for _, d := range descs {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d.ActivityID = activityID
		ib.Values(d.ID, d.ActivityID, d.Type)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert descriptions")
	}
	return nil
}

func (r *Repository) insertParticipatingOrgs(ctx context.Context, tx database.Tx, activityID string, orgs []*models.ParticipatingOrg) error {
	if len(orgs) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("participating_orgs")
	ib.Cols("id", "activity_id", "organisation_id", "ref", "role", "type", "activity_ref")
	for _, o := range orgs {
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		o.ActivityID = activityID
		ib.Values(o.ID, o.ActivityID, o.OrganisationID, o.Ref, o.Role, o.Type, o.ActivityRef)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert participating orgs")
	}
	return nil
}

func (r *Repository) insertActivityDates(ctx context.Context, tx database.Tx, activityID string, dates []*models.ActivityDate) error {
	if len(dates) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("activity_dates")
	ib.Cols("id", "activity_id", "type", "iso_date")
	for _, d := range dates {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d.ActivityID = activityID
		ib.Values(d.ID, d.ActivityID, d.Type, d.ISODate)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert activity dates")
	}
	return nil
}

func (r *Repository) insertContactInfos(ctx context.Context, tx database.Tx, activityID string, contacts []*models.ContactInfo) error {
	if len(contacts) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("contact_infos")
	ib.Cols("id", "activity_id", "type", "organisation", "person_name", "telephone", "email", "website", "mailing_address")
	for _, c := range contacts {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.ActivityID = activityID
		ib.Values(c.ID, c.ActivityID, c.Type, c.Organisation, c.PersonName, c.Telephone, c.Email, c.Website, c.MailingAddr)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert contact infos")
	}
	return nil
}

func (r *Repository) insertTransactions(ctx context.Context, tx database.Tx, activityID string, txns []*models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("transactions")
	ib.Cols(transactionColumns...)
	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		t.ActivityID = activityID
		ib.Values(
			t.ID, t.ActivityID, t.Ref, t.Type, t.TransactionDate, t.Value,
			t.ValueDate, t.Currency, t.Humanitarian, t.DisbursementCh,
			t.FlowType, t.FinanceType, t.AidType, t.TiedStatus,
			t.ProviderOrgRef, t.ProviderOrgID, t.ProviderActivityRef, t.ProviderActivityID,
			t.ReceiverOrgRef, t.ReceiverOrgID, t.ReceiverActivityRef, t.ReceiverActivityID,
			t.ValueUSD, t.ValueEUR, t.ValueGBP, t.ValueJPY, t.ValueXDR,
		)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert transactions")
	}
	return nil
}

func (r *Repository) insertSectors(ctx context.Context, tx database.Tx, activityID string, sectors []*models.Sector) error {
	if len(sectors) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("sectors")
	ib.Cols("id", "activity_id", "transaction_id", "code", "vocabulary", "percentage")
	for _, s := range sectors {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.ActivityID = activityID
		ib.Values(s.ID, s.ActivityID, s.TransactionID, s.Code, s.Vocabulary, s.Percentage)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert sectors")
	}
	return nil
}

func (r *Repository) insertRecipientCountries(ctx context.Context, tx database.Tx, activityID string, countries []*models.RecipientCountry) error {
	if len(countries) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("recipient_countries")
	ib.Cols("id", "activity_id", "code", "percentage")
	for _, c := range countries {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.ActivityID = activityID
		ib.Values(c.ID, c.ActivityID, c.Code, c.Percentage)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert recipient countries")
	}
	return nil
}

func (r *Repository) insertRecipientRegions(ctx context.Context, tx database.Tx, activityID string, regions []*models.RecipientRegion) error {
	if len(regions) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("recipient_regions")
	ib.Cols("id", "activity_id", "code", "vocabulary", "percentage")
	for _, rr := range regions {
		if rr.ID == "" {
			rr.ID = uuid.New().String()
		}
		rr.ActivityID = activityID
		ib.Values(rr.ID, rr.ActivityID, rr.Code, rr.Vocabulary, rr.Percentage)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert recipient regions")
	}
	return nil
}

func (r *Repository) insertLocations(ctx context.Context, tx database.Tx, activityID string, locations []*models.Location) error {
	if len(locations) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("locations")
	ib.Cols("id", "activity_id", "ref", "point_pos", "exactness")
	for _, l := range locations {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.ActivityID = activityID
		ib.Values(l.ID, l.ActivityID, l.Ref, l.PointPos, l.Exactness)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert locations")
	}
	return nil
}

func (r *Repository) insertBudgets(ctx context.Context, tx database.Tx, activityID string, budgets []*models.Budget) error {
	if len(budgets) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("budgets")
	ib.Cols("id", "activity_id", "type", "status", "period_start", "period_end", "value", "value_date", "currency", "value_usd", "value_eur", "value_gbp", "value_jpy", "value_xdr")
	for _, b := range budgets {
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		b.ActivityID = activityID
		ib.Values(b.ID, b.ActivityID, b.Type, b.Status, b.PeriodStart, b.PeriodEnd, b.Value, b.ValueDate, b.Currency, b.ValueUSD, b.ValueEUR, b.ValueGBP, b.ValueJPY, b.ValueXDR)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert budgets")
	}
	return nil
}

func (r *Repository) insertPlannedDisbursements(ctx context.Context, tx database.Tx, activityID string, pds []*models.PlannedDisbursement) error {
	if len(pds) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("planned_disbursements")
	ib.Cols("id", "activity_id", "type", "period_start", "period_end", "value", "value_date", "currency", "value_usd", "value_eur", "value_gbp", "value_jpy", "value_xdr")
	for _, pd := range pds {
		if pd.ID == "" {
			pd.ID = uuid.New().String()
		}
		pd.ActivityID = activityID
		ib.Values(pd.ID, pd.ActivityID, pd.Type, pd.PeriodStart, pd.PeriodEnd, pd.Value, pd.ValueDate, pd.Currency, pd.ValueUSD, pd.ValueEUR, pd.ValueGBP, pd.ValueJPY, pd.ValueXDR)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert planned disbursements")
	}
	return nil
}

func (r *Repository) insertDocumentLinks(ctx context.Context, tx database.Tx, activityID string, links []*models.DocumentLink) error {
	if len(links) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("document_links")
	ib.Cols("id", "activity_id", "url", "format", "category", "document_date")
	for _, l := range links {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.ActivityID = activityID
		ib.Values(l.ID, l.ActivityID, l.URL, l.Format, l.Category, l.DocDate)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert document links")
	}
	return nil
}

func (r *Repository) insertResults(ctx context.Context, tx database.Tx, activityID string, results []*models.Result) error {
	if len(results) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("results")
	ib.Cols("id", "activity_id", "type", "aggregation_status")
	for _, res := range results {
		if res.ID == "" {
			res.ID = uuid.New().String()
		}
		res.ActivityID = activityID
		ib.Values(res.ID, res.ActivityID, res.Type, res.AggregationStatus)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert results")
	}
	return nil
}

func (r *Repository) insertRelatedActivities(ctx context.Context, tx database.Tx, activityID string, related []*models.RelatedActivity) error {
	if len(related) == 0 {
		return nil
	}
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("related_activities")
	ib.Cols("id", "activity_id", "ref", "type", "related_id")
	for _, ra := range related {
		if ra.ID == "" {
			ra.ID = uuid.New().String()
		}
		ra.ActivityID = activityID
		ib.Values(ra.ID, ra.ActivityID, ra.Ref, ra.Type, ra.RelatedID)
	}
	if err := r.execInsert(ctx, tx, ib); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert related activities")
	}
	return nil
}
