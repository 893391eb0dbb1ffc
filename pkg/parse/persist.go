package parse

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/currency"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ActivityStore is the activity repository surface the persister needs.
type ActivityStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*models.Activity, error)
	Delete(ctx context.Context, tx database.Tx, identifier string) error
	SaveBundle(ctx context.Context, tx database.Tx, bundle *models.ActivityBundle) error
	GetIDsByIdentifiers(ctx context.Context, identifiers []string) (map[string]string, error)
}

// NarrativeStore is the narrative repository surface the persister needs.
// Activity narratives ride the activity transaction; organisation narratives
// are replaced in their own table as orgs are upserted.
type NarrativeStore interface {
	InsertMany(ctx context.Context, tx database.Tx, narratives []*models.Narrative) error
	ReplaceForOrganisation(ctx context.Context, organisationID string, narratives []*models.OrganisationNarrative) error
}

// OrganisationStore is the organisation repository surface the persister needs.
type OrganisationStore interface {
	Upsert(ctx context.Context, identifier string, name, orgType *string, datasetID string) (*models.Organisation, error)
}

// Persister saves one assembled activity. Re-ingesting an identifier deletes
// the previous version and recreates it inside a single transaction, so
// readers never see a half-replaced activity.
type Persister struct {
	db            database.DB
	activities    ActivityStore
	narratives    NarrativeStore
	organisations OrganisationStore
	converter     *currency.Converter
	convert       bool
	logger        ectologger.Logger
}

// NewPersister wires the persister onto its stores. Currency conversion can
// be disabled for bulk backfills.
func NewPersister(
	db database.DB,
	activities ActivityStore,
	narratives NarrativeStore,
	organisations OrganisationStore,
	converter *currency.Converter,
	convert bool,
	logger ectologger.Logger,
) *Persister {
	return &Persister{
		db:            db,
		activities:    activities,
		narratives:    narratives,
		organisations: organisations,
		converter:     converter,
		convert:       convert,
		logger:        logger,
	}
}

// CheckUpToDate compares an incoming activity's last-updated timestamp with
// the stored one. Returns ErrNoUpdateRequired when nothing changed, a
// validation error when the timestamp moves backwards, nil when the activity
// should be (re)parsed.
func (p *Persister) CheckUpToDate(ctx context.Context, identifier string, lastUpdated *time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "parse.Persister.CheckUpToDate")
	defer span.End()

	existing, err := p.activities.GetByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	if existing == nil || existing.LastUpdated == nil {
		return nil
	}
	if lastUpdated == nil {
		// The stored version was timestamped but the incoming one is not.
		// Reparse; publishers sometimes drop the attribute.
		return nil
	}

	if lastUpdated.Before(*existing.LastUpdated) {
		return iatierrors.NewFieldValidationErrorf(
			"activity", "last-updated-datetime",
			"last-updated-datetime %s is earlier than the stored %s",
			lastUpdated.Format(time.RFC3339), existing.LastUpdated.Format(time.RFC3339),
		).AddActivityIdentifier(identifier)
	}
	if lastUpdated.Equal(*existing.LastUpdated) {
		return iatierrors.ErrNoUpdateRequired
	}
	return nil
}

// Save validates, converts and persists the assembled bundle.
func (p *Persister) Save(ctx context.Context, c *Context) error {
	ctx, span := tracing.StartSpan(ctx, "parse.Persister.Save")
	defer span.End()

	bundle := c.Bundle
	act := bundle.Activity
	if act.IATIIdentifier == "" {
		return iatierrors.NewRequiredFieldError("activity", "iati-identifier")
	}
	if bundle.Title == nil {
		c.AddError(iatierrors.NewRequiredFieldError("title", "narrative"))
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"iati_identifier": act.IATIIdentifier,
		"dataset_id":      act.DatasetID,
	})

	if p.convert {
		if err := p.convertValues(ctx, bundle); err != nil {
			return err
		}
	}
	if err := p.resolveOrganisations(ctx, bundle); err != nil {
		return err
	}
	if err := p.resolveActivityRefs(ctx, bundle); err != nil {
		return err
	}

	ctx, tx, err := p.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := p.activities.Delete(ctx, tx, act.IATIIdentifier); err != nil {
		return err
	}
	if err := p.activities.SaveBundle(ctx, tx, bundle); err != nil {
		return err
	}
	if err := p.narratives.InsertMany(ctx, tx, bundle.Narratives); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Debug("Persisted activity")
	return nil
}

func (p *Persister) convertValues(ctx context.Context, bundle *models.ActivityBundle) error {
	for _, b := range bundle.Budgets {
		if b.Currency == nil || b.ValueDate.IsZero() {
			continue
		}
		converted, err := p.converter.Convert(ctx, b.Value, *b.Currency, b.ValueDate)
		if err != nil {
			return err
		}
		b.ConvertedValues = converted
	}
	for _, pd := range bundle.PlannedDisbursements {
		if pd.Currency == nil || pd.ValueDate.IsZero() {
			continue
		}
		converted, err := p.converter.Convert(ctx, pd.Value, *pd.Currency, pd.ValueDate)
		if err != nil {
			return err
		}
		pd.ConvertedValues = converted
	}
	for _, t := range bundle.Transactions {
		if t.Currency == nil || t.ValueDate.IsZero() {
			continue
		}
		converted, err := p.converter.Convert(ctx, t.Value, *t.Currency, t.ValueDate)
		if err != nil {
			return err
		}
		t.ConvertedValues = converted
	}
	return nil
}

// resolveOrganisations lazily upserts every org ref in the bundle and wires
// the resulting IDs back onto the rows. Narrative text attached to org
// owners supplies the flattened name and is persisted as the organisation's
// own narratives, keyed by the upserted org.
func (p *Persister) resolveOrganisations(ctx context.Context, bundle *models.ActivityBundle) error {
	names := map[string][]*models.Narrative{}
	for _, n := range bundle.Narratives {
		switch n.OwnerType {
		case models.NarrativeOwnerReportingOrg:
			if bundle.ReportingOrg != nil && n.OwnerID == bundle.ReportingOrg.ID {
				names[bundle.ReportingOrg.Ref] = append(names[bundle.ReportingOrg.Ref], n)
			}
		case models.NarrativeOwnerParticipatingOrg:
			for _, org := range bundle.ParticipatingOrgs {
				if org.Ref != nil && n.OwnerID == org.ID {
					names[*org.Ref] = append(names[*org.Ref], n)
				}
			}
		}
	}

	if ro := bundle.ReportingOrg; ro != nil && ro.Ref != "" {
		org, err := p.upsertNamedOrganisation(ctx, ro.Ref, names[ro.Ref], ro.Type, bundle.Activity.DatasetID)
		if err != nil {
			return err
		}
		ro.OrganisationID = &org.ID
	}

	for _, po := range bundle.ParticipatingOrgs {
		if po.Ref == nil || *po.Ref == "" {
			continue
		}
		org, err := p.upsertNamedOrganisation(ctx, *po.Ref, names[*po.Ref], po.Type, bundle.Activity.DatasetID)
		if err != nil {
			return err
		}
		po.OrganisationID = &org.ID
	}

	for _, t := range bundle.Transactions {
		if t.ProviderOrgRef != nil && *t.ProviderOrgRef != "" {
			// Transaction org refs carry no narrative name.
			org, err := p.organisations.Upsert(ctx, *t.ProviderOrgRef, nil, nil, bundle.Activity.DatasetID)
			if err != nil {
				return err
			}
			t.ProviderOrgID = &org.ID
		}
		if t.ReceiverOrgRef != nil && *t.ReceiverOrgRef != "" {
			org, err := p.organisations.Upsert(ctx, *t.ReceiverOrgRef, nil, nil, bundle.Activity.DatasetID)
			if err != nil {
				return err
			}
			t.ReceiverOrgID = &org.ID
		}
	}
	return nil
}

// upsertNamedOrganisation upserts one org ref and stores its name narratives
// against the resulting organisation. The first fragment doubles as the
// flattened name column.
func (p *Persister) upsertNamedOrganisation(ctx context.Context, ref string, nameNarratives []*models.Narrative, orgType *string, datasetID string) (*models.Organisation, error) {
	var name *string
	if len(nameNarratives) > 0 {
		name = &nameNarratives[0].Content
	}

	org, err := p.organisations.Upsert(ctx, ref, name, orgType, datasetID)
	if err != nil {
		return nil, err
	}

	if len(nameNarratives) > 0 {
		orgNarratives := make([]*models.OrganisationNarrative, 0, len(nameNarratives))
		for _, n := range nameNarratives {
			orgNarratives = append(orgNarratives, &models.OrganisationNarrative{
				OrganisationID: org.ID,
				Language:       n.Language,
				Content:        n.Content,
			})
		}
		if err := p.narratives.ReplaceForOrganisation(ctx, org.ID, orgNarratives); err != nil {
			return nil, err
		}
	}
	return org, nil
}

// resolveActivityRefs fills related_id and provider/receiver activity IDs
// for counterpart activities that already exist locally. Late arrivals are
// picked up by the post-save hook when the counterpart lands.
func (p *Persister) resolveActivityRefs(ctx context.Context, bundle *models.ActivityBundle) error {
	refs := map[string]struct{}{}
	for _, ra := range bundle.RelatedActivities {
		refs[ra.Ref] = struct{}{}
	}
	for _, t := range bundle.Transactions {
		if t.ProviderActivityRef != nil {
			refs[*t.ProviderActivityRef] = struct{}{}
		}
		if t.ReceiverActivityRef != nil {
			refs[*t.ReceiverActivityRef] = struct{}{}
		}
	}
	if len(refs) == 0 {
		return nil
	}

	identifiers := make([]string, 0, len(refs))
	for ref := range refs {
		identifiers = append(identifiers, ref)
	}
	ids, err := p.activities.GetIDsByIdentifiers(ctx, identifiers)
	if err != nil {
		return err
	}

	for _, ra := range bundle.RelatedActivities {
		if id, ok := ids[ra.Ref]; ok {
			resolved := id
			ra.RelatedID = &resolved
		}
	}
	for _, t := range bundle.Transactions {
		if t.ProviderActivityRef != nil {
			if id, ok := ids[*t.ProviderActivityRef]; ok {
				resolved := id
				t.ProviderActivityID = &resolved
			}
		}
		if t.ReceiverActivityRef != nil {
			if id, ok := ids[*t.ReceiverActivityRef]; ok {
				resolved := id
				t.ReceiverActivityID = &resolved
			}
		}
	}
	return nil
}
