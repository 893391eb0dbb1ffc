package parse

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/currency"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeActivityStore struct {
	existing map[string]*models.Activity
	ids      map[string]string

	deleted []string
	saved   []*models.ActivityBundle
	err     error
}

func (f *fakeActivityStore) GetByIdentifier(ctx context.Context, identifier string) (*models.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.existing[identifier], nil
}

func (f *fakeActivityStore) Delete(ctx context.Context, tx database.Tx, identifier string) error {
	f.deleted = append(f.deleted, identifier)
	return nil
}

func (f *fakeActivityStore) SaveBundle(ctx context.Context, tx database.Tx, bundle *models.ActivityBundle) error {
	f.saved = append(f.saved, bundle)
	return nil
}

func (f *fakeActivityStore) GetIDsByIdentifiers(ctx context.Context, identifiers []string) (map[string]string, error) {
	out := map[string]string{}
	for _, identifier := range identifiers {
		if id, ok := f.ids[identifier]; ok {
			out[identifier] = id
		}
	}
	return out, nil
}

type fakeNarrativeStore struct {
	inserted []*models.Narrative
	orgNames map[string][]*models.OrganisationNarrative
}

func (f *fakeNarrativeStore) InsertMany(ctx context.Context, tx database.Tx, narratives []*models.Narrative) error {
	f.inserted = append(f.inserted, narratives...)
	return nil
}

func (f *fakeNarrativeStore) ReplaceForOrganisation(ctx context.Context, organisationID string, narratives []*models.OrganisationNarrative) error {
	if f.orgNames == nil {
		f.orgNames = map[string][]*models.OrganisationNarrative{}
	}
	f.orgNames[organisationID] = narratives
	return nil
}

type fakeOrganisationStore struct {
	upserts map[string]*models.Organisation
	names   map[string]*string
}

func (f *fakeOrganisationStore) Upsert(ctx context.Context, identifier string, name, orgType *string, datasetID string) (*models.Organisation, error) {
	if f.upserts == nil {
		f.upserts = map[string]*models.Organisation{}
		f.names = map[string]*string{}
	}
	org, ok := f.upserts[identifier]
	if !ok {
		org = &models.Organisation{ID: uuid.New().String(), OrganisationIdentifier: identifier}
		f.upserts[identifier] = org
	}
	if name != nil {
		f.names[identifier] = name
	}
	return org, nil
}

// fakeDB satisfies database.DB for the single GetTx call the persister makes.
type fakeDB struct {
	database.DB
}

func (f *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, &fakeTx{}, nil
}

type fakeTx struct {
	database.Tx
	committed bool
}

func (t *fakeTx) IsOpen() bool { return !t.committed }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

type fakeRateStore struct {
	rates map[string]decimal.Decimal
}

func (f *fakeRateStore) GetRate(ctx context.Context, curr string, date time.Time) (*models.CurrencyRate, error) {
	rate, ok := f.rates[curr]
	if !ok {
		return nil, nil
	}
	return &models.CurrencyRate{Currency: curr, RateDate: date, RatePerUSD: rate}, nil
}

func timeptr(t time.Time) *time.Time { return &t }

func TestCheckUpToDate(t *testing.T) {
	stored := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		existing   *models.Activity
		incoming   *time.Time
		wantSkip   bool
		wantReject bool
	}{
		{"no existing activity", nil, timeptr(stored), false, false},
		{"existing without timestamp", &models.Activity{}, timeptr(stored), false, false},
		{"incoming without timestamp", &models.Activity{LastUpdated: timeptr(stored)}, nil, false, false},
		{"unchanged timestamp", &models.Activity{LastUpdated: timeptr(stored)}, timeptr(stored), true, false},
		{"newer timestamp", &models.Activity{LastUpdated: timeptr(stored)}, timeptr(stored.Add(24 * time.Hour)), false, false},
		{"older timestamp", &models.Activity{LastUpdated: timeptr(stored)}, timeptr(stored.Add(-24 * time.Hour)), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeActivityStore{existing: map[string]*models.Activity{}}
			if tt.existing != nil {
				store.existing["XM-1"] = tt.existing
			}
			p := NewPersister(&fakeDB{}, store, &fakeNarrativeStore{}, &fakeOrganisationStore{}, nil, false, logger.NewNop())

			err := p.CheckUpToDate(context.Background(), "XM-1", tt.incoming)
			switch {
			case tt.wantSkip:
				assert.ErrorIs(t, err, iatierrors.ErrNoUpdateRequired)
			case tt.wantReject:
				require.Error(t, err)
				pe := iatierrors.WrapParseError(err)
				assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
				assert.Equal(t, "XM-1", pe.ActivityIdentifier)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckUpToDate_StoreError(t *testing.T) {
	store := &fakeActivityStore{err: errors.New("db down")}
	p := NewPersister(&fakeDB{}, store, &fakeNarrativeStore{}, &fakeOrganisationStore{}, nil, false, logger.NewNop())

	err := p.CheckUpToDate(context.Background(), "XM-1", nil)
	assert.Error(t, err)
	assert.False(t, iatierrors.IsParseError(err))
}

func TestSave_DeleteThenRecreate(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity default-currency="USD" xml:lang="en">
	<iati-identifier>XM-1</iati-identifier>
	<title><narrative>Project</narrative></title>
	<reporting-org ref="XM-DAC-41114" type="40"><narrative>UNDP</narrative></reporting-org>
	<participating-org role="1" ref="GB-GOV-1"><narrative>FCDO</narrative></participating-org>
	<transaction>
		<transaction-type code="3"/>
		<value value-date="2023-01-01">100</value>
		<provider-org ref="GB-GOV-1" provider-activity-id="GB-1-PARENT"/>
	</transaction>
	<related-activity ref="GB-1-PARENT" type="1"/>
</iati-activity>`)
	require.NoError(t, err)

	activities := &fakeActivityStore{ids: map[string]string{"GB-1-PARENT": "parent-uuid"}}
	narratives := &fakeNarrativeStore{}
	organisations := &fakeOrganisationStore{}
	p := NewPersister(&fakeDB{}, activities, narratives, organisations, nil, false, logger.NewNop())

	require.NoError(t, p.Save(context.Background(), c))

	// The previous version is deleted before the new rows go in.
	assert.Equal(t, []string{"XM-1"}, activities.deleted)
	require.Len(t, activities.saved, 1)
	assert.Len(t, narratives.inserted, 3)

	t.Run("organisations are upserted and wired", func(t *testing.T) {
		bundle := activities.saved[0]
		require.NotNil(t, bundle.ReportingOrg.OrganisationID)
		require.Len(t, bundle.ParticipatingOrgs, 1)
		assert.NotNil(t, bundle.ParticipatingOrgs[0].OrganisationID)
		require.Len(t, bundle.Transactions, 1)
		assert.NotNil(t, bundle.Transactions[0].ProviderOrgID)

		// Narrative text supplied the names on first sight.
		require.NotNil(t, organisations.names["XM-DAC-41114"])
		assert.Equal(t, "UNDP", *organisations.names["XM-DAC-41114"])

		// The same text lands as organisation narratives under the upserted
		// org, separate from the activity's own narratives.
		reportingOrgID := *bundle.ReportingOrg.OrganisationID
		require.Len(t, narratives.orgNames[reportingOrgID], 1)
		orgNarrative := narratives.orgNames[reportingOrgID][0]
		assert.Equal(t, "UNDP", orgNarrative.Content)
		assert.Equal(t, reportingOrgID, orgNarrative.OrganisationID)
		require.NotNil(t, orgNarrative.Language)
		assert.Equal(t, "en", *orgNarrative.Language)

		participatingOrgID := *bundle.ParticipatingOrgs[0].OrganisationID
		require.Len(t, narratives.orgNames[participatingOrgID], 1)
		assert.Equal(t, "FCDO", narratives.orgNames[participatingOrgID][0].Content)
	})

	t.Run("known activity refs resolve", func(t *testing.T) {
		bundle := activities.saved[0]
		require.Len(t, bundle.RelatedActivities, 1)
		require.NotNil(t, bundle.RelatedActivities[0].RelatedID)
		assert.Equal(t, "parent-uuid", *bundle.RelatedActivities[0].RelatedID)
		require.NotNil(t, bundle.Transactions[0].ProviderActivityID)
		assert.Equal(t, "parent-uuid", *bundle.Transactions[0].ProviderActivityID)
	})
}

func TestSave_MissingIdentifierFails(t *testing.T) {
	ds := &models.Dataset{ID: "ds-1"}
	c := NewContext(context.Background(), ds, Version202, nil)
	p := NewPersister(&fakeDB{}, &fakeActivityStore{}, &fakeNarrativeStore{}, &fakeOrganisationStore{}, nil, false, logger.NewNop())

	err := p.Save(context.Background(), c)
	require.Error(t, err)
	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindRequiredField, pe.Kind)
	assert.Equal(t, "activity", pe.Model)
}

func TestSave_MissingTitleRecordsError(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
</iati-activity>`)
	require.NoError(t, err)

	p := NewPersister(&fakeDB{}, &fakeActivityStore{}, &fakeNarrativeStore{}, &fakeOrganisationStore{}, nil, false, logger.NewNop())
	require.NoError(t, p.Save(context.Background(), c))

	// The activity is still saved; the missing title is just a note.
	require.Len(t, c.Errors(), 1)
	assert.Equal(t, iatierrors.KindRequiredField, c.Errors()[0].Kind)
	assert.Equal(t, "title", c.Errors()[0].Model)
}

func TestSave_ConvertsValues(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity xml:lang="en">
	<iati-identifier>XM-1</iati-identifier>
	<title><narrative>Project</narrative></title>
	<budget>
		<period-start iso-date="2023-01-01"/>
		<period-end iso-date="2023-12-31"/>
		<value currency="EUR" value-date="2023-01-01">80</value>
	</budget>
</iati-activity>`)
	require.NoError(t, err)

	converter := currency.NewConverter(&fakeRateStore{rates: map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.8"),
	}}, logger.NewNop())

	activities := &fakeActivityStore{}
	p := NewPersister(&fakeDB{}, activities, &fakeNarrativeStore{}, &fakeOrganisationStore{}, converter, true, logger.NewNop())
	require.NoError(t, p.Save(context.Background(), c))

	require.Len(t, activities.saved, 1)
	budget := activities.saved[0].Budgets[0]
	require.True(t, budget.ValueUSD.Valid)
	assert.True(t, budget.ValueUSD.Decimal.Equal(decimal.NewFromInt(100)))
	require.True(t, budget.ValueEUR.Valid)
	assert.True(t, budget.ValueEUR.Decimal.Equal(decimal.NewFromInt(80)))
	assert.False(t, budget.ValueGBP.Valid)
}
