package parse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/codelist"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/xmltree"
)

const v2Activity = `
<iati-activity default-currency="USD" xml:lang="en" hierarchy="2" humanitarian="1" last-updated-datetime="2023-01-02T03:04:05Z">
	<iati-identifier>XM-DAC-41114-PROJECT-1</iati-identifier>
	<reporting-org ref="XM-DAC-41114" type="40" secondary-reporter="0">
		<narrative>UNDP</narrative>
	</reporting-org>
	<title>
		<narrative>Clean water</narrative>
		<narrative xml:lang="fr">Eau propre</narrative>
	</title>
	<description type="1"><narrative>Improving access to safe water</narrative></description>
	<participating-org role="1" ref="GB-GOV-1" type="10" activity-id="GB-1-123">
		<narrative>FCDO</narrative>
	</participating-org>
	<activity-status code="2"/>
	<activity-scope code="4"/>
	<collaboration-type code="1"/>
	<default-flow-type code="10"/>
	<default-finance-type code="110"/>
	<default-aid-type code="C01"/>
	<default-tied-status code="5"/>
	<activity-date type="1" iso-date="2023-01-01"/>
	<activity-date type="2" iso-date="2023-02-01"/>
	<recipient-country code="KE" percentage="60"/>
	<recipient-region code="298" vocabulary="1" percentage="40"/>
	<location ref="loc-1">
		<name><narrative>Nairobi</narrative></name>
		<point><pos>-1.28 36.82</pos></point>
		<exactness code="1"/>
	</location>
	<sector code="14010" vocabulary="1" percentage="100"/>
	<budget type="1" status="2">
		<period-start iso-date="2023-01-01"/>
		<period-end iso-date="2023-12-31"/>
		<value currency="EUR" value-date="2023-01-01">1500.50</value>
	</budget>
	<planned-disbursement type="1">
		<period-start iso-date="2023-03-01"/>
		<period-end iso-date="2023-03-31"/>
		<value value-date="2023-03-01">2000</value>
	</planned-disbursement>
	<transaction ref="t-1" humanitarian="1">
		<transaction-type code="3"/>
		<transaction-date iso-date="2023-03-01"/>
		<value value-date="2023-03-01">25,000</value>
		<description><narrative>First tranche</narrative></description>
		<provider-org ref="GB-GOV-1" provider-activity-id="GB-1-123"><narrative>FCDO</narrative></provider-org>
		<receiver-org ref="KE-GOV-7"/>
		<disbursement-channel code="2"/>
		<sector code="14010" vocabulary="1"/>
		<flow-type code="10"/>
		<finance-type code="110"/>
		<aid-type code="C01"/>
		<tied-status code="5"/>
	</transaction>
	<document-link url="http://example.com/report.pdf" format="application/pdf">
		<title><narrative>Annual report</narrative></title>
		<category code="A01"/>
		<document-date iso-date="2023-04-01"/>
	</document-link>
	<result type="1" aggregation-status="1">
		<title><narrative>Outcome</narrative></title>
		<description><narrative>Households served</narrative></description>
	</result>
	<related-activity ref="XM-DAC-41114-PARENT" type="1"/>
</iati-activity>`

func TestWalkV2_FullActivity(t *testing.T) {
	c, err := walkActivity(t, Version202, v2Activity)
	require.NoError(t, err)
	assert.Empty(t, c.Errors())

	act := c.Activity()
	assert.Equal(t, "XM-DAC-41114-PROJECT-1", act.IATIIdentifier)
	require.NotNil(t, act.DefaultCurrency)
	assert.Equal(t, "USD", *act.DefaultCurrency)
	require.NotNil(t, act.DefaultLanguage)
	assert.Equal(t, "en", *act.DefaultLanguage)
	assert.Equal(t, 2, act.Hierarchy)
	assert.True(t, act.Humanitarian)
	require.NotNil(t, act.LastUpdated)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), *act.LastUpdated)
	require.NotNil(t, act.ActivityStatus)
	assert.Equal(t, "2", *act.ActivityStatus)
	require.NotNil(t, act.ActivityScope)
	assert.Equal(t, "4", *act.ActivityScope)
	require.NotNil(t, act.DefaultFlowType)
	assert.Equal(t, "10", *act.DefaultFlowType)
	require.NotNil(t, act.DefaultAid)
	assert.Equal(t, "C01", *act.DefaultAid)

	t.Run("reporting org", func(t *testing.T) {
		ro := c.Bundle.ReportingOrg
		require.NotNil(t, ro)
		assert.Equal(t, "XM-DAC-41114", ro.Ref)
		assert.False(t, ro.SecondaryReporter)
		assert.Equal(t, "UNDP", narrativeContent(t, c, models.NarrativeOwnerReportingOrg, ro.ID))
	})

	t.Run("title narratives", func(t *testing.T) {
		require.NotNil(t, c.Bundle.Title)
		titleNarratives := narrativesFor(c, models.NarrativeOwnerTitle, c.Bundle.Title.ID)
		require.Len(t, titleNarratives, 2)
		assert.Equal(t, "Clean water", titleNarratives[0].Content)
		require.NotNil(t, titleNarratives[0].Language)
		assert.Equal(t, "en", *titleNarratives[0].Language) // activity default
		require.NotNil(t, titleNarratives[1].Language)
		assert.Equal(t, "fr", *titleNarratives[1].Language)
	})

	t.Run("participating org", func(t *testing.T) {
		require.Len(t, c.Bundle.ParticipatingOrgs, 1)
		po := c.Bundle.ParticipatingOrgs[0]
		assert.Equal(t, "1", po.Role)
		require.NotNil(t, po.Ref)
		assert.Equal(t, "GB-GOV-1", *po.Ref)
		require.NotNil(t, po.ActivityRef)
		assert.Equal(t, "GB-1-123", *po.ActivityRef)
	})

	t.Run("dates countries regions", func(t *testing.T) {
		require.Len(t, c.Bundle.ActivityDates, 2)
		assert.Equal(t, "1", c.Bundle.ActivityDates[0].Type)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), c.Bundle.ActivityDates[0].ISODate)

		require.Len(t, c.Bundle.RecipientCountries, 1)
		assert.Equal(t, "KE", c.Bundle.RecipientCountries[0].Code)
		require.NotNil(t, c.Bundle.RecipientCountries[0].Percentage)
		assert.True(t, c.Bundle.RecipientCountries[0].Percentage.Equal(decimal.NewFromInt(60)))

		require.Len(t, c.Bundle.RecipientRegions, 1)
		assert.Equal(t, "298", c.Bundle.RecipientRegions[0].Code)
	})

	t.Run("location", func(t *testing.T) {
		require.Len(t, c.Bundle.Locations, 1)
		loc := c.Bundle.Locations[0]
		require.NotNil(t, loc.PointPos)
		assert.Equal(t, "-1.28 36.82", *loc.PointPos)
		require.NotNil(t, loc.Exactness)
		assert.Equal(t, "1", *loc.Exactness)
		assert.Equal(t, "Nairobi", narrativeContent(t, c, models.NarrativeOwnerLocation, loc.ID))
	})

	t.Run("budget", func(t *testing.T) {
		require.Len(t, c.Bundle.Budgets, 1)
		b := c.Bundle.Budgets[0]
		assert.Equal(t, "1", b.Type)
		assert.Equal(t, "2", b.Status)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), b.PeriodStart)
		assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), b.PeriodEnd)
		assert.True(t, b.Value.Equal(decimal.RequireFromString("1500.50")))
		require.NotNil(t, b.Currency)
		assert.Equal(t, "EUR", *b.Currency)
	})

	t.Run("planned disbursement falls back to default currency", func(t *testing.T) {
		require.Len(t, c.Bundle.PlannedDisbursements, 1)
		pd := c.Bundle.PlannedDisbursements[0]
		assert.True(t, pd.Value.Equal(decimal.NewFromInt(2000)))
		require.NotNil(t, pd.Currency)
		assert.Equal(t, "USD", *pd.Currency)
		require.NotNil(t, pd.PeriodEnd)
	})

	t.Run("transaction", func(t *testing.T) {
		require.Len(t, c.Bundle.Transactions, 1)
		txn := c.Bundle.Transactions[0]
		assert.Equal(t, "3", txn.Type)
		assert.True(t, txn.Value.Equal(decimal.NewFromInt(25000)))
		require.NotNil(t, txn.Currency)
		assert.Equal(t, "USD", *txn.Currency)
		require.NotNil(t, txn.Humanitarian)
		assert.True(t, *txn.Humanitarian)
		require.NotNil(t, txn.ProviderOrgRef)
		assert.Equal(t, "GB-GOV-1", *txn.ProviderOrgRef)
		require.NotNil(t, txn.ProviderActivityRef)
		assert.Equal(t, "GB-1-123", *txn.ProviderActivityRef)
		require.NotNil(t, txn.ReceiverOrgRef)
		assert.Equal(t, "KE-GOV-7", *txn.ReceiverOrgRef)
		require.NotNil(t, txn.DisbursementCh)
		assert.Equal(t, "2", *txn.DisbursementCh)
		assert.Equal(t, "First tranche", narrativeContent(t, c, models.NarrativeOwnerTransactionDesc, txn.ID))
	})

	t.Run("transaction sector", func(t *testing.T) {
		// One activity sector plus one transaction sector.
		require.Len(t, c.Bundle.Sectors, 2)
		txnSector := c.Bundle.Sectors[1]
		require.NotNil(t, txnSector.TransactionID)
		assert.Equal(t, c.Bundle.Transactions[0].ID, *txnSector.TransactionID)
	})

	t.Run("document link", func(t *testing.T) {
		require.Len(t, c.Bundle.DocumentLinks, 1)
		link := c.Bundle.DocumentLinks[0]
		assert.Equal(t, "http://example.com/report.pdf", link.URL)
		require.NotNil(t, link.Category)
		assert.Equal(t, "A01", *link.Category)
		require.NotNil(t, link.DocDate)
		assert.Equal(t, "Annual report", narrativeContent(t, c, models.NarrativeOwnerDocumentLink, link.ID))
	})

	t.Run("result", func(t *testing.T) {
		require.Len(t, c.Bundle.Results, 1)
		result := c.Bundle.Results[0]
		require.NotNil(t, result.AggregationStatus)
		assert.True(t, *result.AggregationStatus)
		resultNarratives := narrativesFor(c, models.NarrativeOwnerResult, result.ID)
		assert.Len(t, resultNarratives, 2)
	})

	t.Run("related activity", func(t *testing.T) {
		require.Len(t, c.Bundle.RelatedActivities, 1)
		rel := c.Bundle.RelatedActivities[0]
		assert.Equal(t, "XM-DAC-41114-PARENT", rel.Ref)
		assert.Equal(t, models.RelatedActivityParent, rel.Type)
		assert.Nil(t, rel.RelatedID)
	})
}

func TestWalkV2_HierarchyDefaultsToOne(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
</iati-activity>`)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Activity().Hierarchy)
	assert.False(t, c.Activity().Humanitarian)
	assert.Nil(t, c.Activity().DefaultCurrency)
}

func TestWalkV2_IgnoredSectorVocabulary(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<sector code="X1" vocabulary="99"/>
	<sector code="14010" vocabulary="2"/>
</iati-activity>`)
	require.NoError(t, err)

	require.Len(t, c.Errors(), 1)
	assert.Equal(t, iatierrors.KindIgnoredVocabulary, c.Errors()[0].Kind)

	require.Len(t, c.Bundle.Sectors, 1)
	assert.Equal(t, "2", c.Bundle.Sectors[0].Vocabulary)
}

func TestWalkV2_InvalidLastUpdated(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity last-updated-datetime="not-a-date">
	<iati-identifier>XM-1</iati-identifier>
</iati-activity>`)
	require.Error(t, err)

	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
	assert.Equal(t, "last-updated-datetime", pe.Field)
	assert.Nil(t, c.Activity().LastUpdated)
}

func TestWalkV2_BudgetValueMissingValueDate(t *testing.T) {
	_, err := walkActivity(t, Version202, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<budget>
		<period-start iso-date="2023-01-01"/>
		<period-end iso-date="2023-12-31"/>
		<value currency="USD">100</value>
	</budget>
</iati-activity>`)
	require.Error(t, err)

	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindRequiredField, pe.Kind)
	assert.Equal(t, "budget", pe.Model)
}

type fakeCodelistStore struct {
	items []models.CodelistItem
}

func (f *fakeCodelistStore) GetAll(ctx context.Context) ([]models.CodelistItem, error) {
	return f.items, nil
}

func TestWalkV2_CodelistValidation(t *testing.T) {
	resolver := codelist.NewResolver(&fakeCodelistStore{items: []models.CodelistItem{
		{ID: "1", List: codelist.ListCountry, Code: "KE"},
		{ID: "2", List: codelist.ListTransactionType, Code: "3"},
	}}, logger.NewNop())
	require.NoError(t, resolver.Reload(context.Background()))

	walk := func(t *testing.T, doc string) (*Context, error) {
		t.Helper()
		root, err := xmltree.Decode([]byte(doc))
		require.NoError(t, err)
		ds := &models.Dataset{ID: "ds-1", Identifier: "pub-data", Publisher: "pub"}
		c := NewContext(context.Background(), ds, Version202, resolver)
		return c, NewWalker(NewRegistry(), logger.NewNop()).Walk(c, root)
	}

	t.Run("known codes pass", func(t *testing.T) {
		c, err := walk(t, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<recipient-country code="KE"/>
	<transaction>
		<transaction-type code="3"/>
		<transaction-date iso-date="2023-01-01"/>
		<value currency="USD" value-date="2023-01-01">10</value>
	</transaction>
</iati-activity>`)
		require.NoError(t, err)
		assert.Empty(t, c.Errors())
		require.Len(t, c.Bundle.RecipientCountries, 1)
	})

	t.Run("unknown country rejects", func(t *testing.T) {
		_, err := walk(t, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<recipient-country code="ZZ"/>
</iati-activity>`)
		require.Error(t, err)
		pe := iatierrors.WrapParseError(err)
		assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
		assert.Equal(t, "recipient_country", pe.Model)
	})

	t.Run("unknown transaction type rejects", func(t *testing.T) {
		_, err := walk(t, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<transaction>
		<transaction-type code="42"/>
		<value currency="USD" value-date="2023-01-01">10</value>
	</transaction>
</iati-activity>`)
		require.Error(t, err)
		pe := iatierrors.WrapParseError(err)
		assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
		assert.Equal(t, "transaction", pe.Model)
	})
}

func TestWalkV2_CodelistValidationPermissiveWithoutLists(t *testing.T) {
	c, err := walkActivity(t, Version202, `
<iati-activity>
	<iati-identifier>XM-1</iati-identifier>
	<recipient-country code="ZZ"/>
</iati-activity>`)
	require.NoError(t, err)

	assert.Empty(t, c.Errors())
	require.Len(t, c.Bundle.RecipientCountries, 1)
}

func narrativesFor(c *Context, ownerType, ownerID string) []*models.Narrative {
	out := []*models.Narrative{}
	for _, n := range c.Bundle.Narratives {
		if n.OwnerType == ownerType && n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out
}

func narrativeContent(t *testing.T, c *Context, ownerType, ownerID string) string {
	t.Helper()
	narratives := narrativesFor(c, ownerType, ownerID)
	require.Len(t, narratives, 1)
	return narratives[0].Content
}
