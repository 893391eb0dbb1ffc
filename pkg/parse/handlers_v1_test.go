package parse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/models"
)

const v1Activity = `
<iati-activity default-currency="GBP" xml:lang="en" last-updated-datetime="2013-05-01">
	<iati-identifier>GB-1-OLD</iati-identifier>
	<reporting-org ref="GB-1" type="10">DFID</reporting-org>
	<title>Old style project</title>
	<description type="1">Reducing poverty through education</description>
	<participating-org role="Funding" ref="GB-1">DFID</participating-org>
	<activity-status code="2"/>
	<activity-date type="start-actual" iso-date="2012-01-01"/>
	<activity-date type="end-planned">2014-06-30</activity-date>
	<sector vocabulary="DAC" code="11110">Education policy</sector>
	<transaction>
		<transaction-type code="D"/>
		<transaction-date iso-date="2013-02-01"/>
		<value value-date="2013-02-01">5,000.00</value>
		<description>First tranche</description>
		<provider-org ref="GB-1" provider-activity-id="GB-1-PARENT">DFID</provider-org>
	</transaction>
	<contact-info>
		<organisation>DFID</organisation>
		<email>enquiry@example.gov.uk</email>
	</contact-info>
	<related-activity ref="GB-1-PARENT" type="1"/>
</iati-activity>`

func TestWalkV1_FullActivity(t *testing.T) {
	c, err := walkActivity(t, Version103, v1Activity)
	require.NoError(t, err)
	assert.Empty(t, c.Errors())

	act := c.Activity()
	assert.Equal(t, "GB-1-OLD", act.IATIIdentifier)
	require.NotNil(t, act.LastUpdated)
	assert.Equal(t, time.Date(2013, 5, 1, 0, 0, 0, 0, time.UTC), *act.LastUpdated)

	t.Run("element text becomes narratives", func(t *testing.T) {
		require.NotNil(t, c.Bundle.Title)
		assert.Equal(t, "Old style project", narrativeContent(t, c, models.NarrativeOwnerTitle, c.Bundle.Title.ID))

		require.NotNil(t, c.Bundle.ReportingOrg)
		assert.Equal(t, "DFID", narrativeContent(t, c, models.NarrativeOwnerReportingOrg, c.Bundle.ReportingOrg.ID))

		require.Len(t, c.Bundle.Descriptions, 1)
		assert.Equal(t, "Reducing poverty through education", narrativeContent(t, c, models.NarrativeOwnerDescription, c.Bundle.Descriptions[0].ID))
	})

	t.Run("named org roles map to numeric codes", func(t *testing.T) {
		require.Len(t, c.Bundle.ParticipatingOrgs, 1)
		assert.Equal(t, "1", c.Bundle.ParticipatingOrgs[0].Role)
	})

	t.Run("named date types map to numeric codes", func(t *testing.T) {
		require.Len(t, c.Bundle.ActivityDates, 2)
		assert.Equal(t, models.DateTypeActualStart, c.Bundle.ActivityDates[0].Type)
		// 1.x dates may carry the date as element text instead of iso-date.
		assert.Equal(t, models.DateTypePlannedEnd, c.Bundle.ActivityDates[1].Type)
		assert.Equal(t, time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC), c.Bundle.ActivityDates[1].ISODate)
	})

	t.Run("DAC sector vocabulary maps to 2.x code", func(t *testing.T) {
		require.Len(t, c.Bundle.Sectors, 1)
		sector := c.Bundle.Sectors[0]
		assert.Equal(t, "11110", sector.Code)
		assert.Equal(t, "1", sector.Vocabulary)
		assert.Equal(t, "Education policy", narrativeContent(t, c, models.NarrativeOwnerSector, sector.ID))
	})

	t.Run("letter transaction types map to numeric codes", func(t *testing.T) {
		require.Len(t, c.Bundle.Transactions, 1)
		txn := c.Bundle.Transactions[0]
		assert.Equal(t, models.TransactionTypeDisbursement, txn.Type)
		assert.True(t, txn.Value.Equal(decimal.RequireFromString("5000.00")))
		require.NotNil(t, txn.Currency)
		assert.Equal(t, "GBP", *txn.Currency) // activity default
		require.NotNil(t, txn.ProviderOrgRef)
		assert.Equal(t, "GB-1", *txn.ProviderOrgRef)
		require.NotNil(t, txn.ProviderActivityRef)
		assert.Equal(t, "GB-1-PARENT", *txn.ProviderActivityRef)
		assert.Equal(t, "First tranche", narrativeContent(t, c, models.NarrativeOwnerTransactionDesc, txn.ID))
		assert.Equal(t, "DFID", narrativeContent(t, c, models.NarrativeOwnerTransactionProvider, txn.ID))
	})

	t.Run("contact info from plain text children", func(t *testing.T) {
		require.Len(t, c.Bundle.ContactInfos, 1)
		contact := c.Bundle.ContactInfos[0]
		require.NotNil(t, contact.Organisation)
		assert.Equal(t, "DFID", *contact.Organisation)
		require.NotNil(t, contact.Email)
		assert.Equal(t, "enquiry@example.gov.uk", *contact.Email)
	})

	t.Run("related activity", func(t *testing.T) {
		require.Len(t, c.Bundle.RelatedActivities, 1)
		assert.Equal(t, "GB-1-PARENT", c.Bundle.RelatedActivities[0].Ref)
	})
}

func TestWalkV1_TransactionTypeMapping(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"IF", models.TransactionTypeIncomingFunds},
		{"C", models.TransactionTypeCommitment},
		{"D", models.TransactionTypeDisbursement},
		{"E", models.TransactionTypeExpenditure},
		{"R", models.TransactionTypeReimbursement},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := walkActivity(t, Version105, `
<iati-activity>
	<iati-identifier>GB-1-X</iati-identifier>
	<transaction>
		<transaction-type code="`+tt.code+`"/>
		<value value-date="2013-01-01">10</value>
	</transaction>
</iati-activity>`)
			require.NoError(t, err)
			require.Len(t, c.Bundle.Transactions, 1)
			assert.Equal(t, tt.want, c.Bundle.Transactions[0].Type)
		})
	}
}

func TestWalkV1_UnknownTransactionType(t *testing.T) {
	_, err := walkActivity(t, Version103, `
<iati-activity>
	<iati-identifier>GB-1-X</iati-identifier>
	<transaction>
		<transaction-type code="ZZ"/>
	</transaction>
</iati-activity>`)
	require.Error(t, err)

	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
	assert.Equal(t, "transaction", pe.Model)
}

func TestWalkV1_UnknownDateType(t *testing.T) {
	c, err := walkActivity(t, Version103, `
<iati-activity>
	<iati-identifier>GB-1-X</iati-identifier>
	<activity-date type="someday" iso-date="2013-01-01"/>
</iati-activity>`)
	require.Error(t, err)

	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindFieldValidation, pe.Kind)
	assert.Empty(t, c.Bundle.ActivityDates)
}

func TestWalkV1_TextWithoutLanguageRejectsActivity(t *testing.T) {
	_, err := walkActivity(t, Version103, `
<iati-activity>
	<iati-identifier>GB-1-X</iati-identifier>
	<title>No language anywhere</title>
</iati-activity>`)
	require.Error(t, err)

	pe := iatierrors.WrapParseError(err)
	assert.Equal(t, iatierrors.KindRequiredField, pe.Kind)
	assert.Equal(t, "narrative", pe.Model)
	assert.Equal(t, "xml:lang", pe.Field)
}

func TestWalkV1_NarrativeElementsNotRecognised(t *testing.T) {
	// A 2.x-style narrative child under a 1.x dialect is an unknown path; the
	// owner's own text is empty so nothing attaches.
	c, err := walkActivity(t, Version103, `
<iati-activity>
	<iati-identifier>GB-1-X</iati-identifier>
	<title><narrative>Wrong dialect</narrative></title>
</iati-activity>`)
	require.NoError(t, err)

	require.NotNil(t, c.Bundle.Title)
	assert.Empty(t, narrativesFor(c, models.NarrativeOwnerTitle, c.Bundle.Title.ID))
}
