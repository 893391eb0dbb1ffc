package parse

import (
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// 1.x codelist values mapped onto the canonical 2.x codes.
var v1TransactionTypes = map[string]string{
	"IF": models.TransactionTypeIncomingFunds,
	"C":  models.TransactionTypeCommitment,
	"D":  models.TransactionTypeDisbursement,
	"E":  models.TransactionTypeExpenditure,
	"IR": models.TransactionTypeInterestPayment,
	"LR": models.TransactionTypeLoanRepayment,
	"R":  models.TransactionTypeReimbursement,
	"QP": models.TransactionTypePurchaseOfEquity,
	"QS": models.TransactionTypeSaleOfEquity,
	"CG": models.TransactionTypeCreditGuarantee,
}

var v1DateTypes = map[string]string{
	"start-planned": models.DateTypePlannedStart,
	"start-actual":  models.DateTypeActualStart,
	"end-planned":   models.DateTypePlannedEnd,
	"end-actual":    models.DateTypeActualEnd,
}

var v1OrgRoles = map[string]string{
	"Funding":      "1",
	"Accountable":  "2",
	"Extending":    "3",
	"Implementing": "4",
}

var v1SectorVocabularies = map[string]string{
	"":      "1",
	"DAC":   "1",
	"DAC-3": "2",
}

// registerV1 installs the handler table shared by 1.03, 1.04 and 1.05. Text
// lives directly on owner elements instead of narrative children, and
// several codelists use the older string codes.
func registerV1(r *Registry) {
	r.Register(v1Versions, "iati_activity", handleActivityV2)
	r.Register(v1Versions, "iati_activity/iati_identifier", handleIdentifier)
	r.Register(v1Versions, "iati_activity/reporting_org", handleReportingOrgV1)
	r.Register(v1Versions, "iati_activity/title", handleTitleV1)
	r.Register(v1Versions, "iati_activity/description", handleDescriptionV1)
	r.Register(v1Versions, "iati_activity/participating_org", handleParticipatingOrgV1)
	r.Register(v1Versions, "iati_activity/activity_status", handleActivityStatus)
	r.Register(v1Versions, "iati_activity/activity_date", handleActivityDateV1)
	r.Register(v1Versions, "iati_activity/activity_scope", handleActivityScope)
	r.Register(v1Versions, "iati_activity/collaboration_type", handleCollaborationType)
	r.Register(v1Versions, "iati_activity/default_flow_type", handleDefaultFlowType)
	r.Register(v1Versions, "iati_activity/default_finance_type", handleDefaultFinanceType)
	r.Register(v1Versions, "iati_activity/default_aid_type", handleDefaultAidType)
	r.Register(v1Versions, "iati_activity/default_tied_status", handleDefaultTiedStatus)
	r.Register(v1Versions, "iati_activity/contact_info", handleContactInfoV1)
	r.Register(v1Versions, "iati_activity/recipient_country", handleRecipientCountry)
	r.Register(v1Versions, "iati_activity/recipient_region", handleRecipientRegionV1)
	r.Register(v1Versions, "iati_activity/location", handleLocation)
	r.Register(v1Versions, "iati_activity/location/exactness", handleLocationExactness)
	r.Register(v1Versions, "iati_activity/location/coordinates", handleLocationCoordinatesV1)
	r.Register(v1Versions, "iati_activity/location/name", handleLocationNameV1)
	r.Register(v1Versions, "iati_activity/sector", handleSectorV1)
	r.Register(v1Versions, "iati_activity/budget", handleBudget)
	r.Register(v1Versions, "iati_activity/budget/period_start", handleBudgetPeriodStart)
	r.Register(v1Versions, "iati_activity/budget/period_end", handleBudgetPeriodEnd)
	r.Register(v1Versions, "iati_activity/budget/value", handleBudgetValue)
	r.Register(v1Versions, "iati_activity/planned_disbursement", handlePlannedDisbursement)
	r.Register(v1Versions, "iati_activity/planned_disbursement/period_start", handlePDPeriodStart)
	r.Register(v1Versions, "iati_activity/planned_disbursement/period_end", handlePDPeriodEnd)
	r.Register(v1Versions, "iati_activity/planned_disbursement/value", handlePDValue)
	r.Register(v1Versions, "iati_activity/transaction", handleTransaction)
	r.Register(v1Versions, "iati_activity/transaction/transaction_type", handleTransactionTypeV1)
	r.Register(v1Versions, "iati_activity/transaction/transaction_date", handleTransactionDate)
	r.Register(v1Versions, "iati_activity/transaction/value", handleTransactionValue)
	r.Register(v1Versions, "iati_activity/transaction/description", handleTransactionDescriptionV1)
	r.Register(v1Versions, "iati_activity/transaction/provider_org", handleTransactionProviderOrgV1)
	r.Register(v1Versions, "iati_activity/transaction/receiver_org", handleTransactionReceiverOrgV1)
	r.Register(v1Versions, "iati_activity/transaction/disbursement_channel", handleTransactionDisbursementChannel)
	r.Register(v1Versions, "iati_activity/transaction/flow_type", handleTransactionFlowType)
	r.Register(v1Versions, "iati_activity/transaction/finance_type", handleTransactionFinanceType)
	r.Register(v1Versions, "iati_activity/transaction/aid_type", handleTransactionAidType)
	r.Register(v1Versions, "iati_activity/transaction/tied_status", handleTransactionTiedStatus)
	r.Register(v1Versions, "iati_activity/document_link", handleDocumentLink)
	r.Register(v1Versions, "iati_activity/document_link/title", handleDocumentLinkTitleV1)
	r.Register(v1Versions, "iati_activity/document_link/category", handleDocumentLinkCategory)
	r.Register(v1Versions, "iati_activity/result", handleResult)
	r.Register(v1Versions, "iati_activity/result/title", handleResultTitleV1)
	r.Register(v1Versions, "iati_activity/result/description", handleResultDescriptionV1)
	r.Register(v1Versions, "iati_activity/related_activity", handleRelatedActivity)
}

func handleReportingOrgV1(c *Context, el *Element) error {
	ref := el.Attr("ref")
	if ref == "" {
		return iatierrors.NewRequiredFieldError("reporting_org", "ref")
	}

	ro := &models.ReportingOrg{
		ID:                uuid.New().String(),
		Ref:               ref,
		Type:              optAttr(el, "type"),
		SecondaryReporter: parseFlag(el.Attr("secondary-reporter")),
	}
	c.Bundle.ReportingOrg = ro
	c.SetNarrativeOwner(models.NarrativeOwnerReportingOrg, ro.ID)
	return addTextNarrative(c, el)
}

func handleTitleV1(c *Context, el *Element) error {
	if c.Bundle.Title == nil {
		c.Bundle.Title = &models.Title{ID: uuid.New().String()}
	}
	c.SetNarrativeOwner(models.NarrativeOwnerTitle, c.Bundle.Title.ID)
	return addTextNarrative(c, el)
}

func handleDescriptionV1(c *Context, el *Element) error {
	desc := &models.Description{
		ID:   uuid.New().String(),
		Type: optAttr(el, "type"),
	}
	c.Bundle.Descriptions = append(c.Bundle.Descriptions, desc)
	c.SetNarrativeOwner(models.NarrativeOwnerDescription, desc.ID)
	return addTextNarrative(c, el)
}

func handleParticipatingOrgV1(c *Context, el *Element) error {
	role := el.Attr("role")
	if role == "" {
		return iatierrors.NewRequiredFieldError("participating_org", "role")
	}
	if mapped, ok := v1OrgRoles[role]; ok {
		role = mapped
	}

	org := &models.ParticipatingOrg{
		ID:          uuid.New().String(),
		Ref:         optAttr(el, "ref"),
		Role:        role,
		Type:        optAttr(el, "type"),
		ActivityRef: optAttr(el, "activity-id"),
	}
	c.Bundle.ParticipatingOrgs = append(c.Bundle.ParticipatingOrgs, org)
	c.SetNarrativeOwner(models.NarrativeOwnerParticipatingOrg, org.ID)
	return addTextNarrative(c, el)
}

func handleActivityDateV1(c *Context, el *Element) error {
	rawType := el.Attr("type")
	dateType, ok := v1DateTypes[rawType]
	if !ok {
		return iatierrors.NewFieldValidationErrorf("activity_date", "type", "unknown date type '%s'", rawType)
	}

	raw := el.Attr("iso-date")
	if raw == "" {
		raw = el.TrimmedText()
	}
	t, ok := parseISODate(raw)
	if !ok {
		return iatierrors.NewFieldValidationErrorf("activity_date", "iso-date", "invalid date '%s'", raw)
	}

	c.Bundle.ActivityDates = append(c.Bundle.ActivityDates, &models.ActivityDate{
		ID:      uuid.New().String(),
		Type:    dateType,
		ISODate: t,
	})
	return nil
}

// handleContactInfoV1 consumes the subtree; 1.x contact children are plain
// text elements.
func handleContactInfoV1(c *Context, el *Element) error {
	contact := &models.ContactInfo{
		ID: uuid.New().String(),
	}

	if v := el.ChildText("organisation"); v != "" {
		contact.Organisation = &v
	}
	if v := el.ChildText("person-name"); v != "" {
		contact.PersonName = &v
	}
	if v := el.ChildText("telephone"); v != "" {
		contact.Telephone = &v
	}
	if v := el.ChildText("email"); v != "" {
		contact.Email = &v
	}
	if v := el.ChildText("website"); v != "" {
		contact.Website = &v
	}
	if v := el.ChildText("mailing-address"); v != "" {
		contact.MailingAddr = &v
	}

	c.Bundle.ContactInfos = append(c.Bundle.ContactInfos, contact)
	c.SkipChildren()
	return nil
}

func handleRecipientRegionV1(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("recipient_region", "code")
	}

	vocabulary, ok := v1SectorVocabularies[el.Attr("vocabulary")]
	if !ok {
		return iatierrors.NewIgnoredVocabularyError("recipient_region", "vocabulary", el.Attr("vocabulary"))
	}

	rr := &models.RecipientRegion{
		ID:         uuid.New().String(),
		Code:       code,
		Vocabulary: vocabulary,
	}
	if raw := el.Attr("percentage"); raw != "" {
		pct, ok := parseAmount(raw)
		if !ok {
			return iatierrors.NewFieldValidationErrorf("recipient_region", "percentage", "invalid percentage '%s'", raw)
		}
		rr.Percentage = &pct
	}
	c.Bundle.RecipientRegions = append(c.Bundle.RecipientRegions, rr)
	return nil
}

func handleLocationCoordinatesV1(c *Context, el *Element) error {
	if c.location == nil {
		return nil
	}
	lat := el.Attr("latitude")
	lng := el.Attr("longitude")
	if lat != "" && lng != "" {
		pos := lat + " " + lng
		c.location.PointPos = &pos
	}
	return nil
}

func handleLocationNameV1(c *Context, el *Element) error {
	if c.location == nil {
		return iatierrors.NewFieldValidationError("location", "name", "location name outside a location element")
	}
	c.SetNarrativeOwner(models.NarrativeOwnerLocation, c.location.ID)
	return addTextNarrative(c, el)
}

func handleSectorV1(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("sector", "code")
	}

	vocabulary, ok := v1SectorVocabularies[el.Attr("vocabulary")]
	if !ok {
		return iatierrors.NewIgnoredVocabularyError("sector", "vocabulary", el.Attr("vocabulary"))
	}

	sector := &models.Sector{
		ID:         uuid.New().String(),
		Code:       code,
		Vocabulary: vocabulary,
	}
	if raw := el.Attr("percentage"); raw != "" {
		pct, ok := parseAmount(raw)
		if !ok {
			return iatierrors.NewFieldValidationErrorf("sector", "percentage", "invalid percentage '%s'", raw)
		}
		sector.Percentage = &pct
	}
	c.Bundle.Sectors = append(c.Bundle.Sectors, sector)
	c.SetNarrativeOwner(models.NarrativeOwnerSector, sector.ID)
	return addTextNarrative(c, el)
}

func handleTransactionTypeV1(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("transaction", "transaction-type/@code")
	}
	mapped, ok := v1TransactionTypes[code]
	if !ok {
		return iatierrors.NewFieldValidationErrorf("transaction", "transaction-type/@code", "unknown transaction type '%s'", code)
	}
	c.transaction.Type = mapped
	return nil
}

func handleTransactionDescriptionV1(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionDesc, c.transaction.ID)
	return addTextNarrative(c, el)
}

func handleTransactionProviderOrgV1(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.transaction.ProviderOrgRef = optAttr(el, "ref")
	c.transaction.ProviderActivityRef = optAttr(el, "provider-activity-id")
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionProvider, c.transaction.ID)
	return addTextNarrative(c, el)
}

func handleTransactionReceiverOrgV1(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.transaction.ReceiverOrgRef = optAttr(el, "ref")
	c.transaction.ReceiverActivityRef = optAttr(el, "receiver-activity-id")
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionReceiver, c.transaction.ID)
	return addTextNarrative(c, el)
}

func handleDocumentLinkTitleV1(c *Context, el *Element) error {
	if c.documentLink == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerDocumentLink, c.documentLink.ID)
	return addTextNarrative(c, el)
}

func handleResultTitleV1(c *Context, el *Element) error {
	if c.result == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerResult, c.result.ID)
	return addTextNarrative(c, el)
}

func handleResultDescriptionV1(c *Context, el *Element) error {
	if c.result == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerResult, c.result.ID)
	return addTextNarrative(c, el)
}
