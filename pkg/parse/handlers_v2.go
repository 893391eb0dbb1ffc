package parse

import (
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/codelist"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// registerV2 installs the handler table shared by the 2.01 and 2.02
// dialects. Text lives in narrative child elements; codes follow the 2.x
// codelists.
func registerV2(r *Registry) {
	r.Register(v2Versions, "iati_activity", handleActivityV2)
	r.Register(v2Versions, "iati_activity/iati_identifier", handleIdentifier)
	r.Register(v2Versions, "iati_activity/reporting_org", handleReportingOrgV2)
	r.Register(v2Versions, "iati_activity/title", handleTitle)
	r.Register(v2Versions, "iati_activity/description", handleDescriptionV2)
	r.Register(v2Versions, "iati_activity/participating_org", handleParticipatingOrgV2)
	r.Register(v2Versions, "iati_activity/activity_status", handleActivityStatus)
	r.Register(v2Versions, "iati_activity/activity_date", handleActivityDateV2)
	r.Register(v2Versions, "iati_activity/activity_scope", handleActivityScope)
	r.Register(v2Versions, "iati_activity/collaboration_type", handleCollaborationType)
	r.Register(v2Versions, "iati_activity/default_flow_type", handleDefaultFlowType)
	r.Register(v2Versions, "iati_activity/default_finance_type", handleDefaultFinanceType)
	r.Register(v2Versions, "iati_activity/default_aid_type", handleDefaultAidType)
	r.Register(v2Versions, "iati_activity/default_tied_status", handleDefaultTiedStatus)
	r.Register(v2Versions, "iati_activity/contact_info", handleContactInfoV2)
	r.Register(v2Versions, "iati_activity/recipient_country", handleRecipientCountry)
	r.Register(v2Versions, "iati_activity/recipient_region", handleRecipientRegion)
	r.Register(v2Versions, "iati_activity/location", handleLocation)
	r.Register(v2Versions, "iati_activity/location/exactness", handleLocationExactness)
	r.Register(v2Versions, "iati_activity/location/point/pos", handleLocationPos)
	r.Register(v2Versions, "iati_activity/location/name", handleLocationName)
	r.Register(v2Versions, "iati_activity/sector", handleSector)
	r.Register(v2Versions, "iati_activity/budget", handleBudget)
	r.Register(v2Versions, "iati_activity/budget/period_start", handleBudgetPeriodStart)
	r.Register(v2Versions, "iati_activity/budget/period_end", handleBudgetPeriodEnd)
	r.Register(v2Versions, "iati_activity/budget/value", handleBudgetValue)
	r.Register(v2Versions, "iati_activity/planned_disbursement", handlePlannedDisbursement)
	r.Register(v2Versions, "iati_activity/planned_disbursement/period_start", handlePDPeriodStart)
	r.Register(v2Versions, "iati_activity/planned_disbursement/period_end", handlePDPeriodEnd)
	r.Register(v2Versions, "iati_activity/planned_disbursement/value", handlePDValue)
	r.Register(v2Versions, "iati_activity/transaction", handleTransaction)
	r.Register(v2Versions, "iati_activity/transaction/transaction_type", handleTransactionTypeV2)
	r.Register(v2Versions, "iati_activity/transaction/transaction_date", handleTransactionDate)
	r.Register(v2Versions, "iati_activity/transaction/value", handleTransactionValue)
	r.Register(v2Versions, "iati_activity/transaction/description", handleTransactionDescription)
	r.Register(v2Versions, "iati_activity/transaction/provider_org", handleTransactionProviderOrg)
	r.Register(v2Versions, "iati_activity/transaction/receiver_org", handleTransactionReceiverOrg)
	r.Register(v2Versions, "iati_activity/transaction/disbursement_channel", handleTransactionDisbursementChannel)
	r.Register(v2Versions, "iati_activity/transaction/sector", handleTransactionSector)
	r.Register(v2Versions, "iati_activity/transaction/flow_type", handleTransactionFlowType)
	r.Register(v2Versions, "iati_activity/transaction/finance_type", handleTransactionFinanceType)
	r.Register(v2Versions, "iati_activity/transaction/aid_type", handleTransactionAidType)
	r.Register(v2Versions, "iati_activity/transaction/tied_status", handleTransactionTiedStatus)
	r.Register(v2Versions, "iati_activity/document_link", handleDocumentLink)
	r.Register(v2Versions, "iati_activity/document_link/title", handleDocumentLinkTitle)
	r.Register(v2Versions, "iati_activity/document_link/category", handleDocumentLinkCategory)
	r.Register(v2Versions, "iati_activity/document_link/document_date", handleDocumentLinkDate)
	r.Register(v2Versions, "iati_activity/result", handleResult)
	r.Register(v2Versions, "iati_activity/result/title", handleResultTitle)
	r.Register(v2Versions, "iati_activity/result/description", handleResultDescription)
	r.Register(v2Versions, "iati_activity/related_activity", handleRelatedActivity)

	for _, path := range []string{
		"iati_activity/reporting_org/narrative",
		"iati_activity/title/narrative",
		"iati_activity/description/narrative",
		"iati_activity/participating_org/narrative",
		"iati_activity/location/name/narrative",
		"iati_activity/transaction/description/narrative",
		"iati_activity/transaction/provider_org/narrative",
		"iati_activity/transaction/receiver_org/narrative",
		"iati_activity/document_link/title/narrative",
		"iati_activity/result/title/narrative",
		"iati_activity/result/description/narrative",
	} {
		r.Register(v2Versions, path, handleNarrative)
	}
}

func handleActivityV2(c *Context, el *Element) error {
	act := c.Activity()
	act.DefaultCurrency = optAttr(el, "default-currency")
	act.Hierarchy = parseIntOr(el.Attr("hierarchy"), 1)
	act.Humanitarian = parseFlag(el.Attr("humanitarian"))
	act.LinkedDataURI = optAttr(el, "linked-data-uri")
	if lang := el.Lang(); lang != "" {
		act.DefaultLanguage = &lang
	}

	if raw := el.Attr("last-updated-datetime"); raw != "" {
		t, ok := parseISODate(raw)
		if !ok {
			return iatierrors.NewFieldValidationErrorf("activity", "last-updated-datetime", "invalid datetime '%s'", raw)
		}
		act.LastUpdated = &t
	}
	return nil
}

func handleIdentifier(c *Context, el *Element) error {
	identifier := el.TrimmedText()
	if identifier == "" {
		return iatierrors.NewRequiredFieldError("activity", "iati-identifier")
	}
	c.Activity().IATIIdentifier = identifier
	return nil
}

func handleReportingOrgV2(c *Context, el *Element) error {
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
	return nil
}

func handleTitle(c *Context, el *Element) error {
	if c.Bundle.Title == nil {
		c.Bundle.Title = &models.Title{ID: uuid.New().String()}
	}
	c.SetNarrativeOwner(models.NarrativeOwnerTitle, c.Bundle.Title.ID)
	return nil
}

func handleDescriptionV2(c *Context, el *Element) error {
	desc := &models.Description{
		ID:   uuid.New().String(),
		Type: optAttr(el, "type"),
	}
	c.Bundle.Descriptions = append(c.Bundle.Descriptions, desc)
	c.SetNarrativeOwner(models.NarrativeOwnerDescription, desc.ID)
	return nil
}

func handleParticipatingOrgV2(c *Context, el *Element) error {
	role := el.Attr("role")
	if role == "" {
		return iatierrors.NewRequiredFieldError("participating_org", "role")
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
	return nil
}

func handleActivityStatus(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("activity_status", "code")
	}
	c.Activity().ActivityStatus = &code
	return nil
}

func handleActivityDateV2(c *Context, el *Element) error {
	dateType := el.Attr("type")
	if dateType == "" {
		return iatierrors.NewRequiredFieldError("activity_date", "type")
	}
	raw := el.Attr("iso-date")
	if raw == "" {
		return iatierrors.NewRequiredFieldError("activity_date", "iso-date")
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

func handleActivityScope(c *Context, el *Element) error {
	c.Activity().ActivityScope = optAttr(el, "code")
	return nil
}

func handleCollaborationType(c *Context, el *Element) error {
	c.Activity().CollaborationType = optAttr(el, "code")
	return nil
}

func handleDefaultFlowType(c *Context, el *Element) error {
	c.Activity().DefaultFlowType = optAttr(el, "code")
	return nil
}

func handleDefaultFinanceType(c *Context, el *Element) error {
	c.Activity().DefaultFinance = optAttr(el, "code")
	return nil
}

func handleDefaultAidType(c *Context, el *Element) error {
	c.Activity().DefaultAid = optAttr(el, "code")
	return nil
}

func handleDefaultTiedStatus(c *Context, el *Element) error {
	c.Activity().DefaultTied = optAttr(el, "code")
	return nil
}

// handleContactInfoV2 consumes the whole contact-info subtree. Its children
// are simple single-language fields, not narrative owners worth modeling.
func handleContactInfoV2(c *Context, el *Element) error {
	contact := &models.ContactInfo{
		ID:   uuid.New().String(),
		Type: optAttr(el, "type"),
	}

	narrativeText := func(parent *Element) *string {
		if parent == nil {
			return nil
		}
		if text := parent.ChildText("narrative"); text != "" {
			return &text
		}
		return nil
	}

	contact.Organisation = narrativeText(el.Child("organisation"))
	contact.PersonName = narrativeText(el.Child("person-name"))
	contact.MailingAddr = narrativeText(el.Child("mailing-address"))
	if v := el.ChildText("telephone"); v != "" {
		contact.Telephone = &v
	}
	if v := el.ChildText("email"); v != "" {
		contact.Email = &v
	}
	if v := el.ChildText("website"); v != "" {
		contact.Website = &v
	}

	c.Bundle.ContactInfos = append(c.Bundle.ContactInfos, contact)
	c.SkipChildren()
	return nil
}

func handleRecipientCountry(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("recipient_country", "code")
	}
	if !c.ValidCode(codelist.ListCountry, code) {
		return iatierrors.NewFieldValidationErrorf("recipient_country", "code", "unknown country code '%s'", code)
	}

	rc := &models.RecipientCountry{
		ID:   uuid.New().String(),
		Code: code,
	}
	if raw := el.Attr("percentage"); raw != "" {
		pct, ok := parseAmount(raw)
		if !ok {
			return iatierrors.NewFieldValidationErrorf("recipient_country", "percentage", "invalid percentage '%s'", raw)
		}
		rc.Percentage = &pct
	}
	c.Bundle.RecipientCountries = append(c.Bundle.RecipientCountries, rc)
	return nil
}

func handleRecipientRegion(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("recipient_region", "code")
	}

	vocabulary := el.Attr("vocabulary")
	if vocabulary == "" {
		vocabulary = "1"
	}
	if vocabulary != "1" && vocabulary != "2" {
		return iatierrors.NewIgnoredVocabularyError("recipient_region", "vocabulary", vocabulary)
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

func handleLocation(c *Context, el *Element) error {
	loc := &models.Location{
		ID:  uuid.New().String(),
		Ref: optAttr(el, "ref"),
	}
	c.Bundle.Locations = append(c.Bundle.Locations, loc)
	c.location = loc
	return nil
}

func handleLocationExactness(c *Context, el *Element) error {
	if c.location != nil {
		c.location.Exactness = optAttr(el, "code")
	}
	return nil
}

func handleLocationPos(c *Context, el *Element) error {
	if c.location == nil {
		return nil
	}
	if pos := el.TrimmedText(); pos != "" {
		c.location.PointPos = &pos
	}
	return nil
}

func handleLocationName(c *Context, el *Element) error {
	if c.location == nil {
		return iatierrors.NewFieldValidationError("location", "name", "location name outside a location element")
	}
	c.SetNarrativeOwner(models.NarrativeOwnerLocation, c.location.ID)
	return nil
}

func handleSector(c *Context, el *Element) error {
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("sector", "code")
	}

	vocabulary := el.Attr("vocabulary")
	if vocabulary == "" {
		vocabulary = "1"
	}
	// Only the DAC vocabularies are stored; others are noted and dropped.
	if vocabulary != "1" && vocabulary != "2" {
		return iatierrors.NewIgnoredVocabularyError("sector", "vocabulary", vocabulary)
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
	return nil
}

func handleBudget(c *Context, el *Element) error {
	budgetType := el.Attr("type")
	if budgetType == "" {
		budgetType = "1"
	}
	status := el.Attr("status")
	if status == "" {
		status = "1"
	}

	budget := &models.Budget{
		ID:     uuid.New().String(),
		Type:   budgetType,
		Status: status,
	}
	c.Bundle.Budgets = append(c.Bundle.Budgets, budget)
	c.budget = budget
	return nil
}

func handleBudgetPeriodStart(c *Context, el *Element) error {
	if c.budget == nil {
		return nil
	}
	t, ok := parseISODate(el.Attr("iso-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("budget", "period-start/@iso-date")
	}
	c.budget.PeriodStart = t
	return nil
}

func handleBudgetPeriodEnd(c *Context, el *Element) error {
	if c.budget == nil {
		return nil
	}
	t, ok := parseISODate(el.Attr("iso-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("budget", "period-end/@iso-date")
	}
	c.budget.PeriodEnd = t
	return nil
}

func handleBudgetValue(c *Context, el *Element) error {
	if c.budget == nil {
		return nil
	}
	value, ok := parseAmount(el.Text)
	if !ok {
		return iatierrors.NewFieldValidationErrorf("budget", "value", "invalid amount '%s'", el.TrimmedText())
	}
	c.budget.Value = value
	c.budget.Currency = currencyOrDefault(c, el)

	valueDate, ok := parseISODate(el.Attr("value-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("budget", "value/@value-date")
	}
	c.budget.ValueDate = valueDate
	return nil
}

func handlePlannedDisbursement(c *Context, el *Element) error {
	pd := &models.PlannedDisbursement{
		ID:   uuid.New().String(),
		Type: optAttr(el, "type"),
	}
	c.Bundle.PlannedDisbursements = append(c.Bundle.PlannedDisbursements, pd)
	c.disbursement = pd
	return nil
}

func handlePDPeriodStart(c *Context, el *Element) error {
	if c.disbursement == nil {
		return nil
	}
	t, ok := parseISODate(el.Attr("iso-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("planned_disbursement", "period-start/@iso-date")
	}
	c.disbursement.PeriodStart = t
	return nil
}

func handlePDPeriodEnd(c *Context, el *Element) error {
	if c.disbursement == nil {
		return nil
	}
	if t, ok := parseISODate(el.Attr("iso-date")); ok {
		c.disbursement.PeriodEnd = &t
	}
	return nil
}

func handlePDValue(c *Context, el *Element) error {
	if c.disbursement == nil {
		return nil
	}
	value, ok := parseAmount(el.Text)
	if !ok {
		return iatierrors.NewFieldValidationErrorf("planned_disbursement", "value", "invalid amount '%s'", el.TrimmedText())
	}
	c.disbursement.Value = value
	c.disbursement.Currency = currencyOrDefault(c, el)

	valueDate, ok := parseISODate(el.Attr("value-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("planned_disbursement", "value/@value-date")
	}
	c.disbursement.ValueDate = valueDate
	return nil
}

func handleTransaction(c *Context, el *Element) error {
	txn := &models.Transaction{
		ID:  uuid.New().String(),
		Ref: optAttr(el, "ref"),
	}
	if el.HasAttr("humanitarian") {
		humanitarian := parseFlag(el.Attr("humanitarian"))
		txn.Humanitarian = &humanitarian
	}
	c.Bundle.Transactions = append(c.Bundle.Transactions, txn)
	c.transaction = txn
	return nil
}

func handleTransactionTypeV2(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("transaction", "transaction-type/@code")
	}
	if !c.ValidCode(codelist.ListTransactionType, code) {
		return iatierrors.NewFieldValidationErrorf("transaction", "transaction-type/@code", "unknown transaction type '%s'", code)
	}
	c.transaction.Type = code
	return nil
}

func handleTransactionDate(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	t, ok := parseISODate(el.Attr("iso-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("transaction", "transaction-date/@iso-date")
	}
	c.transaction.TransactionDate = t
	return nil
}

func handleTransactionValue(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	value, ok := parseAmount(el.Text)
	if !ok {
		return iatierrors.NewFieldValidationErrorf("transaction", "value", "invalid amount '%s'", el.TrimmedText())
	}
	c.transaction.Value = value
	c.transaction.Currency = currencyOrDefault(c, el)

	valueDate, ok := parseISODate(el.Attr("value-date"))
	if !ok {
		return iatierrors.NewRequiredFieldError("transaction", "value/@value-date")
	}
	c.transaction.ValueDate = valueDate
	return nil
}

func handleTransactionDescription(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionDesc, c.transaction.ID)
	return nil
}

func handleTransactionProviderOrg(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.transaction.ProviderOrgRef = optAttr(el, "ref")
	c.transaction.ProviderActivityRef = optAttr(el, "provider-activity-id")
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionProvider, c.transaction.ID)
	return nil
}

func handleTransactionReceiverOrg(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.transaction.ReceiverOrgRef = optAttr(el, "ref")
	c.transaction.ReceiverActivityRef = optAttr(el, "receiver-activity-id")
	c.SetNarrativeOwner(models.NarrativeOwnerTransactionReceiver, c.transaction.ID)
	return nil
}

func handleTransactionDisbursementChannel(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	c.transaction.DisbursementCh = optAttr(el, "code")
	return nil
}

func handleTransactionSector(c *Context, el *Element) error {
	if c.transaction == nil {
		return nil
	}
	code := el.Attr("code")
	if code == "" {
		return iatierrors.NewRequiredFieldError("sector", "code")
	}
	vocabulary := el.Attr("vocabulary")
	if vocabulary == "" {
		vocabulary = "1"
	}
	if vocabulary != "1" && vocabulary != "2" {
		return iatierrors.NewIgnoredVocabularyError("sector", "vocabulary", vocabulary)
	}

	txnID := c.transaction.ID
	c.Bundle.Sectors = append(c.Bundle.Sectors, &models.Sector{
		ID:            uuid.New().String(),
		TransactionID: &txnID,
		Code:          code,
		Vocabulary:    vocabulary,
	})
	return nil
}

func handleTransactionFlowType(c *Context, el *Element) error {
	if c.transaction != nil {
		c.transaction.FlowType = optAttr(el, "code")
	}
	return nil
}

func handleTransactionFinanceType(c *Context, el *Element) error {
	if c.transaction != nil {
		c.transaction.FinanceType = optAttr(el, "code")
	}
	return nil
}

func handleTransactionAidType(c *Context, el *Element) error {
	if c.transaction != nil {
		c.transaction.AidType = optAttr(el, "code")
	}
	return nil
}

func handleTransactionTiedStatus(c *Context, el *Element) error {
	if c.transaction != nil {
		c.transaction.TiedStatus = optAttr(el, "code")
	}
	return nil
}

func handleDocumentLink(c *Context, el *Element) error {
	url := el.Attr("url")
	if url == "" {
		return iatierrors.NewRequiredFieldError("document_link", "url")
	}

	link := &models.DocumentLink{
		ID:     uuid.New().String(),
		URL:    url,
		Format: optAttr(el, "format"),
	}
	c.Bundle.DocumentLinks = append(c.Bundle.DocumentLinks, link)
	c.documentLink = link
	return nil
}

func handleDocumentLinkTitle(c *Context, el *Element) error {
	if c.documentLink == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerDocumentLink, c.documentLink.ID)
	return nil
}

func handleDocumentLinkCategory(c *Context, el *Element) error {
	if c.documentLink != nil {
		c.documentLink.Category = optAttr(el, "code")
	}
	return nil
}

func handleDocumentLinkDate(c *Context, el *Element) error {
	if c.documentLink == nil {
		return nil
	}
	if t, ok := parseISODate(el.Attr("iso-date")); ok {
		c.documentLink.DocDate = &t
	}
	return nil
}

func handleResult(c *Context, el *Element) error {
	result := &models.Result{
		ID:   uuid.New().String(),
		Type: optAttr(el, "type"),
	}
	if el.HasAttr("aggregation-status") {
		status := parseFlag(el.Attr("aggregation-status"))
		result.AggregationStatus = &status
	}
	c.Bundle.Results = append(c.Bundle.Results, result)
	c.result = result
	return nil
}

func handleResultTitle(c *Context, el *Element) error {
	if c.result == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerResult, c.result.ID)
	return nil
}

func handleResultDescription(c *Context, el *Element) error {
	if c.result == nil {
		return nil
	}
	c.SetNarrativeOwner(models.NarrativeOwnerResult, c.result.ID)
	return nil
}

func handleRelatedActivity(c *Context, el *Element) error {
	ref := el.Attr("ref")
	if ref == "" {
		return iatierrors.NewRequiredFieldError("related_activity", "ref")
	}
	relType := el.Attr("type")
	if relType == "" {
		return iatierrors.NewRequiredFieldError("related_activity", "type")
	}

	c.Bundle.RelatedActivities = append(c.Bundle.RelatedActivities, &models.RelatedActivity{
		ID:   uuid.New().String(),
		Ref:  ref,
		Type: relType,
	})
	return nil
}

// currencyOrDefault picks the value element's currency, falling back to the
// activity default.
func currencyOrDefault(c *Context, el *Element) *string {
	if currency := optAttr(el, "currency"); currency != nil {
		return currency
	}
	return c.Activity().DefaultCurrency
}
