package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregation kinds. "activity" sums the activity's own rows, "child" sums
// the direct children's own-activity aggregations, "activity_plus_child"
// combines the two.
const (
	AggregationKindActivity          = "activity"
	AggregationKindChild             = "child"
	AggregationKindActivityPlusChild = "activity_plus_child"
)

// Financial categories aggregated per activity.
const (
	AggregationCategoryBudget             = "budget"
	AggregationCategoryPlannedDisburse    = "planned_disbursement"
	AggregationCategoryIncomingFunds      = "incoming_funds"
	AggregationCategoryCommitment         = "commitment"
	AggregationCategoryDisbursement       = "disbursement"
	AggregationCategoryExpenditure        = "expenditure"
	AggregationCategoryInterestPayment    = "interest_payment"
	AggregationCategoryLoanRepayment      = "loan_repayment"
	AggregationCategoryReimbursement      = "reimbursement"
	AggregationCategoryPurchaseOfEquity   = "purchase_of_equity"
	AggregationCategorySaleOfEquity       = "sale_of_equity"
	AggregationCategoryCreditGuarantee    = "credit_guarantee"
	AggregationCategoryIncomingCommitment = "incoming_commitment"
)

// AggregationCategories lists every category in computation order.
var AggregationCategories = []string{
	AggregationCategoryBudget,
	AggregationCategoryPlannedDisburse,
	AggregationCategoryIncomingFunds,
	AggregationCategoryCommitment,
	AggregationCategoryDisbursement,
	AggregationCategoryExpenditure,
	AggregationCategoryInterestPayment,
	AggregationCategoryLoanRepayment,
	AggregationCategoryReimbursement,
	AggregationCategoryPurchaseOfEquity,
	AggregationCategorySaleOfEquity,
	AggregationCategoryCreditGuarantee,
	AggregationCategoryIncomingCommitment,
}

// AggregationRow is one derived total: the summed value of one financial
// category for one activity at one kind. A nil currency means the inputs
// mixed currencies and the sum is a bare number.
type AggregationRow struct {
	ID         string          `json:"id" db:"id"`
	ActivityID string          `json:"activity_id" db:"activity_id"`
	Kind       string          `json:"kind" db:"kind"`
	Category   string          `json:"category" db:"category"`
	Currency   *string         `json:"currency,omitempty" db:"currency"`
	Value      decimal.Decimal `json:"value" db:"value"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
