// Package aggregation derives per-activity financial totals: the activity's
// own figures, its direct children's figures, and the two combined. Totals
// are stored per financial category with the currency they are denominated
// in, or with no currency when the inputs mix currencies.
package aggregation

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// FinanceStore supplies the financial rows and hierarchy links the engine
// aggregates over.
type FinanceStore interface {
	GetBudgets(ctx context.Context, activityID string) ([]models.Budget, error)
	GetPlannedDisbursements(ctx context.Context, activityID string) ([]models.PlannedDisbursement, error)
	GetTransactions(ctx context.Context, activityID string) ([]models.Transaction, error)
	GetDirectChildIDs(ctx context.Context, activityID string) ([]string, error)
	GetDirectParentIDs(ctx context.Context, activityID string) ([]string, error)
}

// RowStore persists derived aggregation rows.
type RowStore interface {
	ReplaceForActivity(ctx context.Context, activityID string, rows []models.AggregationRow) error
	GetByActivity(ctx context.Context, activityID string, kind *string) ([]models.AggregationRow, error)
}

// transactionCategories maps canonical transaction type codes onto
// aggregation categories.
var transactionCategories = map[string]string{
	models.TransactionTypeIncomingFunds:      models.AggregationCategoryIncomingFunds,
	models.TransactionTypeCommitment:         models.AggregationCategoryCommitment,
	models.TransactionTypeDisbursement:       models.AggregationCategoryDisbursement,
	models.TransactionTypeExpenditure:        models.AggregationCategoryExpenditure,
	models.TransactionTypeInterestPayment:    models.AggregationCategoryInterestPayment,
	models.TransactionTypeLoanRepayment:      models.AggregationCategoryLoanRepayment,
	models.TransactionTypeReimbursement:      models.AggregationCategoryReimbursement,
	models.TransactionTypePurchaseOfEquity:   models.AggregationCategoryPurchaseOfEquity,
	models.TransactionTypeSaleOfEquity:       models.AggregationCategorySaleOfEquity,
	models.TransactionTypeCreditGuarantee:    models.AggregationCategoryCreditGuarantee,
	models.TransactionTypeIncomingCommitment: models.AggregationCategoryIncomingCommitment,
}

// Engine recomputes aggregations for single activities and for the ancestor
// chain affected by a change.
//
// When inputs mix currencies the historical behavior is to drop the currency
// and still sum the raw numbers, which callers downstream depend on. Strict
// mode omits those rows instead of producing a unitless sum.
type Engine struct {
	finances FinanceStore
	rows     RowStore
	strict   bool
	logger   ectologger.Logger
}

// NewEngine creates an aggregation engine. strict controls mixed-currency
// handling; see the type comment.
func NewEngine(finances FinanceStore, rows RowStore, strict bool, logger ectologger.Logger) *Engine {
	return &Engine{
		finances: finances,
		rows:     rows,
		strict:   strict,
		logger:   logger,
	}
}

// entry is one monetary input to a category sum.
type entry struct {
	currency *string
	value    decimal.Decimal
}

// RecomputeTree recomputes the activity and then every ancestor whose child
// and combined totals depend on it. Cycles in the declared hierarchy are
// tolerated by tracking visited IDs.
func (e *Engine) RecomputeTree(ctx context.Context, activityID string) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.RecomputeTree")
	defer span.End()

	visited := map[string]struct{}{}
	return e.recomputeUp(ctx, activityID, visited)
}

func (e *Engine) recomputeUp(ctx context.Context, activityID string, visited map[string]struct{}) error {
	if _, ok := visited[activityID]; ok {
		return nil
	}
	visited[activityID] = struct{}{}

	if err := e.RecomputeActivity(ctx, activityID); err != nil {
		return err
	}

	parents, err := e.finances.GetDirectParentIDs(ctx, activityID)
	if err != nil {
		return err
	}
	for _, parentID := range parents {
		if err := e.recomputeUp(ctx, parentID, visited); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeActivity rebuilds all three aggregation kinds for one activity.
func (e *Engine) RecomputeActivity(ctx context.Context, activityID string) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.RecomputeActivity")
	defer span.End()

	own, err := e.computeOwn(ctx, activityID)
	if err != nil {
		return err
	}
	child, err := e.computeChild(ctx, activityID)
	if err != nil {
		return err
	}
	combined := e.combine(own, child)

	rows := make([]models.AggregationRow, 0, len(own)+len(child)+len(combined))
	rows = append(rows, kindRows(models.AggregationKindActivity, own)...)
	rows = append(rows, kindRows(models.AggregationKindChild, child)...)
	rows = append(rows, kindRows(models.AggregationKindActivityPlusChild, combined)...)

	if err := e.rows.ReplaceForActivity(ctx, activityID, rows); err != nil {
		return err
	}

	metrics.AggregationRecomputes.Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"activity_id": activityID,
		"rows":        len(rows),
	}).Debug("Recomputed aggregations")
	return nil
}

// computeOwn sums the activity's own financial rows per category.
func (e *Engine) computeOwn(ctx context.Context, activityID string) (map[string]entry, error) {
	inputs := map[string][]entry{}

	budgets, err := e.finances.GetBudgets(ctx, activityID)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		inputs[models.AggregationCategoryBudget] = append(inputs[models.AggregationCategoryBudget], entry{b.Currency, b.Value})
	}

	pds, err := e.finances.GetPlannedDisbursements(ctx, activityID)
	if err != nil {
		return nil, err
	}
	for _, pd := range pds {
		inputs[models.AggregationCategoryPlannedDisburse] = append(inputs[models.AggregationCategoryPlannedDisburse], entry{pd.Currency, pd.Value})
	}

	txns, err := e.finances.GetTransactions(ctx, activityID)
	if err != nil {
		return nil, err
	}
	for _, t := range txns {
		category, ok := transactionCategories[t.Type]
		if !ok {
			continue
		}
		inputs[category] = append(inputs[category], entry{t.Currency, t.Value})
	}

	return e.sumByCategory(inputs), nil
}

// computeChild sums the direct children's own-activity aggregations per
// category. One hop only; grandchildren are already folded into each child's
// combined figures by their own recomputes.
func (e *Engine) computeChild(ctx context.Context, activityID string) (map[string]entry, error) {
	childIDs, err := e.finances.GetDirectChildIDs(ctx, activityID)
	if err != nil {
		return nil, err
	}

	inputs := map[string][]entry{}
	kind := models.AggregationKindActivity
	for _, childID := range childIDs {
		rows, err := e.rows.GetByActivity(ctx, childID, &kind)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			inputs[row.Category] = append(inputs[row.Category], entry{row.Currency, row.Value})
		}
	}

	return e.sumByCategory(inputs), nil
}

// combine folds the own and child totals together per category. Matching
// currencies keep the currency; mismatches follow the mixed-currency rule.
func (e *Engine) combine(own, child map[string]entry) map[string]entry {
	combined := map[string]entry{}
	for _, category := range models.AggregationCategories {
		o, hasOwn := own[category]
		c, hasChild := child[category]

		switch {
		case hasOwn && hasChild:
			if sum, ok := e.combinePair(o, c); ok {
				combined[category] = sum
			}
		case hasOwn:
			combined[category] = o
		case hasChild:
			combined[category] = c
		}
	}
	return combined
}

// combinePair adds the own and child totals for one category. A zero-valued
// side contributes nothing denominated, so the other side's currency wins
// even when the two disagree.
func (e *Engine) combinePair(o, c entry) (entry, bool) {
	total := o.value.Add(c.value)
	switch {
	case o.value.IsZero() && !c.value.IsZero():
		return entry{currency: c.currency, value: total}, true
	case c.value.IsZero() && !o.value.IsZero():
		return entry{currency: o.currency, value: total}, true
	case sameCurrency(o.currency, c.currency):
		return entry{currency: o.currency, value: total}, true
	}
	if e.strict {
		return entry{}, false
	}
	return entry{currency: nil, value: total}, true
}

func (e *Engine) sumByCategory(inputs map[string][]entry) map[string]entry {
	out := map[string]entry{}
	for category, entries := range inputs {
		if sum, ok := e.sumEntries(entries); ok {
			out[category] = sum
		}
	}
	return out
}

// sumEntries adds a category's inputs. A single shared currency survives
// onto the sum; mixed currencies produce a currencyless numeric sum, or no
// row at all in strict mode.
func (e *Engine) sumEntries(entries []entry) (entry, bool) {
	if len(entries) == 0 {
		return entry{}, false
	}

	total := decimal.Zero
	currency := entries[0].currency
	mixed := false
	for _, in := range entries {
		total = total.Add(in.value)
		if !sameCurrency(currency, in.currency) {
			mixed = true
		}
	}

	if mixed {
		if e.strict {
			return entry{}, false
		}
		return entry{currency: nil, value: total}, true
	}
	return entry{currency: currency, value: total}, true
}

func sameCurrency(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func kindRows(kind string, totals map[string]entry) []models.AggregationRow {
	rows := make([]models.AggregationRow, 0, len(totals))
	for _, category := range models.AggregationCategories {
		total, ok := totals[category]
		if !ok {
			continue
		}
		rows = append(rows, models.AggregationRow{
			Kind:     kind,
			Category: category,
			Currency: total.currency,
			Value:    total.value,
		})
	}
	return rows
}
