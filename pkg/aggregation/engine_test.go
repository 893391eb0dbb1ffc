package aggregation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeFinanceStore struct {
	budgets       map[string][]models.Budget
	disbursements map[string][]models.PlannedDisbursement
	transactions  map[string][]models.Transaction
	children      map[string][]string
	parents       map[string][]string
}

func (f *fakeFinanceStore) GetBudgets(ctx context.Context, activityID string) ([]models.Budget, error) {
	return f.budgets[activityID], nil
}

func (f *fakeFinanceStore) GetPlannedDisbursements(ctx context.Context, activityID string) ([]models.PlannedDisbursement, error) {
	return f.disbursements[activityID], nil
}

func (f *fakeFinanceStore) GetTransactions(ctx context.Context, activityID string) ([]models.Transaction, error) {
	return f.transactions[activityID], nil
}

func (f *fakeFinanceStore) GetDirectChildIDs(ctx context.Context, activityID string) ([]string, error) {
	return f.children[activityID], nil
}

func (f *fakeFinanceStore) GetDirectParentIDs(ctx context.Context, activityID string) ([]string, error) {
	return f.parents[activityID], nil
}

type fakeRowStore struct {
	rows map[string][]models.AggregationRow
}

func newFakeRowStore() *fakeRowStore {
	return &fakeRowStore{rows: map[string][]models.AggregationRow{}}
}

func (f *fakeRowStore) ReplaceForActivity(ctx context.Context, activityID string, rows []models.AggregationRow) error {
	f.rows[activityID] = rows
	return nil
}

func (f *fakeRowStore) GetByActivity(ctx context.Context, activityID string, kind *string) ([]models.AggregationRow, error) {
	out := []models.AggregationRow{}
	for _, row := range f.rows[activityID] {
		if kind == nil || row.Kind == *kind {
			out = append(out, row)
		}
	}
	return out, nil
}

func strptr(s string) *string { return &s }

func budget(currency string, value int64) models.Budget {
	return models.Budget{Currency: strptr(currency), Value: decimal.NewFromInt(value)}
}

func findRow(rows []models.AggregationRow, kind, category string) *models.AggregationRow {
	for i := range rows {
		if rows[i].Kind == kind && rows[i].Category == category {
			return &rows[i]
		}
	}
	return nil
}

func TestRecomputeActivity_OwnBudgets(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"a": {budget("USD", 100), budget("USD", 50)},
		},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeActivity(context.Background(), "a"))

	own := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryBudget)
	require.NotNil(t, own)
	require.NotNil(t, own.Currency)
	assert.Equal(t, "USD", *own.Currency)
	assert.True(t, own.Value.Equal(decimal.NewFromInt(150)))

	combined := findRow(rows.rows["a"], models.AggregationKindActivityPlusChild, models.AggregationCategoryBudget)
	require.NotNil(t, combined)
	assert.True(t, combined.Value.Equal(decimal.NewFromInt(150)))

	// No children, so no child rows at all.
	for _, row := range rows.rows["a"] {
		assert.NotEqual(t, models.AggregationKindChild, row.Kind)
	}
}

func TestRecomputeTree_MixedCurrencyAcrossHierarchy(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"parent": {budget("USD", 100), budget("USD", 50)},
			"child":  {budget("EUR", 20)},
		},
		children: map[string][]string{"parent": {"child"}},
		parents:  map[string][]string{"child": {"parent"}},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeTree(context.Background(), "child"))

	childOwn := findRow(rows.rows["child"], models.AggregationKindActivity, models.AggregationCategoryBudget)
	require.NotNil(t, childOwn)
	require.NotNil(t, childOwn.Currency)
	assert.Equal(t, "EUR", *childOwn.Currency)
	assert.True(t, childOwn.Value.Equal(decimal.NewFromInt(20)))

	parentOwn := findRow(rows.rows["parent"], models.AggregationKindActivity, models.AggregationCategoryBudget)
	require.NotNil(t, parentOwn)
	require.NotNil(t, parentOwn.Currency)
	assert.Equal(t, "USD", *parentOwn.Currency)
	assert.True(t, parentOwn.Value.Equal(decimal.NewFromInt(150)))

	parentChild := findRow(rows.rows["parent"], models.AggregationKindChild, models.AggregationCategoryBudget)
	require.NotNil(t, parentChild)
	require.NotNil(t, parentChild.Currency)
	assert.Equal(t, "EUR", *parentChild.Currency)

	// 150 USD own plus 20 EUR child: the raw numbers still sum but the
	// currency is dropped.
	combined := findRow(rows.rows["parent"], models.AggregationKindActivityPlusChild, models.AggregationCategoryBudget)
	require.NotNil(t, combined)
	assert.Nil(t, combined.Currency)
	assert.True(t, combined.Value.Equal(decimal.NewFromInt(170)))
}

func TestRecomputeTree_StrictModeOmitsMixedRows(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"parent": {budget("USD", 150)},
			"child":  {budget("EUR", 20)},
		},
		children: map[string][]string{"parent": {"child"}},
		parents:  map[string][]string{"child": {"parent"}},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, true, logger.NewNop())

	require.NoError(t, engine.RecomputeTree(context.Background(), "child"))

	assert.NotNil(t, findRow(rows.rows["parent"], models.AggregationKindActivity, models.AggregationCategoryBudget))
	assert.NotNil(t, findRow(rows.rows["parent"], models.AggregationKindChild, models.AggregationCategoryBudget))
	assert.Nil(t, findRow(rows.rows["parent"], models.AggregationKindActivityPlusChild, models.AggregationCategoryBudget))
}

func TestRecomputeActivity_MixedOwnCurrencies(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"a": {budget("USD", 100), budget("EUR", 50)},
		},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeActivity(context.Background(), "a"))

	own := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryBudget)
	require.NotNil(t, own)
	assert.Nil(t, own.Currency)
	assert.True(t, own.Value.Equal(decimal.NewFromInt(150)))
}

func TestRecomputeActivity_TransactionCategories(t *testing.T) {
	finances := &fakeFinanceStore{
		transactions: map[string][]models.Transaction{
			"a": {
				{Type: models.TransactionTypeDisbursement, Currency: strptr("USD"), Value: decimal.NewFromInt(30)},
				{Type: models.TransactionTypeDisbursement, Currency: strptr("USD"), Value: decimal.NewFromInt(70)},
				{Type: models.TransactionTypeCommitment, Currency: strptr("USD"), Value: decimal.NewFromInt(500)},
				{Type: models.TransactionTypeReimbursement, Currency: strptr("USD"), Value: decimal.NewFromInt(999)},
				{Type: models.TransactionTypeSaleOfEquity, Currency: strptr("USD"), Value: decimal.NewFromInt(40)},
				{Type: models.TransactionTypeCreditGuarantee, Currency: strptr("USD"), Value: decimal.NewFromInt(60)},
			},
		},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeActivity(context.Background(), "a"))

	disb := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryDisbursement)
	require.NotNil(t, disb)
	assert.True(t, disb.Value.Equal(decimal.NewFromInt(100)))

	commit := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryCommitment)
	require.NotNil(t, commit)
	assert.True(t, commit.Value.Equal(decimal.NewFromInt(500)))

	reimb := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryReimbursement)
	require.NotNil(t, reimb)
	assert.True(t, reimb.Value.Equal(decimal.NewFromInt(999)))

	sale := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategorySaleOfEquity)
	require.NotNil(t, sale)
	assert.True(t, sale.Value.Equal(decimal.NewFromInt(40)))

	guarantee := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryCreditGuarantee)
	require.NotNil(t, guarantee)
	assert.True(t, guarantee.Value.Equal(decimal.NewFromInt(60)))

	for _, row := range rows.rows["a"] {
		assert.NotEqual(t, models.AggregationCategoryBudget, row.Category)
	}
}

func TestRecomputeTree_ZeroValuedSideKeepsOtherCurrency(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"parent": {budget("USD", 0)},
			"child":  {budget("EUR", 20)},
		},
		children: map[string][]string{"parent": {"child"}},
		parents:  map[string][]string{"child": {"parent"}},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeTree(context.Background(), "child"))

	// A zero own total carries no denomination, so the child's currency
	// survives onto the combined row.
	combined := findRow(rows.rows["parent"], models.AggregationKindActivityPlusChild, models.AggregationCategoryBudget)
	require.NotNil(t, combined)
	require.NotNil(t, combined.Currency)
	assert.Equal(t, "EUR", *combined.Currency)
	assert.True(t, combined.Value.Equal(decimal.NewFromInt(20)))
}

func TestRecomputeTree_ZeroValuedChildKeepsOwnCurrency(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"parent": {budget("USD", 150)},
			"child":  {budget("EUR", 0)},
		},
		children: map[string][]string{"parent": {"child"}},
		parents:  map[string][]string{"child": {"parent"}},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeTree(context.Background(), "child"))

	combined := findRow(rows.rows["parent"], models.AggregationKindActivityPlusChild, models.AggregationCategoryBudget)
	require.NotNil(t, combined)
	require.NotNil(t, combined.Currency)
	assert.Equal(t, "USD", *combined.Currency)
	assert.True(t, combined.Value.Equal(decimal.NewFromInt(150)))
}

func TestRecomputeActivity_PlannedDisbursements(t *testing.T) {
	finances := &fakeFinanceStore{
		disbursements: map[string][]models.PlannedDisbursement{
			"a": {
				{Currency: strptr("GBP"), Value: decimal.NewFromInt(10)},
				{Currency: strptr("GBP"), Value: decimal.NewFromInt(15)},
			},
		},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeActivity(context.Background(), "a"))

	pd := findRow(rows.rows["a"], models.AggregationKindActivity, models.AggregationCategoryPlannedDisburse)
	require.NotNil(t, pd)
	require.NotNil(t, pd.Currency)
	assert.Equal(t, "GBP", *pd.Currency)
	assert.True(t, pd.Value.Equal(decimal.NewFromInt(25)))
}

func TestRecomputeTree_CycleDoesNotRecurseForever(t *testing.T) {
	finances := &fakeFinanceStore{
		budgets: map[string][]models.Budget{
			"a": {budget("USD", 1)},
			"b": {budget("USD", 2)},
		},
		parents: map[string][]string{
			"a": {"b"},
			"b": {"a"},
		},
	}
	rows := newFakeRowStore()
	engine := NewEngine(finances, rows, false, logger.NewNop())

	require.NoError(t, engine.RecomputeTree(context.Background(), "a"))
	assert.NotEmpty(t, rows.rows["a"])
	assert.NotEmpty(t, rows.rows["b"])
}
