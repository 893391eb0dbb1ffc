package currencyrate

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles exchange rate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new currency rate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetRate returns the rate of a currency against USD on or before the given
// date, preferring the most recent. Returns nil when no rate is known.
func (r *Repository) GetRate(ctx context.Context, currency string, date time.Time) (*models.CurrencyRate, error) {
	ctx, span := tracing.StartSpan(ctx, "currencyrate.Repository.GetRate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "currency", "rate_date", "rate_per_usd")
	sb.From("currency_rates")
	sb.Where(
		sb.Equal("currency", currency),
		sb.LessEqualThan("rate_date", date),
	)
	sb.OrderBy("rate_date DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var rate models.CurrencyRate
	if err := r.db.GetContext(ctx, &rate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"currency": currency, "date": date}).Error("Failed to get currency rate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get currency rate")
	}
	return &rate, nil
}

// UpsertRates loads or refreshes a batch of daily rates.
func (r *Repository) UpsertRates(ctx context.Context, rates []models.CurrencyRate) error {
	ctx, span := tracing.StartSpan(ctx, "currencyrate.Repository.UpsertRates")
	defer span.End()

	if len(rates) == 0 {
		return nil
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("currency_rates")
	ib.Cols("id", "currency", "rate_date", "rate_per_usd")
	for _, rate := range rates {
		if rate.ID == "" {
			rate.ID = uuid.New().String()
		}
		ib.Values(rate.ID, rate.Currency, rate.RateDate, rate.RatePerUSD)
	}
	ib.SQL("ON CONFLICT (currency, rate_date) DO UPDATE SET rate_per_usd = EXCLUDED.rate_per_usd")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(rates)}).Error("Failed to upsert currency rates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert currency rates")
	}
	return nil
}
