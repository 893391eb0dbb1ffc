// Package currency restates monetary values in the fixed set of target
// currencies used for cross-publisher comparison.
package currency

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// TargetCurrencies are the currencies every monetary value is restated in.
var TargetCurrencies = []string{"USD", "EUR", "GBP", "JPY", "XDR"}

// RateStore is the subset of the currency rate repository the converter needs.
type RateStore interface {
	GetRate(ctx context.Context, currency string, date time.Time) (*models.CurrencyRate, error)
}

// Converter converts values through USD using daily rates. Missing rates
// leave the corresponding target slot null; conversion never fails a parse.
type Converter struct {
	store  RateStore
	logger ectologger.Logger

	mu    sync.Mutex
	cache map[string]*models.CurrencyRate // currency|date -> rate, nil entries cached too
}

// NewConverter creates a converter backed by the given rate store.
func NewConverter(store RateStore, logger ectologger.Logger) *Converter {
	return &Converter{
		store:  store,
		logger: logger,
		cache:  map[string]*models.CurrencyRate{},
	}
}

// Convert restates value (denominated in sourceCurrency on valueDate) in
// every target currency. Unknown source currencies or missing rates yield
// null slots rather than errors.
func (c *Converter) Convert(ctx context.Context, value decimal.Decimal, sourceCurrency string, valueDate time.Time) (models.ConvertedValues, error) {
	ctx, span := tracing.StartSpan(ctx, "currency.Converter.Convert")
	defer span.End()

	var out models.ConvertedValues
	sourceCurrency = strings.ToUpper(strings.TrimSpace(sourceCurrency))
	if sourceCurrency == "" {
		return out, nil
	}

	usd, ok, err := c.toUSD(ctx, value, sourceCurrency, valueDate)
	if err != nil {
		return out, err
	}
	if !ok {
		metrics.ConversionsSkipped.Inc()
		c.logger.WithContext(ctx).WithFields(map[string]any{"currency": sourceCurrency, "date": valueDate}).Debug("No rate for source currency, skipping conversion")
		return out, nil
	}

	for _, target := range TargetCurrencies {
		converted, ok, err := c.fromUSD(ctx, usd, target, valueDate)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		setTarget(&out, target, converted)
	}
	return out, nil
}

func (c *Converter) toUSD(ctx context.Context, value decimal.Decimal, currency string, date time.Time) (decimal.Decimal, bool, error) {
	if currency == "USD" {
		return value, true, nil
	}
	rate, err := c.getRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, false, err
	}
	if rate == nil || rate.RatePerUSD.IsZero() {
		return decimal.Zero, false, nil
	}
	return value.Div(rate.RatePerUSD), true, nil
}

func (c *Converter) fromUSD(ctx context.Context, usd decimal.Decimal, currency string, date time.Time) (decimal.Decimal, bool, error) {
	if currency == "USD" {
		return usd, true, nil
	}
	rate, err := c.getRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, false, err
	}
	if rate == nil {
		return decimal.Zero, false, nil
	}
	return usd.Mul(rate.RatePerUSD), true, nil
}

func (c *Converter) getRate(ctx context.Context, currency string, date time.Time) (*models.CurrencyRate, error) {
	key := currency + "|" + date.Format("2006-01-02")

	c.mu.Lock()
	rate, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return rate, nil
	}

	rate, err := c.store.GetRate(ctx, currency, date)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = rate
	c.mu.Unlock()
	return rate, nil
}

func setTarget(out *models.ConvertedValues, currency string, value decimal.Decimal) {
	nd := decimal.NewNullDecimal(value)
	switch currency {
	case "USD":
		out.ValueUSD = nd
	case "EUR":
		out.ValueEUR = nd
	case "GBP":
		out.ValueGBP = nd
	case "JPY":
		out.ValueJPY = nd
	case "XDR":
		out.ValueXDR = nd
	}
}
