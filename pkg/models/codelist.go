package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CodelistItem is one entry of a published IATI codelist (sector codes,
// transaction types, vocabularies, ...).
type CodelistItem struct {
	ID       string  `json:"id" db:"id"`
	List     string  `json:"list" db:"list"`
	Code     string  `json:"code" db:"code"`
	Name     *string `json:"name,omitempty" db:"name"`
	Category *string `json:"category,omitempty" db:"category"`
}

// CurrencyRate is the exchange rate of one currency against USD on one day.
// Cross-currency conversion routes through USD.
type CurrencyRate struct {
	ID         string          `json:"id" db:"id"`
	Currency   string          `json:"currency" db:"currency"`
	RateDate   time.Time       `json:"rate_date" db:"rate_date"`
	RatePerUSD decimal.Decimal `json:"rate_per_usd" db:"rate_per_usd"`
}
