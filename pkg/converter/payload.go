package converter

import (
	"github.com/shopspring/decimal"
)

// AmountPayload is a number with its currency.
type AmountPayload struct {
	Number   decimal.Decimal `json:"number" yaml:"number"`
	Currency string          `json:"currency" yaml:"currency"`
}

// CostPayload is the cost basis of a posting.
type CostPayload struct {
	Number   decimal.Decimal `json:"number" yaml:"number"`
	Currency string          `json:"currency" yaml:"currency"`
	Date     string          `json:"date,omitempty" yaml:"date,omitempty"`
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"`
}

// PostingPayload is one leg of a transaction. Units may be omitted on one
// posting, leaving the amount to the ledger engine.
type PostingPayload struct {
	Account string         `json:"account" yaml:"account"`
	Units   *AmountPayload `json:"units,omitempty" yaml:"units,omitempty"`
	Cost    *CostPayload   `json:"cost,omitempty" yaml:"cost,omitempty"`
	Price   *AmountPayload `json:"price,omitempty" yaml:"price,omitempty"`
	Flag    string         `json:"flag,omitempty" yaml:"flag,omitempty"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// TransactionPayload is the external representation of a transaction.
type TransactionPayload struct {
	Kind      string           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Date      string           `json:"date" yaml:"date"`
	Flag      string           `json:"flag,omitempty" yaml:"flag,omitempty"`
	Payee     string           `json:"payee,omitempty" yaml:"payee,omitempty"`
	Narration string           `json:"narration" yaml:"narration"`
	Tags      []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Links     []string         `json:"links,omitempty" yaml:"links,omitempty"`
	Postings  []PostingPayload `json:"postings" yaml:"postings"`
	Meta      map[string]any   `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// AccountPayload is the external representation of an account opening.
type AccountPayload struct {
	Kind       string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Name       string         `json:"name" yaml:"name"`
	OpenDate   string         `json:"open_date,omitempty" yaml:"open_date,omitempty"`
	Currencies []string       `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	Booking    string         `json:"booking,omitempty" yaml:"booking,omitempty"`
	Meta       map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// CommodityPayload is the external representation of a commodity declaration.
type CommodityPayload struct {
	Kind     string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Currency string         `json:"currency" yaml:"currency"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Date     string         `json:"date,omitempty" yaml:"date,omitempty"`
	Meta     map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}
