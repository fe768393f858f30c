// Package beancount provides the record model, the canonical renderer and the
// file repository used to insert records into Beancount ledgers.
package beancount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the layout of dates in ledger text.
const DateFormat = "2006-01-02"

// Kind identifies a record variant.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindOpen        Kind = "open"
	KindCommodity   Kind = "commodity"
)

// Kinds lists every record kind in a stable order.
var Kinds = []Kind{KindTransaction, KindOpen, KindCommodity}

// Flag is the status flag of a transaction.
type Flag string

const (
	FlagCleared Flag = "*"
	FlagPending Flag = "!"
)

// Record is a closed set of insertable records: *Transaction, *Open and *Commodity.
type Record interface {
	Kind() Kind
	RecordDate() time.Time
	Metadata() Metadata
	isRecord()
}

// Metadata maps keys to scalar values: string, decimal.Decimal, bool or time.Time.
type Metadata map[string]any

// Amount is a number with its currency (e.g., 50.00 USD).
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// Cost is the cost basis attached to a posting.
type Cost struct {
	Number   decimal.Decimal
	Currency string
	Date     time.Time // zero when absent
	Label    string
}

// Posting represents a posting in a Beancount transaction.
type Posting struct {
	Flag    string // optional posting flag
	Account string // Account name (e.g., "Assets:Bank:Checking")
	Units   Amount
	Cost    *Cost
	Price   *Amount // per-unit price
	Meta    Metadata
}

// Transaction represents a Beancount transaction.
type Transaction struct {
	Date      time.Time
	Flag      Flag
	Payee     string // optional
	Narration string
	Tags      []string // set semantics; rendered sorted
	Links     []string // set semantics; rendered sorted
	Postings  []Posting
	Meta      Metadata
}

// Open represents an account opening.
type Open struct {
	Date       time.Time
	Account    string
	Currencies []string // constraint currencies
	Booking    string   // optional booking method, e.g. FIFO
	Meta       Metadata
}

// Commodity represents a commodity declaration.
type Commodity struct {
	Date     time.Time
	Currency string
	Name     string // rendered as the "name" metadata entry
	Meta     Metadata
}

func (t *Transaction) Kind() Kind            { return KindTransaction }
func (t *Transaction) RecordDate() time.Time { return t.Date }
func (t *Transaction) Metadata() Metadata    { return t.Meta }
func (t *Transaction) isRecord()             {}

func (o *Open) Kind() Kind            { return KindOpen }
func (o *Open) RecordDate() time.Time { return o.Date }
func (o *Open) Metadata() Metadata    { return o.Meta }
func (o *Open) isRecord()             {}

func (c *Commodity) Kind() Kind            { return KindCommodity }
func (c *Commodity) RecordDate() time.Time { return c.Date }
func (c *Commodity) Metadata() Metadata    { return c.Meta }
func (c *Commodity) isRecord()             {}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a ledger date (YYYY-MM-DD, or YYYY/MM/DD).
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006/01/02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Describe returns a short human readable description of a record.
func Describe(r Record) string {
	switch rec := r.(type) {
	case *Transaction:
		return fmt.Sprintf("transaction %s %q", rec.Date.Format(DateFormat), rec.Narration)
	case *Open:
		return fmt.Sprintf("open %s", rec.Account)
	case *Commodity:
		return fmt.Sprintf("commodity %s", rec.Currency)
	default:
		return fmt.Sprintf("record %T", r)
	}
}

// Accounts returns the accounts referenced by a record, in order of appearance.
func Accounts(r Record) []string {
	switch rec := r.(type) {
	case *Transaction:
		accounts := make([]string, 0, len(rec.Postings))
		for _, p := range rec.Postings {
			accounts = append(accounts, p.Account)
		}
		return accounts
	case *Open:
		return []string{rec.Account}
	default:
		return nil
	}
}
