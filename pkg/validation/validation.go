// Package validation checks a record against a loaded ledger before it is
// written. All violations are collected so a caller can report every problem
// in one round.
package validation

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

// DefaultTolerance applies to currencies whose amounts carry no decimals.
var DefaultTolerance = decimal.RequireFromString("0.005")

// BookingMethods are the booking methods an open directive may name.
var BookingMethods = []string{"STRICT", "STRICT_WITH_SIZE", "NONE", "AVERAGE", "FIFO", "LIFO", "HIFO"}

// Result is the outcome of validating one record.
type Result struct {
	Violations []ledgererror.Violation
}

// Valid reports whether no violation was found.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns a ValidationError describing rec, or nil when r is valid.
func (r Result) Err(rec beancount.Record) error {
	if r.Valid() {
		return nil
	}
	return &ledgererror.ValidationError{Record: beancount.Describe(rec), Violations: r.Violations}
}

type collector struct {
	seen       map[string]bool
	violations []ledgererror.Violation
}

func (c *collector) add(code ledgererror.ViolationCode, subject, format string, args ...any) {
	key := string(code) + "\x00" + subject
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.violations = append(c.violations, ledgererror.Violation{
		Code:    code,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate checks rec against snap. snap is only read.
func Validate(rec beancount.Record, snap *ledger.Snapshot) Result {
	c := &collector{seen: make(map[string]bool)}
	if rec.RecordDate().IsZero() {
		c.add(ledgererror.CodeMissingField, "date", "date is required")
	}
	checkMetadata(c, rec.Metadata())

	switch r := rec.(type) {
	case *beancount.Transaction:
		validateTransaction(c, r, snap)
	case *beancount.Open:
		validateOpen(c, r, snap)
	case *beancount.Commodity:
		validateCommodity(c, r, snap)
	}
	return Result{Violations: c.violations}
}

func validateTransaction(c *collector, txn *beancount.Transaction, snap *ledger.Snapshot) {
	if txn.Flag != "" && txn.Flag != beancount.FlagCleared && txn.Flag != beancount.FlagPending {
		c.add(ledgererror.CodeInvalidSyntax, string(txn.Flag), "invalid flag %q: expected * or !", txn.Flag)
	}
	for _, tag := range txn.Tags {
		if !beancount.IsValidTag(tag) {
			c.add(ledgererror.CodeInvalidSyntax, tag, "invalid tag %q", tag)
		}
	}
	for _, link := range txn.Links {
		if !beancount.IsValidTag(link) {
			c.add(ledgererror.CodeInvalidSyntax, link, "invalid link %q", link)
		}
	}
	if len(txn.Postings) == 0 {
		c.add(ledgererror.CodeMissingField, "postings", "transaction has no postings")
		return
	}

	elided := 0
	for _, p := range txn.Postings {
		checkPosting(c, p, txn.Date, snap)
		checkMetadata(c, p.Meta)
		if p.Units.Currency == "" {
			elided++
		}
	}
	switch {
	case elided > 1:
		c.add(ledgererror.CodeMissingField, "amount", "only one posting may omit its amount, found %d", elided)
	case elided == 0:
		checkBalance(c, txn)
	}
}

func checkPosting(c *collector, p beancount.Posting, date time.Time, snap *ledger.Snapshot) {
	if p.Flag != "" && p.Flag != string(beancount.FlagCleared) && p.Flag != string(beancount.FlagPending) {
		c.add(ledgererror.CodeInvalidSyntax, p.Flag, "invalid posting flag %q", p.Flag)
	}

	var state ledger.AccountState
	known := false
	switch {
	case !beancount.IsValidAccount(p.Account):
		c.add(ledgererror.CodeInvalidSyntax, p.Account, "invalid account name %q", p.Account)
	default:
		state, known = snap.Account(p.Account)
		switch {
		case !known:
			c.add(ledgererror.CodeAccountNotOpen, p.Account, "account %s is not open", p.Account)
		case state.OpenOn(date):
		case state.ClosedOn(date):
			c.add(ledgererror.CodeAccountClosed, p.Account, "account %s was closed on %s",
				p.Account, state.Close.Format(beancount.DateFormat))
		default:
			c.add(ledgererror.CodeAccountNotOpen, p.Account, "account %s is not open on %s (opened %s)",
				p.Account, date.Format(beancount.DateFormat), state.Open.Format(beancount.DateFormat))
		}
	}

	if p.Units.Currency != "" {
		switch {
		case !beancount.IsValidCurrency(p.Units.Currency):
			c.add(ledgererror.CodeInvalidSyntax, p.Units.Currency, "invalid currency %q", p.Units.Currency)
		case known && len(state.Currencies) > 0:
			if !state.Allows(p.Units.Currency) {
				c.add(ledgererror.CodeCurrencyConstraint, p.Units.Currency, "account %s does not allow currency %s (allowed: %v)",
					p.Account, p.Units.Currency, state.Currencies)
			}
		default:
			checkCurrencyDeclared(c, p.Units.Currency, snap)
		}
	}
	if p.Cost != nil && p.Cost.Currency != "" {
		checkCurrency(c, p.Cost.Currency, snap)
	}
	if p.Price != nil {
		checkCurrency(c, p.Price.Currency, snap)
	}
}

func checkCurrency(c *collector, currency string, snap *ledger.Snapshot) {
	if !beancount.IsValidCurrency(currency) {
		c.add(ledgererror.CodeInvalidSyntax, currency, "invalid currency %q", currency)
		return
	}
	checkCurrencyDeclared(c, currency, snap)
}

// checkCurrencyDeclared only applies to ledgers that declare commodities.
func checkCurrencyDeclared(c *collector, currency string, snap *ledger.Snapshot) {
	if len(snap.Commodities()) == 0 || snap.CurrencyDeclared(currency) {
		return
	}
	c.add(ledgererror.CodeCurrencyUndeclared, currency, "currency %s is not declared", currency)
}

// checkBalance verifies that posting weights sum to zero per currency.
// A posting's weight is its units, converted at cost or else at price.
func checkBalance(c *collector, txn *beancount.Transaction) {
	residual := make(map[string]decimal.Decimal)
	tolerance := make(map[string]decimal.Decimal)

	for _, p := range txn.Postings {
		weight := p.Units
		switch {
		case p.Cost != nil && p.Cost.Currency != "":
			weight = beancount.Amount{Number: p.Units.Number.Mul(p.Cost.Number), Currency: p.Cost.Currency}
		case p.Price != nil:
			weight = beancount.Amount{Number: p.Units.Number.Mul(p.Price.Number), Currency: p.Price.Currency}
		default:
			if exp := p.Units.Number.Exponent(); exp < 0 {
				t := decimal.New(5, exp-1)
				if cur, ok := tolerance[p.Units.Currency]; !ok || t.GreaterThan(cur) {
					tolerance[p.Units.Currency] = t
				}
			}
		}
		residual[weight.Currency] = residual[weight.Currency].Add(weight.Number)
	}

	currencies := make([]string, 0, len(residual))
	for cur := range residual {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		tol, ok := tolerance[cur]
		if !ok {
			tol = DefaultTolerance
		}
		if r := residual[cur]; r.Abs().GreaterThan(tol) {
			c.add(ledgererror.CodeUnbalanced, cur, "transaction does not balance: residual %s %s", beancount.FormatNumber(r), cur)
		}
	}
}

func validateOpen(c *collector, o *beancount.Open, snap *ledger.Snapshot) {
	if !beancount.IsValidAccount(o.Account) {
		c.add(ledgererror.CodeInvalidSyntax, o.Account, "invalid account name %q", o.Account)
	} else if state, ok := snap.Account(o.Account); ok {
		c.add(ledgererror.CodeAccountExists, o.Account, "account %s is already open (since %s)",
			o.Account, state.Open.Format(beancount.DateFormat))
	}
	for _, cur := range o.Currencies {
		if !beancount.IsValidCurrency(cur) {
			c.add(ledgererror.CodeInvalidSyntax, cur, "invalid currency %q", cur)
		}
	}
	if o.Booking != "" && !slices.Contains(BookingMethods, o.Booking) {
		c.add(ledgererror.CodeInvalidSyntax, o.Booking, "invalid booking method %q", o.Booking)
	}
}

func validateCommodity(c *collector, cm *beancount.Commodity, snap *ledger.Snapshot) {
	switch {
	case cm.Currency == "":
		c.add(ledgererror.CodeMissingField, "currency", "currency is required")
	case !beancount.IsValidCurrency(cm.Currency):
		c.add(ledgererror.CodeInvalidSyntax, cm.Currency, "invalid currency %q", cm.Currency)
	case snap.HasCommodity(cm.Currency):
		c.add(ledgererror.CodeCommodityExists, cm.Currency, "commodity %s is already declared", cm.Currency)
	}
}

func checkMetadata(c *collector, meta beancount.Metadata) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !beancount.IsValidMetaKey(k) {
			c.add(ledgererror.CodeInvalidSyntax, k, "invalid metadata key %q", k)
		}
	}
}
