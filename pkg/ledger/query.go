package ledger

import (
	"regexp"
	"slices"
	"time"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// TransactionFilter selects transactions. Zero fields match everything.
type TransactionFilter struct {
	// From and To bound the transaction date, both inclusive.
	From time.Time
	To   time.Time
	// Account must match at least one posting account.
	Account *regexp.Regexp
	// Payee must match the payee; transactions without one never match.
	Payee *regexp.Regexp
	Tag   string
}

// Match reports whether txn passes every set condition of f.
func (f TransactionFilter) Match(txn *beancount.Transaction) bool {
	if !f.From.IsZero() && txn.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && txn.Date.After(f.To) {
		return false
	}
	if f.Payee != nil && (txn.Payee == "" || !f.Payee.MatchString(txn.Payee)) {
		return false
	}
	if f.Tag != "" && !slices.Contains(txn.Tags, f.Tag) {
		return false
	}
	if f.Account != nil {
		return slices.ContainsFunc(txn.Postings, func(p beancount.Posting) bool {
			return f.Account.MatchString(p.Account)
		})
	}
	return true
}

// Transactions returns the transactions matching f in document order.
// Transactions the loader kept opaque are not included.
func (s *Snapshot) Transactions(f TransactionFilter) []*beancount.Transaction {
	var out []*beancount.Transaction
	for _, rec := range s.Records() {
		txn, ok := rec.(*beancount.Transaction)
		if ok && f.Match(txn) {
			out = append(out, txn)
		}
	}
	return out
}
