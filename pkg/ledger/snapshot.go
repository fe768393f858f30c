// Package ledger loads a Beancount ledger, following its includes, into a
// read-only Snapshot of the state that record insertion depends on.
package ledger

import (
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// ValueKind is the type of a custom directive value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueAmount
	ValueDate
	ValueBool
	ValueAccount
)

// CustomValue is one value of a custom directive, as written in the file.
type CustomValue struct {
	Kind ValueKind
	Text string
}

// CustomEntry is a `custom "type" values...` directive.
type CustomEntry struct {
	Date   time.Time
	Type   string
	Values []CustomValue

	File string
	Line int
	// Position is the global document order across all loaded files.
	Position int
}

// AccountState is what the ledger declares about one account.
type AccountState struct {
	Name       string
	Open       time.Time
	Close      time.Time // zero while open
	Currencies []string  // constraint currencies; empty means any
}

// OpenOn reports whether the account accepts postings dated d.
// Postings on the close date itself are still accepted.
func (a AccountState) OpenOn(d time.Time) bool {
	if d.Before(a.Open) {
		return false
	}
	return a.Close.IsZero() || !d.After(a.Close)
}

// ClosedOn reports whether the account was closed before d.
func (a AccountState) ClosedOn(d time.Time) bool {
	return !a.Close.IsZero() && d.After(a.Close)
}

// Allows reports whether the account's currency constraint admits currency.
func (a AccountState) Allows(currency string) bool {
	if len(a.Currencies) == 0 {
		return true
	}
	for _, c := range a.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// Snapshot is the loaded state of a ledger. It is immutable once returned
// by Load.
type Snapshot struct {
	root        string
	files       []string
	includes    map[string][]string
	options     map[string][]string
	accounts    map[string]AccountState
	commodities map[string]*beancount.Commodity
	custom      []CustomEntry
	records     []beancount.Record
}

func newSnapshot(root string) *Snapshot {
	return &Snapshot{
		root:        root,
		includes:    make(map[string][]string),
		options:     make(map[string][]string),
		accounts:    make(map[string]AccountState),
		commodities: make(map[string]*beancount.Commodity),
	}
}

// Root returns the root ledger file.
func (s *Snapshot) Root() string { return s.root }

// Dir returns the directory containing the root ledger file.
func (s *Snapshot) Dir() string { return filepath.Dir(s.root) }

// Files returns every loaded file in load order, root first.
func (s *Snapshot) Files() []string {
	return append([]string(nil), s.files...)
}

// Includes returns the files that file includes directly, in load order.
func (s *Snapshot) Includes(file string) []string {
	return append([]string(nil), s.includes[file]...)
}

// Option returns the last value of a file option.
func (s *Snapshot) Option(name string) (string, bool) {
	values := s.options[name]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// OperatingCurrencies returns the operating_currency options in order.
func (s *Snapshot) OperatingCurrencies() []string {
	return append([]string(nil), s.options["operating_currency"]...)
}

// Account returns the declared state of an account.
func (s *Snapshot) Account(name string) (AccountState, bool) {
	a, ok := s.accounts[name]
	return a, ok
}

// Accounts returns all opened account names, sorted.
func (s *Snapshot) Accounts() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCommodity reports whether a commodity directive declares currency.
func (s *Snapshot) HasCommodity(currency string) bool {
	_, ok := s.commodities[currency]
	return ok
}

// Commodities returns the declared currencies, sorted.
func (s *Snapshot) Commodities() []string {
	codes := make([]string, 0, len(s.commodities))
	for code := range s.commodities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CurrencyDeclared reports whether currency is declared by a commodity
// directive or an operating_currency option.
func (s *Snapshot) CurrencyDeclared(currency string) bool {
	if s.HasCommodity(currency) {
		return true
	}
	return slices.Contains(s.OperatingCurrencies(), currency)
}

// CustomEntries returns the custom directives of the given type in document
// order. An empty type returns all of them.
func (s *Snapshot) CustomEntries(typ string) []CustomEntry {
	var out []CustomEntry
	for _, c := range s.custom {
		if typ == "" || c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Records returns the open, commodity and transaction records of the ledger
// in document order.
func (s *Snapshot) Records() []beancount.Record {
	return append([]beancount.Record(nil), s.records...)
}
