package beancount

import (
	"fmt"
	"strings"
	"time"
)

// Compare reports the first field-wise difference between two records, or nil
// when they are equal. Tags and links compare as sets, numbers by value and
// metadata by rendered value.
func Compare(a, b Record) error {
	if a.Kind() != b.Kind() {
		return fmt.Errorf("kind: %s != %s", a.Kind(), b.Kind())
	}
	if !sameDay(a.RecordDate(), b.RecordDate()) {
		return fmt.Errorf("date: %s != %s", a.RecordDate().Format(DateFormat), b.RecordDate().Format(DateFormat))
	}

	switch x := a.(type) {
	case *Transaction:
		return compareTransactions(x, b.(*Transaction))
	case *Open:
		y := b.(*Open)
		if x.Account != y.Account {
			return fmt.Errorf("account: %q != %q", x.Account, y.Account)
		}
		if strings.Join(x.Currencies, ",") != strings.Join(y.Currencies, ",") {
			return fmt.Errorf("currencies: %v != %v", x.Currencies, y.Currencies)
		}
		if x.Booking != y.Booking {
			return fmt.Errorf("booking: %q != %q", x.Booking, y.Booking)
		}
		return compareMeta("meta", x.Meta, y.Meta)
	case *Commodity:
		y := b.(*Commodity)
		if x.Currency != y.Currency {
			return fmt.Errorf("currency: %q != %q", x.Currency, y.Currency)
		}
		if x.Name != y.Name {
			return fmt.Errorf("name: %q != %q", x.Name, y.Name)
		}
		return compareMeta("meta", x.Meta, y.Meta)
	default:
		return fmt.Errorf("cannot compare record of type %T", a)
	}
}

func compareTransactions(x, y *Transaction) error {
	if flagOrDefault(x.Flag) != flagOrDefault(y.Flag) {
		return fmt.Errorf("flag: %q != %q", x.Flag, y.Flag)
	}
	if x.Payee != y.Payee {
		return fmt.Errorf("payee: %q != %q", x.Payee, y.Payee)
	}
	if x.Narration != y.Narration {
		return fmt.Errorf("narration: %q != %q", x.Narration, y.Narration)
	}
	if !sameSet(x.Tags, y.Tags) {
		return fmt.Errorf("tags: %v != %v", x.Tags, y.Tags)
	}
	if !sameSet(x.Links, y.Links) {
		return fmt.Errorf("links: %v != %v", x.Links, y.Links)
	}
	if err := compareMeta("meta", x.Meta, y.Meta); err != nil {
		return err
	}
	if len(x.Postings) != len(y.Postings) {
		return fmt.Errorf("postings: %d != %d", len(x.Postings), len(y.Postings))
	}
	for i := range x.Postings {
		if err := comparePostings(x.Postings[i], y.Postings[i]); err != nil {
			return fmt.Errorf("posting %d: %w", i, err)
		}
	}
	return nil
}

func comparePostings(p, q Posting) error {
	if p.Flag != q.Flag {
		return fmt.Errorf("flag: %q != %q", p.Flag, q.Flag)
	}
	if p.Account != q.Account {
		return fmt.Errorf("account: %q != %q", p.Account, q.Account)
	}
	if !sameAmount(p.Units, q.Units) {
		return fmt.Errorf("units: %s != %s", FormatAmount(p.Units), FormatAmount(q.Units))
	}
	switch {
	case (p.Cost == nil) != (q.Cost == nil):
		return fmt.Errorf("cost presence differs")
	case p.Cost != nil:
		if !sameCost(*p.Cost, *q.Cost) {
			return fmt.Errorf("cost: {%s} != {%s}", formatCost(*p.Cost), formatCost(*q.Cost))
		}
	}
	switch {
	case (p.Price == nil) != (q.Price == nil):
		return fmt.Errorf("price presence differs")
	case p.Price != nil && !sameAmount(*p.Price, *q.Price):
		return fmt.Errorf("price: %s != %s", FormatAmount(*p.Price), FormatAmount(*q.Price))
	}
	return compareMeta("posting meta", p.Meta, q.Meta)
}

func compareMeta(what string, a, b Metadata) error {
	if len(a) != len(b) {
		return fmt.Errorf("%s: %d entries != %d entries", what, len(a), len(b))
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			return fmt.Errorf("%s: missing key %q", what, k)
		}
		if MetaValueString(va) != MetaValueString(vb) {
			return fmt.Errorf("%s %q: %s != %s", what, k, MetaValueString(va), MetaValueString(vb))
		}
	}
	return nil
}

func sameAmount(a, b Amount) bool {
	return a.Currency == b.Currency && a.Number.Equal(b.Number)
}

func sameCost(a, b Cost) bool {
	return a.Currency == b.Currency && a.Number.Equal(b.Number) &&
		a.Label == b.Label && a.Date.Equal(b.Date)
}

func sameSet(a, b []string) bool {
	sa, sb := sortedSet(a), sortedSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
