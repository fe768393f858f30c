// Package routing reads the routing directives a ledger declares for new
// records:
//
//	2024-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"
//
// Directives are looked up fresh from a snapshot on every call.
package routing

import (
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

// CustomType is the custom directive type that carries routing settings.
const CustomType = "cli-config"

// Routing keys.
const (
	KeyTransaction = "new_transaction_file"
	KeyAccount     = "new_account_file"
	KeyCommodity   = "new_commodity_file"
)

// Directive is the authoritative routing declaration for a record kind.
type Directive struct {
	Kind     beancount.Kind
	Key      string
	Template string
	Date     time.Time

	File     string
	Line     int
	Position int
}

// KeyFor returns the routing key for a record kind.
func KeyFor(kind beancount.Kind) (string, error) {
	switch kind {
	case beancount.KindTransaction:
		return KeyTransaction, nil
	case beancount.KindOpen:
		return KeyAccount, nil
	case beancount.KindCommodity:
		return KeyCommodity, nil
	default:
		return "", fmt.Errorf("no routing key for record kind %q", kind)
	}
}

// Resolve returns the directive for kind that appears last in document order.
// Dates play no part in the ordering. ok is false when the ledger declares
// no directive for kind. A winning directive whose value is missing, empty
// or not a string is a ConfigurationError.
func Resolve(snap *ledger.Snapshot, kind beancount.Kind) (d Directive, ok bool, err error) {
	key, err := KeyFor(kind)
	if err != nil {
		return Directive{}, false, err
	}

	var last *ledger.CustomEntry
	for _, entry := range snap.CustomEntries(CustomType) {
		if len(entry.Values) == 0 || entry.Values[0].Kind != ledger.ValueString || entry.Values[0].Text != key {
			continue
		}
		if last == nil || entry.Position > last.Position {
			e := entry
			last = &e
		}
	}
	if last == nil {
		return Directive{}, false, nil
	}

	if len(last.Values) < 2 {
		return Directive{}, false, &ledgererror.ConfigurationError{
			Key:    key,
			Reason: fmt.Sprintf("%s:%d: routing directive has no value", last.File, last.Line),
		}
	}
	value := last.Values[1]
	if value.Kind != ledger.ValueString || value.Text == "" {
		return Directive{}, false, &ledgererror.ConfigurationError{
			Key:    key,
			Reason: fmt.Sprintf("%s:%d: routing value must be a non-empty string", last.File, last.Line),
		}
	}

	return Directive{
		Kind:     kind,
		Key:      key,
		Template: value.Text,
		Date:     last.Date,
		File:     last.File,
		Line:     last.Line,
		Position: last.Position,
	}, true, nil
}
