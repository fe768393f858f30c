package inserter

import (
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// Insertion describes a record that was written to the ledger.
type Insertion struct {
	Record     beancount.Record
	Path       string
	Mode       beancount.Mode
	RoutingKey string // empty when the record went to the ledger file itself
	LedgerFile string
}

// Recorder is notified after every successful insertion.
//
//go:generate mockgen -destination=mocks/mock_recorder.go -source=interface.go Recorder
type Recorder interface {
	RecordInsertion(insertion Insertion) error
}
