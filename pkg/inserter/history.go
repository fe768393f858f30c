package inserter

import (
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/db"
)

// HistoryRecorder stores insertions in the SQLite insertion history.
type HistoryRecorder struct {
	history *db.InsertHistory
}

var _ Recorder = (*HistoryRecorder)(nil)

// NewHistoryRecorder creates a Recorder backed by history.
func NewHistoryRecorder(history *db.InsertHistory) *HistoryRecorder {
	return &HistoryRecorder{history: history}
}

// RecordInsertion implements Recorder.
func (h *HistoryRecorder) RecordInsertion(insertion Insertion) error {
	_, err := h.history.Record(db.InsertRecord{
		Kind:       string(insertion.Record.Kind()),
		RecordDate: insertion.Record.RecordDate().Format(beancount.DateFormat),
		Summary:    beancount.Describe(insertion.Record),
		FilePath:   insertion.Path,
		TargetMode: insertion.Mode.String(),
		RoutingKey: insertion.RoutingKey,
		LedgerFile: insertion.LedgerFile,
	})
	return err
}
