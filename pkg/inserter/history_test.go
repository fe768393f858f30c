package inserter_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/inserter"
)

func TestHistoryRecorder(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer conn.Close()
	history := db.NewInsertHistory(conn)

	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "inbox/"`+"\n")
	ins := newInserter(t, inserter.Options{
		LedgerFile: ledgerFile,
		Recorder:   inserter.NewHistoryRecorder(history),
	})

	result, err := ins.InsertRecord(coffee(19, "Coffee"))
	require.NoError(t, err)

	records, err := history.ListRecent(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "transaction", records[0].Kind)
	assert.Equal(t, "2024-03-19", records[0].RecordDate)
	assert.Equal(t, `transaction 2024-03-19 "Coffee"`, records[0].Summary)
	assert.Equal(t, result.Path, records[0].FilePath)
	assert.Equal(t, "directory", records[0].TargetMode)
	assert.Equal(t, "new_transaction_file", records[0].RoutingKey)
	assert.Equal(t, ledgerFile, records[0].LedgerFile)
}
