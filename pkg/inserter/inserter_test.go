package inserter_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/inserter"
	mock_inserter "github.com/shunichi-ikebuchi/beancount-cli/pkg/inserter/mocks"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

const baseLedger = `option "operating_currency" "USD"

2020-01-01 open Assets:Cash
2020-01-01 open Expenses:Food
`

func setupLedger(t *testing.T, routing string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	require.NoError(t, os.WriteFile(path, []byte(baseLedger+routing), 0644))
	return path
}

func coffee(day int, narration string) *beancount.Transaction {
	return &beancount.Transaction{
		Date:      beancount.Date(2024, 3, day),
		Flag:      beancount.FlagCleared,
		Payee:     "Cafe",
		Narration: narration,
		Postings: []beancount.Posting{
			{Account: "Expenses:Food", Units: beancount.Amount{Number: decimal.RequireFromString("4.50"), Currency: "USD"}},
			{Account: "Assets:Cash", Units: beancount.Amount{Number: decimal.RequireFromString("-4.50"), Currency: "USD"}},
		},
	}
}

func render(t *testing.T, rec beancount.Record) string {
	t.Helper()
	text, err := beancount.Render(rec)
	require.NoError(t, err)
	return text
}

func newInserter(t *testing.T, opts inserter.Options) *inserter.Inserter {
	t.Helper()
	opts.VerifyRoundTrip = true
	ins, err := inserter.New(opts)
	require.NoError(t, err)
	return ins
}

func TestInsertRecordSingleFile(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"`+"\n")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	first := coffee(19, "Coffee")
	result, err := ins.InsertRecord(first)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(ledgerFile), "2024", "inbox.beancount")
	assert.Equal(t, want, result.Path)
	assert.Equal(t, beancount.ModeSingleFile, result.Mode)
	require.NotNil(t, result.Directive)
	assert.Equal(t, "new_transaction_file", result.Directive.Key)

	content, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, render(t, first), string(content), "no leading blank line")

	second := coffee(20, "Another coffee")
	_, err = ins.InsertRecord(second)
	require.NoError(t, err)

	content, err = os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, render(t, first)+"\n"+render(t, second), string(content))
}

func TestInsertRecordDirectory(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "inbox/"`+"\n")
	clock := func() time.Time { return time.Date(2024, 3, 19, 10, 20, 30, 5, time.UTC) }
	ins := newInserter(t, inserter.Options{
		LedgerFile: ledgerFile,
		Repository: beancount.NewFileSystemRepository(beancount.RepositoryConfig{Clock: clock}),
	})

	rec := coffee(19, "Coffee")
	result, err := ins.InsertRecord(rec)
	require.NoError(t, err)

	inbox := filepath.Join(filepath.Dir(ledgerFile), "inbox")
	assert.Equal(t, filepath.Join(inbox, "2024-03-19T102030.000000005Z.beancount"), result.Path)
	assert.Equal(t, beancount.ModeDirectory, result.Mode)

	entries, err := os.ReadDir(inbox)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, render(t, rec), string(content))
}

func TestInsertRecordWithoutDirective(t *testing.T) {
	ledgerFile := setupLedger(t, "")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	open := &beancount.Open{Date: beancount.Date(2024, 1, 1), Account: "Assets:Bank", Currencies: []string{"USD"}}
	result, err := ins.InsertRecord(open)
	require.NoError(t, err)
	assert.Equal(t, ledgerFile, result.Path)
	assert.Nil(t, result.Directive)

	content, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, baseLedger+"\n"+render(t, open), string(content))
}

func TestInsertRecordIntoLedgerWithUnmodelledSyntax(t *testing.T) {
	existing := `2020-01-01 open Assets:Broker

2024-01-01 * "Landlord" "Rent"
  Expenses:Food    1,250.00 USD
  Assets:Cash

2024-01-02 * "Split bill"
  Expenses:Food    (10.00 / 2) USD
  Assets:Cash

2024-01-03 * "Broker" "Buy"
  Assets:Broker    10 HOOL {{500.00 USD}}
  Assets:Cash

2024-01-04 * "Notes" "first line
second line"
  Expenses:Food    5.00 USD
  Assets:Cash
`
	ledgerFile := setupLedger(t, existing)
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	rec := coffee(19, "Coffee")
	result, err := ins.InsertRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, ledgerFile, result.Path)

	content, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, baseLedger+existing+"\n"+render(t, rec), string(content))
}

func TestInsertRecordUnopenedAccount(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"`+"\n")
	before, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)

	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})
	rec := coffee(19, "Coffee")
	rec.Postings[0].Account = "Expenses:Unknown"

	_, err = ins.InsertRecord(rec)
	var vErr *ledgererror.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"Expenses:Unknown"}, vErr.Subjects())

	entries, err := os.ReadDir(filepath.Dir(ledgerFile))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no file is created")
	after, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInsertRecordDraftWritesInvalidRecord(t *testing.T) {
	ledgerFile := setupLedger(t, "")
	logger, hook := test.NewNullLogger()
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile, Logger: logger, Draft: true})

	rec := coffee(19, "Coffee")
	rec.Flag = beancount.FlagPending
	rec.Postings[0].Account = "Expenses:Unknown"

	result, err := ins.InsertRecord(rec)
	require.NoError(t, err)

	var vErr *ledgererror.ValidationError
	require.ErrorAs(t, result.Invalid, &vErr)
	assert.Equal(t, []string{"Expenses:Unknown"}, vErr.Subjects())

	content, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, baseLedger+"\n"+render(t, rec), string(content))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Writing draft record that fails validation" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestInsertRecordDraftStillStopsOnConfigurationError(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{bogus}.beancount"`+"\n")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile, Draft: true})

	rec := coffee(19, "Coffee")
	rec.Postings[0].Account = "Expenses:Unknown"
	_, err := ins.InsertRecord(rec)
	assert.True(t, ledgererror.IsConfiguration(err))
}

func TestInsertRecordLogsRoutingDirective(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"`+"\n")
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile, Logger: logger})

	_, err := ins.InsertRecord(coffee(19, "Coffee"))
	require.NoError(t, err)

	var found *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Using routing directive" {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "new_transaction_file", found.Data["routing_key"])
	assert.Equal(t, "{year}/inbox.beancount", found.Data["template"])
}

func TestInsertRecordConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		routing string
		wantKey string
	}{
		{"unknown placeholder", `2020-01-01 custom "cli-config" "new_transaction_file" "{year}/{bogus}.beancount"`, "new_transaction_file"},
		{"empty value", `2020-01-01 custom "cli-config" "new_transaction_file" ""`, "new_transaction_file"},
		{"non-string value", `2020-01-01 custom "cli-config" "new_transaction_file" TRUE`, "new_transaction_file"},
		{"missing value", `2020-01-01 custom "cli-config" "new_transaction_file"`, "new_transaction_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := newInserter(t, inserter.Options{LedgerFile: setupLedger(t, tt.routing+"\n")})
			_, err := ins.InsertRecord(coffee(19, "Coffee"))
			var cfgErr *ledgererror.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestInsertRecordLoadFailure(t *testing.T) {
	ins := newInserter(t, inserter.Options{LedgerFile: filepath.Join(t.TempDir(), "missing.beancount")})
	_, err := ins.InsertRecord(coffee(19, "Coffee"))
	require.Error(t, err)
	assert.True(t, ledgererror.IsConfiguration(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInsertRecordsSeesEarlierRecords(t *testing.T) {
	ledgerFile := setupLedger(t, "")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	spend := coffee(19, "Coffee")
	spend.Postings[1].Account = "Assets:Bank"

	outcomes := ins.InsertRecords([]beancount.Record{
		&beancount.Open{Date: beancount.Date(2024, 1, 1), Account: "Assets:Bank"},
		spend,
	})
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Applied(), "record %d: %v", o.Index, o.Err)
	}
}

func TestInsertRecordsContinuesAfterValidationError(t *testing.T) {
	ledgerFile := setupLedger(t, "")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	bad := coffee(19, "Bad")
	bad.Postings[0].Account = "Expenses:Unknown"

	outcomes := ins.InsertRecords([]beancount.Record{bad, coffee(20, "Good")})
	require.Len(t, outcomes, 2)

	var vErr *ledgererror.ValidationError
	assert.ErrorAs(t, outcomes[0].Err, &vErr)
	assert.Nil(t, outcomes[0].Result)
	assert.True(t, outcomes[1].Applied())
	assert.Equal(t, 1, outcomes[1].Index)
}

func TestInsertRecordsAbortsOnConfigurationError(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{nope}/inbox.beancount"`+"\n")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	outcomes := ins.InsertRecords([]beancount.Record{
		&beancount.Commodity{Date: beancount.Date(2024, 1, 1), Currency: "BTC"},
		coffee(19, "Coffee"),
		&beancount.Commodity{Date: beancount.Date(2024, 1, 1), Currency: "ETH"},
	})
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Applied())
	assert.True(t, ledgererror.IsConfiguration(outcomes[1].Err))
	assert.ErrorIs(t, outcomes[2].Err, ledgererror.ErrNotApplied)

	content, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "commodity BTC")
	assert.NotContains(t, string(content), "commodity ETH")
}

func TestInsertRecordNotifiesRecorder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"`+"\n")
	recorder := mock_inserter.NewMockRecorder(ctrl)
	rec := coffee(19, "Coffee")

	recorder.EXPECT().
		RecordInsertion(gomock.Any()).
		DoAndReturn(func(insertion inserter.Insertion) error {
			assert.Same(t, rec, insertion.Record)
			assert.Equal(t, "new_transaction_file", insertion.RoutingKey)
			assert.Equal(t, ledgerFile, insertion.LedgerFile)
			assert.Equal(t, filepath.Join(filepath.Dir(ledgerFile), "2024", "inbox.beancount"), insertion.Path)
			return nil
		})

	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile, Recorder: recorder})
	_, err := ins.InsertRecord(rec)
	require.NoError(t, err)
}

func TestInsertRecordSkipsRecorderOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	recorder := mock_inserter.NewMockRecorder(ctrl)
	recorder.EXPECT().RecordInsertion(gomock.Any()).Times(0)

	ins := newInserter(t, inserter.Options{LedgerFile: setupLedger(t, ""), Recorder: recorder})
	rec := coffee(19, "Coffee")
	rec.Postings[0].Account = "Expenses:Unknown"
	_, err := ins.InsertRecord(rec)
	require.Error(t, err)
}

func TestInsertRecordRecorderFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	recorder := mock_inserter.NewMockRecorder(ctrl)
	recorder.EXPECT().RecordInsertion(gomock.Any()).Return(errors.New("database is locked"))

	logger, hook := test.NewNullLogger()
	ins := newInserter(t, inserter.Options{LedgerFile: setupLedger(t, ""), Recorder: recorder, Logger: logger})

	result, err := ins.InsertRecord(coffee(19, "Coffee"))
	require.NoError(t, err)
	assert.FileExists(t, result.Path)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Failed to record insertion history", entry.Message)
	assert.Equal(t, "database is locked", entry.Data["error"])
}

func TestTarget(t *testing.T) {
	ledgerFile := setupLedger(t, `2020-01-01 custom "cli-config" "new_account_file" "accounts.beancount"`+"\n")
	ins := newInserter(t, inserter.Options{LedgerFile: ledgerFile})

	target, directive, err := ins.Target(&beancount.Open{Date: beancount.Date(2024, 1, 1), Account: "Assets:Bank"})
	require.NoError(t, err)
	require.NotNil(t, directive)
	assert.Equal(t, filepath.Join(filepath.Dir(ledgerFile), "accounts.beancount"), target.Path)

	target, directive, err = ins.Target(coffee(19, "Coffee"))
	require.NoError(t, err)
	assert.Nil(t, directive)
	assert.Equal(t, ledgerFile, target.Path)
}

func TestVerifyRoundTrip(t *testing.T) {
	rec := coffee(19, "Coffee")
	assert.NoError(t, inserter.VerifyRoundTrip(rec, render(t, rec)))

	var mismatch *ledgererror.RenderMismatchError
	err := inserter.VerifyRoundTrip(rec, render(t, coffee(19, "Tea")))
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, err.Error(), "narration")

	err = inserter.VerifyRoundTrip(rec, "")
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Reason, "parsed 0")
}

func TestNewRequiresLedgerFile(t *testing.T) {
	_, err := inserter.New(inserter.Options{})
	assert.Error(t, err)
}
