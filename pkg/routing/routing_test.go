package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

func load(t *testing.T, text string) *ledger.Snapshot {
	t.Helper()
	snap, err := ledger.LoadReader("/ledger/main.beancount", strings.NewReader(text))
	require.NoError(t, err)
	return snap
}

func TestResolveLastDirectiveWins(t *testing.T) {
	// The later entry carries the earlier date; document order decides.
	snap := load(t, `2024-06-01 custom "cli-config" "new_transaction_file" "a/"
2024-01-01 custom "cli-config" "new_transaction_file" "b/"
2024-01-01 custom "cli-config" "new_account_file" "accounts.beancount"
`)

	d, ok, err := Resolve(snap, beancount.KindTransaction)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b/", d.Template)
	assert.Equal(t, KeyTransaction, d.Key)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, beancount.Date(2024, 1, 1), d.Date)

	d, ok, err = Resolve(snap, beancount.KindOpen)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "accounts.beancount", d.Template)

	_, ok, err = Resolve(snap, beancount.KindCommodity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveIgnoresUnrelatedEntries(t *testing.T) {
	snap := load(t, `2024-01-01 custom "cli-config" "new_transaction_file"
2024-01-01 custom "cli-config" "new_transaction_file" "txns.beancount"
2024-01-01 custom "fava-option" "new_transaction_file" "other/"
2024-01-01 custom "cli-config" "default_currency" "USD"
`)

	d, ok, err := Resolve(snap, beancount.KindTransaction)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "txns.beancount", d.Template)
}

func TestResolveMalformedValue(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing value", `2024-01-01 custom "cli-config" "new_commodity_file"`},
		{"empty string", `2024-01-01 custom "cli-config" "new_commodity_file" ""`},
		{"not a string", `2024-01-01 custom "cli-config" "new_commodity_file" 42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := load(t, tt.text+"\n")
			_, _, err := Resolve(snap, beancount.KindCommodity)
			require.Error(t, err)
			var cfgErr *ledgererror.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, KeyCommodity, cfgErr.Key)
		})
	}
}

func TestKeyFor(t *testing.T) {
	for kind, want := range map[beancount.Kind]string{
		beancount.KindTransaction: KeyTransaction,
		beancount.KindOpen:        KeyAccount,
		beancount.KindCommodity:   KeyCommodity,
	} {
		got, err := KeyFor(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := KeyFor("price")
	assert.Error(t, err)
}
