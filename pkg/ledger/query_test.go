package ledger

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

func TestSnapshotTransactions(t *testing.T) {
	snap, err := LoadReader("/ledger/main.beancount", strings.NewReader(`2020-01-01 open Assets:Cash
2024-01-01 * "Cafe" "Coffee" #food
  Expenses:Food  4.50 USD
  Assets:Cash
2024-01-02 * "No payee"
  Expenses:Rent  (2 * 5) USD
  Assets:Cash
2024-02-01 * "Rent"
  Expenses:Rent  900 USD
  Assets:Cash
`))
	require.NoError(t, err)

	narrations := func(f TransactionFilter) []string {
		var out []string
		for _, txn := range snap.Transactions(f) {
			out = append(out, txn.Narration)
		}
		return out
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"everything", TransactionFilter{}, []string{"Coffee", "Rent"}},
		{"from is inclusive", TransactionFilter{From: beancount.Date(2024, 2, 1)}, []string{"Rent"}},
		{"to is inclusive", TransactionFilter{To: beancount.Date(2024, 1, 1)}, []string{"Coffee"}},
		{"account", TransactionFilter{Account: regexp.MustCompile(`^Expenses:Rent$`)}, []string{"Rent"}},
		{"payee skips transactions without one", TransactionFilter{Payee: regexp.MustCompile(`.*`)}, []string{"Coffee"}},
		{"tag", TransactionFilter{Tag: "food"}, []string{"Coffee"}},
		{"no match", TransactionFilter{Tag: "travel"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, narrations(tt.filter))
		})
	}
}
