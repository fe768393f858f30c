package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

func TestRenderParseRoundTrip(t *testing.T) {
	num := decimal.RequireFromString
	records := []beancount.Record{
		&beancount.Transaction{
			Date:      beancount.Date(2024, 3, 19),
			Flag:      beancount.FlagPending,
			Payee:     `Joe's "Diner"`,
			Narration: "Dinner\nwith friends",
			Tags:      []string{"trip-2024", "food"},
			Links:     []string{"inv.42"},
			Meta:      beancount.Metadata{"receipt": "r.pdf", "split": true, "count": num("3"), "when": beancount.Date(2024, 3, 20)},
			Postings: []beancount.Posting{
				{Account: "Expenses:Food", Units: beancount.Amount{Number: num("42.10"), Currency: "USD"}},
				{Account: "Assets:Broker", Units: beancount.Amount{Number: num("-1"), Currency: "HOOL"},
					Cost:  &beancount.Cost{Number: num("500"), Currency: "USD", Date: beancount.Date(2023, 1, 1)},
					Price: &beancount.Amount{Number: num("510.00"), Currency: "USD"}},
				{Account: "Income:Gains", Flag: "!", Units: beancount.Amount{Number: num("457.90"), Currency: "USD"},
					Meta: beancount.Metadata{"note": "realized"}},
			},
		},
		&beancount.Transaction{
			Date:      beancount.Date(2024, 1, 1),
			Narration: "",
			Postings: []beancount.Posting{
				{Account: "Assets:Cash", Units: beancount.Amount{Number: num("1"), Currency: "USD"}},
				{Account: "Equity:Opening"},
			},
		},
		&beancount.Open{Date: beancount.Date(2024, 1, 1), Account: "Assets:Cash", Currencies: []string{"USD", "EUR"}, Booking: "STRICT"},
		&beancount.Open{Date: beancount.Date(2024, 1, 1), Account: "Assets:Other", Meta: beancount.Metadata{"institution": "Bank"}},
		&beancount.Commodity{Date: beancount.Date(2024, 1, 1), Currency: "HOOL", Name: "Hooli"},
	}

	for _, rec := range records {
		t.Run(beancount.Describe(rec), func(t *testing.T) {
			text, err := beancount.Render(rec)
			require.NoError(t, err)

			parsed, err := ParseRecords("rendered.beancount", text)
			require.NoError(t, err, text)
			require.Len(t, parsed, 1, text)
			assert.NoError(t, beancount.Compare(rec, parsed[0]), text)
		})
	}
}
