package cmd

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/converter"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
)

var txAddOpts struct {
	payload   payloadOptions
	draft     bool
	printOnly bool
}

// txListOptions are the tx list filters and output format.
type txListOptions struct {
	from    string
	to      string
	account string
	payee   string
	tag     string
	format  string
}

var txListOpts txListOptions

// txCmd groups transaction commands.
var txCmd = &cobra.Command{
	Use:     "tx",
	Aliases: []string{"transaction"},
	Short:   "Manage transactions",
}

// txAddCmd represents the tx add command.
var txAddCmd = &cobra.Command{
	Use:   "add [ledger-file]",
	Short: "Add transactions to the ledger",
	Long: `Add one transaction, or a list of them, to the ledger.

Records are inserted one after another. A record that fails validation is
reported and skipped; a broken routing directive stops the whole batch.
With --draft, transactions are marked pending (!) and written even when
they fail validation; the violations are printed as warnings.

Example:
  bean tx add --json '{"date": "2024-03-19", "payee": "Cafe", "narration": "Coffee",
    "postings": [{"account": "Expenses:Food", "units": {"number": "4.50", "currency": "USD"}},
                 {"account": "Assets:Cash"}]}'
  cat batch.json | bean tx add --json -
  bean tx add --from-file batch.yaml --draft
  bean tx add --json '...' --print-only`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runTxAdd(streamsOf(cmd), args), "failed to add transactions")
	},
}

// txListCmd represents the tx list command.
var txListCmd = &cobra.Command{
	Use:   "list [ledger-file]",
	Short: "List transactions matching filters",
	Long: `List the transactions of the ledger in document order.

--account and --payee are regular expressions; --account matches when any
posting account matches. Dates are inclusive.

Example:
  bean tx list --account '^Expenses:Food' --from 2024-01-01
  bean tx list --payee Cafe --format csv`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runTxList(streamsOf(cmd), args), "failed to list transactions")
	},
}

// txSchemaCmd represents the tx schema command.
var txSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of transaction payloads",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runTxSchema(streamsOf(cmd)), "failed to print schema")
	},
}

func init() {
	txAddOpts.payload.register(txAddCmd)
	txAddCmd.Flags().BoolVar(&txAddOpts.draft, "draft", false, "mark transactions as pending (!) and write them despite validation errors")
	txAddCmd.Flags().BoolVar(&txAddOpts.printOnly, "print-only", false, "print the rendered transactions instead of writing them")

	txListCmd.Flags().StringVar(&txListOpts.from, "from", "", "first date to include (YYYY-MM-DD)")
	txListCmd.Flags().StringVar(&txListOpts.to, "to", "", "last date to include (YYYY-MM-DD)")
	txListCmd.Flags().StringVarP(&txListOpts.account, "account", "a", "", "posting account regular expression")
	txListCmd.Flags().StringVarP(&txListOpts.payee, "payee", "p", "", "payee regular expression")
	txListCmd.Flags().StringVarP(&txListOpts.tag, "tag", "t", "", "tag the transaction must carry")
	txListCmd.Flags().StringVar(&txListOpts.format, "format", "text", "output format (text or csv)")

	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txSchemaCmd)
}

func runTxAdd(s streams, args []string) error {
	records, err := txAddOpts.payload.decode(s.in, beancount.KindTransaction, txAddOpts.draft)
	if err != nil {
		return err
	}
	if txAddOpts.printOnly {
		return printRecords(s.out, records)
	}
	return insertRecords(s, args, records, insertRequest{operation: "tx add", draft: txAddOpts.draft})
}

// txRow is one line of the transaction listing.
type txRow struct {
	Date      string `csv:"date"`
	Flag      string `csv:"flag"`
	Payee     string `csv:"payee"`
	Narration string `csv:"narration"`
	Accounts  string `csv:"accounts"`
}

func (o *txListOptions) filter() (ledger.TransactionFilter, error) {
	var f ledger.TransactionFilter
	var err error
	if o.from != "" {
		if f.From, err = beancount.ParseDate(o.from); err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
	}
	if o.to != "" {
		if f.To, err = beancount.ParseDate(o.to); err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
	}
	if o.account != "" {
		if f.Account, err = regexp.Compile(o.account); err != nil {
			return f, fmt.Errorf("--account: %w", err)
		}
	}
	if o.payee != "" {
		if f.Payee, err = regexp.Compile(o.payee); err != nil {
			return f, fmt.Errorf("--payee: %w", err)
		}
	}
	f.Tag = strings.TrimPrefix(o.tag, "#")
	return f, nil
}

func runTxList(s streams, args []string) error {
	if txListOpts.format != "text" && txListOpts.format != "csv" {
		return fmt.Errorf("unknown format %q (must be 'text' or 'csv')", txListOpts.format)
	}
	f, err := txListOpts.filter()
	if err != nil {
		return err
	}
	path, err := ledgerFile(args)
	if err != nil {
		return err
	}
	snap, err := ledger.Load(path)
	if err != nil {
		return err
	}

	txns := snap.Transactions(f)
	logger.WithField(logging.FieldCount, len(txns)).Debug("Filtered transactions")

	rows := make([]txRow, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, txRow{
			Date:      txn.Date.Format(beancount.DateFormat),
			Flag:      string(txn.Flag),
			Payee:     txn.Payee,
			Narration: txn.Narration,
			Accounts:  strings.Join(beancount.Accounts(txn), " "),
		})
	}

	if txListOpts.format == "csv" {
		return gocsv.Marshal(rows, s.out)
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFLAG\tPAYEE\tNARRATION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Date, r.Flag, r.Payee, r.Narration)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d transactions\n", len(rows))
	return nil
}

func runTxSchema(s streams) error {
	data, err := json.MarshalIndent(converter.TransactionSchema(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}
