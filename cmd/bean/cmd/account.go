package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/converter"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
)

var accountCreateOpts struct {
	payload    payloadOptions
	name       string
	currencies []string
	date       string
	booking    string
}

var accountListFormat string

// accountCmd groups account commands.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

// accountCreateCmd represents the account create command.
var accountCreateCmd = &cobra.Command{
	Use:   "create [ledger-file]",
	Short: "Open new accounts",
	Long: `Open an account, or a list of accounts given as JSON or YAML.

Example:
  bean account create --name Assets:Bank --currency USD --date 2024-01-01
  bean account create --json '[{"name": "Assets:Broker", "currencies": ["HOOL"], "booking": "FIFO"}]'`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runAccountCreate(streamsOf(cmd), args), "failed to create accounts")
	},
}

// accountListCmd represents the account list command.
var accountListCmd = &cobra.Command{
	Use:   "list [ledger-file]",
	Short: "List the accounts of the ledger",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runAccountList(streamsOf(cmd), args), "failed to list accounts")
	},
}

func init() {
	accountCreateOpts.payload.register(accountCreateCmd)
	accountCreateCmd.Flags().StringVarP(&accountCreateOpts.name, "name", "n", "", "account name (e.g. Assets:Bank)")
	accountCreateCmd.Flags().StringSliceVarP(&accountCreateOpts.currencies, "currency", "c", nil, "constraint currencies")
	accountCreateCmd.Flags().StringVarP(&accountCreateOpts.date, "date", "d", "", "open date (YYYY-MM-DD, default today)")
	accountCreateCmd.Flags().StringVar(&accountCreateOpts.booking, "booking", "", "booking method (e.g. FIFO)")
	accountCreateCmd.MarkFlagsMutuallyExclusive("json", "name")
	accountCreateCmd.MarkFlagsMutuallyExclusive("from-file", "name")

	accountListCmd.Flags().StringVar(&accountListFormat, "format", "text", "output format (text or csv)")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
}

func runAccountCreate(s streams, args []string) error {
	var records []beancount.Record
	if accountCreateOpts.payload.given() {
		var err error
		records, err = accountCreateOpts.payload.decode(s.in, beancount.KindOpen, false)
		if err != nil {
			return err
		}
	} else {
		if accountCreateOpts.name == "" {
			return errors.New("--name is required if not using --json or --from-file")
		}
		open, err := converter.NewConverter(time.Now).Account(converter.AccountPayload{
			Name:       accountCreateOpts.name,
			OpenDate:   accountCreateOpts.date,
			Currencies: accountCreateOpts.currencies,
			Booking:    accountCreateOpts.booking,
		})
		if err != nil {
			return err
		}
		records = []beancount.Record{open}
	}
	return insertRecords(s, args, records, insertRequest{operation: "account create"})
}

// accountRow is one line of the account listing.
type accountRow struct {
	Account    string `csv:"account"`
	OpenDate   string `csv:"open_date"`
	CloseDate  string `csv:"close_date"`
	Currencies string `csv:"currencies"`
}

func runAccountList(s streams, args []string) error {
	path, err := ledgerFile(args)
	if err != nil {
		return err
	}
	snap, err := ledger.Load(path)
	if err != nil {
		return err
	}

	rows := make([]accountRow, 0, len(snap.Accounts()))
	for _, name := range snap.Accounts() {
		state, _ := snap.Account(name)
		row := accountRow{
			Account:    name,
			OpenDate:   state.Open.Format(beancount.DateFormat),
			Currencies: strings.Join(state.Currencies, ","),
		}
		if !state.Close.IsZero() {
			row.CloseDate = state.Close.Format(beancount.DateFormat)
		}
		rows = append(rows, row)
	}

	switch accountListFormat {
	case "csv":
		return gocsv.Marshal(rows, s.out)
	case "text":
		w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tOPEN\tCLOSE\tCURRENCIES")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Account, r.OpenDate, r.CloseDate, r.Currencies)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q (must be 'text' or 'csv')", accountListFormat)
	}
}
