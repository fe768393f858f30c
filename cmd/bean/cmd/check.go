package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check [ledger-file]",
	Short: "Validate the ledger file",
	Long: `Load the ledger with all of its includes and report every problem
with its file and line.

Example:
  bean check
  bean check ~/books/main.beancount`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runCheck(streamsOf(cmd), args), "ledger check failed")
	},
}

func runCheck(s streams, args []string) error {
	path, err := ledgerFile(args)
	if err != nil {
		return err
	}

	snap, err := ledger.Load(path)
	var loadErrs ledger.LoadErrors
	if errors.As(err, &loadErrs) {
		for _, e := range loadErrs {
			fmt.Fprintln(s.errOut, e.Error())
		}
		return fmt.Errorf("%d errors found", len(loadErrs))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "No errors found (%d files, %d accounts, %d commodities).\n",
		len(snap.Files()), len(snap.Accounts()), len(snap.Commodities()))
	if title, ok := snap.Option("title"); ok {
		fmt.Fprintf(s.out, "Title: %s\n", title)
	}
	if currencies := snap.OperatingCurrencies(); len(currencies) > 0 {
		fmt.Fprintf(s.out, "Operating currencies: %s\n", strings.Join(currencies, ", "))
	}
	return nil
}
