// Package cmd provides CLI commands for bean.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/config"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
)

var (
	envFile   string
	ledgerArg string
	debug     bool

	v      = viper.New()
	cfg    = &config.Config{}
	logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bean",
	Short: "Add records to a Beancount ledger",
	Long: `bean adds transactions, account openings and commodity declarations
to a Beancount ledger without disturbing its existing content.

Records are validated against the loaded ledger and written to the file
named by the ledger's own routing directives:

  2024-01-01 custom "cli-config" "new_transaction_file" "{year}/inbox.beancount"
  2024-01-01 custom "cli-config" "new_account_file" "accounts.beancount"
  2024-01-01 custom "cli-config" "new_commodity_file" "commodities/"

A path ending in a separator is a directory: every record gets its own
timestamp-named file there. Without a directive, records are appended to
the ledger file itself.

Example:
  bean tx add --json '{"date": "2024-03-19", "narration": "Coffee", "postings": [...]}'
  bean account create --name Assets:Bank --currency USD
  bean check`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		exitOnError(setup(cmd.ErrOrStderr()), "failed to load configuration")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env", "", "env file (default is .env)")
	flags.StringVarP(&ledgerArg, "file", "f", "", "ledger file (default $BEANCOUNT_FILE, $BEANCOUNT_PATH/main.beancount or ./main.beancount)")
	flags.BoolVar(&debug, "debug", false, "enable debug logging and round-trip checks")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	flags.Bool("history", true, "record insertions in the history database")
	flags.String("history-db", "", "history database (default is {ledger dir}/.bean/history.db)")
	flags.Bool("verify", false, "parse every rendered record back before writing it")

	bindFlag(config.KeyLogLevel, "log-level")
	bindFlag(config.KeyLogFormat, "log-format")
	bindFlag(config.KeyHistory, "history")
	bindFlag(config.KeyHistoryDB, "history-db")
	bindFlag(config.KeyVerify, "verify")

	// Add subcommands
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(commodityCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(treeCmd)
}

func bindFlag(key, name string) {
	cobra.CheckErr(v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)))
}

// setup loads the configuration and builds the logger.
func setup(logOutput io.Writer) error {
	c, err := config.Load(v, envFile)
	if err != nil {
		return err
	}

	level := c.Log.Level
	if debug {
		level = logrus.DebugLevel.String()
		c.Verify = true
	}
	l := logging.New(level, c.Log.Format)
	l.SetOutput(logOutput)

	cfg = c
	logger = l
	return nil
}

// ledgerFile resolves the ledger from the optional positional argument,
// --file and the environment.
func ledgerFile(args []string) (string, error) {
	explicit := ledgerArg
	if len(args) > 0 && args[0] != "" {
		explicit = args[0]
	}
	path, err := cfg.ResolveLedger(explicit)
	if err != nil {
		return "", err
	}
	logger.WithField(logging.FieldLedger, path).Debug("Using ledger")
	return path, nil
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		logger.WithField(logging.FieldError, err.Error()).Debug(msg)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
