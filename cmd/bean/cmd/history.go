package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
)

var historyOpts struct {
	limit  int
	kind   string
	format string
}

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history [ledger-file]",
	Short: "Display insertion history",
	Long: `Display statistics and the most recent records inserted by bean.

Example:
  bean history
  bean history --kind transaction --limit 50
  bean history --format csv > history.csv`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runHistory(streamsOf(cmd), args), "failed to read history")
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyOpts.limit, "limit", 10, "number of recent insertions to show (0 for all)")
	historyCmd.Flags().StringVar(&historyOpts.kind, "kind", "", "only show one record kind (transaction, open, commodity)")
	historyCmd.Flags().StringVar(&historyOpts.format, "format", "text", "output format (text or csv)")
}

func runHistory(s streams, args []string) error {
	if historyOpts.format != "text" && historyOpts.format != "csv" {
		return fmt.Errorf("unknown format %q (must be 'text' or 'csv')", historyOpts.format)
	}
	path, err := ledgerFile(args)
	if err != nil {
		return err
	}

	paths := cfg.Paths(path)
	dbPath := paths.HistoryDBPath()
	if !paths.HistoryExists() {
		logger.WithField(logging.FieldFile, dbPath).Debug("No history database")
		return printHistory(s, db.Stats{ByKind: map[string]int{}}, nil)
	}

	logger.WithField(logging.FieldFile, dbPath).Debug("Opening database")
	conn, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	history := db.NewInsertHistory(conn)

	var records []db.InsertRecord
	if historyOpts.kind != "" {
		records, err = history.ListByKind(historyOpts.kind)
		if err == nil && historyOpts.limit > 0 && len(records) > historyOpts.limit {
			records = records[:historyOpts.limit]
		}
	} else {
		records, err = history.ListRecent(historyOpts.limit)
	}
	if err != nil {
		return err
	}

	stats, err := history.GetStats()
	if err != nil {
		return err
	}
	return printHistory(s, *stats, records)
}

func printHistory(s streams, stats db.Stats, records []db.InsertRecord) error {
	if historyOpts.format == "csv" {
		return db.ExportCSV(s.out, records)
	}

	fmt.Fprintln(s.out, "=== Insertion Statistics ===")
	fmt.Fprintf(s.out, "Total insertions:      %d\n", stats.Total)
	for _, kind := range []string{"transaction", "open", "commodity"} {
		fmt.Fprintf(s.out, "  %-20s %d\n", kind+":", stats.ByKind[kind])
	}
	fmt.Fprintf(s.out, "Files written:         %d\n", stats.Files)
	if stats.LastInsert.Valid {
		fmt.Fprintf(s.out, "Last insertion:        %s (%s)\n", stats.LastInsert.String, stats.LastRecord)
	} else {
		fmt.Fprintf(s.out, "Last insertion:        (never)\n")
	}

	if len(records) == 0 {
		return nil
	}
	fmt.Fprintln(s.out)
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINSERTED\tRECORD\tFILE")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.InsertedAt.Local().Format("2006-01-02 15:04:05"), r.Summary, r.FilePath)
	}
	return w.Flush()
}
