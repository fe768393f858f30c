package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/converter"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/inserter"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
)

// errNoPayload is returned when neither --json nor --from-file is given.
var errNoPayload = errors.New("no payload given: use --json or --from-file")

// streams are the standard streams of a command.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func streamsOf(cmd *cobra.Command) streams {
	return streams{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

// payloadOptions are the flags shared by commands that take record payloads.
type payloadOptions struct {
	json     string
	fromFile string
}

func (p *payloadOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.json, "json", "j", "", "JSON object or list of records (or '-' to read from stdin)")
	cmd.Flags().StringVar(&p.fromFile, "from-file", "", "JSON or YAML file of records (or '-' for YAML from stdin)")
	cmd.MarkFlagsMutuallyExclusive("json", "from-file")
}

func (p *payloadOptions) given() bool {
	return p.json != "" || p.fromFile != ""
}

// read returns the payload and its format.
func (p *payloadOptions) read(in io.Reader) ([]byte, converter.Format, error) {
	switch {
	case p.json == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, converter.FormatJSON, nil
	case p.json != "":
		return []byte(p.json), converter.FormatJSON, nil
	case p.fromFile == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, converter.FormatYAML, nil
	case p.fromFile != "":
		data, err := os.ReadFile(p.fromFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read payload file: %w", err)
		}
		return data, converter.FormatFromPath(p.fromFile), nil
	default:
		return nil, "", errNoPayload
	}
}

// decode reads and converts the payload into records.
func (p *payloadOptions) decode(in io.Reader, defaultKind beancount.Kind, draft bool) ([]beancount.Record, error) {
	data, format, err := p.read(in)
	if err != nil {
		return nil, err
	}
	records, err := converter.NewConverter(time.Now).WithDraft(draft).Decode(data, format, defaultKind)
	if err != nil {
		return nil, err
	}
	logger.WithField(logging.FieldCount, len(records)).Debug("Decoded payload")
	return records, nil
}

// insertRequest describes the command inserting records.
type insertRequest struct {
	operation string
	// draft writes records that fail validation.
	draft bool
}

// openInserter builds an Inserter for ledger. The returned function releases
// the history database. A history database that cannot be opened only
// disables history.
func openInserter(ledger string, draft bool) (*inserter.Inserter, func(), error) {
	opts := inserter.Options{
		LedgerFile:      ledger,
		Logger:          logger,
		VerifyRoundTrip: cfg.Verify,
		Draft:           draft,
	}
	release := func() {}

	if cfg.History.Enabled {
		dbPath := cfg.Paths(ledger).HistoryDBPath()
		conn, err := db.Open(dbPath)
		if err != nil {
			logger.WithFields(logrus.Fields{
				logging.FieldFile:  dbPath,
				logging.FieldError: err.Error(),
			}).Warn("Insertion history disabled")
		} else {
			opts.Recorder = inserter.NewHistoryRecorder(db.NewInsertHistory(conn))
			release = func() { _ = conn.Close() }
		}
	}

	ins, err := inserter.New(opts)
	if err != nil {
		release()
		return nil, nil, err
	}
	return ins, release, nil
}

// insertRecords inserts records into the resolved ledger and reports every
// outcome.
func insertRecords(s streams, args []string, records []beancount.Record, req insertRequest) error {
	ledger, err := ledgerFile(args)
	if err != nil {
		return err
	}
	ins, release, err := openInserter(ledger, req.draft)
	if err != nil {
		return err
	}
	defer release()

	outcomes := ins.InsertRecords(records)
	failed := 0
	for _, o := range outcomes {
		if o.Applied() {
			fmt.Fprintf(s.out, "Inserted %s into %s\n", beancount.Describe(o.Record), o.Result.Path)
			if o.Result.Invalid != nil {
				fmt.Fprintf(s.errOut, "Warning: record %d (%s) written as draft: %v\n",
					o.Index+1, beancount.Describe(o.Record), o.Result.Invalid)
			}
			continue
		}
		failed++
		fmt.Fprintf(s.errOut, "Record %d (%s): %v\n", o.Index+1, beancount.Describe(o.Record), o.Err)
	}

	logger.WithFields(logrus.Fields{
		logging.FieldOperation: req.operation,
		logging.FieldCount:     len(outcomes) - failed,
		logging.FieldLedger:    ledger,
	}).Info("Insertion completed")

	if failed > 0 {
		return fmt.Errorf("%d of %d records not inserted", failed, len(outcomes))
	}
	return nil
}

// printRecords writes the canonical text of records without touching the ledger.
func printRecords(out io.Writer, records []beancount.Record) error {
	for i, rec := range records {
		text, err := beancount.Render(rec)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, text)
	}
	return nil
}
