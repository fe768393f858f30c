// Package inserter composes validation, routing, rendering and writing into
// the single entry point used to add records to a ledger.
package inserter

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/pathutil"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/routing"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/validation"
)

// LoaderFunc loads a ledger snapshot from the root ledger file.
type LoaderFunc func(ledgerFile string) (*ledger.Snapshot, error)

// Options configures an Inserter.
type Options struct {
	// LedgerFile is the root ledger file. Required.
	LedgerFile string
	// Loader defaults to ledger.Load.
	Loader LoaderFunc
	// Repository defaults to a FileSystemRepository using the ledger's extension.
	Repository beancount.Repository
	// Recorder is optional.
	Recorder Recorder
	// Logger defaults to a discarding logger.
	Logger logrus.FieldLogger
	// VerifyRoundTrip parses every rendered record back before writing it.
	VerifyRoundTrip bool
	// Draft writes records that fail validation and logs the violations as
	// warnings. Routing and rendering failures still stop the record.
	Draft bool
}

// Inserter writes records to the file their routing directive names.
type Inserter struct {
	paths    *pathutil.PathResolver
	load     LoaderFunc
	repo     beancount.Repository
	recorder Recorder
	logger   logrus.FieldLogger
	verify   bool
	draft    bool
}

// Result describes a written record.
type Result struct {
	Path string
	Mode beancount.Mode
	Text string
	// Directive is nil when the ledger declares no routing for the record kind.
	Directive *routing.Directive
	// Invalid is the validation error of a draft record written anyway.
	Invalid error
}

// Outcome is the result of one record of a batch.
type Outcome struct {
	Index  int
	Record beancount.Record
	Result *Result
	Err    error
}

// Applied reports whether the record was written.
func (o Outcome) Applied() bool {
	return o.Err == nil
}

// New creates an Inserter.
func New(opts Options) (*Inserter, error) {
	if opts.LedgerFile == "" {
		return nil, errors.New("ledger file is required")
	}

	paths := pathutil.New(pathutil.Config{LedgerFile: opts.LedgerFile})
	ins := &Inserter{
		paths:    paths,
		load:     opts.Loader,
		repo:     opts.Repository,
		recorder: opts.Recorder,
		logger:   logging.OrDiscard(opts.Logger),
		verify:   opts.VerifyRoundTrip,
		draft:    opts.Draft,
	}
	if ins.load == nil {
		ins.load = ledger.Load
	}
	if ins.repo == nil {
		ins.repo = beancount.NewFileSystemRepository(beancount.RepositoryConfig{
			Extension: paths.Extension(),
		})
	}
	return ins, nil
}

// LedgerFile returns the absolute root ledger file.
func (i *Inserter) LedgerFile() string {
	return i.paths.LedgerFile()
}

// InsertRecord validates rec against a fresh snapshot of the ledger,
// resolves its target and appends its canonical text there. Nothing is
// written when any stage fails, except that a draft Inserter writes invalid
// records and reports the violations in Result.Invalid.
func (i *Inserter) InsertRecord(rec beancount.Record) (*Result, error) {
	if rec == nil {
		return nil, errors.New("record is nil")
	}
	log := i.logger.WithFields(logrus.Fields{
		logging.FieldRecordKind: rec.Kind(),
		logging.FieldRecord:     beancount.Describe(rec),
	})

	snap, err := i.load(i.paths.LedgerFile())
	if err != nil {
		return nil, &ledgererror.ConfigurationError{Reason: "failed to load ledger", Err: err}
	}

	invalid := validation.Validate(rec, snap).Err(rec)
	switch {
	case invalid == nil:
		log.Debug("Record is valid")
	case i.draft:
		log.WithField(logging.FieldError, invalid.Error()).Warn("Writing draft record that fails validation")
	default:
		return nil, invalid
	}

	target, directive, err := i.target(snap, rec)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(logrus.Fields{
		logging.FieldFile:       target.Path,
		logging.FieldTargetMode: target.Mode.String(),
	})
	log.Debug("Resolved insertion target")

	text, err := beancount.Render(rec)
	if err != nil {
		return nil, err
	}
	if i.verify {
		if err := VerifyRoundTrip(rec, text); err != nil {
			return nil, err
		}
	}

	path, err := i.repo.Insert(text, target)
	if err != nil {
		return nil, err
	}
	log.WithField(logging.FieldFile, path).Info("Record inserted")

	result := &Result{Path: path, Mode: target.Mode, Text: text, Directive: directive, Invalid: invalid}
	i.record(log, rec, result)
	return result, nil
}

// InsertRecords inserts records one after another and returns one outcome
// per record. A failing record does not stop the batch unless the failure is
// a ConfigurationError; the remaining records then fail with ErrNotApplied.
func (i *Inserter) InsertRecords(recs []beancount.Record) []Outcome {
	outcomes := make([]Outcome, len(recs))
	aborted := false
	for idx, rec := range recs {
		outcomes[idx] = Outcome{Index: idx, Record: rec}
		if aborted {
			outcomes[idx].Err = ledgererror.ErrNotApplied
			continue
		}

		result, err := i.InsertRecord(rec)
		outcomes[idx].Result = result
		outcomes[idx].Err = err
		if err == nil {
			continue
		}
		i.logger.WithFields(logrus.Fields{
			logging.FieldIndex: idx,
			logging.FieldError: err.Error(),
		}).Debug("Record not inserted")
		if ledgererror.IsConfiguration(err) {
			aborted = true
		}
	}
	return outcomes
}

// Target returns where rec would be written, without validating or writing it.
func (i *Inserter) Target(rec beancount.Record) (beancount.Target, *routing.Directive, error) {
	snap, err := i.load(i.paths.LedgerFile())
	if err != nil {
		return beancount.Target{}, nil, &ledgererror.ConfigurationError{Reason: "failed to load ledger", Err: err}
	}
	return i.target(snap, rec)
}

// target resolves the routing directive for rec. Without one, records are
// appended to the root ledger file.
func (i *Inserter) target(snap *ledger.Snapshot, rec beancount.Record) (beancount.Target, *routing.Directive, error) {
	directive, ok, err := routing.Resolve(snap, rec.Kind())
	if err != nil {
		return beancount.Target{}, nil, err
	}
	if !ok {
		return beancount.Target{Path: i.paths.LedgerFile(), Mode: beancount.ModeSingleFile}, nil, nil
	}
	i.logger.WithFields(logrus.Fields{
		logging.FieldRoutingKey: directive.Key,
		logging.FieldTemplate:   directive.Template,
	}).Debug("Using routing directive")

	expanded, err := pathutil.Expand(directive.Template, rec)
	if err != nil {
		var cfgErr *ledgererror.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Key == "" {
			cfgErr.Key = directive.Key
		}
		return beancount.Target{}, nil, err
	}
	return i.paths.Target(expanded), &directive, nil
}

func (i *Inserter) record(log logrus.FieldLogger, rec beancount.Record, result *Result) {
	if i.recorder == nil {
		return
	}
	insertion := Insertion{
		Record:     rec,
		Path:       result.Path,
		Mode:       result.Mode,
		LedgerFile: i.paths.LedgerFile(),
	}
	if result.Directive != nil {
		insertion.RoutingKey = result.Directive.Key
	}
	if err := i.recorder.RecordInsertion(insertion); err != nil {
		log.WithField(logging.FieldError, err.Error()).Warn("Failed to record insertion history")
	}
}

// VerifyRoundTrip parses text and checks that it yields exactly rec.
func VerifyRoundTrip(rec beancount.Record, text string) error {
	parsed, err := ledger.ParseRecords("<rendered>", text)
	if err != nil {
		return &ledgererror.RenderMismatchError{Rendered: text, Reason: "rendered text does not parse", Err: err}
	}
	if len(parsed) != 1 {
		return &ledgererror.RenderMismatchError{
			Rendered: text,
			Reason:   fmt.Sprintf("expected one record, parsed %d", len(parsed)),
		}
	}
	if err := beancount.Compare(rec, parsed[0]); err != nil {
		return &ledgererror.RenderMismatchError{Rendered: text, Reason: "parsed record differs", Err: err}
	}
	return nil
}
