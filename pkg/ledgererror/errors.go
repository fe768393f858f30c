// Package ledgererror defines the error taxonomy of the record insertion pipeline.
//
// Every stage of the pipeline fails fast with one of these types so that the
// calling layer can decide how to present the failure:
//
//   - ConfigurationError: a routing directive or path template is broken.
//   - ValidationError: the record conflicts with the loaded ledger.
//   - FilesystemError: the write could not be completed.
//   - RenderMismatchError: the renderer produced text that does not parse back.
package ledgererror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNameCollision is returned when a directory-mode file name is already taken.
var ErrNameCollision = errors.New("file name collision")

// ErrNotApplied marks batch entries that were skipped because the batch aborted.
var ErrNotApplied = errors.New("record not applied")

// ConfigurationError represents a broken routing setup.
// It is batch-global: a batch stops at the first ConfigurationError.
type ConfigurationError struct {
	Key      string // routing key, e.g. new_transaction_file
	Template string // offending template, if any
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Key != "" {
		fmt.Fprintf(&sb, " in %s", e.Key)
	}
	if e.Template != "" {
		fmt.Fprintf(&sb, " (template %q)", e.Template)
	}
	fmt.Fprintf(&sb, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ViolationCode identifies the kind of a validation violation.
type ViolationCode string

const (
	CodeAccountNotOpen     ViolationCode = "account_not_open"
	CodeAccountClosed      ViolationCode = "account_closed"
	CodeAccountExists      ViolationCode = "account_exists"
	CodeCommodityExists    ViolationCode = "commodity_exists"
	CodeCurrencyUndeclared ViolationCode = "currency_undeclared"
	CodeCurrencyConstraint ViolationCode = "currency_constraint"
	CodeUnbalanced         ViolationCode = "unbalanced"
	CodeInvalidSyntax      ViolationCode = "invalid_syntax"
	CodeMissingField       ViolationCode = "missing_field"
)

// Violation is a single problem found while validating a record.
type Violation struct {
	Code    ViolationCode
	Subject string // account, currency or field the violation is about
	Message string
}

func (v Violation) String() string {
	return v.Message
}

// ValidationError aggregates every violation found for a record.
type ValidationError struct {
	Record     string // short description of the record
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Record != "" {
		fmt.Fprintf(&sb, "%s failed validation:", e.Record)
	} else {
		sb.WriteString("record failed validation:")
	}
	for _, v := range e.Violations {
		sb.WriteString("\n- ")
		sb.WriteString(v.Message)
	}
	return sb.String()
}

// Subjects returns the subjects of all violations in order.
func (e *ValidationError) Subjects() []string {
	subjects := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		subjects = append(subjects, v.Subject)
	}
	return subjects
}

// FilesystemError represents a failed write, carrying the attempted path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// RenderMismatchError signals a renderer bug: the rendered text does not
// parse back to a record equal to the input.
type RenderMismatchError struct {
	Rendered string
	Reason   string
	Err      error
}

func (e *RenderMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rendered record does not round-trip: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("rendered record does not round-trip: %s", e.Reason)
}

func (e *RenderMismatchError) Unwrap() error {
	return e.Err
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
