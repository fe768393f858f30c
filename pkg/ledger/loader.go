package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// LoadError is a problem found in a ledger file.
type LoadError struct {
	File    string
	Line    int
	Message string
}

func (e LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// LoadErrors collects every LoadError of a load.
type LoadErrors []LoadError

func (errs LoadErrors) Error() string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	lines := make([]string, 0, len(errs)+1)
	lines = append(lines, fmt.Sprintf("%d errors in ledger:", len(errs)))
	for _, e := range errs {
		lines = append(lines, "  "+e.Error())
	}
	return strings.Join(lines, "\n")
}

// Load reads the ledger rooted at path and every file it includes.
//
// Include paths are relative to the including file and may be glob patterns.
// A pattern that matches nothing is not an error. Transactions written with
// syntax the package does not model are skipped rather than reported. When
// the ledger has problems, Load returns the partial snapshot together with a
// LoadErrors.
func Load(path string) (*Snapshot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("ledger file: %w", err)
	}

	l := newLoader(abs)
	l.loadFile(abs)
	return l.finish()
}

// LoadReader loads a root ledger read from r. name is used for error
// messages and as the base for relative includes.
func LoadReader(name string, r io.Reader) (*Snapshot, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path %s: %w", name, err)
	}
	l := newLoader(abs)
	l.loadFrom(abs, r)
	return l.finish()
}

// ParseRecords parses ledger text and returns its open, commodity and
// transaction records. Includes are not followed. Unlike Load, every
// transaction must be fully understood.
func ParseRecords(name, text string) ([]beancount.Record, error) {
	entries, errs := parse(name, strings.NewReader(text), false)
	if len(errs) > 0 {
		return nil, LoadErrors(errs)
	}
	var records []beancount.Record
	for _, e := range entries {
		if e.record != nil {
			records = append(records, e.record)
		}
	}
	return records, nil
}

type loader struct {
	snap     *Snapshot
	errs     LoadErrors
	active   map[string]bool
	loaded   map[string]bool
	position int
}

func newLoader(root string) *loader {
	return &loader{
		snap:   newSnapshot(root),
		active: make(map[string]bool),
		loaded: make(map[string]bool),
	}
}

func (l *loader) finish() (*Snapshot, error) {
	if len(l.errs) > 0 {
		return l.snap, l.errs
	}
	return l.snap, nil
}

func (l *loader) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		l.errs = append(l.errs, LoadError{File: path, Message: err.Error()})
		return
	}
	defer f.Close()
	l.loadFrom(path, f)
}

func (l *loader) loadFrom(path string, r io.Reader) {
	l.active[path] = true
	l.loaded[path] = true
	defer delete(l.active, path)

	l.snap.files = append(l.snap.files, path)
	entries, errs := parse(path, r, true)
	l.errs = append(l.errs, errs...)
	for _, e := range entries {
		l.apply(path, e)
	}
}

func (l *loader) apply(file string, e *entry) {
	l.position++
	fail := func(format string, args ...any) {
		l.errs = append(l.errs, LoadError{File: file, Line: e.line, Message: fmt.Sprintf(format, args...)})
	}

	switch e.kind {
	case entryOption:
		l.snap.options[e.name] = append(l.snap.options[e.name], e.value)
	case entryInclude:
		l.include(file, e, fail)
	case entryOpen:
		o := e.record.(*beancount.Open)
		if _, exists := l.snap.accounts[o.Account]; exists {
			fail("duplicate open directive for %s", o.Account)
			return
		}
		l.snap.accounts[o.Account] = AccountState{
			Name:       o.Account,
			Open:       o.Date,
			Currencies: append([]string(nil), o.Currencies...),
		}
		l.snap.records = append(l.snap.records, o)
	case entryClose:
		state, exists := l.snap.accounts[e.account]
		if !exists {
			fail("close directive for unopened account %s", e.account)
			return
		}
		if !state.Close.IsZero() {
			fail("duplicate close directive for %s", e.account)
			return
		}
		state.Close = e.date
		l.snap.accounts[e.account] = state
	case entryCommodity:
		c := e.record.(*beancount.Commodity)
		if _, exists := l.snap.commodities[c.Currency]; exists {
			fail("duplicate commodity directive for %s", c.Currency)
			return
		}
		l.snap.commodities[c.Currency] = c
		l.snap.records = append(l.snap.records, c)
	case entryCustom:
		c := e.custom
		c.Position = l.position
		l.snap.custom = append(l.snap.custom, c)
	case entryTransaction:
		l.snap.records = append(l.snap.records, e.record)
	}
}

func (l *loader) include(file string, e *entry, fail func(string, ...any)) {
	pattern := e.path
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(filepath.Dir(file), pattern)
	}

	var matches []string
	if strings.ContainsAny(pattern, "*?[") {
		var err error
		matches, err = filepath.Glob(pattern)
		if err != nil {
			fail("invalid include pattern %q: %v", e.path, err)
			return
		}
		sort.Strings(matches)
	} else {
		if _, err := os.Stat(pattern); errors.Is(err, os.ErrNotExist) {
			fail("included file %q does not exist", e.path)
			return
		}
		matches = []string{pattern}
	}

	for _, m := range matches {
		m = filepath.Clean(m)
		switch {
		case l.active[m]:
			fail("include cycle: %s includes %s", file, m)
		case l.loaded[m]:
			fail("file %s is included more than once", m)
		default:
			l.snap.includes[file] = append(l.snap.includes[file], m)
			l.loadFile(m)
		}
	}
}
