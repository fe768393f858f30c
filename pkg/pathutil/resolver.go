// Package pathutil provides centralized path management for the ledger, its
// routing targets and the insertion history database.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/beancount"
)

// PathResolver resolves paths relative to the root ledger file.
type PathResolver struct {
	ledgerFile string
	historyDB  string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerFile is the root ledger file (e.g., ~/accounting/main.beancount)
	LedgerFile string
	// HistoryDB is the path to the SQLite database file for insertion history
	HistoryDB string
}

// New creates a new PathResolver with the given configuration.
// If HistoryDB is empty, it defaults to {ledger dir}/.bean/history.db
func New(config Config) *PathResolver {
	ledgerFile := config.LedgerFile
	if abs, err := filepath.Abs(ledgerFile); err == nil {
		ledgerFile = abs
	}

	dbPath := config.HistoryDB
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(ledgerFile), ".bean", "history.db")
	}

	return &PathResolver{
		ledgerFile: ledgerFile,
		historyDB:  dbPath,
	}
}

// LedgerFile returns the absolute path of the root ledger file.
func (p *PathResolver) LedgerFile() string {
	return p.ledgerFile
}

// LedgerDir returns the directory of the root ledger file.
func (p *PathResolver) LedgerDir() string {
	return filepath.Dir(p.ledgerFile)
}

// HistoryDBPath returns the history database file path.
func (p *PathResolver) HistoryDBPath() string {
	return p.historyDB
}

// Extension returns the extension of the root ledger file, used to name
// directory-mode files.
func (p *PathResolver) Extension() string {
	if ext := filepath.Ext(p.ledgerFile); ext != "" {
		return ext
	}
	return beancount.DefaultExtension
}

// Resolve makes an expanded template absolute. Relative paths are taken from
// the ledger directory. A trailing separator is kept since it marks a
// directory target.
func (p *PathResolver) Resolve(expanded string) string {
	trailing := HasTrailingSeparator(expanded)
	path := expanded
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.LedgerDir(), path)
	}
	path = filepath.Clean(path)
	if trailing {
		path += string(os.PathSeparator)
	}
	return path
}

// Target resolves an expanded template and classifies it.
func (p *PathResolver) Target(expanded string) beancount.Target {
	path := p.Resolve(expanded)
	return beancount.Target{
		Path: filepath.Clean(path),
		Mode: Classify(path),
	}
}

// HistoryExists reports whether the history database has been created.
func (p *PathResolver) HistoryExists() bool {
	info, err := os.Stat(p.HistoryDBPath())
	return err == nil && !info.IsDir()
}

// HasTrailingSeparator reports whether path ends with a path separator.
func HasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator))
}
