package beancount

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

// DefaultExtension is the file extension of ledger files.
const DefaultExtension = ".beancount"

// timestampLayout names directory-mode files. Colons are left out so the
// names stay valid on every filesystem.
const timestampLayout = "2006-01-02T150405.000000000Z"

// Mode tells how a target path receives records.
type Mode int

const (
	// ModeSingleFile appends records to one shared file.
	ModeSingleFile Mode = iota
	// ModeDirectory writes every record to its own file inside a directory.
	ModeDirectory
)

func (m Mode) String() string {
	switch m {
	case ModeSingleFile:
		return "single-file"
	case ModeDirectory:
		return "directory"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Target is a resolved insertion target.
type Target struct {
	Path string
	Mode Mode
}

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// Insert writes rendered record text to the target and returns the written path.
	Insert(text string, target Target) (string, error)

	// AppendRecord appends rendered record text to a single file.
	AppendRecord(filePath, text string) error

	// CreateRecordFile writes rendered record text to a new file inside dir.
	CreateRecordFile(dir, text string) (string, error)
}

// RepositoryConfig configures a FileSystemRepository.
type RepositoryConfig struct {
	// Extension of files created in directory mode (default ".beancount").
	Extension string
	// Clock returns the time used to name directory-mode files (default time.Now).
	Clock func() time.Time
	// FileMode for newly created files (default 0644).
	FileMode os.FileMode
	// DirMode for newly created directories (default 0755).
	DirMode os.FileMode
}

// FileSystemRepository is a file system implementation of Repository.
// Every write goes to a temporary file in the target directory and is then
// renamed into place, so a record is either fully present or absent.
type FileSystemRepository struct {
	ext      string
	clock    func() time.Time
	fileMode os.FileMode
	dirMode  os.FileMode
}

var _ Repository = (*FileSystemRepository)(nil)

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(cfg RepositoryConfig) *FileSystemRepository {
	r := &FileSystemRepository{
		ext:      cfg.Extension,
		clock:    cfg.Clock,
		fileMode: cfg.FileMode,
		dirMode:  cfg.DirMode,
	}
	if r.ext == "" {
		r.ext = DefaultExtension
	}
	if !strings.HasPrefix(r.ext, ".") {
		r.ext = "." + r.ext
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.fileMode == 0 {
		r.fileMode = 0644
	}
	if r.dirMode == 0 {
		r.dirMode = 0755
	}
	return r
}

// Insert dispatches on the target mode.
func (r *FileSystemRepository) Insert(text string, target Target) (string, error) {
	switch target.Mode {
	case ModeSingleFile:
		if err := r.AppendRecord(target.Path, text); err != nil {
			return "", err
		}
		return target.Path, nil
	case ModeDirectory:
		return r.CreateRecordFile(target.Path, text)
	default:
		return "", fmt.Errorf("unknown target mode %v", target.Mode)
	}
}

// AppendRecord appends a record to a file, creating the file and its parent
// directories if needed. Records end up separated by exactly one blank line,
// and an empty file never gets a leading blank line.
func (r *FileSystemRepository) AppendRecord(filePath, text string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, r.dirMode); err != nil {
		return &ledgererror.FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	perm := r.fileMode
	existing, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if info, statErr := os.Stat(filePath); statErr == nil {
			perm = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		// new file
	default:
		return &ledgererror.FilesystemError{Op: "read", Path: filePath, Err: err}
	}

	content := make([]byte, 0, len(existing)+len(text)+2)
	content = append(content, existing...)
	content = append(content, Separator(string(existing))...)
	content = append(content, withTrailingNewline(text)...)

	return r.writeAtomic(filePath, content, perm, false)
}

// CreateRecordFile writes a record to a new timestamp-named file in dir.
// An existing file with the same name is never overwritten.
func (r *FileSystemRepository) CreateRecordFile(dir, text string) (string, error) {
	if err := os.MkdirAll(dir, r.dirMode); err != nil {
		return "", &ledgererror.FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	name := r.clock().UTC().Format(timestampLayout) + r.ext
	filePath := filepath.Join(dir, name)
	if err := r.writeAtomic(filePath, []byte(withTrailingNewline(text)), r.fileMode, true); err != nil {
		return "", err
	}
	return filePath, nil
}

// Separator returns what must be written between existing file content and
// a new record.
func Separator(existing string) string {
	switch {
	case existing == "":
		return ""
	case !strings.HasSuffix(existing, "\n"):
		return "\n\n"
	case endsWithBlankLine(existing):
		return ""
	default:
		return "\n"
	}
}

func endsWithBlankLine(s string) bool {
	body := strings.TrimSuffix(s, "\n")
	last := body[strings.LastIndex(body, "\n")+1:]
	return strings.TrimSpace(last) == ""
}

func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// writeAtomic writes data to a temporary file next to dest and moves it into
// place. With noClobber the move fails with ErrNameCollision if dest exists.
func (r *FileSystemRepository) writeAtomic(dest string, data []byte, perm os.FileMode, noClobber bool) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &ledgererror.FilesystemError{Op: "create temporary file", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &ledgererror.FilesystemError{Op: "write", Path: dest, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &ledgererror.FilesystemError{Op: "sync", Path: dest, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &ledgererror.FilesystemError{Op: "close", Path: dest, Err: err}
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return &ledgererror.FilesystemError{Op: "chmod", Path: dest, Err: err}
	}

	if noClobber {
		// A hard link fails instead of replacing an existing file.
		if err = os.Link(tmpPath, dest); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return &ledgererror.FilesystemError{Op: "create", Path: dest, Err: ledgererror.ErrNameCollision}
			}
			return &ledgererror.FilesystemError{Op: "create", Path: dest, Err: err}
		}
		_ = os.Remove(tmpPath)
	} else if err = os.Rename(tmpPath, dest); err != nil {
		return &ledgererror.FilesystemError{Op: "rename", Path: dest, Err: err}
	}

	syncDir(dir)
	return nil
}

// syncDir flushes directory metadata where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
