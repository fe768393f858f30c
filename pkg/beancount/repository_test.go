package beancount

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledgererror"
)

const record = "2024-03-19 * \"Coffee\"\n  Expenses:Food   4.50 USD\n  Assets:Cash    -4.50 USD\n"

func TestSeparator(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{"empty file", "", ""},
		{"no trailing newline", "2024-01-01 open Assets:Cash", "\n\n"},
		{"trailing newline", "2024-01-01 open Assets:Cash\n", "\n"},
		{"trailing blank line", "2024-01-01 open Assets:Cash\n\n", ""},
		{"trailing whitespace line", "2024-01-01 open Assets:Cash\n  \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Separator(tt.existing))
		})
	}
}

func TestAppendRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024", "inbox.beancount")
	repo := NewFileSystemRepository(RepositoryConfig{})

	require.NoError(t, repo.AppendRecord(path, record))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, record, string(content), "first record has no leading blank line")

	require.NoError(t, repo.AppendRecord(path, record))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, record+"\n"+record, string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestAppendRecordKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.beancount")
	existing := "; my ledger\n2020-01-01 open Assets:Cash ; cash\n\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0600))

	repo := NewFileSystemRepository(RepositoryConfig{})
	require.NoError(t, repo.AppendRecord(path, record))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing+record, string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestCreateRecordFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	now := time.Date(2024, 3, 19, 10, 20, 30, 123456789, time.UTC)
	repo := NewFileSystemRepository(RepositoryConfig{Clock: func() time.Time { return now }})

	path, err := repo.CreateRecordFile(dir, record)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-19T102030.123456789Z.beancount"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, record, string(content))

	// Same instant: the second write must not overwrite the first.
	_, err = repo.CreateRecordFile(dir, "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererror.ErrNameCollision))
	var fsErr *ledgererror.FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, path, fsErr.Path)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, record, string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateRecordFileDistinctInstants(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 19, 10, 20, 30, 0, time.UTC)
	tick := 0
	repo := NewFileSystemRepository(RepositoryConfig{
		Extension: "bean",
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick))
		},
	})

	first, err := repo.CreateRecordFile(dir, record)
	require.NoError(t, err)
	second, err := repo.CreateRecordFile(dir, record)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, ".bean", filepath.Ext(second))
}

func TestInsertDispatchesOnMode(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileSystemRepository(RepositoryConfig{})

	path, err := repo.Insert(record, Target{Path: filepath.Join(dir, "a.beancount"), Mode: ModeSingleFile})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.beancount"), path)

	path, err = repo.Insert(record, Target{Path: filepath.Join(dir, "inbox"), Mode: ModeDirectory})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inbox"), filepath.Dir(path))
}

func TestAppendRecordFailureLeavesFileUntouched(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "main.beancount")
	require.NoError(t, os.WriteFile(path, []byte("2020-01-01 open Assets:Cash\n"), 0644))
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	repo := NewFileSystemRepository(RepositoryConfig{})
	err := repo.AppendRecord(path, record)
	require.Error(t, err)
	var fsErr *ledgererror.FilesystemError
	require.ErrorAs(t, err, &fsErr)

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "2020-01-01 open Assets:Cash\n", string(content))
}
