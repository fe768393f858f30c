package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
)

// MetaLastInsert is the metadata key holding the path of the last written record.
const MetaLastInsert = "last_insert_path"

// InsertRecord represents an insertion history row.
type InsertRecord struct {
	ID         int64
	Kind       string
	RecordDate string
	Summary    string
	FilePath   string
	TargetMode string
	RoutingKey string
	LedgerFile string
	InsertedAt time.Time
}

// InsertHistory manages insertion history operations.
type InsertHistory struct {
	conn *Connection
}

// NewInsertHistory creates a new InsertHistory instance.
func NewInsertHistory(conn *Connection) *InsertHistory {
	return &InsertHistory{conn: conn}
}

// Record stores one insertion and remembers its path as the last insert.
func (h *InsertHistory) Record(record InsertRecord) (int64, error) {
	var id int64
	err := h.conn.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO insert_history (kind, record_date, summary, file_path, target_mode, routing_key, ledger_file)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			record.Kind,
			record.RecordDate,
			record.Summary,
			record.FilePath,
			record.TargetMode,
			record.RoutingKey,
			record.LedgerFile,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.Exec(upsertMetadata, MetaLastInsert, record.FilePath)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record insertion: %w", err)
	}
	return id, nil
}

const selectRecords = `
	SELECT id, kind, record_date, summary, file_path, target_mode, routing_key, ledger_file, inserted_at
	FROM insert_history
`

// ListRecent returns the most recent insertions, newest first. A limit of 0
// returns all of them.
func (h *InsertHistory) ListRecent(limit int) ([]InsertRecord, error) {
	query := selectRecords + ` ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return h.list(query, args...)
}

// ListByKind returns the insertions of one record kind, newest first.
func (h *InsertHistory) ListByKind(kind string) ([]InsertRecord, error) {
	return h.list(selectRecords+` WHERE kind = ? ORDER BY id DESC`, kind)
}

func (h *InsertHistory) list(query string, args ...any) ([]InsertRecord, error) {
	rows, err := h.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list insertions: %w", err)
	}
	defer rows.Close()

	var records []InsertRecord
	for rows.Next() {
		var r InsertRecord
		if err := rows.Scan(
			&r.ID,
			&r.Kind,
			&r.RecordDate,
			&r.Summary,
			&r.FilePath,
			&r.TargetMode,
			&r.RoutingKey,
			&r.LedgerFile,
			&r.InsertedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insertion: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list insertions: %w", err)
	}
	return records, nil
}

// Stats represents insertion statistics.
type Stats struct {
	Total      int
	ByKind     map[string]int
	Files      int
	LastInsert sql.NullString
	LastRecord string
}

// GetStats retrieves insertion statistics.
func (h *InsertHistory) GetStats() (*Stats, error) {
	stats := Stats{ByKind: make(map[string]int)}

	rows, err := h.conn.Query(`SELECT kind, COUNT(*) FROM insert_history GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count insertions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan insertion count: %w", err)
		}
		stats.ByKind[kind] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count insertions: %w", err)
	}

	err = h.conn.QueryRow(`SELECT COUNT(DISTINCT file_path) FROM insert_history`).Scan(&stats.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	err = h.conn.QueryRow(`SELECT MAX(inserted_at) FROM insert_history`).Scan(&stats.LastInsert)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last insertion time: %w", err)
	}

	if stats.LastRecord, err = h.GetMetadata(MetaLastInsert); err != nil {
		return nil, err
	}
	return &stats, nil
}

const upsertMetadata = `
	INSERT INTO history_metadata (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
`

// GetMetadata retrieves a metadata value. A missing key yields "".
func (h *InsertHistory) GetMetadata(key string) (string, error) {
	var value string
	err := h.conn.QueryRow(`SELECT value FROM history_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata sets a metadata value.
func (h *InsertHistory) SetMetadata(key, value string) error {
	if _, err := h.conn.Exec(upsertMetadata, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}

// csvRow is the CSV layout of an insertion.
type csvRow struct {
	ID         int64  `csv:"id"`
	InsertedAt string `csv:"inserted_at"`
	Kind       string `csv:"kind"`
	RecordDate string `csv:"record_date"`
	Summary    string `csv:"summary"`
	FilePath   string `csv:"file_path"`
	TargetMode string `csv:"target_mode"`
	RoutingKey string `csv:"routing_key"`
}

// ExportCSV writes records as CSV with a header line.
func ExportCSV(w io.Writer, records []InsertRecord) error {
	rows := make([]csvRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, csvRow{
			ID:         r.ID,
			InsertedAt: r.InsertedAt.UTC().Format(time.RFC3339),
			Kind:       r.Kind,
			RecordDate: r.RecordDate,
			Summary:    r.Summary,
			FilePath:   r.FilePath,
			TargetMode: r.TargetMode,
			RoutingKey: r.RoutingKey,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
