package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverNameConstant             = "sqlite"
	databaseDirectoryNameConstant        = "tokenaudit"
	databaseFileNameConstant             = "tokenaudit.db"
	databaseOpenErrorTemplateConstant    = "unable to open history database %s: %w"
	databaseMigrateErrorTemplateConstant = "unable to prepare history schema: %w"
	recordInsertErrorTemplateConstant    = "unable to record audit run: %w"
	recordListErrorTemplateConstant      = "unable to list audit runs: %w"
	recordedAtColumnLayoutConstant       = time.RFC3339Nano

	createRunsTableStatementConstant = `CREATE TABLE IF NOT EXISTS audit_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	total_tokens INTEGER NOT NULL,
	files_counted INTEGER NOT NULL,
	metric REAL NOT NULL,
	details TEXT NOT NULL DEFAULT ''
)`
	insertRunStatementConstant = `INSERT INTO audit_runs
	(recorded_at, kind, subject, total_tokens, files_counted, metric, details)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	listRunsStatementConstant = `SELECT id, recorded_at, kind, subject, total_tokens, files_counted, metric, details
	FROM audit_runs ORDER BY recorded_at DESC, id DESC LIMIT ?`
)

// RunKind distinguishes the audit flavors stored in history.
type RunKind string

// Supported run kinds.
const (
	RunKindCount   RunKind = "count"
	RunKindSession RunKind = "session"
)

// RunRecord captures the summary of a completed audit run.
type RunRecord struct {
	RecordedAt   time.Time
	Kind         RunKind
	Subject      string
	TotalTokens  int64
	FilesCounted int64
	Metric       float64
	Details      string
}

// StoredRun is a RunRecord retrieved from the database along with its identifier.
type StoredRun struct {
	Identifier int64
	RunRecord
}

// Store persists run records in a SQLite database.
type Store struct {
	database *sql.DB
}

// DefaultDatabasePath places the history database under the user cache directory.
func DefaultDatabasePath() string {
	cacheDirectory, cacheError := os.UserCacheDir()
	if cacheError != nil || len(cacheDirectory) == 0 {
		return databaseFileNameConstant
	}
	return filepath.Join(cacheDirectory, databaseDirectoryNameConstant, databaseFileNameConstant)
}

// OpenStore opens the database at the provided path and ensures the schema exists.
func OpenStore(databasePath string) (*Store, error) {
	parentDirectory := filepath.Dir(databasePath)
	if len(parentDirectory) > 0 {
		if directoryError := os.MkdirAll(parentDirectory, 0o755); directoryError != nil {
			return nil, fmt.Errorf(databaseOpenErrorTemplateConstant, databasePath, directoryError)
		}
	}

	database, openError := sql.Open(sqliteDriverNameConstant, databasePath)
	if openError != nil {
		return nil, fmt.Errorf(databaseOpenErrorTemplateConstant, databasePath, openError)
	}

	if _, migrateError := database.Exec(createRunsTableStatementConstant); migrateError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(databaseMigrateErrorTemplateConstant, migrateError)
	}

	return &Store{database: database}, nil
}

// Close releases the underlying database handle.
func (store *Store) Close() error {
	if store == nil || store.database == nil {
		return nil
	}
	return store.database.Close()
}

// RecordRun inserts the provided run summary.
func (store *Store) RecordRun(executionContext context.Context, record RunRecord) error {
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, insertError := store.database.ExecContext(
		executionContext,
		insertRunStatementConstant,
		recordedAt.UTC().Format(recordedAtColumnLayoutConstant),
		string(record.Kind),
		record.Subject,
		record.TotalTokens,
		record.FilesCounted,
		record.Metric,
		record.Details,
	)
	if insertError != nil {
		return fmt.Errorf(recordInsertErrorTemplateConstant, insertError)
	}
	return nil
}

// ListRuns returns stored runs newest first, bounded by limit.
func (store *Store) ListRuns(executionContext context.Context, limit int) ([]StoredRun, error) {
	rows, queryError := store.database.QueryContext(executionContext, listRunsStatementConstant, limit)
	if queryError != nil {
		return nil, fmt.Errorf(recordListErrorTemplateConstant, queryError)
	}
	defer rows.Close()

	var storedRuns []StoredRun
	for rows.Next() {
		var storedRun StoredRun
		var recordedAtText string
		var kindText string
		scanError := rows.Scan(
			&storedRun.Identifier,
			&recordedAtText,
			&kindText,
			&storedRun.Subject,
			&storedRun.TotalTokens,
			&storedRun.FilesCounted,
			&storedRun.Metric,
			&storedRun.Details,
		)
		if scanError != nil {
			return nil, fmt.Errorf(recordListErrorTemplateConstant, scanError)
		}

		recordedAt, parseError := time.Parse(recordedAtColumnLayoutConstant, recordedAtText)
		if parseError == nil {
			storedRun.RecordedAt = recordedAt
		}
		storedRun.Kind = RunKind(kindText)
		storedRuns = append(storedRuns, storedRun)
	}
	if iterationError := rows.Err(); iterationError != nil {
		return nil, fmt.Errorf(recordListErrorTemplateConstant, iterationError)
	}

	return storedRuns, nil
}
