// Package store is the Queue Store (spec §4.1, C1): durable queue entries
// and results with atomic lease/transition semantics, backed by SQLite
// through sqlx, fronted by a crash-safe write-ahead journal adapted from
// the teacher's CRC32-framed DiskQueue.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	crawlerrors "legalcrawl/internal/errors"
	"legalcrawl/internal/logging"
	"legalcrawl/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'PENDING',
	attempts INTEGER NOT NULL DEFAULT 0,
	lease_expires_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_status ON queue(status, lease_expires_at);

CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT NOT NULL UNIQUE,
	run_id TEXT,
	legal_source_url TEXT,
	crawled_at DATETIME,

	legal_name TEXT, legal_name_source TEXT, legal_name_confidence REAL,
	legal_form TEXT, legal_form_source TEXT, legal_form_confidence REAL,
	registration_number TEXT, registration_number_source TEXT, registration_number_confidence REAL,
	register_court TEXT, register_type TEXT, vat_id TEXT,
	street TEXT, street_source TEXT, street_confidence REAL,
	postal_code TEXT, city TEXT, country TEXT,
	address_source TEXT, address_confidence REAL,
	ceo TEXT, directors TEXT,
	emails TEXT, emails_source TEXT, emails_confidence REAL,
	phones TEXT, phones_source TEXT, phones_confidence REAL,
	fax TEXT,
	robots_allowed INTEGER, robots_reason TEXT,
	confidence REAL,

	whois_registrar TEXT, whois_created_at DATETIME, rdap_org_name TEXT, enriched INTEGER NOT NULL DEFAULT 0,

	FOREIGN KEY(domain) REFERENCES queue(domain)
);
`

// Store is the C1 collaborator. One Store per process; no package-level
// singleton (spec §9's no-singleton redesign flag applies here too).
type Store struct {
	db      *sqlx.DB
	journal *journal
	logger  *logging.Logger
}

// Open connects to the SQLite database at dsn, applies the schema, and
// replays any journal records left over from a crash between a prior
// enqueue's journal append and its SQLite commit.
func Open(ctx context.Context, dsn string, journalPath string, logger *logging.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under the worker
	// pool's concurrent lease/complete calls; queue mutations are short
	// relative to network I/O so serializing them costs little.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	j, err := openJournal(journalPath, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	s := &Store{db: db, journal: j, logger: logger}
	if err := s.replayJournal(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) replayJournal(ctx context.Context) error {
	records, err := s.journal.replay()
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	for _, rec := range records {
		if err := s.enqueueTx(ctx, rec.Domain, rec.Source); err != nil {
			s.logger.Warn("journal replay insert failed", map[string]interface{}{"domain": rec.Domain, "error": err.Error()})
		}
	}
	if len(records) > 0 {
		if err := s.journal.truncate(); err != nil {
			s.logger.Warn("journal truncate after replay failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// Close flushes and closes the journal and the database handle.
func (s *Store) Close() error {
	jerr := s.journal.close()
	derr := s.db.Close()
	if jerr != nil {
		return jerr
	}
	return derr
}

// Enqueue inserts domain with status PENDING if absent, otherwise is a
// no-op (spec §4.1, §8 idempotence: "the source of record is the first
// insert"). The write lands in the journal before the SQLite insert so a
// crash in between is replayed on next Open.
func (s *Store) Enqueue(ctx context.Context, domain, source string) error {
	if err := s.journal.append(journalRecord{Domain: domain, Source: source}); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	if err := s.enqueueTx(ctx, domain, source); err != nil {
		return &crawlerrors.StorageUnavailable{Err: err}
	}
	return nil
}

func (s *Store) enqueueTx(ctx context.Context, domain, source string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queue (domain, source, status, attempts, created_at, updated_at)
		 VALUES (?, ?, 'PENDING', 0, ?, ?)
		 ON CONFLICT(domain) DO NOTHING`,
		domain, source, now, now)
	return err
}

// Lease atomically claims up to n entries that are PENDING, or PROCESSING
// with an expired lease, marks them PROCESSING with a fresh
// lease_expires_at, and increments attempts. At most one active lease per
// domain is guaranteed by running the SELECT of eligible ids and the
// per-id UPDATEs inside a single transaction.
func (s *Store) Lease(ctx context.Context, n int, leaseTTL time.Duration) ([]model.QueueEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &crawlerrors.StorageUnavailable{Err: err}
	}
	defer tx.Rollback()

	now := time.Now()
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM queue
		 WHERE status = 'PENDING' OR (status = 'PROCESSING' AND lease_expires_at < ?)
		 ORDER BY created_at ASC
		 LIMIT ?`, now, n)
	if err != nil {
		return nil, &crawlerrors.StorageUnavailable{Err: err}
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, &crawlerrors.StorageUnavailable{Err: err}
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &crawlerrors.StorageUnavailable{Err: err}
	}

	entries := make([]model.QueueEntry, 0, len(ids))
	leaseExpiry := now.Add(leaseTTL)
	for _, id := range ids {
		var e model.QueueEntry
		row := tx.QueryRowxContext(ctx,
			`UPDATE queue SET status='PROCESSING', attempts=attempts+1, lease_expires_at=?, updated_at=?
			 WHERE id = ?
			 RETURNING domain, source, status, attempts, lease_expires_at, created_at, updated_at`,
			leaseExpiry, now, id)
		if err := scanQueueEntry(row, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, &crawlerrors.StorageUnavailable{Err: err}
	}
	return entries, nil
}

// Release puts a leased domain back to PENDING without marking it
// terminal. Used by the orchestrator when a host mutex can't be acquired
// immediately (spec §4.10's per-host serialisation defer) or when the run
// is stopped while the entry is in flight.
func (s *Store) Release(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue SET status='PENDING', lease_expires_at=NULL, updated_at=? WHERE domain=? AND status='PROCESSING'`,
		time.Now(), domain)
	if err != nil {
		return &crawlerrors.StorageUnavailable{Err: err}
	}
	return nil
}

// Complete atomically upserts result and transitions the queue row to
// terminalStatus, but only if the row is currently PROCESSING — the
// write-once-vs-overwrite guard resolved in DESIGN.md for spec §9c.
func (s *Store) Complete(ctx context.Context, domain string, result *model.CrawlResult, terminalStatus model.Status) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &crawlerrors.StorageUnavailable{Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE queue SET status=?, updated_at=? WHERE domain=? AND status='PROCESSING'`,
		terminalStatus, time.Now(), domain)
	if err != nil {
		return &crawlerrors.StorageUnavailable{Err: err}
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("complete: %s is not currently PROCESSING", domain)
	}

	if result != nil {
		if err := upsertResult(ctx, tx, result); err != nil {
			return &crawlerrors.StorageUnavailable{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &crawlerrors.StorageUnavailable{Err: err}
	}
	return nil
}

// Fail is Complete without a result: a pure terminal status transition.
func (s *Store) Fail(ctx context.Context, domain string, terminalStatus model.Status) error {
	return s.Complete(ctx, domain, nil, terminalStatus)
}

// Reset bulk-transitions rows whose status is in statuses back to
// PENDING, preserving attempts (spec §4.1 reset).
func (s *Store) Reset(ctx context.Context, statuses []model.Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := ""
	args := []interface{}{time.Now()}
	for i, st := range statuses {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, st)
	}
	query := `UPDATE queue SET status='PENDING', lease_expires_at=NULL, updated_at=? WHERE status IN (` + placeholders + `)`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &crawlerrors.StorageUnavailable{Err: err}
	}
	return res.RowsAffected()
}

// SnapshotStats returns counts per status (spec §4.1 snapshot_stats).
func (s *Store) SnapshotStats(ctx context.Context) (map[model.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue GROUP BY status`)
	if err != nil {
		return nil, &crawlerrors.StorageUnavailable{Err: err}
	}
	defer rows.Close()

	stats := make(map[model.Status]int64)
	for rows.Next() {
		var status model.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanQueueEntry(row *sqlx.Row, e *model.QueueEntry) error {
	var leaseExpiresAt sql.NullTime
	if err := row.Scan(&e.Domain, &e.Source, &e.Status, &e.Attempts, &leaseExpiresAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return err
	}
	if leaseExpiresAt.Valid {
		e.LeaseExpiresAt = leaseExpiresAt.Time
	}
	return nil
}

