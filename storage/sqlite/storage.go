package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
)

// Config configures a Storage.
type Config struct {
	// BatchSize is the number of records inserted per transaction.
	BatchSize int `yaml:"batch_size"`

	// PageSize is the number of records fetched per query when reading.
	PageSize int `yaml:"page_size"`
}

// Storage is a pushz.SorterStorage backed by a DB. Queries run off the event
// loop through pushz.Submit.
type Storage[T any] struct {
	loop    *pushz.Eventloop
	db      *DB
	codec   storage.Codec[T]
	config  Config
	session string
	ctx     context.Context
	logger  *slog.Logger
}

// NewStorage creates a storage with a fresh session id.
func NewStorage[T any](loop *pushz.Eventloop, db *DB, codec storage.Codec[T], cfg Config) *Storage[T] {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 500
	}
	return &Storage[T]{
		loop:    loop,
		db:      db,
		codec:   codec,
		config:  cfg,
		session: uuid.NewString(),
		ctx:     context.Background(),
		logger:  slog.Default(),
	}
}

// WithContext sets the context used for every query.
func (s *Storage[T]) WithContext(ctx context.Context) *Storage[T] {
	s.ctx = ctx
	return s
}

// WithLogger sets the logger.
func (s *Storage[T]) WithLogger(logger *slog.Logger) *Storage[T] {
	s.logger = logger
	return s
}

// Session returns the session id scoping this storage's rows.
func (s *Storage[T]) Session() string {
	return s.session
}

// Write returns a consumer storing run runID. It acknowledges once the run
// row is committed.
func (s *Storage[T]) Write(runID int) pushz.Consumer[T] {
	return newRunWriter(s, runID)
}

// Read streams run runID in write order. A run without a committed run row
// fails with pushz.ErrRunNotFound.
func (s *Storage[T]) Read(runID int) pushz.Supplier[T] {
	return newRunReader(s, runID)
}

// Cleanup deletes the given runs in one transaction.
func (s *Storage[T]) Cleanup(runIDs []int) *pushz.Promise[struct{}] {
	return pushz.Submit(s.loop, func() (struct{}, error) {
		return struct{}{}, s.deleteRuns(runIDs...)
	})
}

// Purge deletes every row of this session. It blocks.
func (s *Storage[T]) Purge() error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(s.ctx, `DELETE FROM sorter_records WHERE session = ?`, s.session); err != nil {
			return err
		}
		_, err := tx.ExecContext(s.ctx, `DELETE FROM sorter_runs WHERE session = ?`, s.session)
		return err
	})
}

func (s *Storage[T]) deleteRuns(runIDs ...int) error {
	err := s.inTx(func(tx *sql.Tx) error {
		for _, id := range runIDs {
			if _, err := tx.ExecContext(s.ctx, `DELETE FROM sorter_records WHERE session = ? AND run = ?`, s.session, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(s.ctx, `DELETE FROM sorter_runs WHERE session = ? AND run = ?`, s.session, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	return nil
}

func (s *Storage[T]) insertRecords(tx *sql.Tx, runID, seq int, payloads [][]byte) error {
	stmt, err := tx.PrepareContext(s.ctx, `
		INSERT INTO sorter_records (session, run, seq, payload)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, payload := range payloads {
		if _, err := stmt.ExecContext(s.ctx, s.session, runID, seq+i, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage[T]) commitRun(tx *sql.Tx, runID, items int) error {
	_, err := tx.ExecContext(s.ctx, `
		INSERT INTO sorter_runs (session, run, items, created_at)
		VALUES (?, ?, ?, ?)
	`, s.session, runID, items, time.Now().UnixMilli())
	return err
}

// runItems returns the committed size of a run.
func (s *Storage[T]) runItems(runID int) (int, error) {
	var items int
	err := s.db.db.QueryRowContext(s.ctx, `
		SELECT items FROM sorter_runs WHERE session = ? AND run = ?
	`, s.session, runID).Scan(&items)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("run %d: %w", runID, pushz.ErrRunNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("run %d: %w", runID, err)
	}
	return items, nil
}

// page returns up to PageSize payloads with seq >= from.
func (s *Storage[T]) page(runID, from int) ([][]byte, error) {
	rows, err := s.db.db.QueryContext(s.ctx, `
		SELECT payload FROM sorter_records
		WHERE session = ? AND run = ? AND seq >= ?
		ORDER BY seq
		LIMIT ?
	`, s.session, runID, from, s.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", runID, err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("run %d: %w", runID, err)
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run %d: %w", runID, err)
	}
	return payloads, nil
}

func (s *Storage[T]) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.db.BeginTx(s.ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
