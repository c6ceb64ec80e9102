// Package store is the data-access layer over the single SQLite file
// shared by all sessions. Readers use a read-only pool so they never
// block the writer; writes run as short immediate transactions so the
// exclusive lock window stays small. Lock contention is absorbed by a
// bounded sleep-and-retry loop on top of SQLite's own busy timeout.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

const (
	busyTimeoutMS = 5000

	readAttempts = 5
	readBackoff  = 250 * time.Millisecond

	writeAttempts = 3
	writeBackoff  = 1500 * time.Millisecond

	// SQLite primary result codes recognized as transient contention.
	codeBusy   = 5
	codeLocked = 6

	codeConstraint = 19
)

var (
	// ErrTagExists is returned when inserting an object whose tag is
	// already registered.
	ErrTagExists = errors.New("tag already exists")

	// ErrUserExists is returned when registering a duplicate username.
	ErrUserExists = errors.New("username already exists")
)

// Store wraps the database file with separate read-only and read-write
// pools.
type Store struct {
	reader *sql.DB
	writer *sql.DB
}

// Open opens (creating if necessary) the database file at path, applies
// the schema, and returns a Store. The writer pool holds at most one
// connection and acquires the write-intent lock at transaction start.
func Open(path string) (*Store, error) {
	writeDSN := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeoutMS,
	)
	writer, err := sql.Open("sqlite", writeDSN)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := initSchema(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	readDSN := fmt.Sprintf(
		"file:%s?mode=ro&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		path, busyTimeoutMS,
	)
	reader, err := sql.Open("sqlite", readDSN)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &Store{reader: reader, writer: writer}, nil
}

// Close releases both pools.
func (s *Store) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// isLocked reports whether err is SQLite telling us another connection
// holds the lock. Everything else (constraints, schema, type errors) is
// a real failure and must not be retried.
func isLocked(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case codeBusy, codeLocked:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

func isConstraint(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == codeConstraint
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}

// read runs fn against the read-only pool, retrying on lock contention.
func (s *Store) read(fn func(db *sql.DB) error) error {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		err = fn(s.reader)
		if err == nil || !isLocked(err) {
			return err
		}
		time.Sleep(readBackoff)
	}
	return err
}

// write runs fn inside an immediate transaction, retrying the whole
// transaction on lock contention. fn must be safe to re-run.
func (s *Store) write(fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err = s.writeOnce(fn)
		if err == nil || !isLocked(err) {
			return err
		}
		time.Sleep(writeBackoff)
	}
	return err
}

func (s *Store) writeOnce(fn func(tx *sql.Tx) error) error {
	tx, err := s.writer.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
