// Package store persists generated proofs in SQLite, keyed by proofId.
// Records are owned by the store once put; delete is permanent.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yourorg/zkcompliance/pkg/proof"
)

// ErrNotFound is returned for lookups and deletes of unknown proof ids.
var ErrNotFound = errors.New("not found")

// Store is the SQLite-backed proof store. Each Put is a single INSERT, so a
// record is either fully written or absent; random 128-bit ids make key
// collisions statistically negligible but the PRIMARY KEY still rejects them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the proofs table.
func (s *Store) Migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS proofs(
		proofID TEXT NOT NULL PRIMARY KEY UNIQUE,
		record TEXT NOT NULL,
		circuit TEXT NOT NULL,
		version TEXT NOT NULL,
		inputHash TEXT NOT NULL,
		transactionID TEXT,
		decision TEXT,
		createdAt TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores the given proof record.
func (s *Store) Put(rec *proof.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal proof record: %w", err)
	}

	sqlQuery := `
	INSERT INTO proofs(
		proofID,
		record,
		circuit,
		version,
		inputHash,
		transactionID,
		decision,
		createdAt
	) values(?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := s.db.Prepare(sqlQuery)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	_, err = stmt.Exec(rec.ProofID, string(raw), rec.Circuit, rec.Version,
		rec.InputHash, rec.TransactionID, rec.Decision, rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	return err
}

// Get returns the record stored under the given proofID, or ErrNotFound.
func (s *Store) Get(proofID string) (*proof.Record, error) {
	row := s.db.QueryRow("SELECT record FROM proofs WHERE proofID = ?", proofID)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec proof.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal proof record %s: %w", proofID, err)
	}
	return &rec, nil
}

// List returns summaries of all stored proofs in insertion order.
func (s *Store) List() ([]proof.Summary, error) {
	rows, err := s.db.Query(`
	SELECT record FROM proofs ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var summaries []proof.Summary
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec proof.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal proof record: %w", err)
		}
		summaries = append(summaries, rec.Summary())
	}
	return summaries, rows.Err()
}

// Delete removes the record permanently. Deleting an unknown (or already
// deleted) id returns ErrNotFound, so a second delete is a reported no-op.
func (s *Store) Delete(proofID string) error {
	res, err := s.db.Exec("DELETE FROM proofs WHERE proofID = ?", proofID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
