package database

import (
	"database/sql"
	"log"
	"time"

	"github.com/jpillora/backoff"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store persists case photo records
type Store interface {
	Save(info ImageInfo) error
	All() ([]ImageInfo, error)
	Delete(filename string) error
	Close() error
}

const maxOpenAttempts = 3

const schema = `
CREATE TABLE IF NOT EXISTS case_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL UNIQUE,
	case_id TEXT,
	phash TEXT NOT NULL,
	dhash TEXT NOT NULL,
	added_at TEXT NOT NULL,
	thumbnail TEXT
);
CREATE INDEX IF NOT EXISTS idx_case_images_phash ON case_images(phash);
CREATE INDEX IF NOT EXISTS idx_case_images_dhash ON case_images(dhash);
CREATE INDEX IF NOT EXISTS idx_case_images_case_id ON case_images(case_id);`

// SQLiteStore is a Store backed by a sqlite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenStore opens or creates the sqlite database at dbPath, retrying with backoff
func OpenStore(dbPath string) (*SQLiteStore, error) {
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
	}

	var err error
	for attempt := 1; attempt <= maxOpenAttempts; attempt++ {
		var store *SQLiteStore
		store, err = initStore(dbPath)
		if err == nil {
			return store, nil
		}
		if attempt < maxOpenAttempts {
			wait := b.Duration()
			log.Printf("Error initializing database (attempt %d/%d): %v - retrying in %s",
				attempt, maxOpenAttempts, err, wait)
			time.Sleep(wait)
		}
	}
	return nil, errors.Wrapf(err, "initialize database after %d attempts", maxOpenAttempts)
}

func initStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces the record for info.Filename
func (s *SQLiteStore) Save(info ImageInfo) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO case_images (filename, case_id, phash, dhash, added_at, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		info.Filename,
		info.CaseID,
		info.PHash,
		info.DHash,
		info.AddedAt.UTC().Format(time.RFC3339Nano),
		info.Thumbnail,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot insert data for %s", info.Filename)
	}
	return nil
}

// All returns every stored record
func (s *SQLiteStore) All() ([]ImageInfo, error) {
	rows, err := s.db.Query(`SELECT filename, case_id, phash, dhash, added_at, thumbnail FROM case_images ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query images")
	}
	defer rows.Close()

	var infos []ImageInfo
	for rows.Next() {
		var (
			info      ImageInfo
			caseID    sql.NullString
			thumbnail sql.NullString
			addedAt   string
		)
		if err := rows.Scan(&info.Filename, &caseID, &info.PHash, &info.DHash, &addedAt, &thumbnail); err != nil {
			return nil, errors.Wrap(err, "scan image row")
		}
		info.CaseID = caseID.String
		info.Thumbnail = thumbnail.String
		info.AddedAt, err = time.Parse(time.RFC3339Nano, addedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "parse added_at for %s", info.Filename)
		}
		infos = append(infos, info)
	}
	return infos, errors.Wrap(rows.Err(), "iterate images")
}

// Delete removes the record for filename
func (s *SQLiteStore) Delete(filename string) error {
	res, err := s.db.Exec(`DELETE FROM case_images WHERE filename = ?`, filename)
	if err != nil {
		return errors.Wrapf(err, "delete %s", filename)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrap(ErrNotFound, filename)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
