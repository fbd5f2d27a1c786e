// Package txlog persists a journal of transaction outcomes in a local
// bbolt database. Records are append-only: every transaction that
// reaches a terminal state gets one entry, keyed by a monotonically
// increasing sequence number, so the journal doubles as a submission
// history ordered by time.
package txlog

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// ErrRecordNotFound is returned by Get when no record has the given id.
var ErrRecordNotFound = errors.New("txlog: record not found")

// Record is one journal entry. ID is assigned by Append.
type Record struct {
	ID         uint64
	Op         string
	State      string
	TxFile     string
	SignedFile string
	Fee        uint64
	CreatedAt  time.Time
}

// Journal wraps a bbolt database holding transaction records.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("txlog: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("txlog: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("txlog: create bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// idKey encodes a record id as an 8-byte big-endian key so bbolt keeps
// records in append order.
func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Append stores a record under the next sequence number and returns the
// assigned id. A zero CreatedAt is stamped with the current time.
func (j *Journal) Append(rec Record) (uint64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var id uint64
	err := j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		rec.ID = seq

		data, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if err := b.Put(idKey(seq), data); err != nil {
			return fmt.Errorf("put record: %w", err)
		}
		id = seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("txlog: append: %w", err)
	}
	return id, nil
}

// Get retrieves a record by id.
func (j *Journal) Get(id uint64) (*Record, error) {
	var rec Record
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get(idKey(id))
		if data == nil {
			return ErrRecordNotFound
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("txlog: decode record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records in append order.
func (j *Journal) List() ([]*Record, error) {
	var recs []*Record
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var rec Record
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("txlog: decode record in list: %w", err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("txlog: list records: %w", err)
	}
	return recs, nil
}
