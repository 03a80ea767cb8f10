// Package boltdb stores the domain records as JSON documents in a bbolt file.
// Uniqueness constraints are kept in index buckets mapping the unique key to the record ID;
// a document and its index entries are always written in the same transaction.
package boltdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// Buckets
const (
	accountBucket      = "accounts"
	courseBucket       = "courses"
	gradeBucket        = "grades"
	paymentBucket      = "payments"
	announcementBucket = "announcements"

	accountEmailIdx    = "idx_account_email"
	accountSchoolIDIdx = "idx_account_school_id"
	courseCodeIdx      = "idx_course_code"
	gradePairIdx       = "idx_grade_student_course"
	paymentTripleIdx   = "idx_payment_student_term_year"
)

var buckets = []string{
	accountBucket, courseBucket, gradeBucket, paymentBucket, announcementBucket,
	accountEmailIdx, accountSchoolIDIdx, courseCodeIdx, gradePairIdx, paymentTripleIdx,
}

type DB struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file at path and ensures every bucket exists.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bolt database path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt database")
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return &DB{db: bdb}, nil
}

func (db *DB) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

func (db *DB) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.db.View(fn)
}

func (db *DB) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.db.Update(fn)
}

func put[T any](tx *bbolt.Tx, bucket, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s/%s", bucket, key)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
}

// get returns the document stored under key, and whether it was found.
func get[T any](tx *bbolt.Tx, bucket, key string) (T, bool, error) {
	var out T
	data := tx.Bucket([]byte(bucket)).Get([]byte(key))
	if data == nil {
		return out, false, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, errors.Wrapf(err, "unmarshaling %s/%s", bucket, key)
	}
	return out, true, nil
}

// list returns the documents of bucket matching match, in key order.
func list[T any](tx *bbolt.Tx, bucket string, match func(T) bool) ([]T, error) {
	out := make([]T, 0)
	err := tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
		var doc T
		if err := json.Unmarshal(v, &doc); err != nil {
			return errors.Wrapf(err, "unmarshaling %s/%s", bucket, k)
		}
		if match == nil || match(doc) {
			out = append(out, doc)
		}
		return nil
	})
	return out, err
}

// lookup resolves a unique index entry to a record ID.
func lookup(tx *bbolt.Tx, index, key string) (string, bool) {
	id := tx.Bucket([]byte(index)).Get([]byte(key))
	return string(id), id != nil
}

// claim points the index entry key at id, failing with errTaken when another record holds it.
func claim(tx *bbolt.Tx, index, key, id string, errTaken error) error {
	if owner, found := lookup(tx, index, key); found && owner != id {
		return errTaken
	}
	return tx.Bucket([]byte(index)).Put([]byte(key), []byte(id))
}

func release(tx *bbolt.Tx, index, key string) error {
	return tx.Bucket([]byte(index)).Delete([]byte(key))
}

func indexKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}
