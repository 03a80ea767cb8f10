package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/trezcool/classbook/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) GetGrade(ctx context.Context, studentID, courseID string) (rec grade.Record, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		id, found := lookup(tx, gradePairIdx, indexKey(studentID, courseID))
		if !found {
			return grade.ErrNotFound
		}
		if rec, found, err = get[grade.Record](tx, gradeBucket, id); err == nil && !found {
			return grade.ErrNotFound
		}
		return err
	})
	return rec, err
}

func (repo *gradeRepository) SaveGrade(ctx context.Context, rec grade.Record) (grade.Record, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		key := indexKey(rec.StudentID, rec.CourseID)
		if id, found := lookup(tx, gradePairIdx, key); found {
			existing, ok, err := get[grade.Record](tx, gradeBucket, id)
			if err != nil {
				return err
			}
			if ok {
				rec.ID = existing.ID
				rec.CreatedAt = existing.CreatedAt
			}
		}
		if err := tx.Bucket([]byte(gradePairIdx)).Put([]byte(key), []byte(rec.ID)); err != nil {
			return err
		}
		return put(tx, gradeBucket, rec.ID, rec)
	})
	if err != nil {
		return grade.Record{}, err
	}
	return rec, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) (records []grade.Record, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		records, err = list(tx, gradeBucket, filter.Match)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}
