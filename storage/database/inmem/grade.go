package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/grade"
)

type gradeRepository struct {
	db *table[grade.Record]
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) GetGrade(_ context.Context, studentID, courseID string) (grade.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	filter := grade.QueryFilter{StudentID: studentID, CourseID: courseID}
	if rec, found := repo.db.find(filter.Match); found {
		return rec, nil
	}
	return grade.Record{}, grade.ErrNotFound
}

func (repo *gradeRepository) SaveGrade(_ context.Context, rec grade.Record) (grade.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	filter := grade.QueryFilter{StudentID: rec.StudentID, CourseID: rec.CourseID}
	if existing, found := repo.db.find(filter.Match); found {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		row, _ := repo.db.get(existing.ID)
		*row = rec
		return rec, nil
	}
	repo.db.insert(rec.ID, rec)
	return rec, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.filter(filter.Match), nil
}
