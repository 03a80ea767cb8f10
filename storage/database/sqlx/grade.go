package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/grade"
)

const gradeColumns = `id, student_id, course_id, midterm, finals, projects, participation, final_grade,
	remarks, recorded_by, recorded_at, created_at, updated_at`

type gradeRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	CourseID      string      `db:"course_id"`
	Midterm       null.Int    `db:"midterm"`
	Finals        null.Int    `db:"finals"`
	Projects      null.Int    `db:"projects"`
	Participation null.Int    `db:"participation"`
	FinalGrade    null.Int    `db:"final_grade"`
	Remarks       string      `db:"remarks"`
	RecordedBy    null.String `db:"recorded_by"`
	RecordedAt    time.Time   `db:"recorded_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func newGradeRow(rec grade.Record) gradeRow {
	return gradeRow{
		ID:            rec.ID,
		StudentID:     rec.StudentID,
		CourseID:      rec.CourseID,
		Midterm:       null.IntFromPtr(rec.Midterm),
		Finals:        null.IntFromPtr(rec.Finals),
		Projects:      null.IntFromPtr(rec.Projects),
		Participation: null.IntFromPtr(rec.Participation),
		FinalGrade:    null.IntFromPtr(rec.FinalGrade),
		Remarks:       rec.Remarks,
		RecordedBy:    nullString(rec.RecordedBy),
		RecordedAt:    rec.RecordedAt.UTC(),
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

func (row gradeRow) record() grade.Record {
	return grade.Record{
		ID:        row.ID,
		StudentID: row.StudentID,
		CourseID:  row.CourseID,
		Components: grade.Components{
			Midterm:       row.Midterm.Ptr(),
			Finals:        row.Finals.Ptr(),
			Projects:      row.Projects.Ptr(),
			Participation: row.Participation.Ptr(),
		},
		FinalGrade: row.FinalGrade.Ptr(),
		Remarks:    row.Remarks,
		RecordedBy: row.RecordedBy.String,
		RecordedAt: row.RecordedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) grade.Repository {
	return &gradeRepository{exec: exec}
}

func (repo *gradeRepository) GetGrade(ctx context.Context, studentID, courseID string) (grade.Record, error) {
	var row gradeRow
	q := repo.exec.Rebind("SELECT " + gradeColumns + " FROM grades WHERE student_id = ? AND course_id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, studentID, courseID); err != nil {
		return grade.Record{}, trapNoRowsErr(err, grade.ErrNotFound, "selecting grade")
	}
	return row.record(), nil
}

// SaveGrade upserts on the (student_id, course_id) pair; the first ID and created_at are kept.
func (repo *gradeRepository) SaveGrade(ctx context.Context, rec grade.Record) (grade.Record, error) {
	const q = `INSERT INTO grades (` + gradeColumns + `) VALUES (
		:id, :student_id, :course_id, :midterm, :finals, :projects, :participation, :final_grade,
		:remarks, :recorded_by, :recorded_at, :created_at, :updated_at
	) ON CONFLICT ON CONSTRAINT grades_student_course_key DO UPDATE SET
		midterm = EXCLUDED.midterm, finals = EXCLUDED.finals, projects = EXCLUDED.projects,
		participation = EXCLUDED.participation, final_grade = EXCLUDED.final_grade, remarks = EXCLUDED.remarks,
		recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at, updated_at = EXCLUDED.updated_at
	RETURNING ` + gradeColumns

	q2, args, err := repo.exec.BindNamed(q, newGradeRow(rec))
	if err != nil {
		return grade.Record{}, errors.Wrap(err, "binding grade")
	}
	var row gradeRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, q2, args...); err != nil {
		return grade.Record{}, errors.Wrap(err, "upserting grade")
	}
	return row.record(), nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	var conds conditions
	if filter.StudentID != "" {
		conds.add("student_id = ?", filter.StudentID)
	}
	if filter.CourseID != "" {
		conds.add("course_id = ?", filter.CourseID)
	}

	var rows []gradeRow
	q := repo.exec.Rebind("SELECT " + gradeColumns + " FROM grades" + conds.where() + " ORDER BY created_at, id")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}

	records := make([]grade.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}
