package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/course"
)

const courseColumns = `c.id, c.code, c.name, c.description, c.units, c.term, c.teacher_id,
	c.schedule_day, c.schedule_time, c.schedule_room, c.created_at, c.updated_at,
	ARRAY(SELECT e.student_id::text FROM enrollments e WHERE e.course_id = c.id ORDER BY e.enrolled_at) AS enrolled_students`

type courseRow struct {
	ID               string         `db:"id"`
	Code             string         `db:"code"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	Units            int            `db:"units"`
	Term             int            `db:"term"`
	TeacherID        null.String    `db:"teacher_id"`
	ScheduleDay      null.String    `db:"schedule_day"`
	ScheduleTime     null.String    `db:"schedule_time"`
	ScheduleRoom     null.String    `db:"schedule_room"`
	EnrolledStudents pq.StringArray `db:"enrolled_students"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func newCourseRow(c course.Course) courseRow {
	row := courseRow{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Units:       c.Units,
		Term:        c.Term,
		TeacherID:   nullString(c.TeacherID),
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	if c.Schedule != nil {
		row.ScheduleDay = nullString(c.Schedule.DayOfWeek)
		row.ScheduleTime = nullString(c.Schedule.Time)
		row.ScheduleRoom = nullString(c.Schedule.Room)
	}
	return row
}

func (row courseRow) course() course.Course {
	c := course.Course{
		ID:               row.ID,
		Code:             row.Code,
		Name:             row.Name,
		Description:      row.Description,
		Units:            row.Units,
		Term:             row.Term,
		TeacherID:        row.TeacherID.String,
		EnrolledStudents: []string(row.EnrolledStudents),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if c.EnrolledStudents == nil {
		c.EnrolledStudents = []string{}
	}
	sched := &course.Schedule{DayOfWeek: row.ScheduleDay.String, Time: row.ScheduleTime.String, Room: row.ScheduleRoom.String}
	if !sched.IsEmpty() {
		c.Schedule = sched
	}
	return c
}

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

func trapCourseUniqueErr(err error, msg string) error {
	if constraint, ok := constraintViolated(err); ok && constraint == "courses_code_key" {
		return course.ErrCodeExists
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) getCourse(ctx context.Context, exec core.DBExecutor, id string) (course.Course, error) {
	var row courseRow
	q := exec.Rebind("SELECT " + courseColumns + " FROM courses c WHERE c.id = ?")
	if err := sqlx.GetContext(ctx, exec, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	const q = `INSERT INTO courses (
		id, code, name, description, units, term, teacher_id, schedule_day, schedule_time, schedule_room, created_at, updated_at
	) VALUES (
		:id, :code, :name, :description, :units, :term, :teacher_id, :schedule_day, :schedule_time, :schedule_room, :created_at, :updated_at
	)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, newCourseRow(c)); err != nil {
		return course.Course{}, trapCourseUniqueErr(err, "inserting course")
	}
	return repo.getCourse(ctx, repo.db, c.ID)
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourse(ctx, repo.db, id)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var conds conditions
	if filter.Term != 0 {
		conds.add("c.term = ?", filter.Term)
	}
	if filter.TeacherID != "" {
		conds.add("c.teacher_id = ?", filter.TeacherID)
	}
	if filter.StudentID != "" {
		conds.add("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = ?)", filter.StudentID)
	}

	var rows []courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses c" + conds.where() + " ORDER BY c.created_at, c.id")
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	const q = `UPDATE courses SET
		code = :code, name = :name, description = :description, units = :units, term = :term,
		teacher_id = :teacher_id, schedule_day = :schedule_day, schedule_time = :schedule_time,
		schedule_room = :schedule_room, updated_at = :updated_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, newCourseRow(c))
	if err != nil {
		return course.Course{}, trapCourseUniqueErr(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.getCourse(ctx, repo.db, c.ID)
}

// EnrollStudent writes the enrollment row both sides of the relation are read from.
func (repo *courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) (c course.Course, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var isStudent bool
	q := tx.Rebind("SELECT role = 'student' FROM accounts WHERE id = ?")
	if err = tx.GetContext(ctx, &isStudent, q, studentID); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrStudentNotFound, "selecting student")
	}
	if !isStudent {
		return course.Course{}, course.ErrStudentNotFound
	}
	if _, err = repo.getCourse(ctx, tx, courseID); err != nil {
		return course.Course{}, err
	}

	q = tx.Rebind("INSERT INTO enrollments (course_id, student_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	if _, err = tx.ExecContext(ctx, q, courseID, studentID); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting enrollment")
	}
	if c, err = repo.getCourse(ctx, tx, courseID); err != nil {
		return course.Course{}, err
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing enrollment")
	}
	return c, nil
}
