package course

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrCodeExists      = core.NewAlreadyExistsError("a course with this code already exists")
	ErrTeacherNotFound = core.NewNotFoundError("teacher not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
)

type (
	Repository interface {
		// CreateCourse fails with ErrCodeExists when the code is taken.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		// UpdateCourse replaces the stored course, except EnrolledStudents which are owned by enrollments.
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// EnrollStudent adds the student to the course and the course to the student in one write.
		// Enrolling twice is a no-op.
		EnrollStudent(ctx context.Context, courseID, studentID string) (Course, error)
	}

	AccountFinder interface {
		GetAccountByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		accounts AccountFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, accounts AccountFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, accounts: accounts, validate: validate}
}

func target() access.Target { return access.Target{Kind: access.KindCourse} }

func (svc *Service) Create(ctx context.Context, actor access.Actor, nc NewCourse) (Course, error) {
	if err := access.Authorize(actor, access.Write, target()); err != nil {
		return Course{}, err
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	now := account.NowFunc().UTC()
	c := Course{
		ID:               uuid.New().String(),
		Code:             nc.Code,
		Name:             nc.Name,
		Description:      nc.Description,
		Units:            nc.Units,
		Term:             nc.Term,
		EnrolledStudents: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !nc.Schedule.IsEmpty() {
		c.Schedule = nc.Schedule
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *Service) Get(ctx context.Context, actor access.Actor, id string) (Course, error) {
	if err := access.Authorize(actor, access.Read, target()); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, actor access.Actor, filter QueryFilter) ([]Course, error) {
	if err := access.Authorize(actor, access.Read, target()); err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, actor access.Actor, id string, uc UpdateCourse) (Course, error) {
	if err := access.Authorize(actor, access.Write, target()); err != nil {
		return Course{}, err
	}
	if err := uc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course by ID")
	}

	uc.apply(&c)
	c.UpdatedAt = account.NowFunc().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

// AssignTeacher sets the course's teacher; the target must be an existing teacher account.
func (svc *Service) AssignTeacher(ctx context.Context, actor access.Actor, at AssignTeacher) (Course, error) {
	if err := access.Authorize(actor, access.Write, target()); err != nil {
		return Course{}, err
	}
	if err := at.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	c, err := svc.repo.GetCourseByID(ctx, at.CourseID)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course by ID")
	}
	teacher, err := svc.accounts.GetAccountByID(ctx, at.TeacherID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Course{}, ErrTeacherNotFound
		}
		return Course{}, errors.Wrap(err, "finding teacher by ID")
	}
	if !teacher.IsTeacher() {
		return Course{}, ErrTeacherNotFound
	}
	if c.TeacherID == teacher.ID {
		return c, nil
	}

	c.TeacherID = teacher.ID
	c.UpdatedAt = account.NowFunc().UTC()
	c, err = svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

// Enroll adds a student to a course. Enrolling an already enrolled student is a no-op.
func (svc *Service) Enroll(ctx context.Context, actor access.Actor, e Enrollment) (Course, error) {
	if err := access.Authorize(actor, access.Write, target()); err != nil {
		return Course{}, err
	}
	if err := e.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	student, err := svc.accounts.GetAccountByID(ctx, e.StudentID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return Course{}, ErrStudentNotFound
		}
		return Course{}, errors.Wrap(err, "finding student by ID")
	}
	if !student.IsStudent() {
		return Course{}, ErrStudentNotFound
	}
	c, err := svc.repo.GetCourseByID(ctx, e.CourseID)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course by ID")
	}
	if c.HasStudent(student.ID) && student.IsEnrolledIn(c.ID) {
		return c, nil
	}

	c, err = svc.repo.EnrollStudent(ctx, c.ID, student.ID)
	return c, errors.Wrap(err, "enrolling student")
}
