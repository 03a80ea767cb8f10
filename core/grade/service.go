package grade

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/course"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("grade record not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
)

type (
	Repository interface {
		// GetGrade returns ErrNotFound when the pair has no record yet.
		GetGrade(ctx context.Context, studentID, courseID string) (Record, error)
		// SaveGrade inserts or replaces the record of its (student, course) pair.
		SaveGrade(ctx context.Context, rec Record) (Record, error)
		// QueryGrades returns matching records, oldest first.
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	AccountFinder interface {
		GetAccountByID(ctx context.Context, id string) (account.Account, error)
	}

	CourseFinder interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo     Repository
		accounts AccountFinder
		courses  CourseFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, accounts AccountFinder, courses CourseFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, accounts: accounts, courses: courses, validate: validate}
}

// Encode creates or updates the grade record of a (student, course) pair.
func (svc *Service) Encode(ctx context.Context, actor access.Actor, enc Encode) (Record, error) {
	if err := enc.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	if err := access.Authorize(actor, access.Write, access.Target{Kind: access.KindGrade, OwnerID: enc.StudentID}); err != nil {
		return Record{}, err
	}
	if err := svc.checkStudent(ctx, enc.StudentID); err != nil {
		return Record{}, err
	}
	if _, err := svc.courses.GetCourseByID(ctx, enc.CourseID); err != nil {
		return Record{}, errors.Wrap(err, "finding course by ID")
	}

	now := account.NowFunc().UTC()
	rec, err := svc.repo.GetGrade(ctx, enc.StudentID, enc.CourseID)
	switch {
	case errors.Cause(err) == ErrNotFound:
		rec = Record{
			ID:        uuid.New().String(),
			StudentID: enc.StudentID,
			CourseID:  enc.CourseID,
			CreatedAt: now,
		}
	case err != nil:
		return Record{}, errors.Wrap(err, "finding grade record")
	}

	enc.apply(&rec)
	rec.RecordedBy = actor.ID
	rec.RecordedAt = now
	rec.UpdatedAt = now
	rec, err = svc.repo.SaveGrade(ctx, rec)
	return rec, errors.Wrap(err, "saving grade record")
}

// ForStudent lists the grades of a student; students may only list their own.
func (svc *Service) ForStudent(ctx context.Context, actor access.Actor, studentID string) ([]Record, error) {
	if err := access.Authorize(actor, access.Read, access.Target{Kind: access.KindGrade, OwnerID: studentID}); err != nil {
		return nil, err
	}
	if err := svc.checkStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryGrades(ctx, QueryFilter{StudentID: studentID})
}

// ForCourse lists every grade recorded in a course.
func (svc *Service) ForCourse(ctx context.Context, actor access.Actor, courseID string) ([]Record, error) {
	if err := access.Authorize(actor, access.Read, access.Target{Kind: access.KindGrade}); err != nil {
		return nil, err
	}
	if _, err := svc.courses.GetCourseByID(ctx, courseID); err != nil {
		return nil, errors.Wrap(err, "finding course by ID")
	}
	return svc.repo.QueryGrades(ctx, QueryFilter{CourseID: courseID})
}

func (svc *Service) checkStudent(ctx context.Context, id string) error {
	student, err := svc.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return ErrStudentNotFound
		}
		return errors.Wrap(err, "finding student by ID")
	}
	if !student.IsStudent() {
		return ErrStudentNotFound
	}
	return nil
}
