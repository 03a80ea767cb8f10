package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/course"
)

type courseRepository struct {
	db       *table[course.Course]
	accounts *table[account.Account]
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course, accounts: db.account}
}

func cloneCourse(c course.Course) course.Course {
	c.EnrolledStudents = cloneStrings(c.EnrolledStudents)
	if c.Schedule != nil {
		sched := *c.Schedule
		c.Schedule = &sched
	}
	return c
}

func (repo *courseRepository) codeTaken(c course.Course) bool {
	_, found := repo.db.find(func(other course.Course) bool { return other.Code == c.Code && other.ID != c.ID })
	return found
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.codeTaken(c) {
		return course.Course{}, course.ErrCodeExists
	}
	c = cloneCourse(c)
	repo.db.insert(c.ID, c)
	return cloneCourse(c), nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.get(id); ok {
		return cloneCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.db.filter(filter.Match)
	for i := range courses {
		courses[i] = cloneCourse(courses[i])
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.get(c.ID)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if repo.codeTaken(c) {
		return course.Course{}, course.ErrCodeExists
	}

	c.EnrolledStudents = orig.EnrolledStudents
	*orig = cloneCourse(c)
	return cloneCourse(*orig), nil
}

func (repo *courseRepository) EnrollStudent(_ context.Context, courseID, studentID string) (course.Course, error) {
	// lock order: accounts, then courses
	repo.accounts.Lock()
	defer repo.accounts.Unlock()
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.get(courseID)
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	student, ok := repo.accounts.get(studentID)
	if !ok {
		return course.Course{}, course.ErrStudentNotFound
	}

	if !c.HasStudent(studentID) {
		c.EnrolledStudents = append(cloneStrings(c.EnrolledStudents), studentID)
	}
	if !student.IsEnrolledIn(courseID) {
		student.EnrolledCourses = append(cloneStrings(student.EnrolledCourses), courseID)
	}
	return cloneCourse(*c), nil
}
