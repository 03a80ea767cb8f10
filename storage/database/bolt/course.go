package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/trezcool/classbook/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func getCourse(tx *bbolt.Tx, id string) (course.Course, error) {
	c, found, err := get[course.Course](tx, courseBucket, id)
	if err != nil {
		return course.Course{}, err
	}
	if !found {
		return course.Course{}, course.ErrNotFound
	}
	if c.EnrolledStudents == nil {
		c.EnrolledStudents = []string{}
	}
	return c, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if c.EnrolledStudents == nil {
		c.EnrolledStudents = []string{}
	}
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if err := claim(tx, courseCodeIdx, c.Code, c.ID, course.ErrCodeExists); err != nil {
			return err
		}
		return put(tx, courseBucket, c.ID, c)
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (c course.Course, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		c, err = getCourse(tx, id)
		return err
	})
	return c, err
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) (courses []course.Course, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		courses, err = list(tx, courseBucket, filter.Match)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		orig, err := getCourse(tx, c.ID)
		if err != nil {
			return err
		}
		if orig.Code != c.Code {
			if err = claim(tx, courseCodeIdx, c.Code, c.ID, course.ErrCodeExists); err != nil {
				return err
			}
			if err = release(tx, courseCodeIdx, orig.Code); err != nil {
				return err
			}
		}

		c.EnrolledStudents = orig.EnrolledStudents
		return put(tx, courseBucket, c.ID, c)
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) EnrollStudent(ctx context.Context, courseID, studentID string) (c course.Course, err error) {
	err = repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if c, err = getCourse(tx, courseID); err != nil {
			return err
		}
		student, err := getAccount(tx, studentID)
		if err != nil {
			return course.ErrStudentNotFound
		}

		if !c.HasStudent(studentID) {
			c.EnrolledStudents = append(c.EnrolledStudents, studentID)
			if err = put(tx, courseBucket, c.ID, c); err != nil {
				return err
			}
		}
		if !student.IsEnrolledIn(courseID) {
			student.EnrolledCourses = append(student.EnrolledCourses, courseID)
			return put(tx, accountBucket, student.ID, student)
		}
		return nil
	})
	return c, err
}
