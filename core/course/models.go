package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

const DefaultUnits = 3

type Schedule struct {
	DayOfWeek string `json:"day_of_week" validate:"max=20"`
	Time      string `json:"time" validate:"max=50"`
	Room      string `json:"room" validate:"max=50"`
}

func (s *Schedule) clean() {
	if s == nil {
		return
	}
	s.DayOfWeek = core.CleanString(s.DayOfWeek)
	s.Time = core.CleanString(s.Time)
	s.Room = core.CleanString(s.Room)
}

func (s *Schedule) IsEmpty() bool {
	return s == nil || (s.DayOfWeek == "" && s.Time == "" && s.Room == "")
}

type Course struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Units            int       `json:"units"`
	Term             int       `json:"term"`
	TeacherID        string    `json:"teacher_id"`
	EnrolledStudents []string  `json:"enrolled_students"`
	Schedule         *Schedule `json:"schedule"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (c Course) HasStudent(studentID string) bool {
	return core.ContainsString(c.EnrolledStudents, studentID)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code        string    `json:"code" validate:"required,max=20,code"`
	Name        string    `json:"name" validate:"required,max=150"`
	Description string    `json:"description" validate:"max=2000"`
	Units       int       `json:"units" validate:"omitempty,min=1,max=12"`
	Term        int       `json:"term" validate:"required,min=1,max=12"`
	Schedule    *Schedule `json:"schedule" validate:"omitempty"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Schedule.clean()
	if nc.Units == 0 {
		nc.Units = DefaultUnits
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what may be changed on a Course; zero values keep the current value.
type UpdateCourse struct {
	Code        string    `json:"code" validate:"omitempty,max=20,code"`
	Name        string    `json:"name" validate:"max=150"`
	Description string    `json:"description" validate:"max=2000"`
	Units       int       `json:"units" validate:"omitempty,min=1,max=12"`
	Term        int       `json:"term" validate:"omitempty,min=1,max=12"`
	Schedule    *Schedule `json:"schedule" validate:"omitempty"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Code = core.CleanString(uc.Code)
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	uc.Schedule.clean()
	return validate.Struct(uc)
}

func (uc UpdateCourse) apply(c *Course) {
	if uc.Code != "" {
		c.Code = uc.Code
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	if uc.Units != 0 {
		c.Units = uc.Units
	}
	if uc.Term != 0 {
		c.Term = uc.Term
	}
	if !uc.Schedule.IsEmpty() {
		c.Schedule = uc.Schedule
	}
}

type AssignTeacher struct {
	CourseID  string `json:"course_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (at *AssignTeacher) Validate(validate *validator.Validate) error {
	at.CourseID = core.CleanString(at.CourseID)
	at.TeacherID = core.CleanString(at.TeacherID)
	return validate.Struct(at)
}

type Enrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

func (e *Enrollment) Validate(validate *validator.Validate) error {
	e.StudentID = core.CleanString(e.StudentID)
	e.CourseID = core.CleanString(e.CourseID)
	return validate.Struct(e)
}

type QueryFilter struct {
	Term      int    `query:"term"`
	TeacherID string `query:"teacher_id"`
	StudentID string `query:"student_id"`
}

func (qf QueryFilter) Match(c Course) bool {
	if qf.Term != 0 && c.Term != qf.Term {
		return false
	}
	if qf.TeacherID != "" && c.TeacherID != qf.TeacherID {
		return false
	}
	if qf.StudentID != "" && !c.HasStudent(qf.StudentID) {
		return false
	}
	return true
}
