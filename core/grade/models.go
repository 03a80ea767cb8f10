package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

// Record is the grade of one student in one course.
type Record struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	Components        // inlined: midterm, finals, projects, participation
	FinalGrade *int      `json:"final_grade"`
	Remarks    string    `json:"remarks"`
	RecordedBy string    `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"` // UTC
	CreatedAt  time.Time `json:"created_at"`  // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC
}

// Encode is a teacher's grade entry for a student in a course.
// Only the components that are set are written; a nil Remarks keeps the current remarks.
type Encode struct {
	StudentID  string  `json:"student_id" validate:"required"`
	CourseID   string  `json:"course_id" validate:"required"`
	Components         // inlined
	Remarks    *string `json:"remarks" validate:"omitempty,max=500"`
}

func (e *Encode) Validate(validate *validator.Validate) error {
	e.StudentID = core.CleanString(e.StudentID)
	e.CourseID = core.CleanString(e.CourseID)
	if e.Remarks != nil {
		r := core.CleanString(*e.Remarks)
		e.Remarks = &r
	}
	return validate.Struct(e)
}

// apply writes e into rec, recomputing the final grade when a component is set.
func (e Encode) apply(rec *Record) {
	if !e.Components.IsEmpty() {
		rec.Components.merge(e.Components)
		rec.FinalGrade = FinalGrade(rec.Components)
	}
	if e.Remarks != nil {
		rec.Remarks = *e.Remarks
	}
}

type QueryFilter struct {
	StudentID string
	CourseID  string
}

func (qf QueryFilter) Match(rec Record) bool {
	return (qf.StudentID == "" || rec.StudentID == qf.StudentID) &&
		(qf.CourseID == "" || rec.CourseID == qf.CourseID)
}
