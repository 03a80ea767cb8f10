package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

type Status string

// Statuses
const (
	StatusUnpaid  Status = "Unpaid"
	StatusPartial Status = "Partial"
	StatusPaid    Status = "Paid"
)

// Record is one tuition obligation of a student for a term of an academic year.
// Balance and Status are derived from TotalAmount and AmountPaid by ApplyPayment.
type Record struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	Term         int        `json:"term"`
	AcademicYear string     `json:"academic_year"`
	TotalAmount  core.Money `json:"total_amount"`
	AmountPaid   core.Money `json:"amount_paid"`
	Balance      core.Money `json:"balance"`
	Status       Status     `json:"status"`
	DueDate      time.Time  `json:"due_date"` // UTC
	Remarks      string     `json:"remarks"`
	CreatedBy    string     `json:"created_by"`
	LastUpdated  time.Time  `json:"last_updated"` // UTC
	CreatedAt    time.Time  `json:"created_at"`   // UTC
}

// NewRecord contains information needed to create a new Record.
type NewRecord struct {
	StudentID    string     `json:"student_id" validate:"required"`
	TotalAmount  core.Money `json:"total_amount" validate:"gt=0"`
	Term         int        `json:"term" validate:"required,min=1,max=12"`
	AcademicYear string     `json:"academic_year" validate:"omitempty,academicyear"`
	DueDate      string     `json:"due_date" validate:"required"`
	Remarks      string     `json:"remarks" validate:"max=500"`

	dueDate time.Time
}

func (nr *NewRecord) Validate(validate *validator.Validate, defaultAcademicYear string) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.AcademicYear = core.CleanString(nr.AcademicYear)
	nr.Remarks = core.CleanString(nr.Remarks)
	if nr.AcademicYear == "" {
		nr.AcademicYear = defaultAcademicYear
	}
	if err := validate.Struct(nr); err != nil {
		return err
	}

	dueDate, err := core.ParseDate(nr.DueDate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date, expected YYYY-MM-DD"})
	}
	nr.dueDate = dueDate
	return nil
}

// Update carries an admin's payment entry. AmountPaid is the new cumulative amount, not an increment.
type Update struct {
	AmountPaid *core.Money `json:"amount_paid"`
	Remarks    *string     `json:"remarks" validate:"omitempty,max=500"`
}

func (u *Update) Validate(validate *validator.Validate) error {
	if u.Remarks != nil {
		r := core.CleanString(*u.Remarks)
		u.Remarks = &r
	}
	return validate.Struct(u)
}

type QueryFilter struct {
	StudentID    string `query:"student_id"`
	Term         int    `query:"term"`
	AcademicYear string `query:"academic_year"`
	Status       Status `query:"status"`
}

func (qf QueryFilter) Match(rec Record) bool {
	if qf.StudentID != "" && rec.StudentID != qf.StudentID {
		return false
	}
	if qf.Term != 0 && rec.Term != qf.Term {
		return false
	}
	if qf.AcademicYear != "" && rec.AcademicYear != qf.AcademicYear {
		return false
	}
	if qf.Status != "" && rec.Status != qf.Status {
		return false
	}
	return true
}
