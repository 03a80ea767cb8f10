package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/payment"
)

const paymentColumns = `id, student_id, term, academic_year, total_amount, amount_paid, balance, status,
	due_date, remarks, created_by, last_updated, created_at`

type paymentRow struct {
	ID           string      `db:"id"`
	StudentID    string      `db:"student_id"`
	Term         int         `db:"term"`
	AcademicYear string      `db:"academic_year"`
	TotalAmount  int64       `db:"total_amount"`
	AmountPaid   int64       `db:"amount_paid"`
	Balance      int64       `db:"balance"`
	Status       string      `db:"status"`
	DueDate      time.Time   `db:"due_date"`
	Remarks      string      `db:"remarks"`
	CreatedBy    null.String `db:"created_by"`
	LastUpdated  time.Time   `db:"last_updated"`
	CreatedAt    time.Time   `db:"created_at"`
}

func newPaymentRow(rec payment.Record) paymentRow {
	return paymentRow{
		ID:           rec.ID,
		StudentID:    rec.StudentID,
		Term:         rec.Term,
		AcademicYear: rec.AcademicYear,
		TotalAmount:  rec.TotalAmount.Cents(),
		AmountPaid:   rec.AmountPaid.Cents(),
		Balance:      rec.Balance.Cents(),
		Status:       string(rec.Status),
		DueDate:      rec.DueDate.UTC(),
		Remarks:      rec.Remarks,
		CreatedBy:    nullString(rec.CreatedBy),
		LastUpdated:  rec.LastUpdated.UTC(),
		CreatedAt:    rec.CreatedAt.UTC(),
	}
}

func (row paymentRow) record() payment.Record {
	return payment.Record{
		ID:           row.ID,
		StudentID:    row.StudentID,
		Term:         row.Term,
		AcademicYear: row.AcademicYear,
		TotalAmount:  core.MoneyFromCents(row.TotalAmount),
		AmountPaid:   core.MoneyFromCents(row.AmountPaid),
		Balance:      core.MoneyFromCents(row.Balance),
		Status:       payment.Status(row.Status),
		DueDate:      row.DueDate,
		Remarks:      row.Remarks,
		CreatedBy:    row.CreatedBy.String,
		LastUpdated:  row.LastUpdated,
		CreatedAt:    row.CreatedAt,
	}
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{exec: exec}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, rec payment.Record) (payment.Record, error) {
	const q = `INSERT INTO payments (` + paymentColumns + `) VALUES (
		:id, :student_id, :term, :academic_year, :total_amount, :amount_paid, :balance, :status,
		:due_date, :remarks, :created_by, :last_updated, :created_at
	)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, newPaymentRow(rec)); err != nil {
		if constraint, ok := constraintViolated(err); ok && constraint == "payments_student_term_year_key" {
			return payment.Record{}, payment.ErrAlreadyExists
		}
		return payment.Record{}, errors.Wrap(err, "inserting payment")
	}
	return repo.GetPaymentByID(ctx, rec.ID)
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Record, error) {
	var row paymentRow
	q := repo.exec.Rebind("SELECT " + paymentColumns + " FROM payments WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id); err != nil {
		return payment.Record{}, trapNoRowsErr(err, payment.ErrNotFound, "selecting payment")
	}
	return row.record(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Record, error) {
	var conds conditions
	if filter.StudentID != "" {
		conds.add("student_id = ?", filter.StudentID)
	}
	if filter.Term != 0 {
		conds.add("term = ?", filter.Term)
	}
	if filter.AcademicYear != "" {
		conds.add("academic_year = ?", filter.AcademicYear)
	}
	if filter.Status != "" {
		conds.add("status = ?", string(filter.Status))
	}

	var rows []paymentRow
	q := repo.exec.Rebind("SELECT " + paymentColumns + " FROM payments" + conds.where() + " ORDER BY created_at, id")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}

	records := make([]payment.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

// UpdatePayment writes the ledger fields in a single statement.
func (repo *paymentRepository) UpdatePayment(ctx context.Context, rec payment.Record) (payment.Record, error) {
	const q = `UPDATE payments SET
		amount_paid = :amount_paid, balance = :balance, status = :status, remarks = :remarks, last_updated = :last_updated
	WHERE id = :id
	RETURNING ` + paymentColumns

	q2, args, err := repo.exec.BindNamed(q, newPaymentRow(rec))
	if err != nil {
		return payment.Record{}, errors.Wrap(err, "binding payment")
	}
	var row paymentRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, q2, args...); err != nil {
		return payment.Record{}, trapNoRowsErr(err, payment.ErrNotFound, "updating payment")
	}
	return row.record(), nil
}
