package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/payment"
)

type paymentRepository struct {
	db *table[payment.Record]
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	filter := payment.QueryFilter{StudentID: rec.StudentID, Term: rec.Term, AcademicYear: rec.AcademicYear}
	if _, found := repo.db.find(filter.Match); found {
		return payment.Record{}, payment.ErrAlreadyExists
	}
	repo.db.insert(rec.ID, rec)
	return rec, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string) (payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.get(id); ok {
		return *rec, nil
	}
	return payment.Record{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.filter(filter.Match), nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.get(rec.ID)
	if !ok {
		return payment.Record{}, payment.ErrNotFound
	}
	orig.AmountPaid = rec.AmountPaid
	orig.Balance = rec.Balance
	orig.Status = rec.Status
	orig.Remarks = rec.Remarks
	orig.LastUpdated = rec.LastUpdated
	return *orig, nil
}
