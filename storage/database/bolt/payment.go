package boltdb

import (
	"context"
	"sort"
	"strconv"

	"go.etcd.io/bbolt"

	"github.com/trezcool/classbook/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func paymentKey(rec payment.Record) string {
	return indexKey(rec.StudentID, strconv.Itoa(rec.Term), rec.AcademicYear)
}

func getPayment(tx *bbolt.Tx, id string) (payment.Record, error) {
	rec, found, err := get[payment.Record](tx, paymentBucket, id)
	if err != nil {
		return payment.Record{}, err
	}
	if !found {
		return payment.Record{}, payment.ErrNotFound
	}
	return rec, nil
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, rec payment.Record) (payment.Record, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if err := claim(tx, paymentTripleIdx, paymentKey(rec), rec.ID, payment.ErrAlreadyExists); err != nil {
			return err
		}
		return put(tx, paymentBucket, rec.ID, rec)
	})
	if err != nil {
		return payment.Record{}, err
	}
	return rec, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (rec payment.Record, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		rec, err = getPayment(tx, id)
		return err
	})
	return rec, err
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) (records []payment.Record, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		records, err = list(tx, paymentBucket, filter.Match)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, rec payment.Record) (updated payment.Record, err error) {
	err = repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if updated, err = getPayment(tx, rec.ID); err != nil {
			return err
		}
		updated.AmountPaid = rec.AmountPaid
		updated.Balance = rec.Balance
		updated.Status = rec.Status
		updated.Remarks = rec.Remarks
		updated.LastUpdated = rec.LastUpdated
		return put(tx, paymentBucket, updated.ID, updated)
	})
	if err != nil {
		return payment.Record{}, err
	}
	return updated, nil
}
