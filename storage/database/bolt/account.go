package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/trezcool/classbook/core/account"
)

// accountDoc persists the password hash, which account.Account never serializes.
type accountDoc struct {
	account.Account
	PasswordHash []byte `json:"password_hash"`
}

func newAccountDoc(acc account.Account) accountDoc {
	if acc.EnrolledCourses == nil {
		acc.EnrolledCourses = []string{}
	}
	return accountDoc{Account: acc, PasswordHash: acc.PasswordHash}
}

func (doc accountDoc) toAccount() account.Account {
	acc := doc.Account
	acc.PasswordHash = doc.PasswordHash
	return acc
}

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func getAccount(tx *bbolt.Tx, id string) (accountDoc, error) {
	doc, found, err := get[accountDoc](tx, accountBucket, id)
	if err != nil {
		return accountDoc{}, err
	}
	if !found {
		return accountDoc{}, account.ErrNotFound
	}
	return doc, nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if err := claim(tx, accountEmailIdx, acc.Email, acc.ID, account.ErrEmailExists); err != nil {
			return err
		}
		if err := claim(tx, accountSchoolIDIdx, acc.SchoolID, acc.ID, account.ErrSchoolIDExists); err != nil {
			return err
		}
		return put(tx, accountBucket, acc.ID, newAccountDoc(acc))
	})
	if err != nil {
		return account.Account{}, err
	}
	return newAccountDoc(acc).toAccount(), nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (acc account.Account, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		doc, err := getAccount(tx, id)
		acc = doc.toAccount()
		return err
	})
	return acc, err
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (acc account.Account, err error) {
	err = repo.db.view(ctx, func(tx *bbolt.Tx) error {
		id, found := lookup(tx, accountEmailIdx, email)
		if !found {
			return account.ErrNotFound
		}
		doc, err := getAccount(tx, id)
		acc = doc.toAccount()
		return err
	})
	return acc, err
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	var accounts []account.Account
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		docs, err := list(tx, accountBucket, func(doc accountDoc) bool { return filter.Match(doc.Account) })
		if err != nil {
			return err
		}
		accounts = make([]account.Account, 0, len(docs))
		for _, doc := range docs {
			accounts = append(accounts, doc.toAccount())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		orig, err := getAccount(tx, acc.ID)
		if err != nil {
			return err
		}
		if orig.Email != acc.Email {
			if err = claim(tx, accountEmailIdx, acc.Email, acc.ID, account.ErrEmailExists); err != nil {
				return err
			}
			if err = release(tx, accountEmailIdx, orig.Email); err != nil {
				return err
			}
		}

		acc.EnrolledCourses = orig.EnrolledCourses
		return put(tx, accountBucket, acc.ID, newAccountDoc(acc))
	})
	if err != nil {
		return account.Account{}, err
	}
	return newAccountDoc(acc).toAccount(), nil
}
