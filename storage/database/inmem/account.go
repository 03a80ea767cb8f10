package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/account"
)

type accountRepository struct {
	db *table[account.Account]
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func cloneAccount(acc account.Account) account.Account {
	acc.EnrolledCourses = cloneStrings(acc.EnrolledCourses)
	return acc
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, found := repo.db.find(func(a account.Account) bool { return a.Email == acc.Email }); found {
		return account.Account{}, account.ErrEmailExists
	}
	if _, found := repo.db.find(func(a account.Account) bool { return a.SchoolID == acc.SchoolID }); found {
		return account.Account{}, account.ErrSchoolIDExists
	}
	acc = cloneAccount(acc)
	repo.db.insert(acc.ID, acc)
	return cloneAccount(acc), nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.get(id); ok {
		return cloneAccount(*acc), nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, found := repo.db.find(func(a account.Account) bool { return a.Email == email }); found {
		return cloneAccount(acc), nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	accounts := repo.db.filter(filter.Match)
	for i := range accounts {
		accounts[i] = cloneAccount(accounts[i])
	}
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.get(acc.ID)
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if _, found := repo.db.find(func(a account.Account) bool { return a.Email == acc.Email && a.ID != acc.ID }); found {
		return account.Account{}, account.ErrEmailExists
	}

	// enrollments are only written by the course repository
	acc.EnrolledCourses = orig.EnrolledCourses
	*orig = cloneAccount(acc)
	return cloneAccount(*orig), nil
}
