package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/account"
)

const accountColumns = `a.id, a.school_id, a.email, a.password_hash, a.first_name, a.middle_name, a.last_name,
	a.date_of_birth, a.contact, a.address, a.role, a.is_active, a.must_change_password, a.created_by,
	a.last_login, a.created_at, a.updated_at,
	ARRAY(SELECT e.course_id::text FROM enrollments e WHERE e.student_id = a.id ORDER BY e.enrolled_at) AS enrolled_courses`

type accountRow struct {
	ID                 string         `db:"id"`
	SchoolID           string         `db:"school_id"`
	Email              string         `db:"email"`
	PasswordHash       []byte         `db:"password_hash"`
	FirstName          string         `db:"first_name"`
	MiddleName         string         `db:"middle_name"`
	LastName           string         `db:"last_name"`
	DateOfBirth        null.Time      `db:"date_of_birth"`
	Contact            string         `db:"contact"`
	Address            string         `db:"address"`
	Role               string         `db:"role"`
	IsActive           bool           `db:"is_active"`
	MustChangePassword bool           `db:"must_change_password"`
	CreatedBy          null.String    `db:"created_by"`
	LastLogin          null.Time      `db:"last_login"`
	EnrolledCourses    pq.StringArray `db:"enrolled_courses"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func newAccountRow(acc account.Account) accountRow {
	return accountRow{
		ID:                 acc.ID,
		SchoolID:           acc.SchoolID,
		Email:              acc.Email,
		PasswordHash:       acc.PasswordHash,
		FirstName:          acc.FirstName,
		MiddleName:         acc.MiddleName,
		LastName:           acc.LastName,
		DateOfBirth:        null.TimeFromPtr(acc.DateOfBirth),
		Contact:            acc.Contact,
		Address:            acc.Address,
		Role:               string(acc.Role),
		IsActive:           acc.IsActive,
		MustChangePassword: acc.MustChangePassword,
		CreatedBy:          nullString(acc.CreatedBy),
		LastLogin:          null.TimeFromPtr(acc.LastLogin),
		CreatedAt:          acc.CreatedAt.UTC(),
		UpdatedAt:          acc.UpdatedAt.UTC(),
	}
}

func (row accountRow) account() account.Account {
	acc := account.Account{
		ID:                 row.ID,
		SchoolID:           row.SchoolID,
		Email:              row.Email,
		PasswordHash:       row.PasswordHash,
		FirstName:          row.FirstName,
		MiddleName:         row.MiddleName,
		LastName:           row.LastName,
		DateOfBirth:        row.DateOfBirth.Ptr(),
		Contact:            row.Contact,
		Address:            row.Address,
		Role:               account.Role(row.Role),
		IsActive:           row.IsActive,
		MustChangePassword: row.MustChangePassword,
		CreatedBy:          row.CreatedBy.String,
		LastLogin:          row.LastLogin.Ptr(),
		EnrolledCourses:    []string(row.EnrolledCourses),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if acc.EnrolledCourses == nil {
		acc.EnrolledCourses = []string{}
	}
	return acc
}

type accountRepository struct {
	exec core.DBExecutor
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) account.Repository {
	return &accountRepository{exec: exec}
}

func (repo *accountRepository) trapUniqueErr(err error, msg string) error {
	if constraint, ok := constraintViolated(err); ok {
		switch constraint {
		case "accounts_email_key":
			return account.ErrEmailExists
		case "accounts_school_id_key":
			return account.ErrSchoolIDExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *accountRepository) getOne(ctx context.Context, where string, arg interface{}) (account.Account, error) {
	var row accountRow
	q := repo.exec.Rebind("SELECT " + accountColumns + " FROM accounts a WHERE " + where)
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "selecting account")
	}
	return row.account(), nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	const q = `INSERT INTO accounts (
		id, school_id, email, password_hash, first_name, middle_name, last_name, date_of_birth, contact, address,
		role, is_active, must_change_password, created_by, last_login, created_at, updated_at
	) VALUES (
		:id, :school_id, :email, :password_hash, :first_name, :middle_name, :last_name, :date_of_birth, :contact, :address,
		:role, :is_active, :must_change_password, :created_by, :last_login, :created_at, :updated_at
	)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, newAccountRow(acc)); err != nil {
		return account.Account{}, repo.trapUniqueErr(err, "inserting account")
	}
	return repo.GetAccountByID(ctx, acc.ID)
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	return repo.getOne(ctx, "a.id = ?", id)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.getOne(ctx, "a.email = ?", email)
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	var conds conditions
	if filter.Role != "" {
		conds.add("a.role = ?", string(filter.Role))
	}
	if filter.IsActive != nil {
		conds.add("a.is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds.add(
			"(lower(concat_ws(' ', a.first_name, a.middle_name, a.last_name)) LIKE ? OR a.email LIKE ? OR lower(a.school_id) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	var rows []accountRow
	q := repo.exec.Rebind("SELECT " + accountColumns + " FROM accounts a" + conds.where() + " ORDER BY a.created_at, a.id")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "selecting accounts")
	}

	accounts := make([]account.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.account())
	}
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	const q = `UPDATE accounts SET
		email = :email, password_hash = :password_hash, first_name = :first_name, middle_name = :middle_name,
		last_name = :last_name, date_of_birth = :date_of_birth, contact = :contact, address = :address,
		is_active = :is_active, must_change_password = :must_change_password, last_login = :last_login,
		updated_at = :updated_at
	WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, newAccountRow(acc))
	if err != nil {
		return account.Account{}, repo.trapUniqueErr(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return repo.GetAccountByID(ctx, acc.ID)
}
