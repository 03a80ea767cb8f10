package account

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("account not found")
	ErrEmailExists    = core.NewAlreadyExistsError("an account with this email already exists")
	ErrSchoolIDExists = core.NewAlreadyExistsError("an account with this ID already exists, please retry")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDeactivated        = errors.New("account deactivated")
	ErrSelfDeactivation   = core.NewForbiddenError("you cannot deactivate your own account")
	errWrongPassword      = "current password is incorrect"
)

type (
	Repository interface {
		// CreateAccount fails with ErrEmailExists or ErrSchoolIDExists on uniqueness violations.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// QueryAccounts applies AND on the set QueryFilter fields, oldest first.
		QueryAccounts(ctx context.Context, filter QueryFilter) ([]Account, error)
		// UpdateAccount replaces the stored account, except EnrolledCourses which are owned by enrollments.
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	// Authorizer returns an error when actor may not write the account ownerID.
	// ownerID is empty for accounts that do not exist yet.
	Authorizer func(actor Actor, ownerID string) error

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		validate  *validator.Validate
		authorize Authorizer
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, authorize Authorizer) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, validate: validate, authorize: authorize}
}

func (svc *Service) CreateStudent(ctx context.Context, actor Actor, na NewAccount) (Provisioned, error) {
	return svc.provision(ctx, RoleStudent, actor, na)
}

func (svc *Service) CreateTeacher(ctx context.Context, actor Actor, na NewAccount) (Provisioned, error) {
	return svc.provision(ctx, RoleTeacher, actor, na)
}

func (svc *Service) provision(ctx context.Context, role Role, actor Actor, na NewAccount) (Provisioned, error) {
	if err := svc.authorize(actor, ""); err != nil {
		return Provisioned{}, err
	}
	if err := na.Validate(svc.validate); err != nil {
		return Provisioned{}, err
	}

	pwd := DefaultPassword(na.FirstName, na.LastName)
	acc := svc.newAccount(role, na)
	acc.CreatedBy = actor.ID
	acc.MustChangePassword = true
	if err := acc.SetPassword(pwd); err != nil {
		return Provisioned{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		return Provisioned{}, errors.Wrap(err, "creating account")
	}

	svc.sendCredentialMail(acc, pwd, "Welcome to Classbook", "welcome")
	return Provisioned{Account: acc, DefaultPassword: pwd}, nil
}

// CreateAdmin bootstraps an admin account with a chosen password.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAccount, pwd string) (Account, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Account{}, err
	}
	if pwd == "" {
		return Account{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: "this field is required"})
	}

	acc := svc.newAccount(RoleAdmin, na)
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc, err := svc.repo.CreateAccount(ctx, acc)
	return acc, errors.Wrap(err, "creating admin account")
}

func (svc *Service) newAccount(role Role, na NewAccount) Account {
	now := NowFunc()
	nowUTC := now.UTC()
	return Account{
		ID:              uuid.New().String(),
		SchoolID:        SchoolID(role, now),
		Email:           na.Email,
		FirstName:       na.FirstName,
		MiddleName:      na.MiddleName,
		LastName:        na.LastName,
		DateOfBirth:     na.dob,
		Contact:         na.Contact,
		Address:         na.Address,
		Role:            role,
		IsActive:        true,
		EnrolledCourses: []string{},
		CreatedAt:       nowUTC,
		UpdatedAt:       nowUTC,
	}
}

// Authenticate checks the credentials of an active account and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if !acc.IsActive {
		return Account{}, ErrDeactivated
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	now := NowFunc().UTC()
	acc.LastLogin = &now
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Account, error) {
	filter.Clean()
	return svc.repo.QueryAccounts(ctx, filter)
}

func (svc *Service) ChangePassword(ctx context.Context, actor Actor, id string, cp ChangePassword) (Account, error) {
	if err := svc.authorize(actor, id); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by ID")
	}
	if err = cp.Validate(svc.validate, acc); err != nil {
		return Account{}, err
	}
	if err = acc.CheckPassword(cp.CurrentPassword); err != nil {
		return Account{}, core.NewValidationError(nil, core.FieldError{Field: "current_password", Error: errWrongPassword})
	}

	if err = acc.SetPassword(cp.NewPassword); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.MustChangePassword = false
	acc.UpdatedAt = NowFunc().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating account")
}

func (svc *Service) UpdateProfile(ctx context.Context, actor Actor, id string, up UpdateProfile) (Account, error) {
	if err := svc.authorize(actor, id); err != nil {
		return Account{}, err
	}
	if err := up.Validate(svc.validate); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by ID")
	}

	up.apply(&acc)
	acc.UpdatedAt = NowFunc().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating account")
}

// SetActive (de)activates an account. Accounts are never deleted.
func (svc *Service) SetActive(ctx context.Context, actor Actor, id string, active bool) (Account, error) {
	// owners may write their own account, but only admins may (de)activate one
	if err := svc.authorize(actor, ""); err != nil {
		return Account{}, err
	}
	if !active && actor.ID == id {
		return Account{}, ErrSelfDeactivation
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by ID")
	}
	if acc.IsActive == active {
		return acc, nil
	}
	acc.IsActive = active
	acc.UpdatedAt = NowFunc().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating account")
}

// ResetPassword regenerates the default password from the current names and forces a change on next login.
// The school ID is left untouched.
func (svc *Service) ResetPassword(ctx context.Context, actor Actor, id string) (Provisioned, error) {
	if err := svc.authorize(actor, ""); err != nil {
		return Provisioned{}, err
	}
	acc, err := svc.repo.GetAccountByID(ctx, id)
	if err != nil {
		return Provisioned{}, errors.Wrap(err, "finding account by ID")
	}

	pwd := DefaultPassword(acc.FirstName, acc.LastName)
	if err = acc.SetPassword(pwd); err != nil {
		return Provisioned{}, errors.Wrap(err, "hashing password")
	}
	acc.MustChangePassword = true
	acc.UpdatedAt = NowFunc().UTC()
	if acc, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		return Provisioned{}, errors.Wrap(err, "updating account")
	}

	svc.sendCredentialMail(acc, pwd, "Your password has been reset", "password_reset")
	return Provisioned{Account: acc, DefaultPassword: pwd}, nil
}

// SetPassword sets a chosen password without policy checks; used by the admin CLI.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.MustChangePassword = false
	acc.UpdatedAt = NowFunc().UTC()
	acc, err = svc.repo.UpdateAccount(ctx, acc)
	return acc, errors.Wrap(err, "updating account")
}

type credentialMailData struct {
	Name     string
	SchoolID string
	Email    string
	Password string
}

func (svc *Service) sendCredentialMail(acc Account, pwd, subject, tmpl string) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.FullName(), Address: acc.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: credentialMailData{
			Name:     acc.FirstName,
			SchoolID: acc.SchoolID,
			Email:    acc.Email,
			Password: pwd,
		},
	})
}
