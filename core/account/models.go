package account

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classbook/core"
)

// Role is immutable once the account is created.
type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Account struct {
	ID                 string     `json:"id"`
	SchoolID           string     `json:"school_id"`
	Email              string     `json:"email"`
	PasswordHash       []byte     `json:"-"`
	FirstName          string     `json:"first_name"`
	MiddleName         string     `json:"middle_name"`
	LastName           string     `json:"last_name"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	Contact            string     `json:"contact"`
	Address            string     `json:"address"`
	Role               Role       `json:"role"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedBy          string     `json:"created_by,omitempty"`
	LastLogin          *time.Time `json:"last_login"` // UTC
	EnrolledCourses    []string   `json:"enrolled_courses"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
	UpdatedAt          time.Time  `json:"updated_at"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Account) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (a Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Account) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Account) IsStudent() bool { return a.Role == RoleStudent }

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Account) Actor() Actor { return Actor{ID: a.ID, Role: a.Role} }

func (a Account) IsEnrolledIn(courseID string) bool {
	return core.ContainsString(a.EnrolledCourses, courseID)
}

// NewAccount contains information needed to provision a new Account.
type NewAccount struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	MiddleName  string `json:"middle_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth"`
	Contact     string `json:"contact" validate:"max=50"`
	Address     string `json:"address" validate:"max=255"`

	dob *time.Time
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FirstName = core.CleanString(na.FirstName)
	na.MiddleName = core.CleanString(na.MiddleName)
	na.LastName = core.CleanString(na.LastName)
	na.Contact = core.CleanString(na.Contact)
	na.Address = core.CleanString(na.Address)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if err := validateNames(na.FirstName, na.MiddleName, na.LastName); err != nil {
		return err
	}
	dob, err := parseDateOfBirth(na.DateOfBirth)
	if err != nil {
		return err
	}
	na.dob = dob
	return nil
}

// UpdateProfile defines what an account owner may change; empty fields keep their value.
type UpdateProfile struct {
	FirstName   string `json:"first_name" validate:"max=100"`
	MiddleName  string `json:"middle_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	DateOfBirth string `json:"date_of_birth"`
	Contact     string `json:"contact" validate:"max=50"`
	Address     string `json:"address" validate:"max=255"`

	dob *time.Time
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.MiddleName = core.CleanString(up.MiddleName)
	up.LastName = core.CleanString(up.LastName)
	up.Contact = core.CleanString(up.Contact)
	up.Address = core.CleanString(up.Address)

	if err := validate.Struct(up); err != nil {
		return err
	}
	if err := validateNames(up.FirstName, up.MiddleName, up.LastName); err != nil {
		return err
	}
	dob, err := parseDateOfBirth(up.DateOfBirth)
	if err != nil {
		return err
	}
	up.dob = dob
	return nil
}

func (up UpdateProfile) apply(acc *Account) {
	if up.FirstName != "" {
		acc.FirstName = up.FirstName
	}
	if up.MiddleName != "" {
		acc.MiddleName = up.MiddleName
	}
	if up.LastName != "" {
		acc.LastName = up.LastName
	}
	if up.dob != nil {
		acc.DateOfBirth = up.dob
	}
	if up.Contact != "" {
		acc.Contact = up.Contact
	}
	if up.Address != "" {
		acc.Address = up.Address
	}
}

type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`

	// owner attributes the new password must not resemble
	email, firstName, lastName string
}

func (cp *ChangePassword) Validate(validate *validator.Validate, owner Account) error {
	cp.email = owner.Email
	cp.firstName = owner.FirstName
	cp.lastName = owner.LastName
	return validate.Struct(cp)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     Role   `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// Match reports whether acc satisfies every set field of the filter.
func (qf QueryFilter) Match(acc Account) bool {
	if qf.Role != "" && acc.Role != qf.Role {
		return false
	}
	if qf.IsActive != nil && acc.IsActive != *qf.IsActive {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(acc.FullName()), search) &&
			!strings.Contains(acc.Email, search) &&
			!strings.Contains(strings.ToLower(acc.SchoolID), search) {
			return false
		}
	}
	return true
}

// Provisioned is returned to the admin who created or reset an account.
type Provisioned struct {
	Account         Account `json:"account"`
	DefaultPassword string  `json:"default_password"`
}

// validateNames rejects names that are not valid UTF-8; default passwords are derived from them.
func validateNames(first, middle, last string) error {
	names := [...]struct{ field, value string }{
		{"first_name", first},
		{"middle_name", middle},
		{"last_name", last},
	}
	for _, n := range names {
		if !utf8.ValidString(n.value) {
			return core.NewValidationError(nil, core.FieldError{Field: n.field, Error: "must be valid UTF-8 text"})
		}
	}
	return nil
}

func parseDateOfBirth(s string) (*time.Time, error) {
	if core.CleanString(s) == "" {
		return nil, nil
	}
	t, err := core.ParseDate(s)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: "invalid date"})
	}
	return &t, nil
}
