package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/services/email"
	"github.com/trezcool/classbook/storage/database/inmem"
	"github.com/trezcool/classbook/testutil"
)

var (
	now   = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	admin = account.Actor{ID: "admin-id", Role: account.RoleAdmin}
)

func setup(t *testing.T) (*account.Service, account.Repository, *emailsvc.ConsoleServiceMock) {
	testutil.FreezeTime(t, now)
	repo := inmemdb.NewAccountRepository(inmemdb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(core.NewTestConfig())
	return account.NewService(repo, mailSvc, testutil.NewValidator(), access.AuthorizeAccountWrite), repo, mailSvc
}

func newJuan() account.NewAccount {
	return account.NewAccount{Email: " Juan@ICC.edu ", FirstName: "Juan", LastName: "DelaCruz", Contact: "0917"}
}

func TestService_CreateStudent(t *testing.T) {
	svc, _, mailSvc := setup(t)
	ctx := context.Background()

	prov, err := svc.CreateStudent(ctx, admin, newJuan())
	require.NoError(t, err)
	assert.Equal(t, "jdelacruz123456", prov.DefaultPassword)
	assert.Equal(t, "STU-20240601080000", prov.Account.SchoolID)
	assert.Equal(t, "juan@icc.edu", prov.Account.Email)
	assert.Equal(t, account.RoleStudent, prov.Account.Role)
	assert.Equal(t, "admin-id", prov.Account.CreatedBy)
	assert.True(t, prov.Account.IsActive)
	assert.True(t, prov.Account.MustChangePassword)
	assert.NoError(t, prov.Account.CheckPassword("jdelacruz123456"))

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "juan@icc.edu", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "jdelacruz123456")

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateTeacher(ctx, admin, newJuan())
		assert.Equal(t, account.ErrEmailExists, errors.Cause(err))
		assert.Equal(t, core.KindAlreadyExists, core.ErrorKindOf(err))
	})

	t.Run("student ID collision in the same second", func(t *testing.T) {
		na := newJuan()
		na.Email = "juan2@icc.edu"
		_, err := svc.CreateStudent(ctx, admin, na)
		assert.Equal(t, account.ErrSchoolIDExists, errors.Cause(err))
		assert.Equal(t, core.KindAlreadyExists, core.ErrorKindOf(err))
	})

	t.Run("not an admin", func(t *testing.T) {
		na := newJuan()
		na.Email = "sneaky@icc.edu"
		teacher := account.Actor{ID: "tch", Role: account.RoleTeacher}
		_, err := svc.CreateStudent(ctx, teacher, na)
		assert.Equal(t, access.ErrForbidden, errors.Cause(err))
		_, err = svc.GetByEmail(ctx, na.Email)
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	})

	t.Run("teacher", func(t *testing.T) {
		na := newJuan()
		na.Email = "teacher@icc.edu"
		prov, err := svc.CreateTeacher(ctx, admin, na)
		require.NoError(t, err)
		assert.Equal(t, "TCH-1717228800000", prov.Account.SchoolID)
		assert.Equal(t, account.RoleTeacher, prov.Account.Role)
	})
}

func TestService_CreateStudent_Invalid(t *testing.T) {
	svc, _, _ := setup(t)

	tests := []struct {
		name  string
		na    account.NewAccount
		field string
	}{
		{name: "missing email", na: account.NewAccount{FirstName: "A", LastName: "B"}, field: "email"},
		{name: "bad email", na: account.NewAccount{Email: "nope", FirstName: "A", LastName: "B"}, field: "email"},
		{name: "missing first name", na: account.NewAccount{Email: "a@b.c", LastName: "B"}, field: "first_name"},
		{name: "missing last name", na: account.NewAccount{Email: "a@b.c", FirstName: "A"}, field: "last_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateStudent(context.Background(), admin, tt.na)
			require.Error(t, err)
			assert.Equal(t, core.KindInvalidInput, core.ErrorKindOf(err))
			if errs, ok := err.(validator.ValidationErrors); assert.True(t, ok) {
				assert.Equal(t, tt.field, errs[0].Field())
			}
		})
	}

	t.Run("bad date of birth", func(t *testing.T) {
		na := newJuan()
		na.DateOfBirth = "01/02/2003"
		_, err := svc.CreateStudent(context.Background(), admin, na)
		assert.Equal(t, core.KindInvalidInput, core.ErrorKindOf(err))
	})

	t.Run("invalid UTF-8 names", func(t *testing.T) {
		for _, field := range []string{"first_name", "last_name"} {
			na := newJuan()
			if field == "first_name" {
				na.FirstName = "\xffJuan"
			} else {
				na.LastName = "Dela\xc3"
			}
			_, err := svc.CreateStudent(context.Background(), admin, na)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, field, verr.Fields[0].Field)
			assert.Equal(t, core.KindInvalidInput, core.ErrorKindOf(err))
		}
	})
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	testutil.CreateAccount(t, repo, account.RoleStudent, "active@icc.edu", "Ana", "Reyes", "s3cret-pwd", true)
	testutil.CreateAccount(t, repo, account.RoleStudent, "inactive@icc.edu", "Ben", "Cruz", "s3cret-pwd", false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@icc.edu", pwd: "s3cret-pwd", wantErr: account.ErrInvalidCredentials},
		{name: "wrong password", email: "active@icc.edu", pwd: "wrong", wantErr: account.ErrInvalidCredentials},
		{name: "deactivated", email: "inactive@icc.edu", pwd: "s3cret-pwd", wantErr: account.ErrDeactivated},
		{name: "deactivated, wrong password", email: "inactive@icc.edu", pwd: "wrong", wantErr: account.ErrDeactivated},
		{name: "email is case insensitive", email: " ACTIVE@icc.edu", pwd: "s3cret-pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			if assert.NotNil(t, acc.LastLogin) {
				assert.Equal(t, now, *acc.LastLogin)
			}
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	prov, err := svc.CreateStudent(ctx, admin, newJuan())
	require.NoError(t, err)
	id := prov.Account.ID
	owner := prov.Account.Actor()

	tests := []struct {
		name    string
		cp      account.ChangePassword
		wantTag string
	}{
		{name: "confirmation mismatch", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "Tr0ub4dor&3", ConfirmPassword: "Tr0ub4dor&4"}, wantTag: "eqfield"},
		{name: "unchanged", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "jdelacruz123456", ConfirmPassword: "jdelacruz123456"}, wantTag: "pwdunchanged"},
		{name: "too short", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "a1b2", ConfirmPassword: "a1b2"}, wantTag: "pwdminlen"},
		{name: "all numeric", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "98765432", ConfirmPassword: "98765432"}, wantTag: "pwdnotallnum"},
		{name: "whitespace", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "pass word", ConfirmPassword: "pass word"}, wantTag: "pwdnospace"},
		{name: "similar to names", cp: account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "Juan.DelaCruz", ConfirmPassword: "Juan.DelaCruz"}, wantTag: "pwdtoosim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ChangePassword(ctx, owner, id, tt.cp)
			require.Error(t, err)
			errs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, tt.wantTag, errs[0].Tag())
		})
	}

	t.Run("wrong current password", func(t *testing.T) {
		_, err := svc.ChangePassword(ctx, owner, id, account.ChangePassword{CurrentPassword: "nope", NewPassword: "Tr0ub4dor&3", ConfirmPassword: "Tr0ub4dor&3"})
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %T: %v", err, err)
		assert.Equal(t, "current_password", verr.Fields[0].Field)
	})

	t.Run("success", func(t *testing.T) {
		acc, err := svc.ChangePassword(ctx, owner, id, account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "Tr0ub4dor&3", ConfirmPassword: "Tr0ub4dor&3"})
		require.NoError(t, err)
		assert.False(t, acc.MustChangePassword)
		_, err = svc.Authenticate(ctx, "juan@icc.edu", "Tr0ub4dor&3")
		assert.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.ChangePassword(ctx, admin, "missing", account.ChangePassword{})
		assert.Equal(t, core.KindNotFound, core.ErrorKindOf(err))
	})

	t.Run("another account", func(t *testing.T) {
		na := newJuan()
		na.Email = "other@icc.edu"
		other, err := svc.CreateTeacher(ctx, admin, na)
		require.NoError(t, err)
		_, err = svc.ChangePassword(ctx, other.Account.Actor(), id, account.ChangePassword{CurrentPassword: "Tr0ub4dor&3", NewPassword: "h4ck3d-pwd", ConfirmPassword: "h4ck3d-pwd"})
		assert.Equal(t, access.ErrForbidden, errors.Cause(err))
	})
}

func TestService_ResetPassword(t *testing.T) {
	svc, _, mailSvc := setup(t)
	ctx := context.Background()

	prov, err := svc.CreateStudent(ctx, admin, newJuan())
	require.NoError(t, err)
	_, err = svc.ChangePassword(ctx, prov.Account.Actor(), prov.Account.ID, account.ChangePassword{CurrentPassword: "jdelacruz123456", NewPassword: "Tr0ub4dor&3", ConfirmPassword: "Tr0ub4dor&3"})
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, prov.Account.Actor(), prov.Account.ID, account.UpdateProfile{LastName: "Santos"})
	require.NoError(t, err)
	mailSvc.Reset()

	_, err = svc.ResetPassword(ctx, prov.Account.Actor(), prov.Account.ID)
	assert.Equal(t, access.ErrForbidden, errors.Cause(err), "only admins reset passwords")
	assert.Empty(t, mailSvc.SentMessages())

	reset, err := svc.ResetPassword(ctx, admin, prov.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "jsantos123456", reset.DefaultPassword)
	assert.True(t, reset.Account.MustChangePassword)
	assert.Equal(t, prov.Account.SchoolID, reset.Account.SchoolID)
	assert.NoError(t, reset.Account.CheckPassword("jsantos123456"))
	assert.Len(t, mailSvc.SentMessages(), 1)

	_, err = svc.ResetPassword(ctx, admin, "missing")
	assert.Equal(t, core.KindNotFound, core.ErrorKindOf(err))
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	prov, err := svc.CreateStudent(ctx, admin, newJuan())
	require.NoError(t, err)

	acc, err := svc.UpdateProfile(ctx, prov.Account.Actor(), prov.Account.ID, account.UpdateProfile{Address: " Manila ", DateOfBirth: "2005-04-12"})
	require.NoError(t, err)
	assert.Equal(t, "Manila", acc.Address)
	assert.Equal(t, "Juan", acc.FirstName, "empty fields keep their value")
	assert.Equal(t, "0917", acc.Contact)
	if assert.NotNil(t, acc.DateOfBirth) {
		assert.Equal(t, time.Date(2005, 4, 12, 0, 0, 0, 0, time.UTC), *acc.DateOfBirth)
	}

	t.Run("another account", func(t *testing.T) {
		teacher := account.Actor{ID: "tch", Role: account.RoleTeacher}
		_, err := svc.UpdateProfile(ctx, teacher, prov.Account.ID, account.UpdateProfile{LastName: "Santos"})
		assert.Equal(t, access.ErrForbidden, errors.Cause(err))
	})

	t.Run("invalid UTF-8 name", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, prov.Account.Actor(), prov.Account.ID, account.UpdateProfile{FirstName: "\xff"})
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %T: %v", err, err)
		assert.Equal(t, "first_name", verr.Fields[0].Field)
	})
}

func TestService_SetActive(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	acc := testutil.CreateAccount(t, repo, account.RoleTeacher, "t@icc.edu", "Tess", "Lim", "s3cret-pwd", true)

	for i := 0; i < 2; i++ {
		got, err := svc.SetActive(ctx, admin, acc.ID, false)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	}
	got, err := svc.SetActive(ctx, admin, acc.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = svc.SetActive(ctx, admin, "missing", true)
	assert.Equal(t, core.KindNotFound, core.ErrorKindOf(err))

	_, err = svc.SetActive(ctx, admin, admin.ID, false)
	assert.Equal(t, account.ErrSelfDeactivation, errors.Cause(err))

	student := testutil.CreateAccount(t, repo, account.RoleStudent, "s@icc.edu", "Sam", "Go", "s3cret-pwd", true)
	for _, active := range []bool{false, true} {
		_, err = svc.SetActive(ctx, student.Actor(), acc.ID, active)
		assert.Equal(t, access.ErrForbidden, errors.Cause(err))
		_, err = svc.SetActive(ctx, student.Actor(), student.ID, active)
		assert.Equal(t, access.ErrForbidden, errors.Cause(err), "owners cannot change their own status")
	}
	got, err = svc.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestService_Query(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	testutil.CreateAccount(t, repo, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes", "", true, now.Add(-2*time.Hour))
	testutil.CreateAccount(t, repo, account.RoleStudent, "ben@icc.edu", "Ben", "Cruz", "", false, now.Add(-time.Hour))
	testutil.CreateAccount(t, repo, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim", "", true)

	active := true
	tests := []struct {
		name   string
		filter account.QueryFilter
		want   []string
	}{
		{name: "students", filter: account.QueryFilter{Role: account.RoleStudent}, want: []string{"ana@icc.edu", "ben@icc.edu"}},
		{name: "active students", filter: account.QueryFilter{Role: account.RoleStudent, IsActive: &active}, want: []string{"ana@icc.edu"}},
		{name: "search", filter: account.QueryFilter{Search: " CRUZ "}, want: []string{"ben@icc.edu"}},
		{name: "teachers", filter: account.QueryFilter{Role: account.RoleTeacher}, want: []string{"tess@icc.edu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			emails := make([]string, 0, len(accounts))
			for _, acc := range accounts {
				emails = append(emails, acc.Email)
			}
			assert.Equal(t, tt.want, emails)
		})
	}
}
