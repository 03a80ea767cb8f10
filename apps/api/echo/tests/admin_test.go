package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/testutil"
)

func Test_adminApi_createStudent(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, account.RoleAdmin, "admin@icc.edu", "Ada", "Min")
	teacher := app.createAccount(t, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim")
	adminToken := getToken(t, app.conf, admin)
	testutil.FreezeTime(t, time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC))

	body := []byte(`{"email": "Juan@ICC.edu", "first_name": "Juan", "last_name": "DelaCruz", "contact": "0917"}`)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/admin/create-student", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", method: http.MethodPost, path: "/api/admin/create-student", body: body, token: getToken(t, app.conf, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "invalid", method: http.MethodPost, path: "/api/admin/create-student", body: []byte(`{"email": "nope"}`), token: adminToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{
			"email":      "email must be a valid email address",
			"first_name": "this field is required",
			"last_name":  "this field is required",
		})},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/admin/create-student", adminToken, body)
	app.do(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var prov account.Provisioned
	unmarshal(t, rec, &prov)
	assert.Equal(t, "jdelacruz123456", prov.DefaultPassword)
	assert.Equal(t, "STU-20240307090502", prov.Account.SchoolID)
	assert.Equal(t, "juan@icc.edu", prov.Account.Email)
	assert.Equal(t, admin.ID, prov.Account.CreatedBy)
	assert.True(t, prov.Account.MustChangePassword)
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.Len(t, app.mailSvc.SentMessages(), 1)

	t.Run("duplicate email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/create-teacher", adminToken, body)
		app.do(req, rec)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error": "an account with this email already exists"}`, rec.Body.String())
	})

	t.Run("new account logs in with the default password", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/login", []byte(`{"email": "juan@icc.edu", "password": "jdelacruz123456"}`))
		app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"must_change_password":true`)
	})
}

func Test_adminApi_queryRole(t *testing.T) {
	app := setup(t)
	now := time.Now()
	admin := app.createAccount(t, account.RoleAdmin, "admin@icc.edu", "Ada", "Min")
	ana := testutil.CreateAccount(t, app.accounts, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes", "", true, now)
	ben := testutil.CreateAccount(t, app.accounts, account.RoleStudent, "ben@icc.edu", "Ben", "Cruz", "", false, now.Add(time.Second))
	tess := app.createAccount(t, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim")
	token := getToken(t, app.conf, admin)

	list := func(accs ...account.Account) []byte { return marchallObj(t, accs) }

	runHTTPTests(t, app, []httpTest{
		{name: "students", path: "/api/admin/students", token: token, wantCode: http.StatusOK, wantData: list(ana, ben)},
		{name: "active students", path: "/api/admin/students?is_active=true", token: token, wantCode: http.StatusOK, wantData: list(ana)},
		{name: "search", path: "/api/admin/students?search=cruz", token: token, wantCode: http.StatusOK, wantData: list(ben)},
		{name: "no match", path: "/api/admin/students?search=zzz", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "bad is_active", path: "/api/admin/students?is_active=maybe", token: token, wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_active": "must be a boolean"})},
		{name: "teachers", path: "/api/admin/teachers", token: token, wantCode: http.StatusOK, wantData: list(tess)},
		{name: "student forbidden", path: "/api/admin/teachers", token: getToken(t, app.conf, ana), wantCode: http.StatusForbidden},
	})
}

func Test_adminApi_setActive(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, account.RoleAdmin, "admin@icc.edu", "Ada", "Min")
	student := app.createAccount(t, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes")
	token := getToken(t, app.conf, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "unknown account", method: http.MethodPut, path: "/api/admin/deactivate/missing", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "account not found"})},
		{name: "self", method: http.MethodPut, path: "/api/admin/deactivate/" + admin.ID, token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "you cannot deactivate your own account"})},
		{name: "deactivate", method: http.MethodPut, path: "/api/admin/deactivate/" + student.ID, token: token, wantCode: http.StatusOK},
		{name: "deactivate again", method: http.MethodPut, path: "/api/admin/deactivate/" + student.ID, token: token, wantCode: http.StatusOK},
		{name: "login refused", method: http.MethodPost, path: "/api/auth/login", body: []byte(`{"email": "ana@icc.edu", "password": "s3cret-pwd"}`), wantCode: http.StatusForbidden},
		{name: "activate", method: http.MethodPut, path: "/api/admin/activate/" + student.ID, token: token, wantCode: http.StatusOK},
		{name: "login accepted", method: http.MethodPost, path: "/api/auth/login", body: []byte(`{"email": "ana@icc.edu", "password": "s3cret-pwd"}`), wantCode: http.StatusOK},
	})
}

func Test_adminApi_resetPassword(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, account.RoleAdmin, "admin@icc.edu", "Ada", "Min")
	student := app.createAccount(t, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes")

	req, rec := newAuthRequest(http.MethodPost, "/api/admin/reset-password/"+student.ID, getToken(t, app.conf, admin))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prov account.Provisioned
	unmarshal(t, rec, &prov)
	assert.Equal(t, "areyes123456", prov.DefaultPassword)
	assert.True(t, prov.Account.MustChangePassword)
	assert.Len(t, app.mailSvc.SentMessages(), 1)

	req, rec = newRequest(http.MethodPost, "/api/auth/login", []byte(`{"email": "ana@icc.edu", "password": "areyes123456"}`))
	app.do(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_adminApi_enrollStudent(t *testing.T) {
	app := setup(t)
	admin := app.createAccount(t, account.RoleAdmin, "admin@icc.edu", "Ada", "Min")
	student := app.createAccount(t, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes")
	teacher := app.createAccount(t, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim")
	c := createCourse(t, app, "CS101")
	token := getToken(t, app.conf, admin)

	body := func(studentID, courseID string) []byte {
		return marchallObj(t, course.Enrollment{StudentID: studentID, CourseID: courseID})
	}

	runHTTPTests(t, app, []httpTest{
		{name: "unknown course", method: http.MethodPost, path: "/api/admin/enroll-student", token: token, body: body(student.ID, "missing"), wantCode: http.StatusNotFound},
		{name: "not a student", method: http.MethodPost, path: "/api/admin/enroll-student", token: token, body: body(teacher.ID, c.ID), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})},
		{name: "enroll", method: http.MethodPost, path: "/api/admin/enroll-student", token: token, body: body(student.ID, c.ID), wantCode: http.StatusOK},
		{name: "enroll again", method: http.MethodPost, path: "/api/admin/enroll-student", token: token, body: body(student.ID, c.ID), wantCode: http.StatusOK},
	})

	req, rec := newAuthRequest(http.MethodGet, "/api/auth/me", getToken(t, app.conf, student))
	app.do(req, rec)
	var acc account.Account
	unmarshal(t, rec, &acc)
	assert.Equal(t, []string{c.ID}, acc.EnrolledCourses)
}
