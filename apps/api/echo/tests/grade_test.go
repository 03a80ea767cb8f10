package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/grade"
)

func Test_gradeApi(t *testing.T) {
	app := setup(t)
	teacher := app.createAccount(t, account.RoleTeacher, "tess@icc.edu", "Tess", "Lim")
	student := app.createAccount(t, account.RoleStudent, "ana@icc.edu", "Ana", "Reyes")
	other := app.createAccount(t, account.RoleStudent, "ben@icc.edu", "Ben", "Cruz")
	c := createCourse(t, app, "CS101")
	teacherToken := getToken(t, app.conf, teacher)
	studentToken := getToken(t, app.conf, student)

	encode := func(body string) *grade.Record {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/encode", teacherToken, []byte(body))
		app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r grade.Record
		unmarshal(t, rec, &r)
		return &r
	}

	r := encode(`{"student_id": "` + student.ID + `", "course_id": "` + c.ID + `", "midterm": 80, "finals": 90}`)
	require.NotNil(t, r.FinalGrade)
	assert.Equal(t, 60, *r.FinalGrade)
	assert.Nil(t, r.Projects)
	assert.Equal(t, teacher.ID, r.RecordedBy)

	r = encode(`{"student_id": "` + student.ID + `", "course_id": "` + c.ID + `", "remarks": "needs projects"}`)
	assert.Equal(t, 60, *r.FinalGrade)
	assert.Equal(t, 80, *r.Midterm)
	assert.Equal(t, "needs projects", r.Remarks)

	r = encode(`{"student_id": "` + student.ID + `", "course_id": "` + c.ID + `", "projects": 85, "participation": 95}`)
	assert.Equal(t, 87, *r.FinalGrade)

	runHTTPTests(t, app, []httpTest{
		{name: "student encodes", method: http.MethodPost, path: "/api/grades/encode", token: studentToken, body: []byte(`{}`), wantCode: http.StatusForbidden},
		{name: "out of range", method: http.MethodPost, path: "/api/grades/encode", token: teacherToken,
			body:     []byte(`{"student_id": "` + student.ID + `", "course_id": "` + c.ID + `", "finals": 120}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"finals": "finals must be 100 or less"})},
		{name: "unknown course", method: http.MethodPost, path: "/api/grades/encode", token: teacherToken,
			body: []byte(`{"student_id": "` + student.ID + `", "course_id": "missing"}`), wantCode: http.StatusNotFound},
		{name: "student reads own", path: "/api/grades/student/" + student.ID, token: studentToken, wantCode: http.StatusOK},
		{name: "student reads another's", path: "/api/grades/student/" + student.ID, token: getToken(t, app.conf, other), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "student reads a course", path: "/api/grades/course/" + c.ID, token: studentToken, wantCode: http.StatusForbidden},
		{name: "teacher reads a course", path: "/api/grades/course/" + c.ID, token: teacherToken, wantCode: http.StatusOK},
		{name: "unknown course grades", path: "/api/grades/course/missing", token: teacherToken, wantCode: http.StatusNotFound},
	})

	req, rec := newAuthRequest(http.MethodGet, "/api/grades/student/"+student.ID, studentToken)
	app.do(req, rec)
	var records []grade.Record
	unmarshal(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, r.ID, records[0].ID)
}
