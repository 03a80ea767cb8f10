package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/classbook/apps/api/echo"
	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/access"
	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
	"github.com/trezcool/classbook/services/email"
	"github.com/trezcool/classbook/storage/database/inmem"
	"github.com/trezcool/classbook/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server   *Server
	conf     *core.Config
	mailSvc  *emailsvc.ConsoleServiceMock
	accounts account.Repository
	courses  course.Repository
	payments payment.Repository
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	accRepo := inmemdb.NewAccountRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	paymentRepo := inmemdb.NewPaymentRepository(db)

	// set up services
	validate, translator := testutil.NewValidatorAndTranslator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	courseSvc := course.NewService(courseRepo, accRepo, validate)

	server := NewServer(ServerDeps{
		Conf:            conf,
		AccountSvc:      account.NewService(accRepo, mailSvc, validate, access.AuthorizeAccountWrite),
		CourseSvc:       courseSvc,
		GradeSvc:        grade.NewService(inmemdb.NewGradeRepository(db), accRepo, courseRepo, validate),
		PaymentSvc:      payment.NewService(paymentRepo, accRepo, mailSvc, validate, conf, nil),
		AnnouncementSvc: announcement.NewService(inmemdb.NewAnnouncementRepository(db), courseRepo, validate),
		Validate:        validate,
		Translator:      translator,
	})
	t.Cleanup(func() { _ = server.Close() })

	return testApp{
		server:   server,
		conf:     conf,
		mailSvc:  mailSvc,
		accounts: accRepo,
		courses:  courseRepo,
		payments: paymentRepo,
	}
}

func (app testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app testApp) createAccount(t *testing.T, role account.Role, email, first, last string) account.Account {
	return testutil.CreateAccount(t, app.accounts, role, email, first, last, "s3cret-pwd", true)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, acc account.Account) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, acc))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, app.do(req, rec))
		})
	}
}
