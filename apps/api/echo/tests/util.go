package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/hocba/apps/api/echo"
	"github.com/trezcool/hocba/core/advisor"
	"github.com/trezcool/hocba/core/user"
	testutil "github.com/trezcool/hocba/tests"
)

const testPwd = "Sup3r-Secr3t"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type genStub struct {
	text string
	err  error
}

func (g *genStub) Generate(context.Context, []string) (string, error) {
	return g.text, g.err
}

type testEnv struct {
	*testutil.App
	srv     Server
	gen     *genStub
	admin   user.User
	officer user.User
	student user.User
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{App: testutil.NewApp(t), gen: &genStub{text: "Retake failed courses."}}
	env.srv = NewServer(ServerDeps{
		Conf:       env.Conf,
		Logger:     env.Logger,
		UserSvc:    env.Users,
		WarningSvc: env.Warning,
		SettingSvc: env.Settings,
		AuditSvc:   env.Audit,
		StudentSvc: env.Students,
		AdvisorSvc: advisor.NewService(env.gen, env.Logger, env.Conf),
		Validate:   env.Validate,
		Translator: env.Translator,
	})
	t.Cleanup(func() { _ = env.srv.Close() })

	env.admin = testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@vui.edu.vn", testPwd, []string{user.RoleAdmin}, true)
	env.officer = testutil.CreateUser(t, env.UserRepo, "Officer", "officer", "officer@vui.edu.vn", testPwd, []string{user.RoleOfficer}, true)
	env.student = testutil.CreateUser(t, env.UserRepo, "Student", "student", "student@vui.edu.vn", testPwd, []string{user.RoleStudent}, true)
	return env
}

func (env *testEnv) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	env.srv.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type kindErr struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
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

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(env.Conf, usr)
	token, err := GenerateToken(env.Conf, claims)
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

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}
