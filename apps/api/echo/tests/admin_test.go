package tests

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/hocba/apps/api/echo"
	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/advisor"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/setting"
	"github.com/trezcool/hocba/core/student"
	inmemdb "github.com/trezcool/hocba/storage/database/inmem"
)

func Test_settingApi(t *testing.T) {
	env := setup(t)
	token := env.getToken(t, env.officer)

	rec := env.do(newAuthRequest(http.MethodPut, "/api/admin/configs", token,
		[]byte(`{"GPA_TRUNGBINH_THRESHOLD": " 2.3 ", "NOT_A_SETTING": "1"}`)))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, UpdatedSettingsResponse{Msg: "OK", Updated: map[string]string{setting.KeyGPATrungBinh: "2.3"}}),
	}, rec)

	rec = env.do(newAuthRequest(http.MethodGet, "/api/admin/configs", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing setting.Listing
	decode(t, rec, &listing)
	assert.Equal(t, "2.3", listing.Values[setting.KeyGPATrungBinh])
	assert.Len(t, listing.Meta, len(setting.AllowedKeys))

	rec = env.do(newAuthRequest(http.MethodGet, "/api/admin/import/logs", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []audit.Entry
	decode(t, rec, &entries)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "settings.update", entries[0].Action)
		assert.Equal(t, "officer", entries[0].Actor)
		assert.Equal(t, "system_config", entries[0].AffectedTable)
	}
}

func Test_registryApi(t *testing.T) {
	env := setup(t)
	token := env.getToken(t, env.admin)
	env.DB.AddMajor(student.Major{ID: "CNTT", Name: "Information Technology"})
	env.DB.AddClass(student.Class{ID: "K65", Name: "K65", MajorID: "CNTT"})
	env.DB.AddStudent(inmemdb.Student{ID: "SV01", Name: "Nguyen An", ClassID: "K65"})

	tests := []httpTest{
		{
			name: "classes", path: "/api/admin/classes", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, []student.Class{{ID: "K65", Name: "K65", MajorID: "CNTT"}}),
		},
		{
			name: "majors", path: "/api/admin/majors", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, []student.Major{{ID: "CNTT", Name: "Information Technology"}}),
		},
		{
			name: "staff required", path: "/api/admin/classes", token: env.getToken(t, env.student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(newAuthRequest(http.MethodGet, tt.path, tt.token)))
		})
	}

	t.Run("export", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/admin/export/students.csv", token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "students.csv")
		assert.Equal(t, "student_id,name,class,major\nSV01,Nguyen An,K65,Information Technology\n", rec.Body.String())
	})
}

func Test_advisorApi(t *testing.T) {
	env := setup(t)
	token := env.getToken(t, env.student)
	body := marchallObj(t, advisor.ChatRequest{Messages: []advisor.Message{{Text: "How do I raise my GPA?"}}})

	tests := []struct {
		name     string
		path     string
		token    string
		genText  string
		genErr   error
		wantCode int
		wantData []byte
	}{
		{name: "auth required", path: "/api/advisor/chat", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "chat", path: "/api/advisor/chat", token: token, genText: "Retake failed courses.",
			wantCode: http.StatusOK, wantData: marchallObj(t, advisor.ChatResponse{Text: "Retake failed courses."}),
		},
		{
			name: "legacy path", path: "/api/advisor/gemini", token: token, genText: "",
			wantCode: http.StatusOK, wantData: marchallObj(t, advisor.ChatResponse{Text: advisor.FallbackText}),
		},
		{
			name: "upstream failure", path: "/api/advisor/chat", token: token, genErr: errors.New("api key sk-secret rejected"),
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, kindErr{Error: "the advisor is unavailable, try again later", Kind: string(core.KindUpstreamFailure)}),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env.gen.text, env.gen.err = tc.genText, tc.genErr
			rec := env.do(newAuthRequest(http.MethodPost, tc.path, tc.token, body))
			checkCodeAndData(t, httpTest{wantCode: tc.wantCode, wantData: tc.wantData}, rec)
		})
	}
}

func Test_server_health(t *testing.T) {
	env := setup(t)

	rec := env.do(newRequest(http.MethodGet, "/healthz"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"status": "ok", "version": "test"}`)}, rec)

	rec = env.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
