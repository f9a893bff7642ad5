package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/hocba/apps/api/echo"
	"github.com/trezcool/hocba/core/user"
	testutil "github.com/trezcool/hocba/tests"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone", "gone@vui.edu.vn", testPwd, []string{user.RoleOfficer}, false)

	type creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{name: "missing fields", path: "/api/auth/login", body: marchallObj(t, creds{}), wantCode: http.StatusBadRequest},
		{name: "unknown user", path: "/api/auth/login", body: marchallObj(t, creds{"ghost", testPwd}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", path: "/api/auth/login", body: marchallObj(t, creds{"officer", "nope"}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "deactivated", path: "/api/auth/login", body: marchallObj(t, creds{"gone", testPwd}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", path: "/api/auth/login", body: marchallObj(t, creds{"Officer", testPwd}), wantCode: http.StatusOK},
		{name: "by email", path: "/api/auth/login", body: marchallObj(t, creds{"officer@vui.edu.vn", testPwd}), wantCode: http.StatusOK},
		{name: "legacy path", path: "/login", body: marchallObj(t, creds{"admin", testPwd}), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(newRequest(http.MethodPost, tt.path, tt.body))
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				decode(t, rec, &resp)
				require.NotEmpty(t, resp.Token)

				claims := new(Claims)
				_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
					return []byte(env.Conf.SecretKey), nil
				})
				require.NoError(t, err)
				assert.True(t, claims.IsStaff())
				require.NotNil(t, resp.User)
				assert.Equal(t, resp.User.Username, claims.Username)
				assert.NotEmpty(t, resp.User.Role)
			}
		})
	}

	t.Run("last login is stamped", func(t *testing.T) {
		usr, err := env.Users.GetByID(context.Background(), env.officer.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})

	t.Run("logins are audited", func(t *testing.T) {
		entries, err := env.Audit.Recent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "auth.login", entries[0].Action)
		assert.Equal(t, "admin", entries[0].Actor)
		assert.Equal(t, "POST /login", entries[0].Endpoint)
	})
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{name: "auth required", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "bad token", path: "/api/auth/me", token: "not-a-token", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "student", path: "/api/auth/me", token: env.getToken(t, env.student), wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{User: env.student, MainRole: "Student"}),
		},
		{
			name: "officer", path: "/api/auth/me", token: env.getToken(t, env.officer), wantCode: http.StatusOK,
			wantData: marchallObj(t, MeResponse{User: env.officer, MainRole: "Training Officer"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(newAuthRequest(http.MethodGet, tt.path, tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	path := "/api/auth/token-refresh"

	t.Run("refreshes", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPost, path, env.getToken(t, env.admin)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("refresh expired", func(t *testing.T) {
		claims := GetUserClaims(env.Conf, env.admin, time.Now().Add(-2*env.Conf.JWTRefreshExpirationDelta).Unix())
		token, err := GenerateToken(env.Conf, claims)
		require.NoError(t, err)

		rec := env.do(newAuthRequest(http.MethodPost, path, token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}, rec)
	})

	t.Run("deactivated", func(t *testing.T) {
		gone := testutil.CreateUser(t, env.UserRepo, "Gone", "gone", "gone@vui.edu.vn", testPwd, []string{user.RoleOfficer}, false)
		rec := env.do(newAuthRequest(http.MethodPost, path, env.getToken(t, gone)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)
	})
}
