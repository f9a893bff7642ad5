package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/user"
	inmemdb "github.com/trezcool/hocba/storage/database/inmem"
	testutil "github.com/trezcool/hocba/tests"
)

const strongPwd = "Sup3r-Secr3t"

func newService() (*user.Service, user.Repository) {
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, validate), repo
}

func fieldTags(err error) map[string]string {
	tags := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Le Van Officer",
		Username:        "officer1",
		Email:           "officer1@vui.edu.vn",
		Password:        strongPwd,
		PasswordConfirm: strongPwd,
		Roles:           []string{user.RoleOfficer},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsStaff())
	assert.False(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword(strongPwd))

	t.Run("username taken", func(t *testing.T) {
		_, err := svc.Create(ctx, user.NewUser{
			Name: "Other", Username: "OFFICER1", Password: strongPwd, PasswordConfirm: strongPwd,
		})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, user.ErrUserExists, verr.Err)
	})

	tests := []struct {
		name  string
		nu    user.NewUser
		field string
		tag   string
	}{
		{name: "no username nor email", nu: user.NewUser{Name: "x", Password: strongPwd, PasswordConfirm: strongPwd}, field: "username", tag: "username_or_email"},
		{name: "short password", nu: user.NewUser{Name: "x", Username: "abcd", Password: "Ab1-", PasswordConfirm: "Ab1-"}, field: "password", tag: "pwdminlen"},
		{name: "numeric password", nu: user.NewUser{Name: "x", Username: "abcd", Password: "12345678", PasswordConfirm: "12345678"}, field: "password", tag: "pwdnotallnum"},
		{name: "weak password", nu: user.NewUser{Name: "x", Username: "abcd", Password: "password", PasswordConfirm: "password"}, field: "password", tag: "pwdcplx"},
		{name: "password with spaces", nu: user.NewUser{Name: "x", Username: "abcd", Password: "Pass 1-word", PasswordConfirm: "Pass 1-word"}, field: "password", tag: "pwdnospace"},
		{name: "password like the username", nu: user.NewUser{Name: "x", Username: "johndoe", Password: "J0hndoe!", PasswordConfirm: "J0hndoe!"}, field: "password", tag: "pwdtoosim"},
		{name: "confirmation mismatch", nu: user.NewUser{Name: "x", Username: "abcd", Password: strongPwd, PasswordConfirm: "nope"}, field: "password_confirm", tag: "eqfield"},
		{name: "unknown role", nu: user.NewUser{Name: "x", Username: "abcd", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{"root:"}}, field: "roles", tag: "allroles"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.nu)
			require.Error(t, err)
			assert.Equal(t, tc.tag, fieldTags(err)[tc.field])
		})
	}
}

func TestService_AddOrUpdate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()

	usr, err := svc.AddOrUpdate(ctx, " Admin ", "Admin@vui.edu.vn", strongPwd, true)
	require.NoError(t, err)
	assert.Equal(t, "admin", usr.Username)
	assert.Equal(t, "admin@vui.edu.vn", usr.Email)
	assert.Equal(t, user.AllRoles, usr.Roles)

	updated, err := svc.AddOrUpdate(ctx, "admin", "admin@vui.edu.vn", "An0ther-Pass", false)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, user.AllRoles, updated.Roles)
	assert.NoError(t, updated.CheckPassword("An0ther-Pass"))

	stored, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("An0ther-Pass"))
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()
	testutil.CreateUser(t, repo, "Student", "student1", "student1@vui.edu.vn", strongPwd, []string{user.RoleStudent}, true)

	usr, err := svc.ResetPassword(ctx, "STUDENT1@vui.edu.vn", "N3w-Passw0rd")
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w-Passw0rd"))

	_, err = svc.ResetPassword(ctx, "student1", "weak")
	assert.Equal(t, "pwdminlen", fieldTags(err)["password"])

	_, err = svc.ResetPassword(ctx, "ghost", "N3w-Passw0rd")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUser_MainRole(t *testing.T) {
	tests := []struct {
		roles []string
		want  string
	}{
		{roles: []string{user.RoleStudent, user.RoleAdminOwner}, want: "Admin"},
		{roles: []string{user.RoleOfficer}, want: "Training Officer"},
		{roles: []string{user.RoleStudent}, want: "Student"},
		{roles: nil, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, user.User{Roles: tc.roles}.MainRole())
		})
	}
}
