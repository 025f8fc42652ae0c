package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timesheet-api/internal/auth"
	"github.com/timesheet-api/internal/domain"
	"github.com/timesheet-api/internal/dto"
	"github.com/timesheet-api/internal/repository"
	"github.com/timesheet-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newUserService(db *gorm.DB) *userService {
	svc := NewUserService(repository.NewStore(db), auth.NewBcryptHasher(bcrypt.MinCost), Lockout{FailureLimit: 3}, discardLogger()).(*userService)
	svc.now = func() time.Time { return testToday }
	return svc
}

func createRequest(username string, groups ...string) *dto.CreateUserRequest {
	return &dto.CreateUserRequest{
		Username:        username,
		FirstName:       "New",
		LastName:        "Person",
		Password:        "password123",
		PasswordConfirm: "password123",
		Groups:          groups,
	}
}

func TestUserCreate(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "boss", domain.GroupAdmin)
	accountant := testutil.CreateUser(t, db, "acct", domain.GroupAccounting)
	foreman := testutil.CreateUser(t, db, "foreman", domain.GroupUser)
	svc := newUserService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, foreman, createRequest("x"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(ctx, accountant, createRequest("wannabe", domain.GroupAdmin))
	assert.ErrorIs(t, err, domain.ErrGroupNotAssignable)

	user, err := svc.Create(ctx, accountant, createRequest("crew1", domain.GroupUser, domain.GroupUser))
	require.NoError(t, err)
	assert.Equal(t, "New Person", user.DisplayName())

	stored, err := repository.NewUserRepository(db).GetByUsername(ctx, "crew1")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.GroupUser}, stored.GroupNames())
	ok, err := svc.hasher.Compare(stored.PasswordHash, "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Create(ctx, admin, createRequest("crew1"))
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	mismatch := createRequest("crew2")
	mismatch.PasswordConfirm = "different"
	_, err = svc.Create(ctx, admin, mismatch)
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	_, err = svc.Create(ctx, admin, createRequest("chief", domain.GroupAdmin))
	assert.NoError(t, err)
}

func TestUserUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "boss", domain.GroupAdmin)
	accountant := testutil.CreateUser(t, db, "acct", domain.GroupAccounting)
	foreman := testutil.CreateUser(t, db, "foreman", domain.GroupUser)
	svc := newUserService(db)
	ctx := context.Background()

	first := "Fred"
	groups := []string{domain.GroupUser, domain.GroupAccounting}
	got, err := svc.Update(ctx, accountant, foreman.ID, &dto.UpdateUserRequest{FirstName: &first, Groups: &groups})
	require.NoError(t, err)
	assert.Equal(t, "Fred", got.FirstName)
	assert.ElementsMatch(t, groups, got.GroupNames())

	promote := []string{domain.GroupAdmin}
	_, err = svc.Update(ctx, accountant, foreman.ID, &dto.UpdateUserRequest{Groups: &promote})
	assert.ErrorIs(t, err, domain.ErrGroupNotAssignable)

	demote := []string{domain.GroupUser}
	_, err = svc.Update(ctx, accountant, admin.ID, &dto.UpdateUserRequest{Groups: &demote})
	assert.ErrorIs(t, err, domain.ErrGroupNotAssignable)

	got, err = svc.Update(ctx, admin, foreman.ID, &dto.UpdateUserRequest{Groups: &promote})
	require.NoError(t, err)
	assert.Equal(t, []string{domain.GroupAdmin}, got.GroupNames())

	none := []string{}
	got, err = svc.Update(ctx, admin, foreman.ID, &dto.UpdateUserRequest{Groups: &none})
	require.NoError(t, err)
	assert.Empty(t, got.Groups)

	_, err = svc.Update(ctx, admin, 999, &dto.UpdateUserRequest{FirstName: &first})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserResetPassword(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "boss", domain.GroupAdmin)
	accountant := testutil.CreateUser(t, db, "acct", domain.GroupAccounting)
	foreman := testutil.CreateUser(t, db, "foreman", domain.GroupUser)
	svc := newUserService(db)
	ctx := context.Background()

	err := svc.ResetPassword(ctx, accountant, foreman.ID, &dto.ResetPasswordRequest{NewPassword: "abcdefgh", ConfirmPassword: "abcdefgx"})
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	require.NoError(t, svc.ResetPassword(ctx, accountant, foreman.ID, &dto.ResetPasswordRequest{NewPassword: "abcdefgh", ConfirmPassword: "abcdefgh"}))
	stored, err := repository.NewUserRepository(db).GetByID(ctx, foreman.ID)
	require.NoError(t, err)
	ok, err := svc.hasher.Compare(stored.PasswordHash, "abcdefgh")
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.ResetPassword(ctx, accountant, admin.ID, &dto.ResetPasswordRequest{NewPassword: "abcdefgh", ConfirmPassword: "abcdefgh"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserActivation(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "boss", domain.GroupAdmin)
	accountant := testutil.CreateUser(t, db, "acct", domain.GroupAccounting)
	foreman := testutil.CreateUser(t, db, "foreman", domain.GroupUser)
	svc := newUserService(db)
	ctx := context.Background()

	_, err := svc.Deactivate(ctx, accountant, accountant.ID)
	assert.ErrorIs(t, err, domain.ErrCannotDeactivateSelf)

	_, err = svc.Deactivate(ctx, accountant, admin.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Deactivate(ctx, accountant, foreman.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = svc.Reactivate(ctx, accountant, foreman.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = svc.Reactivate(ctx, foreman, accountant.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserManagement(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "boss", domain.GroupAdmin)
	foreman := testutil.CreateUser(t, db, "foreman", domain.GroupUser)
	retired := testutil.CreateUser(t, db, "retired", domain.GroupUser)
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)
	testutil.CreateEmployee(t, db, "Active Hand", foreman)
	gone := testutil.CreateEmployee(t, db, "Gone Hand", foreman)
	require.NoError(t, db.Model(gone).Update("is_active", false).Error)

	attempts := repository.NewLoginAttemptRepository(db)
	ctx := context.Background()
	for range 3 {
		_, err := attempts.RecordFailure(ctx, "foreman", "", testToday)
		require.NoError(t, err)
	}

	svc := newUserService(db)

	_, err := svc.Management(ctx, foreman)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	m, err := svc.Management(ctx, admin)
	require.NoError(t, err)
	assert.True(t, m.IsAdmin)
	require.Len(t, m.Users, 2)
	assert.Equal(t, "boss", m.Users[0].User.Username)
	assert.False(t, m.Users[0].IsLocked)
	assert.Equal(t, "foreman", m.Users[1].User.Username)
	assert.True(t, m.Users[1].IsLocked)
	require.Len(t, m.InactiveUsers, 1)
	assert.Equal(t, "retired", m.InactiveUsers[0].User.Username)
	require.Len(t, m.Employees, 1)
	require.Len(t, m.InactiveEmployees, 1)

	require.NoError(t, svc.Unlock(ctx, admin, foreman.ID))
	m, err = svc.Management(ctx, admin)
	require.NoError(t, err)
	assert.False(t, m.Users[1].IsLocked)
}

func TestEnsureGroups_Idempotent(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	require.NoError(t, svc.EnsureGroups(ctx))
	require.NoError(t, svc.EnsureGroups(ctx))

	groups, err := repository.NewGroupRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, len(domain.DefaultGroups))
}

func TestProvision_SkipsActorChecks(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newUserService(db)

	user, err := svc.Provision(context.Background(), createRequest("root", domain.GroupAdmin))
	require.NoError(t, err)
	assert.True(t, domain.IsAdmin(user))
}
