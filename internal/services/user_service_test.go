package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
	"github.com/yukikurage/taskdesk-api/internal/testutil"
)

func TestUserService_ListUsersWithTaskCounts(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@x.com", "secret1")
	testutil.CreateUser(t, env.db, "Bob", "bob@x.com", "secret1")

	done, err := env.tasks.CreateTask(ctx, userIdentity(alice), CreateTaskInput{Title: "done"})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, userIdentity(alice), CreateTaskInput{Title: "open"})
	require.NoError(t, err)
	require.NoError(t, env.tasks.MarkCompleted(ctx, done.ID))

	items, total, err := env.users.ListUsers(ctx, ListUsersInput{Query: "ali", Page: 1, PageSize: 10, IncludeTaskCounts: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, alice.ID, items[0].User.ID)
	assert.Equal(t, &repository.AssignmentCount{Total: 2, Pending: 1}, items[0].Counts)

	items, _, err = env.users.ListUsers(ctx, ListUsersInput{Query: "bob", Page: 1, PageSize: 10, IncludeTaskCounts: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, &repository.AssignmentCount{}, items[0].Counts)

	items, _, err = env.users.ListUsers(ctx, ListUsersInput{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Nil(t, item.Counts)
	}
}

func TestUserService_CreateUser(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	user, err := env.users.CreateUser(ctx, RegisterInput{Name: "Root", Email: "Root@Example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, err = env.users.CreateUser(ctx, RegisterInput{Name: "x", Email: "y@z.io", Password: "secret1", Role: "owner"})
	requireValidation(t, err, "Role must be either 'user' or 'admin'")
}

func TestUserService_UpdateUser(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com", "secret1")
	bob := testutil.CreateUser(t, env.db, "Bob", "bob@example.com", "secret1")

	name := "Mallory"
	_, err := env.users.UpdateUser(ctx, userIdentity(bob), alice.ID, UpdateUserInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotProfileOwner)

	blank := "   "
	short := "abc"
	updated, err := env.users.UpdateUser(ctx, userIdentity(alice), alice.ID, UpdateUserInput{Name: &blank, Password: &short})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, alice.PasswordHash, updated.PasswordHash)

	taken := "BOB@example.com"
	_, err = env.users.UpdateUser(ctx, userIdentity(alice), alice.ID, UpdateUserInput{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	invalid := "not-an-email"
	_, err = env.users.UpdateUser(ctx, userIdentity(alice), alice.ID, UpdateUserInput{Email: &invalid})
	requireValidation(t, err, "Invalid email format")

	newEmail := "Alice@New.example.com"
	newPassword := "longer-secret"
	updated, err = env.users.UpdateUser(ctx, adminIdentity(), alice.ID, UpdateUserInput{Email: &newEmail, Password: &newPassword})
	require.NoError(t, err)
	assert.Equal(t, "alice@new.example.com", updated.Email)

	_, err = env.auth.Login(ctx, LoginInput{Email: newEmail, Password: newPassword, Role: models.RoleUser})
	assert.NoError(t, err)

	_, err = env.users.UpdateUser(ctx, adminIdentity(), models.NewID(), UpdateUserInput{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_DeleteUser(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com", "secret1")
	bob := testutil.CreateUser(t, env.db, "Bob", "bob@example.com", "secret1")

	task, err := env.tasks.CreateTask(ctx, userIdentity(alice), CreateTaskInput{Title: "pair", AssignedTo: []string{alice.ID, bob.ID}})
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteUser(ctx, bob.ID))
	assert.ErrorIs(t, env.users.DeleteUser(ctx, bob.ID), ErrUserNotFound)

	_, err = env.users.GetUser(ctx, bob.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	detail, err := env.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, detail.Task.AssigneeIDs())
}
