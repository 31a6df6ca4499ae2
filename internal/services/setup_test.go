package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk-api/internal/attachments"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/cache"
	"github.com/yukikurage/taskdesk-api/internal/config"
	"github.com/yukikurage/taskdesk-api/internal/logging"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
	"github.com/yukikurage/taskdesk-api/internal/testutil"
	"gorm.io/gorm"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-secret"
)

// fakeRemover records remote deletes and fails for keys listed in failOn.
type fakeRemover struct {
	mu      sync.Mutex
	removed []string
	failOn  map[string]bool
}

func (r *fakeRemover) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, key)
	if r.failOn[key] {
		return errors.New("storage unavailable")
	}
	return nil
}

func (r *fakeRemover) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

type serviceTestEnv struct {
	db      *gorm.DB
	remover *fakeRemover
	auth    *AuthService
	tasks   *TaskService
	users   *UserService
}

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()
	return newServiceTestEnv(t, nil)
}

// setupCachedServiceTestEnv wires the services to a Redis cache served by
// an in-process miniredis.
func setupCachedServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return newServiceTestEnv(t, cache.New(client, "taskdesk:test:", time.Minute))
}

func newServiceTestEnv(t *testing.T, statsCache *cache.Cache) serviceTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	log := logging.Discard()
	hasher := testutil.Hasher()
	remover := &fakeRemover{failOn: map[string]bool{}}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	cfg := &config.Config{
		DefaultAdminEmail:    testAdminEmail,
		DefaultAdminPassword: testAdminPassword,
	}

	return serviceTestEnv{
		db:      db,
		remover: remover,
		auth:    NewAuthService(userRepo, hasher, statsCache, log, cfg),
		tasks:   NewTaskService(taskRepo, userRepo, attachments.NewManager(remover, log), statsCache, nil, log),
		users:   NewUserService(userRepo, taskRepo, hasher, statsCache, log),
	}
}

func adminIdentity() auth.Identity {
	return auth.AdminPrincipal{Email: testAdminEmail}.Identity()
}

func userIdentity(u models.User) auth.Identity {
	return auth.UserPrincipal{User: &u}.Identity()
}

func requireValidation(t *testing.T, err error, message string) {
	t.Helper()
	verr, ok := IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, message, verr.Message)
}
