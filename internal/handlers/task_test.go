package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskdesk-api/internal/attachments"
	"github.com/yukikurage/taskdesk-api/internal/auth"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/dto"
	"github.com/yukikurage/taskdesk-api/internal/logging"
	"github.com/yukikurage/taskdesk-api/internal/middleware"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/repository"
	"github.com/yukikurage/taskdesk-api/internal/services"
	"github.com/yukikurage/taskdesk-api/internal/testutil"
	"gorm.io/gorm"
)

type countingRemover struct {
	keys []string
}

func (r *countingRemover) Remove(_ context.Context, key string) error {
	r.keys = append(r.keys, key)
	return nil
}

// TaskHandlerTestSuite defines the test suite for TaskHandler and UserHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	issuer  *auth.TokenIssuer
	remover *countingRemover
	router  *gin.Engine
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewDB(suite.T())
	suite.issuer = auth.NewTokenIssuer("test-secret", constants.DefaultTokenTTL)
	suite.remover = &countingRemover{}

	log := logging.Discard()
	userRepo := repository.NewUserRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	taskService := services.NewTaskService(taskRepo, userRepo, attachments.NewManager(suite.remover, log), nil, nil, log)
	userService := services.NewUserService(userRepo, taskRepo, testutil.Hasher(), nil, log)

	taskHandler := NewTaskHandler(taskService)
	userHandler := NewUserHandler(userService)
	requireTaskAccess := middleware.RequireTaskAccess(taskService)

	r := gin.New()
	api := r.Group("/api", middleware.Authenticate(suite.issuer))
	api.GET("/tasks", taskHandler.ListTasks)
	api.GET("/tasks/stats", taskHandler.Stats)
	api.POST("/tasks", taskHandler.CreateTask)
	api.POST("/tasks/generate", taskHandler.GenerateTasks)
	api.GET("/tasks/:id", requireTaskAccess, taskHandler.GetTask)
	api.PUT("/tasks/:id", requireTaskAccess, taskHandler.UpdateTask)
	api.PATCH("/tasks/:id/complete", requireTaskAccess, taskHandler.CompleteTask)
	api.DELETE("/tasks/:id", requireTaskAccess, taskHandler.DeleteTask)
	api.DELETE("/tasks/:id/files/:fileId", requireTaskAccess, taskHandler.DeleteFile)
	api.GET("/users", middleware.RequireAdmin(), userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetUser)
	api.PUT("/users/:id", userHandler.UpdateUser)
	api.DELETE("/users/:id", middleware.RequireAdmin(), userHandler.DeleteUser)
	suite.router = r
}

func (suite *TaskHandlerTestSuite) tokenFor(identity auth.Identity) string {
	token, err := suite.issuer.Issue(identity)
	suite.Require().NoError(err)
	return token
}

func (suite *TaskHandlerTestSuite) userToken(user models.User) string {
	return suite.tokenFor(auth.UserPrincipal{User: &user}.Identity())
}

func (suite *TaskHandlerTestSuite) adminToken() string {
	return suite.tokenFor(auth.AdminPrincipal{Email: "admin@example.com"}.Identity())
}

func (suite *TaskHandlerTestSuite) do(method, path, token string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		suite.Require().NoError(err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) createTask(title string, creator *models.User, assignees ...models.User) *models.Task {
	task := &models.Task{Title: title}
	if creator != nil {
		task.CreatedByID = &creator.ID
	} else {
		task.CreatedRole = models.RoleAdmin
	}
	ids := make([]string, len(assignees))
	for i, u := range assignees {
		ids[i] = u.ID
	}
	task.SetAssignees(ids)
	testutil.CreateTask(suite.T(), suite.db, task)
	return task
}

func (suite *TaskHandlerTestSuite) TestListTasks_FilterSortAndPage() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")

	for day := 1; day <= 12; day++ {
		task := &models.Task{
			Title:       fmt.Sprintf("match-%02d", day),
			Status:      models.TaskStatusCompleted,
			Priority:    models.TaskPriorityHigh,
			DueDate:     timePtr(time.Date(2026, time.February, day, 9, 0, 0, 0, time.UTC)),
			CreatedByID: &alice.ID,
		}
		task.SetAssignees([]string{alice.ID})
		testutil.CreateTask(suite.T(), suite.db, task)
	}
	suite.createTask("noise", &alice, alice)

	w := suite.do(http.MethodGet, "/api/tasks?status=completed&priority=high&dueDateOrder=desc&page=2&limit=5", suite.adminToken(), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.True(response.Success)
	suite.Equal(3, response.TotalPages)

	titles := make([]string, len(response.Tasks))
	for i, task := range response.Tasks {
		titles[i] = task.Title
	}
	suite.Equal([]string{"match-07", "match-06", "match-05", "match-04", "match-03"}, titles)

	first := response.Tasks[0]
	suite.Require().Len(first.AssignedTo, 1)
	suite.Equal("alice@example.com", first.AssignedTo[0].Email)
	suite.Require().NotNil(first.CreatedBy)
	suite.Equal("Alice", first.CreatedBy.Name)
}

func (suite *TaskHandlerTestSuite) TestListTasks_OnlyVisibleTasks() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")
	bob := testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com", "secret1")

	suite.createTask("alice private", &alice, alice)
	suite.createTask("bob's", &alice, bob)
	suite.createTask("from admin", nil, bob)

	w := suite.do(http.MethodGet, "/api/tasks", suite.userToken(bob), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Len(response.Tasks, 2)
	for _, task := range response.Tasks {
		suite.NotEqual("alice private", task.Title)
	}
}

func (suite *TaskHandlerTestSuite) TestGetTask_AccessControl() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")
	bob := testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com", "secret1")
	task := suite.createTask("alice private", &alice, alice)

	w := suite.do(http.MethodGet, "/api/tasks/"+task.ID, suite.userToken(bob), nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "Task not found")

	w = suite.do(http.MethodGet, "/api/tasks/"+task.ID, suite.userToken(alice), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "alice@example.com")

	var detail struct {
		Task dto.TaskDetailDTO `json:"task"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &detail))
	suite.Equal([]dto.UserRefDTO{{ID: alice.ID, Name: "Alice"}}, detail.Task.AssignedTo)
	suite.Require().NotNil(detail.Task.CreatedBy)
	suite.Equal(alice.ID, *detail.Task.CreatedBy)

	w = suite.do(http.MethodGet, "/api/tasks/not-an-id", suite.userToken(alice), nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/tasks/"+task.ID, "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")

	w := suite.do(http.MethodPost, "/api/tasks", suite.userToken(alice), map[string]any{
		"title":    "Write tests",
		"priority": "high",
		"dueDate":  "2026-12-01",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var response struct {
		Message string            `json:"message"`
		Task    dto.StoredTaskDTO `json:"task"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal("Task created successfully.", response.Message)
	suite.Equal([]string{alice.ID}, response.Task.AssignedTo)
	suite.Equal(models.TaskStatusPending, response.Task.Status)
	suite.Require().NotNil(response.Task.DueDate)

	w = suite.do(http.MethodPost, "/api/tasks", suite.adminToken(), map[string]any{"title": "Orphan"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "Assign this task at least one user.")

	w = suite.do(http.MethodPost, "/api/tasks", suite.userToken(alice), map[string]any{"description": "no title"})
	suite.Equal(http.StatusBadRequest, w.Code)

	var invalid struct {
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &invalid))
	suite.Equal("Invalid request body", invalid.Message)
	suite.Equal(map[string]string{"title": "The field 'title' is required."}, invalid.Details)

	w = suite.do(http.MethodPost, "/api/tasks", suite.userToken(alice), map[string]any{"title": 42})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "The field 'title' must be of type string.")
}

func (suite *TaskHandlerTestSuite) TestUpdateAndCompleteTask() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")
	task := suite.createTask("draft", &alice, alice)

	w := suite.do(http.MethodPut, "/api/tasks/"+task.ID, suite.userToken(alice), map[string]any{
		"title":   "final",
		"dueDate": nil,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Data dto.StoredTaskDTO `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal("final", response.Data.Title)
	suite.Nil(response.Data.DueDate)

	for i := 0; i < 2; i++ {
		w = suite.do(http.MethodPatch, "/api/tasks/"+task.ID+"/complete", suite.userToken(alice), nil)
		suite.Require().Equal(http.StatusOK, w.Code)
	}

	var stored models.Task
	suite.Require().NoError(suite.db.First(&stored, "id = ?", task.ID).Error)
	suite.Equal(models.TaskStatusCompleted, stored.Status)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")
	bob := testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com", "secret1")

	task := &models.Task{Title: "files", CreatedByID: &alice.ID}
	task.SetAssignees([]string{alice.ID, bob.ID})
	task.SetDocuments([]models.TaskDocument{
		{ID: models.NewID(), SecureURL: "https://cdn/a", PublicID: "a"},
		{ID: models.NewID(), SecureURL: "https://cdn/b", PublicID: "b"},
	})
	testutil.CreateTask(suite.T(), suite.db, task)

	w := suite.do(http.MethodDelete, "/api/tasks/"+task.ID, suite.userToken(bob), nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Empty(suite.remover.keys)

	w = suite.do(http.MethodDelete, "/api/tasks/"+task.ID, suite.userToken(alice), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Task & files deleted")
	suite.Equal([]string{"a", "b"}, suite.remover.keys)

	w = suite.do(http.MethodGet, "/api/tasks/"+task.ID, suite.userToken(alice), nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteFile() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")

	docID := models.NewID()
	task := &models.Task{Title: "files", CreatedByID: &alice.ID}
	task.SetAssignees([]string{alice.ID})
	task.SetDocuments([]models.TaskDocument{{ID: docID, SecureURL: "https://cdn/a", PublicID: "a"}})
	testutil.CreateTask(suite.T(), suite.db, task)

	w := suite.do(http.MethodDelete, "/api/tasks/"+task.ID+"/files/"+docID, suite.userToken(alice), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal([]string{"a"}, suite.remover.keys)

	w = suite.do(http.MethodDelete, "/api/tasks/"+task.ID+"/files/"+docID, suite.userToken(alice), nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "File not found")
}

func (suite *TaskHandlerTestSuite) TestStatsAndGenerate() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com", "secret1")
	suite.createTask("one", &alice, alice)

	w := suite.do(http.MethodGet, "/api/tasks/stats", suite.userToken(alice), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response struct {
		Stats services.TaskStats `json:"stats"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal(services.TaskStats{TotalUsers: 1, TotalTasks: 1, PendingTasks: 1}, response.Stats)

	w = suite.do(http.MethodPost, "/api/tasks/generate", suite.userToken(alice), map[string]string{"text": "book flights"})
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListUsers_WithTaskCounts() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@x.com", "secret1")
	testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@x.com", "secret1")

	done := suite.createTask("done", &alice, alice)
	suite.Require().NoError(suite.db.Model(&models.Task{}).Where("id = ?", done.ID).Update("status", models.TaskStatusCompleted).Error)
	suite.createTask("open", &alice, alice)

	w := suite.do(http.MethodGet, "/api/users?query=ali&taskCount=1", suite.adminToken(), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.UserListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response.Users, 1)
	suite.Equal(1, response.TotalPages)

	user := response.Users[0]
	suite.Equal(alice.ID, user.ID)
	suite.Require().NotNil(user.TaskCount)
	suite.Require().NotNil(user.PendingCount)
	suite.Equal(int64(2), *user.TaskCount)
	suite.Equal(int64(1), *user.PendingCount)
	suite.NotContains(w.Body.String(), "password")

	w = suite.do(http.MethodGet, "/api/users?taskCount=0", suite.adminToken(), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "taskCount")

	w = suite.do(http.MethodGet, "/api/users", suite.userToken(alice), nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Contains(w.Body.String(), "Admin only")
}

func (suite *TaskHandlerTestSuite) TestUpdateAndDeleteUser() {
	alice := testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@x.com", "secret1")
	bob := testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@x.com", "secret1")

	w := suite.do(http.MethodPut, "/api/users/"+alice.ID, suite.userToken(bob), map[string]string{"name": "Mallory"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPut, "/api/users/"+alice.ID, suite.userToken(alice), map[string]string{"name": "Alice L."})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Alice L.")

	w = suite.do(http.MethodDelete, "/api/users/"+bob.ID, suite.userToken(alice), nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.do(http.MethodDelete, "/api/users/"+bob.ID, suite.adminToken(), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/users/"+bob.ID, suite.adminToken(), nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}

func TestRespondServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrTaskNotFound, http.StatusNotFound},
		{services.ErrNotTaskCreator, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", services.ErrUserNotFound), http.StatusNotFound},
		{&services.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{services.ErrAIServiceNotConfigured, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondServiceError(c, tt.err)
		assert.Equal(t, tt.status, w.Code, "error %v", tt.err)
	}
}

func TestRespondBindError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		body    string
		details map[string]string
	}{
		{"malformed json", `{"title":`, nil},
		{"missing required", `{}`, map[string]string{"text": "The field 'text' is required."}},
		{"wrong type", `{"text":["a"]}`, map[string]string{"text": "The field 'text' must be of type string."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/tasks/generate", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req dto.GenerateTasksRequest
			err := c.ShouldBindJSON(&req)
			require.Error(t, err)
			respondBindError(c, err, &req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var response struct {
				Success bool              `json:"success"`
				Message string            `json:"message"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.False(t, response.Success)
			assert.Equal(t, "Invalid request body", response.Message)
			assert.Equal(t, tt.details, response.Details)
		})
	}
}
