package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTaskListFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, taskListFilter(TaskFilter{}))

	userID := models.NewID()
	status := models.TaskStatusCompleted
	priority := models.TaskPriorityHigh
	got := taskListFilter(TaskFilter{VisibleTo: &userID, Status: &status, Priority: &priority})

	assert.Equal(t, bson.M{
		"$or": bson.A{
			bson.M{"createdBy": userID},
			bson.M{"assignedTo": userID},
		},
		"status":   "completed",
		"priority": "high",
	}, got)
}

func TestTaskListSort(t *testing.T) {
	tieBreakers := bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

	assert.Equal(t, append(bson.D{{Key: "dueDate", Value: 1}}, tieBreakers...), taskListSort(constants.SortAsc))
	assert.Equal(t, append(bson.D{{Key: "dueDate", Value: -1}}, tieBreakers...), taskListSort(constants.SortDesc))
	assert.Equal(t, tieBreakers, taskListSort("sideways"))
}

func TestUserSearchFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, userSearchFilter("   "))

	got := userSearchFilter("a.b")
	clauses, ok := got["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, clauses, 2)

	name := clauses[0].(bson.M)["name"].(bson.M)
	assert.Equal(t, regexp.QuoteMeta("a.b"), name["$regex"])
	assert.Equal(t, "i", name["$options"])
}

func TestAssignmentCountPipeline(t *testing.T) {
	ids := []string{models.NewID(), models.NewID()}
	pipeline := assignmentCountPipeline(ids)

	require.Len(t, pipeline, 4)
	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, "$unwind", pipeline[1][0].Key)
	assert.Equal(t, "$match", pipeline[2][0].Key)
	assert.Equal(t, "$group", pipeline[3][0].Key)

	group := pipeline[3][0].Value.(bson.M)
	assert.Equal(t, "$assignedTo", group["_id"])
}

func TestTaskDocumentConversion(t *testing.T) {
	creator := models.NewID()
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	task := models.Task{
		ID:          models.NewID(),
		Title:       "ship",
		Status:      models.TaskStatusPending,
		Priority:    models.TaskPriorityLow,
		DueDate:     &due,
		CreatedRole: models.RoleUser,
		CreatedByID: &creator,
	}
	task.SetAssignees([]string{"b", "a"})
	task.SetDocuments([]models.TaskDocument{{ID: "d1", SecureURL: "https://cdn/x", PublicID: "x"}})

	doc := toTaskDocument(&task)
	assert.Equal(t, []string{"b", "a"}, doc.AssignedTo)
	require.Len(t, doc.Documents, 1)
	assert.Equal(t, "x", doc.Documents[0].PublicID)

	back := doc.toModel()
	assert.Equal(t, task.AssigneeIDs(), back.AssigneeIDs())
	assert.Equal(t, creator, *back.CreatedByID)
	assert.Equal(t, due, *back.DueDate)

	unassigned := models.Task{ID: models.NewID()}
	assert.NotNil(t, toTaskDocument(&unassigned).AssignedTo)
}
