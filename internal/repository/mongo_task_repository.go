package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/taskdesk-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTaskRepository is a MongoDB implementation of TaskRepository.
// Assignees and documents are embedded in the task document.
type MongoTaskRepository struct {
	tasks *mongo.Collection
}

// NewMongoTaskRepository creates a new TaskRepository backed by db
func NewMongoTaskRepository(db *mongo.Database) TaskRepository {
	return &MongoTaskRepository{tasks: db.Collection(TasksCollection)}
}

// Create inserts a new task
func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = models.NewID()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	doc := toTaskDocument(task)
	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return translateMongoError(err)
	}
	syncDocumentIDs(task, doc)
	return nil
}

// FindByID finds a task by ID
func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var doc taskDocument
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	task := doc.toModel()
	return &task, nil
}

// List retrieves tasks with filtering, sorting and pagination
func (r *MongoTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := taskListFilter(filter)

	total, err := r.tasks.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	opts := options.Find().SetSort(taskListSort(filter.DueDateOrder))
	if filter.PageSize > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.PageSize))
	}

	cursor, err := r.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]models.Task, len(docs))
	for i, d := range docs {
		tasks[i] = d.toModel()
	}
	return tasks, total, nil
}

// Update replaces the stored task document
func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	doc := toTaskDocument(task)

	result, err := r.tasks.ReplaceOne(ctx, bson.M{"_id": task.ID}, doc)
	if err != nil {
		return translateMongoError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	syncDocumentIDs(task, doc)
	return nil
}

// UpdateStatus sets the status field only
func (r *MongoTaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	result, err := r.tasks.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": string(status), "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task document
func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count counts tasks, optionally restricted to one status
func (r *MongoTaskRepository) Count(ctx context.Context, status *models.TaskStatus) (int64, error) {
	filter := bson.M{}
	if status != nil {
		filter["status"] = string(*status)
	}
	return r.tasks.CountDocuments(ctx, filter)
}

type assignmentCountResult struct {
	UserID  string `bson:"_id"`
	Total   int64  `bson:"total"`
	Pending int64  `bson:"pending"`
}

// CountAssignedByUsers counts total and pending assigned tasks per user
func (r *MongoTaskRepository) CountAssignedByUsers(ctx context.Context, userIDs []string) (map[string]AssignmentCount, error) {
	counts := make(map[string]AssignmentCount, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	cursor, err := r.tasks.Aggregate(ctx, assignmentCountPipeline(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task counts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []assignmentCountResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode task counts: %w", err)
	}

	for _, res := range results {
		counts[res.UserID] = AssignmentCount{Total: res.Total, Pending: res.Pending}
	}
	return counts, nil
}

// syncDocumentIDs copies ids generated for new attachments back to the model.
func syncDocumentIDs(task *models.Task, doc taskDocument) {
	docs := task.OrderedDocuments()
	for i := range docs {
		docs[i].ID = doc.Documents[i].ID
	}
	task.SetDocuments(docs)
}
