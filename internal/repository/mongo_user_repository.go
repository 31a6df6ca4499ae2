package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskdesk-api/internal/models"
	"github.com/yukikurage/taskdesk-api/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository is a MongoDB implementation of UserRepository
type MongoUserRepository struct {
	users *mongo.Collection
	tasks *mongo.Collection
}

// NewMongoUserRepository creates a new UserRepository backed by db
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &MongoUserRepository{
		users: db.Collection(UsersCollection),
		tasks: db.Collection(TasksCollection),
	}
}

// Create inserts a new user
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, toUserDocument(user)); err != nil {
		return translateMongoError(err)
	}
	return nil
}

// FindByID finds a user by ID
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail finds a user by email
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongoError(err)
	}
	user := doc.toModel()
	return &user, nil
}

// FindByIDs loads all users among ids in one query
func (r *MongoUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	ids = utils.UniqueStrings(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// List retrieves users whose name or email contains the query, case-insensitively
func (r *MongoUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := userSearchFilter(filter.Query)

	total, err := r.users.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	if filter.PageSize > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.PageSize))
	}

	users, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *MongoUserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]models.User, len(docs))
	for i, d := range docs {
		users[i] = d.toModel()
	}
	return users, nil
}

// Update saves the mutable user fields
func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":      user.Name,
			"email":     user.Email,
			"password":  user.PasswordHash,
			"role":      string(user.Role),
			"updatedAt": user.UpdatedAt,
		},
	}

	result, err := r.users.UpdateByID(ctx, user.ID, update)
	if err != nil {
		return translateMongoError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user and clears every reference to them. The
// collections are updated one after another; a standalone server has no
// multi-document transactions.
func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.tasks.UpdateMany(ctx,
		bson.M{"assignedTo": id},
		bson.M{"$pull": bson.M{"assignedTo": id}},
	); err != nil {
		return fmt.Errorf("failed to unassign user: %w", err)
	}

	if _, err := r.tasks.UpdateMany(ctx,
		bson.M{"createdBy": id},
		bson.M{"$set": bson.M{"createdBy": nil}},
	); err != nil {
		return fmt.Errorf("failed to clear task creator: %w", err)
	}

	result, err := r.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count counts all users
func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.users.CountDocuments(ctx, bson.M{})
}

// translateMongoError maps driver errors onto repository errors.
func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateKey
	}
	return err
}
