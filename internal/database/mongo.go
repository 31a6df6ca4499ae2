package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// ConnectMongo connects to MongoDB and pings the primary.
func ConnectMongo(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.WithField("database", cfg.DBName).Info("MongoDB connection established")
	return client, client.Database(cfg.DBName), nil
}

// EnsureMongoIndexes creates the unique email index and the task list indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}

	_, err = db.Collection("tasks").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks indexes: %w", err)
	}
	return nil
}
