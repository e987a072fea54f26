package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoClient *mongo.Client
	database    *mongo.Database
)

// GetDatabase returns the MongoDB database instance
func GetDatabase() *mongo.Database {
	return database
}

// InitMongoDB initializes MongoDB connection
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")
	mongoClient = client

	return client, nil
}

// InitServices initializes all services
func InitServices(client *mongo.Client, databaseName string) {
	database = client.Database(databaseName)

	// Create indexes
	createIndexes()
}

// createIndexes creates necessary database indexes
func createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customersCollection := database.Collection("customers")
	customersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"customer_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"city": 1}},
	})

	ordersCollection := database.Collection("orders")
	ordersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"order_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"customer_id": 1}},
		{Keys: bson.M{"timestamp": -1}},
	})

	campaignsCollection := database.Collection("campaigns")
	campaignsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"campaign_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"sent_at": -1}},
	})

	usersCollection := database.Collection("users")
	usersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
	})

	sessionsCollection := database.Collection("sessions")
	sessionsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"session_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
}
