package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"segment-engine/models"
)

// CreateUser creates a new operator account
func CreateUser(ctx context.Context, user *models.User, password string) error {
	collection := GetDatabase().Collection("users")

	existingUser := collection.FindOne(ctx, bson.M{"email": user.Email})
	if existingUser.Err() != mongo.ErrNoDocuments {
		return fmt.Errorf("user already exists with this email")
	}

	if !models.IsValidRole(string(user.Role)) {
		return fmt.Errorf("invalid role: %s", user.Role)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hashedPassword

	user.ID = primitive.NewObjectID()
	if user.UserID == "" {
		user.UserID = user.ID.Hex()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.IsActive = true

	if _, err := collection.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User created",
		"userID", user.UserID,
		"username", user.Username,
		"role", user.Role)

	return nil
}

// GetUserByEmail retrieves an active user by email
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	collection := GetDatabase().Collection("users")

	var user models.User
	err := collection.FindOne(ctx, bson.M{"email": email, "is_active": true}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateLastLogin stamps a successful login
func UpdateLastLogin(ctx context.Context, userID string) error {
	collection := GetDatabase().Collection("users")

	_, err := collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"last_login": time.Now(), "updated_at": time.Now()}},
	)
	return err
}

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a plaintext password with a stored hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
