package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"segment-engine/models"
)

const (
	SessionDuration   = 24 * time.Hour
	SessionCookieName = "session"
)

// GenerateSessionID generates a secure random session ID
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateSession creates a new session in the database
func CreateSession(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.Session, error) {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:           primitive.NewObjectID(),
		SessionID:    sessionID,
		UserID:       user.UserID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         string(user.Role),
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(SessionDuration),
		IsActive:     true,
	}

	collection := GetDatabase().Collection("sessions")
	if _, err := collection.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSessionByID retrieves an active, unexpired session
func GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	collection := GetDatabase().Collection("sessions")

	var session models.Session
	err := collection.FindOne(ctx, bson.M{
		"session_id": sessionID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&session)

	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// ExtendSession pushes the expiration forward on activity
func ExtendSession(ctx context.Context, sessionID string) {
	collection := GetDatabase().Collection("sessions")

	_, err := collection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{
			"last_accessed": time.Now(),
			"expires_at":    time.Now().Add(SessionDuration),
		}},
	)
	if err != nil {
		slog.Warn("Failed to extend session", "error", err)
	}
}

// InvalidateSession marks a session inactive (logout)
func InvalidateSession(ctx context.Context, sessionID string) error {
	collection := GetDatabase().Collection("sessions")

	_, err := collection.UpdateOne(
		ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}
