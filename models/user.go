package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole represents the role of an operator
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleAnalyst UserRole = "analyst"
	RoleViewer  UserRole = "viewer"
)

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	switch UserRole(role) {
	case RoleAdmin, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// User represents a dashboard operator
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"user_id" json:"user_id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
	Role     UserRole           `bson:"role" json:"role"`

	PasswordHash string `bson:"password_hash" json:"-"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	LastLogin time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Session is a logged-in operator session, expired server-side via a TTL
// index on expires_at.
type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    string             `bson:"session_id" json:"session_id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	IPAddress    string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent    string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed"`
	ExpiresAt    time.Time          `bson:"expires_at" json:"expires_at"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
}
