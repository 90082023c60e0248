package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a store staff member; every ledger mutation is attributed to one.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
}

// Actor identifies who performed a ledger mutation, denormalized onto the
// records it touches.
type Actor struct {
	ID   uuid.UUID
	Name string
}
