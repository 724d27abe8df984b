package entities

import (
	"time"
)

// User represents a customer account
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	Persona          string     `json:"persona,omitempty" db:"persona"`
	PersonaUpdatedAt *time.Time `json:"persona_updated_at,omitempty" db:"persona_updated_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
