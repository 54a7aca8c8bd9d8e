package models

import "time"

// Campus is one academy location sessions can be scheduled at.
type Campus struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	City      string    `json:"city" db:"city"`
	Courts    int       `json:"courts" db:"courts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
