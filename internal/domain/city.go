package domain

import "time"

// City is immutable reference data supplied by administrators at seed time.
type City struct {
	ID        string    `json:"city_id"`
	Name      string    `json:"city_name"`
	CreatedAt time.Time `json:"created_at"`
}
