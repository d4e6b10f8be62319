package model

import "time"

// Session points at the user who is currently logged in.
type Session struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
