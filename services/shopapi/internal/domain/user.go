package domain

import "time"

// User is a shop account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthResult is what login and registration hand back to the client.
type AuthResult struct {
	Token     string `json:"token"`
	UserEmail string `json:"userEmail"`
}
