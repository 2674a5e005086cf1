package models

import "time"

// Credential is a session-service login keyed by a synthetic address.
type Credential struct {
	Email      string    `db:"email"`
	SecretHash string    `db:"secret_hash"`
	UserID     string    `db:"user_id"`
	CreatedAt  time.Time `db:"created_at"`
}
