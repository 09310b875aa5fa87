// Package domain contains core domain types for the chatgate application.
package domain

import (
	"time"
)

// User represents a registered customer resolved from the directory.
// Records are provisioned by an external process and are read-only here.
type User struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	ClientCode string    `json:"client_code"`
	CompanyID  string    `json:"company_id"`
	Email      string    `json:"email"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
