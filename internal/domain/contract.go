package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Contract is an AI-drafted smart contract together with the generator's validation verdict.
type Contract struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	UserID         uuid.UUID      `json:"user_id" db:"user_id"`
	OrganizationID *uuid.UUID     `json:"organization_id,omitempty" db:"organization_id"`
	Prompt         string         `json:"prompt" db:"prompt"`
	GeneratedCode  string         `json:"generated_code" db:"generated_code"`
	IsValidated    bool           `json:"is_validated" db:"is_validated"`
	HasWarnings    bool           `json:"has_warnings" db:"has_warnings"`
	Warnings       pq.StringArray `json:"warnings" db:"warnings"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
