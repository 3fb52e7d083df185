package domain

import (
	"time"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

type User struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	Email                 string     `json:"email" db:"email"`
	PasswordHash          *string    `json:"-" db:"password_hash"` // nil for OAuth-only accounts
	FullName              string     `json:"full_name" db:"full_name"`
	IsBusinessAccount     bool       `json:"is_business_account" db:"is_business_account"`
	OrganizationID        *uuid.UUID `json:"organization_id,omitempty" db:"organization_id"`
	SignatureKey          *string    `json:"-" db:"signature_key"` // encrypted signature
	SignaturePasswordHash *string    `json:"-" db:"signature_password_hash"`
	Provider              *string    `json:"provider,omitempty" db:"provider"`
	ProviderID            *string    `json:"-" db:"provider_id"`
	PaymentInfo
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// PaymentInfo is embedded in User. The full account number is only ever stored encrypted.
type PaymentInfo struct {
	RoutingNumber          *string `json:"routing_number,omitempty" db:"routing_number"`
	AccountNumberEncrypted *string `json:"-" db:"account_number_encrypted"`
	AccountLast4           *string `json:"account_last4,omitempty" db:"account_last4"`
	IBAN                   *string `json:"iban,omitempty" db:"iban"`
}

func (u *User) HasSignature() bool {
	return u.SignatureKey != nil && u.SignaturePasswordHash != nil
}
