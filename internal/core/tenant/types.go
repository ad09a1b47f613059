// Package tenant describes distributions: the isolated business units every
// ledger row belongs to. The tenant is always passed explicitly; nothing in
// the domain reads it from ambient request state.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"distledger/internal/core/id"
)

// ID identifies a distribution.
type ID = id.ID

// Status represents distribution lifecycle state.
type Status string

const (
	// StatusActive - distribution can accept requests
	StatusActive Status = "active"

	// StatusSuspended - distribution is temporarily disabled
	StatusSuspended Status = "suspended"
)

// Distribution is a tenant record.
type Distribution struct {
	ID        ID        `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsActive returns true if the distribution can accept requests.
func (d *Distribution) IsActive() bool {
	return d.Status == StatusActive
}

// CreateInput contains data for registering a distribution.
type CreateInput struct {
	Code string
	Name string
}

// Validate checks if input is valid and normalizes the code.
func (i *CreateInput) Validate() error {
	i.Code = strings.ToUpper(strings.TrimSpace(i.Code))
	if i.Code == "" {
		return fmt.Errorf("code is required")
	}
	if len(i.Code) > 32 {
		return fmt.Errorf("code must be 32 characters or less")
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
