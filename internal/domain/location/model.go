// Package location provides the registry of stocking locations: warehouses,
// stores, fulfillment centers and suppliers that hold inventory items.
package location

import (
	"context"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// EntityType names locations in the audit log.
const EntityType = "location"

// Type defines the kind of stocking location.
type Type string

const (
	TypeWarehouse         Type = "warehouse"
	TypeStore             Type = "store"
	TypeFulfillmentCenter Type = "fulfillment_center"
	TypeSupplier          Type = "supplier"
	TypeOther             Type = "other"
)

// IsValid reports whether t is a known location type.
func (t Type) IsValid() bool {
	switch t {
	case TypeWarehouse, TypeStore, TypeFulfillmentCenter, TypeSupplier, TypeOther:
		return true
	}
	return false
}

// Location is a place where stock is kept.
type Location struct {
	ID         id.ID     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Type       Type      `db:"type" json:"type"`
	Address    *string   `db:"address" json:"address,omitempty"`
	City       *string   `db:"city" json:"city,omitempty"`
	State      *string   `db:"state" json:"state,omitempty"`
	PostalCode *string   `db:"postal_code" json:"postalCode,omitempty"`
	Country    *string   `db:"country" json:"country,omitempty"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	Version    int       `db:"version" json:"version"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLocation creates an active location.
func NewLocation(name string, t Type) *Location {
	now := time.Now().UTC()
	return &Location{
		ID:        id.New(),
		Name:      name,
		Type:      t,
		IsActive:  true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks location invariants.
func (l *Location) Validate(ctx context.Context) error {
	if strings.TrimSpace(l.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if !l.Type.IsValid() {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}
	return nil
}

// Patch is the closed set of fields an update may change. Nil fields are left as is.
type Patch struct {
	Name       *string
	Type       *Type
	Address    *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	IsActive   *bool
}

// Apply merges the patch into l. The repository bumps the version on write.
func (p Patch) Apply(l *Location) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Type != nil {
		l.Type = *p.Type
	}
	if p.Address != nil {
		l.Address = p.Address
	}
	if p.City != nil {
		l.City = p.City
	}
	if p.State != nil {
		l.State = p.State
	}
	if p.PostalCode != nil {
		l.PostalCode = p.PostalCode
	}
	if p.Country != nil {
		l.Country = p.Country
	}
	if p.IsActive != nil {
		l.IsActive = *p.IsActive
	}
	l.UpdatedAt = time.Now().UTC()
}
