package dto

import (
	"stockledger/internal/domain/location"
)

// CreateLocationRequest is the request body for creating a location.
type CreateLocationRequest struct {
	Name       string        `json:"name" binding:"required"`
	Type       location.Type `json:"type" binding:"required"`
	Address    *string       `json:"address"`
	City       *string       `json:"city"`
	State      *string       `json:"state"`
	PostalCode *string       `json:"postalCode"`
	Country    *string       `json:"country"`
	IsActive   *bool         `json:"isActive"`
}

// ToEntity converts DTO to domain entity. Locations are active unless stated.
func (r *CreateLocationRequest) ToEntity() *location.Location {
	loc := location.NewLocation(r.Name, r.Type)
	loc.Address = r.Address
	loc.City = r.City
	loc.State = r.State
	loc.PostalCode = r.PostalCode
	loc.Country = r.Country
	if r.IsActive != nil {
		loc.IsActive = *r.IsActive
	}
	return loc
}

// UpdateLocationRequest is a partial update; omitted fields are kept.
type UpdateLocationRequest struct {
	Name       *string        `json:"name"`
	Type       *location.Type `json:"type"`
	Address    *string        `json:"address"`
	City       *string        `json:"city"`
	State      *string        `json:"state"`
	PostalCode *string        `json:"postalCode"`
	Country    *string        `json:"country"`
	IsActive   *bool          `json:"isActive"`
}

// ToPatch converts the request to a domain patch.
func (r *UpdateLocationRequest) ToPatch() location.Patch {
	return location.Patch{
		Name:       r.Name,
		Type:       r.Type,
		Address:    r.Address,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		IsActive:   r.IsActive,
	}
}

// ListLocationsQuery filters the location listing.
type ListLocationsQuery struct {
	IncludeInactive bool `form:"includeInactive"`
}
