package memory

import (
	"context"
	"sort"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/location"
)

var _ location.Repository = (*LocationRepo)(nil)

// LocationRepo implements location.Repository.
type LocationRepo struct {
	s *Store
}

func (r *LocationRepo) Create(ctx context.Context, loc *location.Location) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.locations[loc.ID]; ok {
			return apperror.NewDuplicate("inventory location", "id", loc.ID.String())
		}
		st.locations[loc.ID] = *loc
		return nil
	})
}

func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	var out *location.Location
	err := r.s.do(ctx, func(st *state) error {
		loc, ok := st.locations[locationID]
		if !ok {
			return apperror.NewNotFound("inventory location", locationID.String())
		}
		out = &loc
		return nil
	})
	return out, err
}

func (r *LocationRepo) Update(ctx context.Context, loc *location.Location) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.locations[loc.ID]
		if !ok {
			return apperror.NewNotFound("inventory location", loc.ID.String())
		}
		if stored.Version != loc.Version {
			return apperror.NewConcurrentModification("inventory location", loc.ID.String())
		}
		loc.Version++
		loc.UpdatedAt = time.Now().UTC()
		st.locations[loc.ID] = *loc
		return nil
	})
}

func (r *LocationRepo) Delete(ctx context.Context, locationID id.ID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.locations[locationID]; !ok {
			return apperror.NewNotFound("inventory location", locationID.String())
		}
		for _, it := range st.items {
			if it.LocationID == locationID {
				return apperror.NewConflict("location has associated inventory items").
					WithDetail("location_id", locationID.String())
			}
		}
		delete(st.locations, locationID)
		return nil
	})
}

func (r *LocationRepo) List(ctx context.Context, includeInactive bool) ([]*location.Location, error) {
	out := []*location.Location{}
	err := r.s.do(ctx, func(st *state) error {
		for _, loc := range st.locations {
			if !includeInactive && !loc.IsActive {
				continue
			}
			out = append(out, &loc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r *LocationRepo) HasItems(ctx context.Context, locationID id.ID) (bool, error) {
	found := false
	err := r.s.do(ctx, func(st *state) error {
		for _, it := range st.items {
			if it.LocationID == locationID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
