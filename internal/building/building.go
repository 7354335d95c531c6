// Package building exposes the read-only capability contract the user
// DAO depends on. Buildings themselves are owned by another service;
// this core only asks membership and admin-relationship questions.
package building

import (
	"context"
	"errors"

	"backoffice-service/internal/model"
	"backoffice-service/internal/store"
)

// Collection is the store collection buildings are read from.
const Collection = "buildings"

// Building is the tenant unit that partitions user visibility.
type Building struct {
	model.Base
	Name     string   `json:"name"`
	AdminIDs []string `json:"adminIds,omitempty"`
}

// Service answers the two questions the user DAO asks about buildings.
type Service interface {
	// UserBelongsToBuilding reports whether the user is scoped to the
	// building.
	UserBelongsToBuilding(ctx context.Context, user *model.User, buildingID string) (bool, error)
	// UserIsAdminOfBuilding reports whether the user holds tenant-admin
	// authority over the building.
	UserIsAdminOfBuilding(ctx context.Context, user *model.User, buildingID string) (bool, error)
}

// StoreService reads building records from the document store.
type StoreService struct {
	store store.Store
}

func NewStoreService(s store.Store) *StoreService {
	return &StoreService{store: s}
}

func (s *StoreService) UserBelongsToBuilding(_ context.Context, user *model.User, buildingID string) (bool, error) {
	return user.BelongsTo(buildingID), nil
}

func (s *StoreService) UserIsAdminOfBuilding(ctx context.Context, user *model.User, buildingID string) (bool, error) {
	if user.Role != model.RoleManager && user.Role != model.RoleAdmin {
		return false, nil
	}
	if user.Role == model.RoleAdmin {
		return true, nil
	}

	doc, err := s.store.Find(ctx, Collection, buildingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var b Building
	if err := model.FromDocument(doc, &b); err != nil {
		return false, err
	}
	for _, id := range b.AdminIDs {
		if id == user.ID {
			return true, nil
		}
	}
	return false, nil
}
