package building

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-service/internal/model"
	"backoffice-service/internal/store/memory"
)

var frozen = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func seedBuilding(t *testing.T, st *memory.Store, id string, adminIDs ...string) {
	t.Helper()
	b := &Building{Name: "Building " + id, AdminIDs: adminIDs}
	b.ID = id
	b.Normalize(frozen)
	doc, err := model.ToDocument(b)
	require.NoError(t, err)
	_, err = st.Create(context.Background(), Collection, doc)
	require.NoError(t, err)
}

func TestUserBelongsToBuilding(t *testing.T) {
	svc := NewStoreService(memory.New())
	ctx := context.Background()

	user := &model.User{BuildingIDs: []string{"b1", "b2"}}

	member, err := svc.UserBelongsToBuilding(ctx, user, "b1")
	require.NoError(t, err)
	assert.True(t, member)

	member, err = svc.UserBelongsToBuilding(ctx, user, "b3")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestUserIsAdminOfBuilding(t *testing.T) {
	st := memory.New()
	svc := NewStoreService(st)
	ctx := context.Background()

	manager := &model.User{Base: model.Base{ID: "m-1"}, Role: model.RoleManager}
	seedBuilding(t, st, "b1", "m-1")
	seedBuilding(t, st, "b2")

	admin, err := svc.UserIsAdminOfBuilding(ctx, manager, "b1")
	require.NoError(t, err)
	assert.True(t, admin)

	// managing one building grants nothing over another
	admin, err = svc.UserIsAdminOfBuilding(ctx, manager, "b2")
	require.NoError(t, err)
	assert.False(t, admin)

	// a missing building is an authority gap, not an error
	admin, err = svc.UserIsAdminOfBuilding(ctx, manager, "b9")
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestAdminRoleShortCircuits(t *testing.T) {
	svc := NewStoreService(memory.New())

	root := &model.User{Base: model.Base{ID: "a-1"}, Role: model.RoleAdmin}
	admin, err := svc.UserIsAdminOfBuilding(context.Background(), root, "anything")
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestNonManagerRolesNeverAdmin(t *testing.T) {
	st := memory.New()
	svc := NewStoreService(st)

	seedBuilding(t, st, "b1", "r-1")
	resident := &model.User{Base: model.Base{ID: "r-1"}, Role: model.RoleResident}

	// even a listed id does not grant authority without the manager role
	admin, err := svc.UserIsAdminOfBuilding(context.Background(), resident, "b1")
	require.NoError(t, err)
	assert.False(t, admin)
}
