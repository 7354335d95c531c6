package dao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"backoffice-service/internal/apierr"
	"backoffice-service/internal/model"
	"backoffice-service/internal/schema"
	"backoffice-service/internal/store"
	"backoffice-service/internal/store/memory"
)

var frozen = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// widget is a minimal record type for exercising the generic DAO without
// the user entity's policy layer.
type widget struct {
	model.Base
	Name string `json:"name,omitempty"`
	Size int    `json:"size"`
}

func widgetSchema() *schema.Schema {
	return schema.New("widgets", []string{"name"}, map[string]schema.Field{
		"name": {Type: schema.TypeString},
		"size": {Type: schema.TypeNumber},
	})
}

func newWidgetDAO(policy DeletePolicy) (*DAO[*widget], *memory.Store) {
	st := memory.New()
	d := New(st, Config[*widget]{
		Collection:   "widgets",
		Schema:       widgetSchema(),
		DeletePolicy: policy,
		New:          func() *widget { return &widget{} },
	}, zap.NewNop()).WithClock(func() time.Time { return frozen })
	return d, st
}

func TestCreateFillsBaseFields(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()

	created, err := d.Create(ctx, &widget{Name: "first", Size: 3}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)
	assert.True(t, created.CreatedAt.Equal(frozen))
	assert.Nil(t, created.UpdatedAt)

	found, err := d.Find(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", found.Name)
	assert.Equal(t, 3, found.Size)
}

func TestCreateRejectsSchemaViolations(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)

	_, err := d.Create(context.Background(), &widget{Size: 3}, nil)
	require.True(t, apierr.IsKind(err, apierr.KindValidation))

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Violations, 1)
	assert.Equal(t, "name", apiErr.Violations[0].Field)
}

func TestFindNotFound(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)

	_, err := d.Find(context.Background(), "missing", nil)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestUpdateKeepsImmutableFields(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()

	created, err := d.Create(ctx, &widget{Name: "first", Size: 3}, nil)
	require.NoError(t, err)

	updated, err := d.Update(ctx, created.ID, nil, store.Document{
		"name":      "renamed",
		"id":        "hijacked",
		"active":    false,
		"createdAt": "2000-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.Active)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.Equal(frozen))
}

func TestUpdateRevalidatesMergedRecord(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()

	created, err := d.Create(ctx, &widget{Name: "first", Size: 3}, nil)
	require.NoError(t, err)

	_, err = d.Update(ctx, created.ID, nil, store.Document{"size": "big"})
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	// the failed patch must not have touched the stored record
	found, err := d.Find(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Size)
}

func TestUpdateNotFound(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)

	_, err := d.Update(context.Background(), "missing", nil, store.Document{"name": "x"})
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()

	created, err := d.Create(ctx, &widget{Name: "first"}, nil)
	require.NoError(t, err)

	done, err := d.Delete(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, done)

	// the record survives, inactive, and drops out of FindAll
	found, err := d.Find(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.False(t, found.Active)

	all, err := d.FindAll(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)

	// deleting again converges on the same state
	done, err = d.Delete(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, done)

	found, err = d.Find(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestHardDeleteDestroys(t *testing.T) {
	d, _ := newWidgetDAO(HardDelete)
	ctx := context.Background()

	created, err := d.Create(ctx, &widget{Name: "first"}, nil)
	require.NoError(t, err)

	done, err := d.Delete(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = d.Find(ctx, created.ID, nil)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))

	_, err = d.Delete(ctx, created.ID, nil)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestFindAllFilters(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := d.Create(ctx, &widget{Name: fmt.Sprintf("w-%d", i), Size: i % 2}, nil)
		require.NoError(t, err)
	}

	odd, err := d.FindAll(ctx, store.Filter{"size": 1}, nil)
	require.NoError(t, err)
	assert.Len(t, odd, 2)
}

func seedWidgets(t *testing.T, d *DAO[*widget], n int) map[string]bool {
	t.Helper()
	ids := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		created, err := d.Create(context.Background(), &widget{
			Name: fmt.Sprintf("w-%02d", i),
			Size: i,
		}, nil)
		require.NoError(t, err)
		ids[created.ID] = true
	}
	return ids
}

func TestPaginationCoversEveryRecordExactlyOnce(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	ctx := context.Background()
	ids := seedWidgets(t, d, 25)

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		res, err := d.PaginatedQuery(ctx, nil, nil, page, 10, []OrderBy{{Field: "name"}})
		require.NoError(t, err)
		assert.Equal(t, 25, res.Total)
		assert.Equal(t, page, res.Page)
		for _, w := range res.Result {
			assert.False(t, seen[w.ID], "record repeated across pages")
			seen[w.ID] = true
		}
	}
	assert.Equal(t, ids, seen)
}

func TestPaginationPastTheEnd(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	seedWidgets(t, d, 5)

	res, err := d.PaginatedQuery(context.Background(), nil, nil, 4, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Empty(t, res.Result)
}

func TestPaginationDefaults(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	seedWidgets(t, d, 15)

	res, err := d.PaginatedQuery(context.Background(), nil, nil, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Len(t, res.Result, 10)
	assert.Equal(t, 15, res.Total)
}

func TestPaginationOrdering(t *testing.T) {
	d, _ := newWidgetDAO(SoftDelete)
	seedWidgets(t, d, 6)
	ctx := context.Background()

	res, err := d.PaginatedQuery(ctx, nil, nil, 1, 3, []OrderBy{{Field: "size", Desc: true}})
	require.NoError(t, err)
	require.Len(t, res.Result, 3)
	assert.Equal(t, 5, res.Result[0].Size)
	assert.Equal(t, 4, res.Result[1].Size)
	assert.Equal(t, 3, res.Result[2].Size)

	asc, err := d.PaginatedQuery(ctx, nil, nil, 1, 3, []OrderBy{{Field: "name"}})
	require.NoError(t, err)
	require.Len(t, asc.Result, 3)
	assert.Equal(t, "w-00", asc.Result[0].Name)
}
