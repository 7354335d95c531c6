// Package dao implements the create/read/update/delete/paginate contract
// over typed records, delegating storage to the store adapter and shape
// checking to the schema validator.
package dao

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"backoffice-service/internal/apierr"
	"backoffice-service/internal/model"
	"backoffice-service/internal/schema"
	"backoffice-service/internal/store"
)

// DeletePolicy selects what Delete does for one record type. The policy
// is a property of the DAO instance, not a per-call choice.
type DeletePolicy int

const (
	// SoftDelete marks the record inactive instead of removing it.
	SoftDelete DeletePolicy = iota
	// HardDelete destroys the record in the store.
	HardDelete
)

// OrderBy is one ordering term for paginated queries.
type OrderBy struct {
	Field string
	Desc  bool
}

// ResultSearch is the page envelope for paginated queries. Total counts
// every record matching the search, ignoring pagination bounds.
type ResultSearch[T any] struct {
	Page   int `json:"page"`
	Total  int `json:"total"`
	Result []T `json:"result"`
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Config declares one record type to the generic DAO.
type Config[T model.Record] struct {
	Collection   string
	Schema       *schema.Schema
	DeletePolicy DeletePolicy
	// New allocates an empty record for decoding.
	New func() T
	// Parse is the type-specific normalization hook run before
	// validation on create. A nil Parse just fills the base defaults.
	Parse func(candidate T, now time.Time) (T, error)
}

// DAO is the generic persistence contract over one record type.
type DAO[T model.Record] struct {
	store store.Store
	cfg   Config[T]
	log   *zap.Logger
	now   func() time.Time
}

// New builds a DAO from its configuration and store handle.
func New[T model.Record](s store.Store, cfg Config[T], log *zap.Logger) *DAO[T] {
	return &DAO[T]{store: s, cfg: cfg, log: log, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (d *DAO[T]) WithClock(now func() time.Time) *DAO[T] {
	d.now = now
	return d
}

// Collection returns the collection name this DAO persists to.
func (d *DAO[T]) Collection() string { return d.cfg.Collection }

// Schema returns the declared record shape.
func (d *DAO[T]) Schema() *schema.Schema { return d.cfg.Schema }

// Find retrieves one record by id.
func (d *DAO[T]) Find(ctx context.Context, id string, _ *model.User) (T, error) {
	var zero T
	doc, err := d.store.Find(ctx, d.cfg.Collection, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, apierr.NotFound("record not found")
		}
		return zero, apierr.Infrastructure("store find failed", err)
	}
	return d.decode(doc)
}

// FindAll returns the records matching filter. DAOs with the soft-delete
// policy only ever see active records through this path.
func (d *DAO[T]) FindAll(ctx context.Context, filter store.Filter, _ *model.User) ([]T, error) {
	docs, err := d.findDocs(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := d.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create normalizes the candidate, validates it against the schema and
// inserts it. Validation failures are recoverable data-entry errors.
func (d *DAO[T]) Create(ctx context.Context, candidate T, _ *model.User) (T, error) {
	var zero T

	parsed, err := d.parse(candidate)
	if err != nil {
		return zero, err
	}

	doc, err := model.ToDocument(parsed)
	if err != nil {
		return zero, apierr.Infrastructure("record encoding failed", err)
	}
	if violations := d.cfg.Schema.Validate(doc); len(violations) > 0 {
		return zero, apierr.Validation("data entry error", violations...)
	}

	created, err := d.store.Create(ctx, d.cfg.Collection, doc)
	if err != nil {
		return zero, apierr.Infrastructure("store create failed", err)
	}
	d.log.Debug("record created",
		zap.String("collection", d.cfg.Collection),
		zap.String("id", parsed.GetBase().ID))
	return d.decode(created)
}

// Update applies a partial patch to the record. The merged result is
// re-validated before the store is touched; id, active and createdAt
// can never change through this path.
func (d *DAO[T]) Update(ctx context.Context, id string, _ *model.User, patch store.Document) (T, error) {
	var zero T

	existing, err := d.store.Find(ctx, d.cfg.Collection, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, apierr.NotFound("record not found")
		}
		return zero, apierr.Infrastructure("store find failed", err)
	}

	clean := store.Clone(patch)
	delete(clean, "id")
	delete(clean, "active")
	delete(clean, "createdAt")
	clean["updatedAt"] = d.now().UTC().Format(time.RFC3339Nano)

	merged := store.Clone(existing)
	for k, v := range clean {
		merged[k] = v
	}
	if violations := d.cfg.Schema.Validate(merged); len(violations) > 0 {
		return zero, apierr.Validation("data entry error", violations...)
	}

	updated, err := d.store.Update(ctx, d.cfg.Collection, id, clean)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, apierr.NotFound("record not found")
		}
		return zero, apierr.Infrastructure("store update failed", err)
	}
	d.log.Debug("record updated",
		zap.String("collection", d.cfg.Collection),
		zap.String("id", id))
	return d.decode(updated)
}

// Delete removes the record under the DAO's declared policy.
func (d *DAO[T]) Delete(ctx context.Context, id string, _ *model.User) (bool, error) {
	switch d.cfg.DeletePolicy {
	case HardDelete:
		if err := d.store.Destroy(ctx, d.cfg.Collection, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, apierr.NotFound("record not found")
			}
			return false, apierr.Infrastructure("store destroy failed", err)
		}
	default:
		patch := store.Document{
			"active":    false,
			"updatedAt": d.now().UTC().Format(time.RFC3339Nano),
		}
		if _, err := d.store.Update(ctx, d.cfg.Collection, id, patch); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, apierr.NotFound("record not found")
			}
			return false, apierr.Infrastructure("store update failed", err)
		}
	}
	d.log.Debug("record deleted",
		zap.String("collection", d.cfg.Collection),
		zap.String("id", id),
		zap.Bool("soft", d.cfg.DeletePolicy == SoftDelete))
	return true, nil
}

// PaginatedQuery returns one page of the records matching search. Page
// and limit default when absent or non-positive; absent order falls
// back to createdAt ascending.
func (d *DAO[T]) PaginatedQuery(ctx context.Context, search store.Filter, _ *model.User, page, limit int, order []OrderBy) (*ResultSearch[T], error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if len(order) == 0 {
		order = []OrderBy{{Field: "createdAt"}}
	}

	docs, err := d.findDocs(ctx, search)
	if err != nil {
		return nil, err
	}
	sortDocs(docs, order)

	total := len(docs)
	offset := limit * (page - 1)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	result := make([]T, 0, end-offset)
	for _, doc := range docs[offset:end] {
		rec, err := d.decode(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return &ResultSearch[T]{Page: page, Total: total, Result: result}, nil
}

func (d *DAO[T]) findDocs(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	effective := store.Filter{}
	for k, v := range filter {
		effective[k] = v
	}
	if d.cfg.DeletePolicy == SoftDelete {
		effective["active"] = true
	}

	docs, err := d.store.FindAll(ctx, d.cfg.Collection, effective)
	if err != nil {
		return nil, apierr.Infrastructure("store query failed", err)
	}
	return docs, nil
}

func (d *DAO[T]) parse(candidate T) (T, error) {
	if d.cfg.Parse != nil {
		return d.cfg.Parse(candidate, d.now())
	}
	candidate.GetBase().Normalize(d.now())
	return candidate, nil
}

func (d *DAO[T]) decode(doc store.Document) (T, error) {
	rec := d.cfg.New()
	if err := model.FromDocument(doc, rec); err != nil {
		var zero T
		return zero, apierr.Infrastructure("record decoding failed", err)
	}
	return rec, nil
}

func sortDocs(docs []store.Document, order []OrderBy) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, term := range order {
			c := compareValues(docs[i][term.Field], docs[j][term.Field])
			if c == 0 {
				continue
			}
			if term.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders the scalar types documents carry. Mixed or
// unknown types compare as equal so ordering stays stable.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if a == nil && b != nil {
		return -1
	}
	if a != nil && b == nil {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
