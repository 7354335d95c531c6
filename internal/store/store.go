// Package store defines the opaque document store contract the DAOs
// delegate to. Records travel as JSON-shaped documents keyed by
// collection name and id.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an id does not resolve in a collection.
var ErrNotFound = errors.New("store: record not found")

// Document is one stored record in its wire shape.
type Document = map[string]any

// Op enumerates the filter conditions the store understands. The set
// mirrors what the DAO layer actually issues: equality, inequality and
// membership tests.
type Op string

const (
	OpEq    Op = "eq"
	OpNe    Op = "ne"
	OpIn    Op = "in"
	OpNotIn Op = "notIn"
)

// Cond is a single condition on a field. A bare (non-Cond) filter value
// means equality.
type Cond struct {
	Op    Op
	Value any
}

// Filter maps field names to either a plain value (equality) or a Cond.
type Filter map[string]any

// Store is the adapter contract over the underlying document store.
type Store interface {
	Find(ctx context.Context, collection, id string) (Document, error)
	FindAll(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Create(ctx context.Context, collection string, doc Document) (Document, error)
	Update(ctx context.Context, collection, id string, patch Document) (Document, error)
	Destroy(ctx context.Context, collection, id string) error
}

// Match reports whether doc satisfies every condition in filter.
func Match(doc Document, filter Filter) bool {
	for field, raw := range filter {
		cond, ok := raw.(Cond)
		if !ok {
			cond = Cond{Op: OpEq, Value: raw}
		}
		val, present := doc[field]
		switch cond.Op {
		case OpEq:
			if !present || !looseEqual(val, cond.Value) {
				return false
			}
		case OpNe:
			if present && looseEqual(val, cond.Value) {
				return false
			}
		case OpIn:
			if !present || !contains(cond.Value, val) {
				return false
			}
		case OpNotIn:
			if present && contains(cond.Value, val) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// looseEqual compares scalars across the numeric types JSON decoding
// produces.
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(set any, val any) bool {
	switch s := set.(type) {
	case []any:
		for _, item := range s {
			if looseEqual(item, val) {
				return true
			}
		}
	case []string:
		for _, item := range s {
			if looseEqual(item, val) {
				return true
			}
		}
	}
	return false
}

// Clone deep-copies a document so callers cannot mutate stored state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return Clone(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = cloneValue(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}
