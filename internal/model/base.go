package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"backoffice-service/internal/store"
)

// Base carries the fields shared by every persisted entity. The id and
// creation timestamp are immutable after creation; active=false means
// soft-deleted and is only ever set through a DAO delete.
type Base struct {
	ID        string     `json:"id"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Record is implemented by every entity the generic DAO can persist.
type Record interface {
	GetBase() *Base
}

func (b *Base) GetBase() *Base { return b }

// Normalize fills the base defaults for a new record: generated id,
// active flag and creation timestamp. Existing values are kept so
// fixtures and imports can carry their own ids.
func (b *Base) Normalize(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now.UTC()
	}
	b.Active = true
}

// ToDocument converts a record to its store document shape.
func ToDocument(r Record) (store.Document, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument decodes a store document into dst.
func FromDocument(doc store.Document, dst Record) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
