// Package document implements the store contract on top of a single
// Postgres table of JSONB documents, accessed through gorm.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backoffice-service/internal/store"
	"backoffice-service/prometheus"
)

// row is the persisted shape: one document per row, keyed by collection
// and document id. The (collection, doc_id) unique index is the only
// uniqueness guarantee this layer provides; business-level uniqueness
// (email, document id) is checked read-then-write above it.
type row struct {
	ID         uint   `gorm:"primaryKey"`
	Collection string `gorm:"type:varchar(100);index;uniqueIndex:idx_collection_doc"`
	DocID      string `gorm:"type:varchar(100);uniqueIndex:idx_collection_doc"`
	Data       []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (row) TableName() string { return "documents" }

// Store is the gorm-backed document store.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the documents table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&row{})
}

func (s *Store) Find(ctx context.Context, collection, id string) (store.Document, error) {
	defer prometheus.TrackStoreOperation("find")(time.Now())

	var r row
	result := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&r)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return decode(r.Data)
}

func (s *Store) FindAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	defer prometheus.TrackStoreOperation("find_all")(time.Now())

	var rows []row
	result := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	var out []store.Document
	for _, r := range rows {
		doc, err := decode(r.Data)
		if err != nil {
			return nil, err
		}
		if store.Match(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	defer prometheus.TrackStoreOperation("create")(time.Now())

	id, _ := doc["id"].(string)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	r := row{Collection: collection, DocID: id, Data: data}
	if result := s.db.WithContext(ctx).Create(&r); result.Error != nil {
		return nil, result.Error
	}
	return decode(r.Data)
}

func (s *Store) Update(ctx context.Context, collection, id string, patch store.Document) (store.Document, error) {
	defer prometheus.TrackStoreOperation("update")(time.Now())

	var updated store.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r row
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND doc_id = ?", collection, id).
			First(&r)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return result.Error
		}

		doc, err := decode(r.Data)
		if err != nil {
			return err
		}
		for k, v := range patch {
			doc[k] = v
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if result := tx.Model(&row{}).Where("id = ?", r.ID).Update("data", data); result.Error != nil {
			return result.Error
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Destroy(ctx context.Context, collection, id string) error {
	defer prometheus.TrackStoreOperation("destroy")(time.Now())

	result := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&row{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func decode(data []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
