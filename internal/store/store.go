// Package store holds the persistence boundary: the insert entry points
// the pipeline hands its converted payloads to, and the entity
// similarity lookup used during normalization.
package store

import (
	"context"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
)

// EntityMatch is a hit from the similarity lookup: an entity already
// persisted under the given identifier.
type EntityMatch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Store defines the persistence interface for the pipeline. Insert
// calls accept one structured payload keyed by temporary identifiers
// and return the persisted-record reference.
type Store interface {
	InsertArticle(ctx context.Context, payload *model.UnitPayload) (string, error)
	InsertFragment(ctx context.Context, payload *model.UnitPayload) (string, error)

	// FindSimilarEntity returns the persisted entity matching the
	// candidate's normalized name and type, or nil when there is none.
	FindSimilarEntity(ctx context.Context, name string, entityType model.EntityType) (*EntityMatch, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
