package cache

import "github.com/google/uuid"

// Cache persists the results of deployment runs. Entries are grouped by
// the run that produced them.
type Cache[T any] interface {
	Insert(runID uuid.UUID, data ...T) error
	Delete(runID uuid.UUID) error
	Get() ([]T, error)
}
