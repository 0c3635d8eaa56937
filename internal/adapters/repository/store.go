// Package repository holds the three datasets the dashboard serves and the
// loaders that populate them from disk.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/domain/filter"
	"github.com/okian/stampview/internal/domain/table"
)

// Store provides read-only access to the loaded datasets. Implementations
// are immutable and safe for concurrent use without locking.
type Store interface {
	Attributes() *table.Table
	Measurements() *table.Table
	Reference() *table.Table

	// Dataset returns a table by name (see config.Dataset*).
	// Returns ErrUnknownDataset for other names.
	Dataset(name string) (*table.Table, error)

	// MachineRows returns the ascending Measurements row positions whose
	// machine id is id.
	MachineRows(id string) []int

	// Fingerprint identifies the loaded content. It changes whenever any
	// dataset file changes.
	Fingerprint() uint64

	// LoadedAt is when the store was populated.
	LoadedAt() time.Time

	// Count returns the number of rows per dataset.
	Count(ctx context.Context) map[string]int
}

var _ filter.MachineIndex = (*MemoryStore)(nil)

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	attributes   *table.Table
	measurements *table.Table
	reference    *table.Table
	machineIndex table.Index
	fingerprint  uint64
	loadedAt     time.Time
}

// NewMemoryStore builds a store from already decoded tables. Nil tables are
// replaced by empty ones.
func NewMemoryStore(attributes, measurements, reference *table.Table, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		attributes:   orEmpty(attributes, config.DatasetAttributes),
		measurements: orEmpty(measurements, config.DatasetMeasurements),
		reference:    orEmpty(reference, config.DatasetReference),
		loadedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if col, _, ok := s.measurements.Lookup(filter.JoinColumn); ok {
		s.machineIndex = s.measurements.BuildIndex(col)
	}
	return s
}

func orEmpty(t *table.Table, name string) *table.Table {
	if t == nil {
		return table.Empty(name, nil)
	}
	return t
}

func (s *MemoryStore) Attributes() *table.Table   { return s.attributes }
func (s *MemoryStore) Measurements() *table.Table { return s.measurements }
func (s *MemoryStore) Reference() *table.Table    { return s.reference }
func (s *MemoryStore) Fingerprint() uint64        { return s.fingerprint }
func (s *MemoryStore) LoadedAt() time.Time        { return s.loadedAt }

func (s *MemoryStore) Dataset(name string) (*table.Table, error) {
	switch name {
	case config.DatasetAttributes:
		return s.attributes, nil
	case config.DatasetMeasurements:
		return s.measurements, nil
	case config.DatasetReference:
		return s.reference, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
}

func (s *MemoryStore) MachineRows(id string) []int {
	return s.machineIndex[id]
}

func (s *MemoryStore) Count(_ context.Context) map[string]int {
	return map[string]int{
		config.DatasetAttributes:   s.attributes.Len(),
		config.DatasetMeasurements: s.measurements.Len(),
		config.DatasetReference:    s.reference.Len(),
	}
}
