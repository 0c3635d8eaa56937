package repository

import (
	"time"

	"github.com/okian/stampview/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithFingerprint sets the content fingerprint.
func WithFingerprint(fp uint64) Option {
	return func(s *MemoryStore) {
		s.fingerprint = fp
	}
}

// WithLoadedAt overrides the load time.
func WithLoadedAt(at time.Time) Option {
	return func(s *MemoryStore) {
		if !at.IsZero() {
			s.loadedAt = at
		}
	}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	log         logger.Logger
	parquetRows int
}

// WithLoadLogger sets the logger used while loading.
func WithLoadLogger(l logger.Logger) LoadOption {
	return func(o *loadOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithParquetBatchSize sets how many rows are decoded per parquet read.
func WithParquetBatchSize(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.parquetRows = n
		}
	}
}
