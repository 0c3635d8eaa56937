package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for dataset errors.
var (
	ErrDataLoad          = errors.New("data load failed")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrUnknownDataset    = errors.New("unknown dataset")
	ErrTimestamp         = errors.New("unparsable timestamp")
	ErrNestedColumn      = errors.New("nested columns are not supported")
)

// DataLoadError reports a dataset file that could not be read or parsed.
// It matches ErrDataLoad.
type DataLoadError struct {
	Dataset string
	Path    string
	Err     error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s dataset from %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDataLoad.
func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
