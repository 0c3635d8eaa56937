package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Dataset names used across logging, metrics and the store.
const (
	DatasetAttributes   = "attributes"
	DatasetMeasurements = "measurements"
	DatasetReference    = "reference"
)

// DataSources names the files of the three datasets. It is read from a JSON
// manifest of the form {"d1": "...", "d2": "...", "d3": "..."}.
type DataSources struct {
	Attributes   string `koanf:"d1"`
	Measurements string `koanf:"d2"`
	Reference    string `koanf:"d3"`
}

// Paths returns dataset name to file path, in load order.
func (d DataSources) Paths() [][2]string {
	return [][2]string{
		{DatasetAttributes, d.Attributes},
		{DatasetMeasurements, d.Measurements},
		{DatasetReference, d.Reference},
	}
}

// LoadDataSources reads the manifest at path. Relative dataset paths are
// resolved against the manifest's directory. A missing or malformed manifest,
// or one lacking any of d1, d2 and d3, yields a *ConfigurationError.
func LoadDataSources(_ context.Context, path string) (DataSources, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return DataSources{}, &ConfigurationError{Path: path, Err: fmt.Errorf("%w: %w", ErrLoadConfig, err)}
	}

	var ds DataSources
	if err := k.UnmarshalWithConf("", &ds, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return DataSources{}, &ConfigurationError{Path: path, Err: fmt.Errorf("%w: %w", ErrLoadConfig, err)}
	}

	dir := filepath.Dir(path)
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"d1", &ds.Attributes},
		{"d2", &ds.Measurements},
		{"d3", &ds.Reference},
	} {
		if *f.dst == "" {
			return DataSources{}, &ConfigurationError{Path: path, Err: fmt.Errorf("%w: %s", ErrMissingDataPath, f.key)}
		}
		if !filepath.IsAbs(*f.dst) {
			*f.dst = filepath.Join(dir, *f.dst)
		}
	}
	return ds, nil
}
