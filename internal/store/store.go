// Package store loads heatmap datasets from read-only sources: the built-in
// sample, YAML, JSON, Parquet and SQLite files.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"kmarket/internal/market"
)

// ErrUnknownSource is returned by Open for an unsupported kind or file
// extension.
var ErrUnknownSource = errors.New("unknown dataset source")

// Source kinds accepted by Open.
const (
	KindSample  = "sample"
	KindYAML    = "yaml"
	KindJSON    = "json"
	KindParquet = "parquet"
	KindSQLite  = "sqlite"
)

// Source produces a MarketData snapshot. Sources never write back.
type Source interface {
	// Load reads the dataset. The result is sanitized.
	Load(ctx context.Context) (market.MarketData, error)

	// Name identifies the source in logs.
	Name() string
}

// Compile-time interface checks.
var (
	_ Source = SampleSource{}
	_ Source = (*YAMLSource)(nil)
	_ Source = (*JSONSource)(nil)
	_ Source = (*ParquetSource)(nil)
	_ Source = (*SQLiteSource)(nil)
)

// SampleSource serves the built-in sample dataset.
type SampleSource struct{}

// Load returns market.Sample.
func (SampleSource) Load(ctx context.Context) (market.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketData{}, err
	}
	return market.Sanitize(market.Sample()), nil
}

// Name returns "sample".
func (SampleSource) Name() string { return KindSample }

// Open returns the source for kind reading path. An empty kind is inferred
// from the file extension; an empty kind and path select the sample.
func Open(kind, path string) (Source, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = KindFromPath(path)
	}
	if kind != KindSample && path == "" {
		return nil, fmt.Errorf("%s source needs a path", kind)
	}

	switch kind {
	case KindSample:
		return SampleSource{}, nil
	case KindYAML:
		return &YAMLSource{Path: path}, nil
	case KindJSON:
		return &JSONSource{Path: path}, nil
	case KindParquet:
		return &ParquetSource{Path: path}, nil
	case KindSQLite:
		return &SQLiteSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}

// KindFromPath infers a source kind from a file extension. An empty path
// maps to the sample; an unrecognized extension yields the extension itself.
func KindFromPath(path string) string {
	if path == "" {
		return KindSample
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return KindYAML
	case ".json":
		return KindJSON
	case ".parquet":
		return KindParquet
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

// marketName falls back to the file's base name when the dataset carries
// none.
func marketName(name, path string) string {
	if name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
