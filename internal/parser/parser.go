// Package parser defines the provider-adapter contract and the registry
// the import pipeline resolves providers from.
package parser

import (
	"context"

	"github.com/basileandre056/api2gn/internal/mapping"
)

// RawRecord is a provider record as returned by its API, uninterpreted.
type RawRecord = map[string]any

// Cursor carries provider-specific pagination state between page fetches.
// Adapters own its contents; the engine only threads it through.
type Cursor struct {
	Offset int
	Token  string
}

// Page is one fetched page of raw provider records.
type Page struct {
	Records []RawRecord

	// Total is the provider-declared total match count, or -1 when the
	// provider does not report one.
	Total int

	// Next is the cursor for the following page; nil signals exhaustion.
	Next *Cursor
}

// RunOverrides are per-invocation parameter overrides. They apply to a
// single run and never mutate the adapter's static configuration.
type RunOverrides struct {
	SpeciesFilter []string
	MinEventDate  string
	MaxEventDate  string
	GeometryJSON  string
}

// Parser is the contract every provider adapter implements. Adapters own
// request construction, credential injection, filter parameters and
// pagination protocol; they are pure producers of raw pages and must not
// hold engine or mapper state.
type Parser interface {
	// Name is the provider identifier used for registry lookup and for
	// the bootstrapped source entity.
	Name() string

	// CheckConfig reports whether the adapter can run at all, e.g. that
	// required credentials are present. Called once before any fetch.
	CheckConfig() error

	// FetchPage fetches one page. A nil cursor requests the first page.
	FetchPage(ctx context.Context, cursor *Cursor) (*Page, error)

	// Mapping returns the declarative field mapping for this provider.
	Mapping() *mapping.Spec

	// Metadata returns the natural keys of the supporting records this
	// provider's imports attach to.
	Metadata() ProviderMetadata

	// ApplyOverrides narrows the adapter's filters for a single run.
	ApplyOverrides(ov RunOverrides)
}

// ProviderMetadata names the source, acquisition framework and dataset a
// provider's occurrences belong to.
type ProviderMetadata struct {
	SourceName    string
	SourceDesc    string
	FrameworkName string
	FrameworkDesc string
	DatasetName   string
	DatasetDesc   string
}
