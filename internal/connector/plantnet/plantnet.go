// Package plantnet implements the provider adapter for the Pl@ntNet
// Darwin Core occurrence API.
package plantnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"

	connhttp "github.com/basileandre056/api2gn/internal/connector/http"
	"github.com/basileandre056/api2gn/internal/mapping"
	"github.com/basileandre056/api2gn/internal/parser"
	"github.com/basileandre056/api2gn/internal/pipeline"
)

const (
	// DefaultBaseURL is the public Pl@ntNet API root.
	DefaultBaseURL = "https://my-api.plantnet.org/v3"

	searchPath = "/dwc/occurrence/search"

	// maxOffset is a safety stop: the API paginates by offset and a
	// runaway loop past this bound harvests nothing useful.
	maxOffset = 1_000_000
)

// Config configures a Pl@ntNet adapter instance.
type Config struct {
	// BaseURL overrides the API root (tests, mirrors).
	BaseURL string

	// APIKey is the mandatory "api-key" credential.
	APIKey string

	// PageSize is the request page size (default 1000).
	PageSize int

	// SpeciesFilter restricts the harvest to the given scientific names.
	SpeciesFilter []string

	// MinEventDate and MaxEventDate bound the harvested observations.
	MinEventDate string
	MaxEventDate string

	// GeometryJSON is an optional GeoJSON geometry the occurrences must
	// intersect.
	GeometryJSON string

	// MappingJSON holds extra static field mappings as a JSON object.
	MappingJSON string

	// DatasetName overrides the dataset the imports attach to.
	DatasetName string

	// Transport injects a stub transport in tests.
	Transport nethttp.RoundTripper
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.DatasetName == "" {
		c.DatasetName = "Pl@ntNet – La Réunion"
	}
}

// Parser is the Pl@ntNet provider adapter.
type Parser struct {
	client *connhttp.Client
	cfg    Config
	spec   *mapping.Spec

	// Effective run filters; start from the configuration and may be
	// narrowed by per-run overrides without touching cfg.
	species  []string
	minDate  string
	maxDate  string
	geometry map[string]any
}

// New creates a Pl@ntNet adapter. The credential is checked later, by
// CheckConfig, so that a misconfigured provider can still be listed.
func New(cfg Config) (*Parser, error) {
	cfg.withDefaults()

	var geom map[string]any
	if cfg.GeometryJSON != "" {
		if err := json.Unmarshal([]byte(cfg.GeometryJSON), &geom); err != nil {
			return nil, fmt.Errorf("parse geometry JSON: %w", err)
		}
	}

	spec := buildSpec()
	if err := spec.MergeJSON(cfg.MappingJSON); err != nil {
		return nil, err
	}

	ccfg := connhttp.DefaultClientConfig()
	ccfg.BaseURL = cfg.BaseURL
	ccfg.Auth = connhttp.APIKeyQuery{Key: cfg.APIKey}
	ccfg.Transport = cfg.Transport
	// The pipeline owns the retry policy.
	ccfg.Tries = 1

	return &Parser{
		client:   connhttp.NewClient(ccfg),
		cfg:      cfg,
		spec:     spec,
		species:  cfg.SpeciesFilter,
		minDate:  cfg.MinEventDate,
		maxDate:  cfg.MaxEventDate,
		geometry: geom,
	}, nil
}

func (p *Parser) Name() string { return "plantnet" }

// CheckConfig rejects a run without the mandatory API key.
func (p *Parser) CheckConfig() error {
	if p.cfg.APIKey == "" {
		return &pipeline.ConfigurationError{Provider: "plantnet", Reason: "missing API key (plantnet_api_key)"}
	}
	return nil
}

func (p *Parser) Mapping() *mapping.Spec { return p.spec }

func (p *Parser) Metadata() parser.ProviderMetadata {
	return parser.ProviderMetadata{
		SourceName:    "Pl@ntNet",
		SourceDesc:    "Import API PlantNet",
		FrameworkName: "Pl@ntNet",
		FrameworkDesc: "Cadre d'acquisition automatisé PlantNet",
		DatasetName:   p.cfg.DatasetName,
		DatasetDesc:   "Observations Pl@ntNet",
	}
}

// ApplyOverrides narrows the run filters; the static configuration keeps
// its values for the next run.
func (p *Parser) ApplyOverrides(ov parser.RunOverrides) {
	if len(ov.SpeciesFilter) > 0 {
		p.species = ov.SpeciesFilter
	}
	if ov.MinEventDate != "" {
		p.minDate = ov.MinEventDate
	}
	if ov.MaxEventDate != "" {
		p.maxDate = ov.MaxEventDate
	}
	if ov.GeometryJSON != "" {
		var geom map[string]any
		if err := json.Unmarshal([]byte(ov.GeometryJSON), &geom); err == nil {
			p.geometry = geom
		}
	}
}

type searchResponse struct {
	Results []map[string]any `json:"results"`
	Data    []map[string]any `json:"data"`
}

// FetchPage POSTs one search request. The API does not declare a total;
// exhaustion is detected by a short page, with a hard offset stop as a
// safety bound.
func (p *Parser) FetchPage(ctx context.Context, cursor *parser.Cursor) (*parser.Page, error) {
	offset := 0
	if cursor != nil {
		offset = cursor.Offset
	}

	resp, err := p.client.Post(ctx, searchPath, nil, p.buildPayload(offset))
	if err != nil {
		return nil, classify(err)
	}

	var body searchResponse
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("decode occurrence search response: %w", err)
	}

	results := body.Results
	if len(results) == 0 {
		results = body.Data
	}

	records := make([]parser.RawRecord, 0, len(results))
	for _, raw := range results {
		records = append(records, decorate(raw))
	}

	page := &parser.Page{Records: records, Total: -1}
	next := offset + p.cfg.PageSize
	if len(results) == p.cfg.PageSize && next <= maxOffset {
		page.Next = &parser.Cursor{Offset: next}
	}
	return page, nil
}

func (p *Parser) buildPayload(offset int) map[string]any {
	payload := map[string]any{
		"limit":  p.cfg.PageSize,
		"offset": offset,
	}
	if len(p.species) > 0 {
		payload["scientificName"] = p.species
	}
	if p.minDate != "" {
		payload["minEventDate"] = p.minDate
	}
	if p.maxDate != "" {
		payload["maxEventDate"] = p.maxDate
	}
	if p.geometry != nil {
		payload["geometry"] = p.geometry
	}
	return payload
}

// classify wraps upstream failures that are worth retrying.
func classify(err error) error {
	var herr *connhttp.HTTPError
	if errors.As(err, &herr) {
		if herr.StatusCode == 429 || herr.StatusCode >= 500 {
			return &pipeline.TransientProviderError{Err: err}
		}
	}
	return err
}
