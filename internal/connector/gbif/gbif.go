// Package gbif implements the provider adapter for the GBIF occurrence
// search API (https://api.gbif.org/v1/occurrence/search).
package gbif

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"
	"time"

	connhttp "github.com/basileandre056/api2gn/internal/connector/http"
	"github.com/basileandre056/api2gn/internal/mapping"
	"github.com/basileandre056/api2gn/internal/parser"
	"github.com/basileandre056/api2gn/internal/pipeline"
)

const (
	// DefaultBaseURL is the public GBIF API root.
	DefaultBaseURL = "https://api.gbif.org/v1"

	// maxPageSize is the hard cap the occurrence search endpoint puts on
	// the limit parameter.
	maxPageSize = 300

	searchPath = "/occurrence/search"
)

// Fixed occurrence-search filters: only present, georeferenced
// observation records without geospatial issues are harvested.
var basisOfRecord = []string{
	"OBSERVATION",
	"HUMAN_OBSERVATION",
	"MACHINE_OBSERVATION",
	"OCCURRENCE",
}

// Config configures a GBIF adapter instance.
type Config struct {
	// BaseURL overrides the API root (tests, mirrors).
	BaseURL string

	// PageSize is the requested page size; values above the API cap of
	// 300 are clamped. Default 300.
	PageSize int

	// Filters are extra occurrence-search query parameters (country,
	// datasetKey, taxonKey...).
	Filters map[string]string

	// LastImport, when set, restricts the harvest to records interpreted
	// since that time (incremental imports).
	LastImport time.Time

	// DatasetName overrides the dataset the imports attach to.
	DatasetName string

	// Transport injects a stub transport in tests.
	Transport nethttp.RoundTripper
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PageSize <= 0 || c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
	if c.DatasetName == "" {
		c.DatasetName = "GBIF occurrences"
	}
}

// Parser is the GBIF provider adapter. It owns request construction and
// the offset/limit pagination protocol; interpretation of the records is
// left to the mapping.
type Parser struct {
	client    *connhttp.Client
	cfg       Config
	spec      *mapping.Spec
	overrides parser.RunOverrides
}

// New creates a GBIF adapter.
func New(cfg Config) (*Parser, error) {
	cfg.withDefaults()

	ccfg := connhttp.DefaultClientConfig()
	ccfg.BaseURL = cfg.BaseURL
	ccfg.Transport = cfg.Transport
	// The pipeline owns the retry policy; a fetch failure must surface
	// immediately so it can be classified.
	ccfg.Tries = 1

	return &Parser{
		client: connhttp.NewClient(ccfg),
		cfg:    cfg,
		spec:   buildSpec(),
	}, nil
}

func (p *Parser) Name() string { return "gbif" }

// CheckConfig verifies the adapter can run. The GBIF search API needs no
// credential.
func (p *Parser) CheckConfig() error {
	if p.cfg.BaseURL == "" {
		return &pipeline.ConfigurationError{Provider: "gbif", Reason: "empty base URL"}
	}
	return nil
}

func (p *Parser) Mapping() *mapping.Spec { return p.spec }

func (p *Parser) Metadata() parser.ProviderMetadata {
	return parser.ProviderMetadata{
		SourceName:    "GBIF",
		SourceDesc:    "Import API GBIF",
		FrameworkName: "GBIF",
		FrameworkDesc: "Cadre d'acquisition automatisé GBIF",
		DatasetName:   p.cfg.DatasetName,
		DatasetDesc:   "Occurrences importées depuis l'API GBIF",
	}
}

// ApplyOverrides narrows the harvest for a single run.
func (p *Parser) ApplyOverrides(ov parser.RunOverrides) {
	p.overrides = ov
}

type searchResponse struct {
	Count        int              `json:"count"`
	EndOfRecords bool             `json:"endOfRecords"`
	Results      []map[string]any `json:"results"`
}

// FetchPage fetches one page of occurrence-search results. The cursor
// carries the record offset; exhaustion follows the endOfRecords flag.
func (p *Parser) FetchPage(ctx context.Context, cursor *parser.Cursor) (*parser.Page, error) {
	offset := 0
	if cursor != nil {
		offset = cursor.Offset
	}

	resp, err := p.client.Get(ctx, searchPath, p.buildQuery(offset))
	if err != nil {
		return nil, classify(err)
	}

	var body searchResponse
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("decode occurrence search response: %w", err)
	}

	records := make([]parser.RawRecord, 0, len(body.Results))
	for _, raw := range body.Results {
		records = append(records, decorate(raw))
	}

	page := &parser.Page{Records: records, Total: body.Count}
	if !body.EndOfRecords {
		page.Next = &parser.Cursor{Offset: offset + p.cfg.PageSize}
	}
	return page, nil
}

func (p *Parser) buildQuery(offset int) url.Values {
	query := url.Values{}
	query.Set("occurrenceStatus", "PRESENT")
	for _, b := range basisOfRecord {
		query.Add("basisOfRecord", b)
	}
	query.Set("hasCoordinate", "true")
	query.Set("hasGeospatialIssue", "false")
	query.Set("limit", strconv.Itoa(p.cfg.PageSize))
	query.Set("offset", strconv.Itoa(offset))

	for key, value := range p.cfg.Filters {
		query.Set(key, value)
	}

	if !p.cfg.LastImport.IsZero() {
		window := p.cfg.LastImport.Format("2006-01-02") + "," + time.Now().Format("2006-01-02")
		query.Set("lastInterpreted", window)
	}

	for _, name := range p.overrides.SpeciesFilter {
		query.Add("scientificName", name)
	}
	if p.overrides.MinEventDate != "" || p.overrides.MaxEventDate != "" {
		query.Set("eventDate", eventDateRange(p.overrides.MinEventDate, p.overrides.MaxEventDate))
	}
	return query
}

// eventDateRange renders the GBIF eventDate filter: a single date or a
// comma-separated closed range, with "*" for an open bound.
func eventDateRange(min, max string) string {
	switch {
	case min != "" && max != "":
		return min + "," + max
	case min != "":
		return min + ",*"
	default:
		return "*," + max
	}
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
