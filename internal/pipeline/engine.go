// Package pipeline drives import runs: it pulls raw pages from a
// provider adapter, maps them to canonical rows, resolves taxa, and
// persists the result while enforcing the run's volume and page bounds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/basileandre056/api2gn/internal/daterange"
	"github.com/basileandre056/api2gn/internal/geometry"
	"github.com/basileandre056/api2gn/internal/mapping"
	"github.com/basileandre056/api2gn/internal/parser"
	"github.com/basileandre056/api2gn/internal/synthese"
	"github.com/basileandre056/api2gn/internal/taxon"
	"github.com/basileandre056/api2gn/pkg/logging"
	"github.com/basileandre056/api2gn/pkg/metrics"
)

// Rejection reasons, used for counters and metrics labels.
const (
	reasonNoExternalID = "no_external_id"
	reasonNoTaxon      = "no_cd_nom"
	reasonBadDate      = "bad_date"
)

// Options bound one import run.
type Options struct {
	// DryRun maps and validates records without writing anything.
	DryRun bool

	// Limit caps the number of records processed this run (default 1000).
	Limit int

	// MaxRecords is the declared-volume refusal bound (default 100000):
	// a provider announcing more matches than this aborts before any
	// import.
	MaxRecords int

	// MaxPages is a safety bound on the page loop (default 5000).
	MaxPages int

	// Tries and RetrySleep govern transient fetch failures: a failed
	// page fetch is reattempted Tries times in total with a fixed sleep
	// in between (defaults 5 and 5s).
	Tries      int
	RetrySleep time.Duration

	// Permissive keeps records whose taxon cannot be resolved, with a
	// nil cd_nom. The default (strict) rejects them.
	Permissive bool
}

func (o *Options) applyDefaults() {
	if o.Limit <= 0 {
		o.Limit = 1000
	}
	if o.MaxRecords <= 0 {
		o.MaxRecords = 100000
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 5000
	}
	if o.Tries <= 0 {
		o.Tries = 5
	}
	if o.RetrySleep <= 0 {
		o.RetrySleep = 5 * time.Second
	}
}

// Runner executes import runs against one store. It may be reused
// across runs; per-run state (dedup set, statistics) never leaks
// between invocations.
type Runner struct {
	store    synthese.Store
	resolver *taxon.Resolver
	log      *logging.Logger
	metrics  *metrics.Collector
}

// NewRunner creates a runner. The metrics collector may be nil.
func NewRunner(store synthese.Store, resolver *taxon.Resolver, log *logging.Logger, collector *metrics.Collector) *Runner {
	if log == nil {
		log = logging.New("pipeline", logging.InfoLevel)
	}
	return &Runner{
		store:    store,
		resolver: resolver,
		log:      log,
		metrics:  collector,
	}
}

// Run imports one provider. Statistics are returned on every exit path,
// including aborts, and the end-of-run summary is always logged.
func (r *Runner) Run(ctx context.Context, p parser.Parser, opts Options) (stats *RunStatistics, err error) {
	opts.applyDefaults()
	stats = &RunStatistics{}

	name := p.Name()
	log := r.log.WithFields(logging.Fields{"provider": name})
	start := time.Now()
	resolverBefore := r.resolver.Stats()

	defer func() {
		after := r.resolver.Stats()
		stats.ResolvedLocal = after.ResolvedLocal - resolverBefore.ResolvedLocal
		stats.ResolvedRemote = after.ResolvedRemote - resolverBefore.ResolvedRemote
		if r.metrics != nil {
			r.metrics.RunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			r.metrics.TaxonCacheHits.Add(float64(after.CacheHits - resolverBefore.CacheHits))
			r.metrics.TaxonResolutions.WithLabelValues("local").Add(float64(stats.ResolvedLocal))
			r.metrics.TaxonResolutions.WithLabelValues("remote").Add(float64(stats.ResolvedRemote))
		}
		if err != nil {
			log.Error("import run aborted", stats.Fields(), err)
		} else {
			log.Info("import run finished", stats.Fields())
		}
	}()

	if err = p.CheckConfig(); err != nil {
		return stats, err
	}

	spec := p.Mapping()
	if err = spec.Validate(); err != nil {
		return stats, err
	}

	meta, err := r.bootstrap(ctx, p, opts.DryRun)
	if err != nil {
		return stats, err
	}

	log.Info("import run started", logging.Fields{
		"dry_run": opts.DryRun,
		"limit":   opts.Limit,
	})

	seen := make(map[string]bool)
	var cursor *parser.Cursor
	processed := 0

	for {
		page, ferr := r.fetchWithRetry(ctx, p, cursor, opts, log)
		if ferr != nil {
			err = ferr
			return stats, err
		}

		stats.Pages++
		if r.metrics != nil {
			r.metrics.PagesFetched.WithLabelValues(name).Inc()
		}

		if stats.Pages == 1 && page.Total >= 0 {
			if page.Total == 0 {
				return stats, nil
			}
			if page.Total > opts.MaxRecords {
				err = &VolumeExceededError{Provider: name, Declared: page.Total, Limit: opts.MaxRecords}
				return stats, err
			}
		}

		for _, raw := range page.Records {
			if processed >= opts.Limit {
				stats.Truncated = true
				return stats, nil
			}
			processed++

			if perr := r.processRecord(ctx, spec, raw, meta, seen, stats, opts, name); perr != nil {
				err = perr
				return stats, err
			}
		}

		if page.Next == nil {
			return stats, nil
		}
		if stats.Pages >= opts.MaxPages {
			stats.Truncated = true
			return stats, nil
		}
		cursor = page.Next
	}
}

// bootstrap ensures the run's supporting metadata records exist.
func (r *Runner) bootstrap(ctx context.Context, p parser.Parser, dryRun bool) (synthese.RunMetadata, error) {
	pm := p.Metadata()
	return synthese.NewBootstrapper(r.store, r.log).Ensure(ctx, synthese.Keys{
		SourceName:    pm.SourceName,
		SourceDesc:    pm.SourceDesc,
		FrameworkName: pm.FrameworkName,
		FrameworkDesc: pm.FrameworkDesc,
		DatasetName:   pm.DatasetName,
		DatasetDesc:   pm.DatasetDesc,
	}, dryRun)
}

// fetchWithRetry fetches one page, reattempting transient failures a
// bounded number of times with a fixed sleep.
func (r *Runner) fetchWithRetry(ctx context.Context, p parser.Parser, cursor *parser.Cursor, opts Options, log *logging.Logger) (*parser.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.Tries; attempt++ {
		page, err := p.FetchPage(ctx, cursor)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !isTransient(err) {
			return nil, &ProviderError{Provider: p.Name(), Err: err}
		}
		log.Warn("page fetch failed, will retry", logging.Fields{
			"attempt": attempt,
			"tries":   opts.Tries,
			"error":   err.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetrySleep):
		}
	}
	return nil, &ProviderError{
		Provider: p.Name(),
		Err:      fmt.Errorf("giving up after %d attempts: %w", opts.Tries, lastErr),
	}
}

// processRecord maps, validates and persists one raw record. Rejections
// and duplicates update the statistics and return nil; only failures of
// the store or the local referential abort the run.
func (r *Runner) processRecord(
	ctx context.Context,
	spec *mapping.Spec,
	raw parser.RawRecord,
	meta synthese.RunMetadata,
	seen map[string]bool,
	stats *RunStatistics,
	opts Options,
	provider string,
) error {
	row := spec.Apply(raw)

	externalID := asString(row["entity_source_pk_value"])
	if externalID == "" {
		r.reject(stats, provider, reasonNoExternalID)
		return nil
	}
	if seen[externalID] {
		stats.Deduplicated++
		return nil
	}
	seen[externalID] = true

	cdNom := asInt64Ptr(row["cd_nom"])
	nomCite := asString(row["nom_cite"])
	if cdNom == nil {
		resolved, err := r.resolver.Resolve(ctx, nomCite)
		if err != nil {
			return fmt.Errorf("resolve taxon %q: %w", nomCite, err)
		}
		cdNom = resolved
	}
	if cdNom == nil && !opts.Permissive {
		stats.RejectedNoTaxon++
		r.reject(stats, provider, reasonNoTaxon)
		return nil
	}

	dateMin, dateMax, err := expandDates(row)
	if err != nil {
		var derr *daterange.DateFormatError
		if errors.As(err, &derr) {
			stats.RejectedBadDate++
			r.reject(stats, provider, reasonBadDate)
			return nil
		}
		return err
	}

	countMin := asInt(row["count_min"], 1)
	occ := &synthese.Occurrence{
		ExternalID:   externalID,
		CdNom:        cdNom,
		UniqueIDSINP: asUUIDPtr(row["unique_id_sinp"]),
		NomCite:      nomCite,
		DateMin:      dateMin,
		DateMax:      dateMax,
		Geom:         geometry.Build(row["latitude"], row["longitude"], geometry.DefaultSRID),
		CountMin:     countMin,
		CountMax:     asInt(row["count_max"], countMin),
		Observers:    asStringPtr(row["observers"]),
		SourceID:     meta.SourceID,
		DatasetID:    meta.DatasetID,
		Extra:        extraFields(row),
	}

	if !opts.DryRun {
		if err := r.store.InsertOccurrence(ctx, occ); err != nil {
			return err
		}
	}

	stats.Imported++
	if r.metrics != nil {
		r.metrics.RecordsImported.WithLabelValues(provider).Inc()
	}
	return nil
}

func (r *Runner) reject(stats *RunStatistics, provider, reason string) {
	stats.Rejected++
	if r.metrics != nil {
		r.metrics.RecordsRejected.WithLabelValues(provider, reason).Inc()
	}
}

// expandDates derives the observation-date bounds of a mapped row.
// date_min is mandatory; a missing date_max inherits the upper bound of
// date_min's expansion, so a bare "2023-07" yields the whole month.
func expandDates(row mapping.Row) (time.Time, time.Time, error) {
	minStr := asString(row["date_min"])
	if minStr == "" {
		return time.Time{}, time.Time{}, &daterange.DateFormatError{Input: ""}
	}

	dateMin, minUpper, err := daterange.Expand(minStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	maxStr := asString(row["date_max"])
	if maxStr == "" || maxStr == minStr {
		return dateMin, minUpper, nil
	}

	_, dateMax, err := daterange.Expand(maxStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateMax.Before(dateMin) {
		dateMax = minUpper
	}
	return dateMin, dateMax, nil
}

// Canonical fields consumed by the occurrence struct itself; anything
// else a mapping produces travels in the Extra payload.
var coreFields = map[string]bool{
	"entity_source_pk_value": true,
	"unique_id_sinp":         true,
	"nom_cite":               true,
	"cd_nom":                 true,
	"date_min":               true,
	"date_max":               true,
	"latitude":               true,
	"longitude":              true,
	"count_min":              true,
	"count_max":              true,
	"observers":              true,
	"id_source":              true,
	"id_dataset":             true,
}

func extraFields(row mapping.Row) map[string]any {
	extra := make(map[string]any)
	for field, value := range row {
		if !coreFields[field] {
			extra[field] = value
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// --- loose value coercion over mapped rows ---

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	if s == "" {
		return nil
	}
	return &s
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

func asInt64Ptr(v any) *int64 {
	switch n := v.(type) {
	case int64:
		return &n
	case int:
		v64 := int64(n)
		return &v64
	case float64:
		v64 := int64(n)
		return &v64
	case *int64:
		return n
	}
	return nil
}

func asUUIDPtr(v any) *uuid.UUID {
	s := asString(v)
	if s == "" {
		return nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &u
}
