package pipeline

import (
	"github.com/basileandre056/api2gn/pkg/logging"
)

// RunStatistics counts the outcomes of one import run. It is always
// populated, including on aborted runs.
type RunStatistics struct {
	// Imported counts occurrence rows persisted (or, in dry-run mode,
	// rows that would have been persisted).
	Imported int

	// Rejected is the total of all per-record rejections.
	Rejected int

	// RejectedNoTaxon counts records dropped because their name could
	// not be resolved while running in strict mode.
	RejectedNoTaxon int

	// RejectedBadDate counts records whose observation date could not be
	// parsed.
	RejectedBadDate int

	// Deduplicated counts raw records silently dropped because their
	// external id was already seen this run.
	Deduplicated int

	// ResolvedLocal and ResolvedRemote count taxon resolutions by tier.
	ResolvedLocal  int
	ResolvedRemote int

	// Pages is the number of provider pages fetched.
	Pages int

	// Truncated is set when the run stopped at a page or record bound
	// before exhausting the provider.
	Truncated bool
}

// Fields renders the statistics as structured log fields.
func (s *RunStatistics) Fields() logging.Fields {
	return logging.Fields{
		"imported":          s.Imported,
		"rejected":          s.Rejected,
		"rejected_no_taxon": s.RejectedNoTaxon,
		"rejected_bad_date": s.RejectedBadDate,
		"deduplicated":      s.Deduplicated,
		"resolved_local":    s.ResolvedLocal,
		"resolved_remote":   s.ResolvedRemote,
		"pages":             s.Pages,
		"truncated":         s.Truncated,
	}
}
