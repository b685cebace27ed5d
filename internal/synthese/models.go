// Package synthese holds the canonical occurrence model, the persistent
// store the pipeline writes to, and the metadata bootstrapper that keeps
// supporting records (source, acquisition framework, dataset) in place.
package synthese

import (
	"time"

	"github.com/google/uuid"

	"github.com/basileandre056/api2gn/internal/geometry"
)

// Occurrence is the normalized occurrence record ready for persistence.
type Occurrence struct {
	// ExternalID is the provider-assigned stable identifier, unique per
	// provider and run; it is the deduplication key.
	ExternalID string

	// CdNom is the resolved local taxon identifier; nil when unresolved
	// (permitted only in permissive mode).
	CdNom *int64

	// UniqueIDSINP is the provider-carried SINP identifier when one
	// parses as a UUID.
	UniqueIDSINP *uuid.UUID

	// NomCite is the scientific name as cited by the provider.
	NomCite string

	// DateMin and DateMax are the inclusive observation-date bounds;
	// DateMin never exceeds DateMax.
	DateMin time.Time
	DateMax time.Time

	// Geom is nil when the provider gave no usable coordinates.
	Geom *geometry.Point

	CountMin int
	CountMax int

	// Observers is derived from provider attribution fields, not copied
	// verbatim.
	Observers *string

	// SourceID and DatasetID reference bootstrapped metadata; the
	// engine fills them, adapters never do.
	SourceID  int64
	DatasetID int64

	// Extra carries provider-specific fields the engine does not
	// interpret (associated media, basis of record, nomenclatures...).
	Extra map[string]any
}

// RunMetadata identifies the supporting records an import run attaches
// to. Resolved once at run start and immutable afterwards.
type RunMetadata struct {
	SourceID    int64
	FrameworkID int64
	DatasetID   int64
}

// DrySentinelID is substituted for every metadata identifier in dry-run
// mode, where nothing is written. It is deliberately invalid as a key.
const DrySentinelID int64 = -1
