package synthese

import (
	"context"
)

// Store is the transactional persistence boundary of the pipeline.
// Metadata creations commit immediately so duplicate-creation races are
// avoided on the next lookup; occurrence inserts are committed as the
// implementation sees fit.
type Store interface {
	// --- occurrence rows ---

	InsertOccurrence(ctx context.Context, occ *Occurrence) error

	// --- metadata entities, looked up by natural name key ---

	FindSourceID(ctx context.Context, name string) (*int64, error)
	CreateSource(ctx context.Context, name, desc string) (int64, error)

	FindFrameworkID(ctx context.Context, name string) (*int64, error)
	CreateFramework(ctx context.Context, name, desc string) (int64, error)

	FindDatasetID(ctx context.Context, name string) (*int64, error)
	CreateDataset(ctx context.Context, name, desc string, frameworkID int64) (int64, error)

	// --- local taxonomic referential ---

	FindCdNom(ctx context.Context, name string) (*int64, error)
	CdNomExists(ctx context.Context, cdNom int64) (bool, error)
}
