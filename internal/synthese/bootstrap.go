package synthese

import (
	"context"
	"fmt"

	"github.com/basileandre056/api2gn/pkg/logging"
)

// Keys names the metadata entities an import run attaches to.
type Keys struct {
	SourceName    string
	SourceDesc    string
	FrameworkName string
	FrameworkDesc string
	DatasetName   string
	DatasetDesc   string
}

// Bootstrapper idempotently ensures that the source, acquisition
// framework and dataset referenced by a run exist, caching resolved
// identifiers for the bootstrapper's lifetime.
type Bootstrapper struct {
	store Store
	log   *logging.Logger
	cache map[Keys]RunMetadata
}

// NewBootstrapper creates a bootstrapper over the given store.
func NewBootstrapper(store Store, log *logging.Logger) *Bootstrapper {
	if log == nil {
		log = logging.New("synthese", logging.InfoLevel)
	}
	return &Bootstrapper{
		store: store,
		log:   log,
		cache: make(map[Keys]RunMetadata),
	}
}

// Ensure looks up each entity by its natural name key and creates the
// missing ones. Creations are persisted immediately so concurrent or
// later lookups observe them. In dry-run mode nothing is written and
// sentinel identifiers are substituted.
func (b *Bootstrapper) Ensure(ctx context.Context, keys Keys, dryRun bool) (RunMetadata, error) {
	if meta, ok := b.cache[keys]; ok {
		return meta, nil
	}

	sourceID, err := b.ensureEntity(ctx, keys.SourceName, dryRun,
		func(ctx context.Context) (*int64, error) { return b.store.FindSourceID(ctx, keys.SourceName) },
		func(ctx context.Context) (int64, error) {
			return b.store.CreateSource(ctx, keys.SourceName, keys.SourceDesc)
		})
	if err != nil {
		return RunMetadata{}, fmt.Errorf("bootstrap source: %w", err)
	}

	frameworkID, err := b.ensureEntity(ctx, keys.FrameworkName, dryRun,
		func(ctx context.Context) (*int64, error) { return b.store.FindFrameworkID(ctx, keys.FrameworkName) },
		func(ctx context.Context) (int64, error) {
			return b.store.CreateFramework(ctx, keys.FrameworkName, keys.FrameworkDesc)
		})
	if err != nil {
		return RunMetadata{}, fmt.Errorf("bootstrap acquisition framework: %w", err)
	}

	datasetID, err := b.ensureEntity(ctx, keys.DatasetName, dryRun,
		func(ctx context.Context) (*int64, error) { return b.store.FindDatasetID(ctx, keys.DatasetName) },
		func(ctx context.Context) (int64, error) {
			return b.store.CreateDataset(ctx, keys.DatasetName, keys.DatasetDesc, frameworkID)
		})
	if err != nil {
		return RunMetadata{}, fmt.Errorf("bootstrap dataset: %w", err)
	}

	meta := RunMetadata{SourceID: sourceID, FrameworkID: frameworkID, DatasetID: datasetID}
	b.cache[keys] = meta
	return meta, nil
}

// ensureEntity resolves one entity id, creating it when absent. Existing
// entities keep their identifiers even in dry-run mode; only creations
// are replaced by the sentinel.
func (b *Bootstrapper) ensureEntity(
	ctx context.Context,
	name string,
	dryRun bool,
	find func(context.Context) (*int64, error),
	create func(context.Context) (int64, error),
) (int64, error) {
	id, err := find(ctx)
	if err != nil {
		return 0, err
	}
	if id != nil {
		return *id, nil
	}

	if dryRun {
		b.log.Info("dry run: would create metadata entity", logging.Fields{"name": name})
		return DrySentinelID, nil
	}

	created, err := create(ctx)
	if err != nil {
		return 0, err
	}
	b.log.Info("created metadata entity", logging.Fields{"name": name, "id": created})
	return created, nil
}
