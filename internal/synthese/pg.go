package synthese

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store against a GeoNature-style Postgres schema.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects a store to the given database URL.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertOccurrence persists one canonical row. Re-importing the same
// external id for the same source updates the row in place, so reruns
// do not duplicate occurrences across runs either.
func (s *PGStore) InsertOccurrence(ctx context.Context, occ *Occurrence) error {
	extra, err := json.Marshal(occ.Extra)
	if err != nil {
		return fmt.Errorf("marshal extra payload: %w", err)
	}

	var geom *string
	if occ.Geom != nil {
		ewkt := occ.Geom.EWKT()
		geom = &ewkt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO gn_synthese.synthese (
			entity_source_pk_value, unique_id_sinp, nom_cite, cd_nom,
			date_min, date_max, the_geom_4326,
			count_min, count_max, observers,
			id_source, id_dataset, additional_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromEWKT($7), $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id_source, entity_source_pk_value) DO UPDATE SET
			cd_nom = EXCLUDED.cd_nom,
			date_min = EXCLUDED.date_min,
			date_max = EXCLUDED.date_max,
			the_geom_4326 = EXCLUDED.the_geom_4326,
			count_min = EXCLUDED.count_min,
			count_max = EXCLUDED.count_max,
			observers = EXCLUDED.observers,
			additional_data = EXCLUDED.additional_data
	`,
		occ.ExternalID, occ.UniqueIDSINP, occ.NomCite, occ.CdNom,
		occ.DateMin, occ.DateMax, geom,
		occ.CountMin, occ.CountMax, occ.Observers,
		occ.SourceID, occ.DatasetID, extra,
	)
	if err != nil {
		return fmt.Errorf("insert occurrence %s: %w", occ.ExternalID, err)
	}
	return nil
}

// --- metadata entities ---

func (s *PGStore) FindSourceID(ctx context.Context, name string) (*int64, error) {
	return s.scalarID(ctx, `
		SELECT id_source FROM gn_synthese.t_sources WHERE name_source = $1
	`, name)
}

func (s *PGStore) CreateSource(ctx context.Context, name, desc string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO gn_synthese.t_sources (name_source, desc_source)
		VALUES ($1, $2)
		ON CONFLICT (name_source) DO UPDATE SET desc_source = EXCLUDED.desc_source
		RETURNING id_source
	`, name, desc).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create source %q: %w", name, err)
	}
	return id, nil
}

func (s *PGStore) FindFrameworkID(ctx context.Context, name string) (*int64, error) {
	return s.scalarID(ctx, `
		SELECT id_acquisition_framework FROM gn_meta.t_acquisition_frameworks
		WHERE acquisition_framework_name = $1
	`, name)
}

func (s *PGStore) CreateFramework(ctx context.Context, name, desc string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO gn_meta.t_acquisition_frameworks
			(acquisition_framework_name, acquisition_framework_desc)
		VALUES ($1, $2)
		ON CONFLICT (acquisition_framework_name) DO UPDATE
			SET acquisition_framework_desc = EXCLUDED.acquisition_framework_desc
		RETURNING id_acquisition_framework
	`, name, desc).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create acquisition framework %q: %w", name, err)
	}
	return id, nil
}

func (s *PGStore) FindDatasetID(ctx context.Context, name string) (*int64, error) {
	return s.scalarID(ctx, `
		SELECT id_dataset FROM gn_meta.t_datasets WHERE dataset_name = $1
	`, name)
}

func (s *PGStore) CreateDataset(ctx context.Context, name, desc string, frameworkID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO gn_meta.t_datasets
			(dataset_name, dataset_desc, id_acquisition_framework, terrestrial_domain)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (dataset_name) DO UPDATE SET dataset_desc = EXCLUDED.dataset_desc
		RETURNING id_dataset
	`, name, desc, frameworkID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create dataset %q: %w", name, err)
	}
	return id, nil
}

// --- local taxonomic referential ---

func (s *PGStore) FindCdNom(ctx context.Context, name string) (*int64, error) {
	return s.scalarID(ctx, `
		SELECT cd_nom FROM taxonomie.taxref WHERE lb_nom ILIKE $1 LIMIT 1
	`, name)
}

func (s *PGStore) CdNomExists(ctx context.Context, cdNom int64) (bool, error) {
	var found int64
	err := s.pool.QueryRow(ctx, `
		SELECT cd_nom FROM taxonomie.taxref WHERE cd_nom = $1
	`, cdNom).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check cd_nom %d: %w", cdNom, err)
	}
	return true, nil
}

// scalarID runs a single-value query, mapping "no rows" to nil.
func (s *PGStore) scalarID(ctx context.Context, query string, args ...any) (*int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scalar query: %w", err)
	}
	return &id, nil
}
