// Package config provides configuration loading for the import pipeline.
// Values come from documented defaults, then an optional YAML file, then
// API2GN_* environment overrides; absence of configuration is never
// fatal, but Warnings reports suspicious values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the flat pipeline configuration.
type Config struct {
	// DatabaseURL is the Postgres connection string of the target
	// GeoNature database.
	DatabaseURL string `yaml:"database_url"`

	// TaxrefMode selects how unresolved taxa are handled: "strict"
	// rejects the record, "permissive" imports it without cd_nom.
	TaxrefMode string `yaml:"taxref_mode"`

	// TaxrefAPIURL is the remote taxonomic referential root.
	TaxrefAPIURL string `yaml:"taxref_api_url"`

	// MaxData caps the number of records processed per run.
	MaxData int `yaml:"max_data"`

	// MaxRecords is the declared-volume refusal bound.
	MaxRecords int `yaml:"max_records"`

	// Tries and RetrySleep govern transient fetch retries.
	Tries      int           `yaml:"parser_number_of_tries"`
	RetrySleep time.Duration `yaml:"parser_retry_sleep_time"`

	// GBIFAPIURL overrides the GBIF API root.
	GBIFAPIURL string `yaml:"gbif_api_url"`

	// PlantNetAPIURL and PlantNetAPIKey configure the Pl@ntNet adapter;
	// the key is mandatory to run that provider.
	PlantNetAPIURL string `yaml:"plantnet_api_url"`
	PlantNetAPIKey string `yaml:"plantnet_api_key"`

	// ListSpecies restricts harvests to the given scientific names.
	ListSpecies []string `yaml:"list_species"`

	// MinEventDate and MaxEventDate bound the harvested observations.
	MinEventDate string `yaml:"min_event_date"`
	MaxEventDate string `yaml:"max_event_date"`

	// GeometryJSON is an optional GeoJSON geometry filter.
	GeometryJSON string `yaml:"geometry_json"`

	// FieldMappingJSON holds extra static field mappings as a JSON
	// object, merged over the provider defaults.
	FieldMappingJSON string `yaml:"field_mapping_json"`

	// LogLevel selects the minimum log severity (debug, info, warn,
	// error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		TaxrefMode:     "strict",
		TaxrefAPIURL:   "https://taxref.mnhn.fr/api",
		MaxData:        1000,
		MaxRecords:     100000,
		Tries:          5,
		RetrySleep:     5 * time.Second,
		GBIFAPIURL:     "https://api.gbif.org/v1",
		PlantNetAPIURL: "https://my-api.plantnet.org/v3",
		LogLevel:       "info",
	}
}

// Load builds the effective configuration: defaults, overlaid by the
// YAML file at path when it exists, overlaid by environment variables.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "API2GN_DATABASE_URL")
	setString(&c.TaxrefMode, "API2GN_TAXREF_MODE")
	setString(&c.TaxrefAPIURL, "API2GN_TAXREF_API_URL")
	setInt(&c.MaxData, "API2GN_MAX_DATA")
	setInt(&c.MaxRecords, "API2GN_MAX_RECORDS")
	setInt(&c.Tries, "API2GN_PARSER_NUMBER_OF_TRIES")
	setDuration(&c.RetrySleep, "API2GN_PARSER_RETRY_SLEEP_TIME")
	setString(&c.GBIFAPIURL, "API2GN_GBIF_API_URL")
	setString(&c.PlantNetAPIURL, "API2GN_PLANTNET_API_URL")
	setString(&c.PlantNetAPIKey, "API2GN_PLANTNET_API_KEY")
	setString(&c.MinEventDate, "API2GN_MIN_EVENT_DATE")
	setString(&c.MaxEventDate, "API2GN_MAX_EVENT_DATE")
	setString(&c.GeometryJSON, "API2GN_GEOMETRY_JSON")
	setString(&c.FieldMappingJSON, "API2GN_FIELD_MAPPING_JSON")
	setString(&c.LogLevel, "API2GN_LOG_LEVEL")

	if v := os.Getenv("API2GN_LIST_SPECIES"); v != "" {
		c.ListSpecies = splitList(v)
	}
}

// Warnings reports non-blocking configuration problems. The pipeline
// still runs; the operator decides whether they matter.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.TaxrefMode != "strict" && c.TaxrefMode != "permissive" {
		warnings = append(warnings,
			fmt.Sprintf("taxref_mode %q is neither strict nor permissive; strict is assumed", c.TaxrefMode))
	}
	if c.PlantNetAPIKey == "" {
		warnings = append(warnings, "plantnet_api_key is empty; the plantnet provider will refuse to run")
	}
	if c.DatabaseURL == "" {
		warnings = append(warnings, "database_url is empty; only dry runs are possible")
	}
	if c.MaxData > 10000 {
		warnings = append(warnings,
			fmt.Sprintf("max_data %d is unusually large; provider rate limits may abort the run", c.MaxData))
	}
	if c.GeometryJSON != "" {
		var geom map[string]any
		if err := json.Unmarshal([]byte(c.GeometryJSON), &geom); err != nil {
			warnings = append(warnings, "geometry_json is not valid JSON and will be ignored")
		}
	}
	if c.FieldMappingJSON != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(c.FieldMappingJSON), &m); err != nil {
			warnings = append(warnings, "field_mapping_json is not a JSON object of strings")
		}
	}
	return warnings
}

// Permissive reports whether unresolved taxa should be kept.
func (c *Config) Permissive() bool {
	return c.TaxrefMode == "permissive"
}

// ProviderSettings renders the adapter configuration mapping for the
// given provider name, as consumed by the parser factories.
func (c *Config) ProviderSettings(name string) map[string]any {
	settings := map[string]any{
		"min_event_date": c.MinEventDate,
		"max_event_date": c.MaxEventDate,
		"geometry_json":  c.GeometryJSON,
		"mapping_json":   c.FieldMappingJSON,
	}
	if len(c.ListSpecies) > 0 {
		settings["species"] = c.ListSpecies
	}

	switch name {
	case "gbif":
		settings["base_url"] = c.GBIFAPIURL
	case "plantnet":
		settings["base_url"] = c.PlantNetAPIURL
		settings["api_key"] = c.PlantNetAPIKey
		settings["page_size"] = c.MaxData
	}
	return settings
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
