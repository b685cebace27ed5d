// Package mapping applies declarative provider-to-synthese field
// mappings. A spec carries three disjoint entry kinds: static column
// copies, run-constant values and computed per-row functions.
package mapping

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Row is a record in canonical field space, keyed by synthese column name.
type Row = map[string]any

// Func computes a canonical field value. It receives the row built so
// far (constants and statics are already populated when dynamics run)
// and the raw provider record, must be deterministic given its inputs
// and may not depend on other rows.
type Func func(row Row, raw map[string]any) any

// Target fields accepted by the synthese schema. A static entry pointing
// anywhere else is a declaration error.
var knownFields = map[string]bool{
	"entity_source_pk_value":             true,
	"unique_id_sinp":                     true,
	"nom_cite":                           true,
	"cd_nom":                             true,
	"date_min":                           true,
	"date_max":                           true,
	"count_min":                          true,
	"count_max":                          true,
	"observers":                          true,
	"determiner":                         true,
	"place_name":                         true,
	"latitude":                           true,
	"longitude":                          true,
	"altitude_min":                       true,
	"altitude_max":                       true,
	"associated_media":                   true,
	"basis_of_record":                    true,
	"id_source":                          true,
	"id_dataset":                         true,
	"id_nomenclature_sex":                true,
	"id_nomenclature_life_stage":         true,
	"id_nomenclature_observation_status": true,
	"comment_description":                true,
}

// MappingError reports a structurally invalid mapping declaration. It is
// raised eagerly at run start, never mid-stream.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %q: %s", e.Field, e.Reason)
}

// Spec is a declarative field mapping.
type Spec struct {
	// Static maps canonical field -> raw provider field (direct copy).
	Static map[string]string

	// Constant maps canonical field -> literal value, identical for
	// every row of the run.
	Constant map[string]any

	// Dynamic maps canonical field -> computed value. Evaluated last.
	Dynamic map[string]Func
}

// Validate checks that the spec is structurally sound: every entry
// targets a known canonical field and no field appears in more than one
// category.
func (s *Spec) Validate() error {
	seen := map[string]string{}

	check := func(field, kind string) error {
		if !knownFields[field] {
			return &MappingError{Field: field, Reason: "not a synthese field"}
		}
		if prev, dup := seen[field]; dup {
			return &MappingError{Field: field, Reason: fmt.Sprintf("declared as both %s and %s", prev, kind)}
		}
		seen[field] = kind
		return nil
	}

	for _, field := range sortedKeys(s.Static) {
		if s.Static[field] == "" {
			return &MappingError{Field: field, Reason: "empty source field"}
		}
		if err := check(field, "static"); err != nil {
			return err
		}
	}
	for _, field := range sortedKeys(s.Constant) {
		if err := check(field, "constant"); err != nil {
			return err
		}
	}
	for _, field := range sortedKeys(s.Dynamic) {
		if s.Dynamic[field] == nil {
			return &MappingError{Field: field, Reason: "nil dynamic func"}
		}
		if err := check(field, "dynamic"); err != nil {
			return err
		}
	}
	return nil
}

// Apply maps one raw record into canonical field space. Evaluation order
// is fixed: constants, then statics, then dynamics. Missing optional raw
// fields are simply absent from the result, never an error.
func (s *Spec) Apply(raw map[string]any) Row {
	row := make(Row, len(s.Constant)+len(s.Static)+len(s.Dynamic))

	for field, value := range s.Constant {
		row[field] = value
	}
	for field, source := range s.Static {
		if value, ok := raw[source]; ok && value != nil {
			row[field] = value
		}
	}
	for _, field := range sortedKeys(s.Dynamic) {
		if value := s.Dynamic[field](row, raw); value != nil {
			row[field] = value
		}
	}
	return row
}

// MergeJSON overlays static entries parsed from a JSON object (the
// field_mapping_json configuration key) onto the spec. Later entries win.
func (s *Spec) MergeJSON(raw string) error {
	if raw == "" {
		return nil
	}
	overrides := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return &MappingError{Field: "field_mapping_json", Reason: "not a JSON object of strings"}
	}
	if s.Static == nil {
		s.Static = map[string]string{}
	}
	for field, source := range overrides {
		s.Static[field] = source
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
