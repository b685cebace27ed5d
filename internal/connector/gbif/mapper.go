package gbif

import (
	"strings"

	"github.com/google/uuid"

	"github.com/basileandre056/api2gn/internal/mapping"
)

// =============================================================================
// NOMENCLATURE CODES
// =============================================================================

// Darwin Core vocabulary values mapped to local nomenclature codes.
// See https://dwc.tdwg.org/list/#dwc_occurrenceStatus,
// http://rs.tdwg.org/dwc/terms/lifeStage and http://rs.tdwg.org/dwc/terms/sex.
var cdNomenclatureMapping = map[string]map[string]string{
	"lifeStage": {
		"larva":    "6",
		"juvenile": "3",
		"adult":    "2",
		"seedling": "20",
		"fruiting": "27",
	},
	"sex": {
		"female":        "2",
		"male":          "3",
		"hermaphrodite": "4",
	},
	"occurrenceStatus": {
		"present": "Pr",
		"absent":  "No",
	},
}

// =============================================================================
// FIELD MAPPING
// =============================================================================

func buildSpec() *mapping.Spec {
	return &mapping.Spec{
		Static: map[string]string{
			"unique_id_sinp":                     "identifier",
			"date_min":                           "eventDate",
			"date_max":                           "eventDate",
			"nom_cite":                           "scientificName",
			"count_min":                          "individualCount",
			"count_max":                          "individualCount",
			"observers":                          "recordedBy",
			"determiner":                         "recordedBy",
			"place_name":                         "verbatimLocality",
			"latitude":                           "decimalLatitude",
			"longitude":                          "decimalLongitude",
			"id_nomenclature_sex":                "sex",
			"id_nomenclature_life_stage":         "lifeStage",
			"id_nomenclature_observation_status": "occurrenceStatus",
		},
		Dynamic: map[string]mapping.Func{
			// catalogNumber is the published record identifier but is not
			// always present; the GBIF occurrence key always is.
			"entity_source_pk_value": func(row mapping.Row, raw map[string]any) any {
				if v, ok := raw["catalogNumber"].(string); ok && v != "" {
					return v
				}
				return raw["key"]
			},
		},
	}
}

// decorate rewrites provider vocabulary fields in place before mapping:
// the first identifier that parses as a UUID becomes "identifier", and
// the nomenclature fields are replaced by local codes (unknown values
// drop to nil rather than leaking vocabulary strings downstream).
func decorate(raw map[string]any) map[string]any {
	raw["identifier"] = extractIdentifier(raw)
	for _, field := range []string{"sex", "lifeStage", "occurrenceStatus"} {
		raw[field] = nomenclatureCode(field, raw[field])
	}
	return raw
}

func extractIdentifier(raw map[string]any) any {
	identifiers, ok := raw["identifiers"].([]any)
	if !ok || len(identifiers) == 0 {
		return nil
	}
	first, ok := identifiers[0].(map[string]any)
	if !ok {
		return nil
	}
	value, ok := first["identifier"].(string)
	if !ok {
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return nil
	}
	return value
}

func nomenclatureCode(field string, value any) any {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	if code, ok := cdNomenclatureMapping[field][strings.ToLower(s)]; ok {
		return code
	}
	return nil
}
