package plantnet

import (
	"fmt"
	"strings"

	"github.com/basileandre056/api2gn/internal/mapping"
)

// =============================================================================
// BASIS OF RECORD NORMALISATION
// =============================================================================

// Pl@ntNet publishes loose basisOfRecord values; they are folded onto
// the Darwin Core vocabulary. Unknown values pass through untouched.
var basisOfRecordMap = map[string]string{
	"human_observation":   "HUMAN_OBSERVATION",
	"observation":         "OBSERVATION",
	"machine_observation": "MACHINE_OBSERVATION",
	"preserved_specimen":  "PRESERVED_SPECIMEN",
	"living_specimen":     "LIVING_SPECIMEN",
	"material_sample":     "MATERIAL_SAMPLE",
	"photograph":          "HUMAN_OBSERVATION",
	"photo":               "HUMAN_OBSERVATION",
	"image":               "MACHINE_OBSERVATION",
}

// =============================================================================
// FIELD MAPPING
// =============================================================================

func buildSpec() *mapping.Spec {
	return &mapping.Spec{
		Static: map[string]string{
			"entity_source_pk_value": "id",
			"nom_cite":               "scientificName",
			"date_min":               "eventDate",
			"date_max":               "eventDate",
			"latitude":               "decimalLatitude",
			"longitude":              "decimalLongitude",
			"associated_media":       "associatedMedia",
			"basis_of_record":        "basisOfRecord",
		},
		Constant: map[string]any{
			"count_min": 1,
			"count_max": 1,
		},
		Dynamic: map[string]mapping.Func{
			"observers": buildObservers,
		},
	}
}

// buildObservers derives the observers attribution from the rights
// holder and the observing account, whichever is available.
func buildObservers(_ mapping.Row, raw map[string]any) any {
	rights, _ := raw["rightsHolder"].(string)
	userID := raw["user_id"]

	switch {
	case rights != "" && userID != nil:
		return fmt.Sprintf("%s (%v)", rights, userID)
	case rights != "":
		return rights
	case userID != nil:
		return fmt.Sprintf("%v", userID)
	default:
		return nil
	}
}

// decorate flattens nested payload fields in place before mapping: the
// observation date falls back to observedOn, the first medium URL
// becomes associatedMedia, the observing user id is lifted out of the
// user object, and basisOfRecord is normalized.
func decorate(raw map[string]any) map[string]any {
	if raw["eventDate"] == nil {
		raw["eventDate"] = raw["observedOn"]
	}

	raw["associatedMedia"] = firstMediumURL(raw)

	if user, ok := raw["user"].(map[string]any); ok {
		raw["user_id"] = user["id"]
	}

	if bor, ok := raw["basisOfRecord"].(string); ok {
		trimmed := strings.TrimSpace(bor)
		if normalized, ok := basisOfRecordMap[strings.ToLower(trimmed)]; ok {
			raw["basisOfRecord"] = normalized
		} else {
			raw["basisOfRecord"] = trimmed
		}
	}
	return raw
}

func firstMediumURL(raw map[string]any) any {
	media, ok := raw["media"].([]any)
	if !ok || len(media) == 0 {
		return nil
	}
	first, ok := media[0].(map[string]any)
	if !ok {
		return nil
	}
	return first["medium_url"]
}
