package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_ApplyOrder(t *testing.T) {
	spec := &Spec{
		Static: map[string]string{
			"nom_cite":  "scientificName",
			"observers": "recordedBy",
		},
		Constant: map[string]any{
			"count_min": 1,
			"count_max": 1,
		},
		Dynamic: map[string]Func{
			"place_name": func(row Row, raw map[string]any) any {
				if name, ok := raw["verbatimLocality"].(string); ok {
					return "loc:" + name
				}
				return nil
			},
		},
	}
	require.NoError(t, spec.Validate())

	row := spec.Apply(map[string]any{
		"scientificName":   "Quercus ilex",
		"recordedBy":       "J. Doe",
		"verbatimLocality": "Grenoble",
	})

	assert.Equal(t, "Quercus ilex", row["nom_cite"])
	assert.Equal(t, "J. Doe", row["observers"])
	assert.Equal(t, 1, row["count_min"])
	assert.Equal(t, "loc:Grenoble", row["place_name"])
}

func TestSpec_DynamicsReadPopulatedRow(t *testing.T) {
	spec := &Spec{
		Static:   map[string]string{"nom_cite": "scientificName"},
		Constant: map[string]any{"count_min": 1},
		Dynamic: map[string]Func{
			// Dynamics run last: constants and statics of the same row
			// are visible to them.
			"count_max": func(row Row, raw map[string]any) any {
				return row["count_min"]
			},
			"comment_description": func(row Row, raw map[string]any) any {
				if name, ok := row["nom_cite"].(string); ok {
					return "cited as " + name
				}
				return nil
			},
		},
	}
	require.NoError(t, spec.Validate())

	row := spec.Apply(map[string]any{"scientificName": "Quercus ilex"})

	assert.Equal(t, 1, row["count_max"])
	assert.Equal(t, "cited as Quercus ilex", row["comment_description"])
}

func TestSpec_MissingRawFieldIsNotAnError(t *testing.T) {
	spec := &Spec{Static: map[string]string{"observers": "recordedBy"}}
	require.NoError(t, spec.Validate())

	row := spec.Apply(map[string]any{})
	_, present := row["observers"]
	assert.False(t, present)
}

func TestSpec_ValidateRejectsUnknownField(t *testing.T) {
	spec := &Spec{Static: map[string]string{"not_a_column": "x"}}
	var merr *MappingError
	require.ErrorAs(t, spec.Validate(), &merr)
	assert.Equal(t, "not_a_column", merr.Field)
}

func TestSpec_ValidateRejectsDuplicateCategory(t *testing.T) {
	spec := &Spec{
		Static:   map[string]string{"count_min": "individualCount"},
		Constant: map[string]any{"count_min": 1},
	}
	var merr *MappingError
	require.ErrorAs(t, spec.Validate(), &merr)
}

func TestSpec_MergeJSON(t *testing.T) {
	spec := &Spec{Static: map[string]string{"nom_cite": "scientificName"}}
	require.NoError(t, spec.MergeJSON(`{"place_name": "verbatimLocality"}`))
	assert.Equal(t, "verbatimLocality", spec.Static["place_name"])

	var merr *MappingError
	require.ErrorAs(t, spec.MergeJSON(`[1,2]`), &merr)
}
