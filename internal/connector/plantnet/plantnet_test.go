package plantnet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basileandre056/api2gn/internal/parser"
	"github.com/basileandre056/api2gn/internal/pipeline"
)

func newServerParser(t *testing.T, cfg Config, handler http.HandlerFunc) *Parser {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestCheckConfig_RequiresAPIKey(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	var cerr *pipeline.ConfigurationError
	require.ErrorAs(t, p.CheckConfig(), &cerr)
	assert.Equal(t, "plantnet", cerr.Provider)

	p, err = New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.NoError(t, p.CheckConfig())
}

func TestFetchPage_PayloadAndCredential(t *testing.T) {
	var gotKey string
	var payload map[string]any
	p := newServerParser(t, Config{
		PageSize:     50,
		MinEventDate: "2023-01-01",
		GeometryJSON: `{"type":"Polygon","coordinates":[[[55.2,-21.4],[55.8,-21.4],[55.8,-20.8],[55.2,-21.4]]]}`,
	}, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{"results":[]}`))
	})
	p.ApplyOverrides(parser.RunOverrides{SpeciesFilter: []string{"Quercus ilex"}})

	page, err := p.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Nil(t, page.Next)
	assert.Equal(t, -1, page.Total)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, float64(50), payload["limit"])
	assert.Equal(t, float64(0), payload["offset"])
	assert.Equal(t, []any{"Quercus ilex"}, payload["scientificName"])
	assert.Equal(t, "2023-01-01", payload["minEventDate"])
	require.NotNil(t, payload["geometry"])
	assert.Equal(t, "Polygon", payload["geometry"].(map[string]any)["type"])
}

func TestFetchPage_StopsOnShortPage(t *testing.T) {
	p := newServerParser(t, Config{PageSize: 2}, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if payload["offset"] == float64(0) {
			w.Write([]byte(`{"results":[{"id":"a"},{"id":"b"}]}`))
			return
		}
		w.Write([]byte(`{"results":[{"id":"c"}]}`))
	})

	first, err := p.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, first.Records, 2)
	require.NotNil(t, first.Next)
	assert.Equal(t, 2, first.Next.Offset)

	second, err := p.FetchPage(context.Background(), first.Next)
	require.NoError(t, err)
	assert.Len(t, second.Records, 1)
	assert.Nil(t, second.Next)
}

func TestFetchPage_ReadsDataEnvelope(t *testing.T) {
	p := newServerParser(t, Config{PageSize: 10}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"x","scientificName":"Quercus ilex"}]}`))
	})

	page, err := p.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "x", page.Records[0]["id"])
}

func TestFetchPage_OffsetSafetyStop(t *testing.T) {
	p := newServerParser(t, Config{PageSize: 2}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"id":"a"},{"id":"b"}]}`))
	})

	page, err := p.FetchPage(context.Background(), &parser.Cursor{Offset: maxOffset})
	require.NoError(t, err)
	assert.Nil(t, page.Next)
}

func TestFetchPage_ServerErrorIsTransient(t *testing.T) {
	p := newServerParser(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := p.FetchPage(context.Background(), nil)
	var terr *pipeline.TransientProviderError
	require.ErrorAs(t, err, &terr)
}

func TestDecorate(t *testing.T) {
	raw := map[string]any{
		"id":            "obs-1",
		"observedOn":    "2023-05-10",
		"media":         []any{map[string]any{"medium_url": "https://img.example/1.jpg"}},
		"user":          map[string]any{"id": float64(42)},
		"basisOfRecord": " photo ",
	}

	decorated := decorate(raw)

	assert.Equal(t, "2023-05-10", decorated["eventDate"])
	assert.Equal(t, "https://img.example/1.jpg", decorated["associatedMedia"])
	assert.Equal(t, float64(42), decorated["user_id"])
	assert.Equal(t, "HUMAN_OBSERVATION", decorated["basisOfRecord"])
}

func TestDecorate_UnknownBasisOfRecordPassesThrough(t *testing.T) {
	raw := map[string]any{"basisOfRecord": "FOSSIL_SPECIMEN"}
	assert.Equal(t, "FOSSIL_SPECIMEN", decorate(raw)["basisOfRecord"])
}

func TestBuildObservers(t *testing.T) {
	assert.Equal(t, "J. Doe (42)", buildObservers(nil, map[string]any{"rightsHolder": "J. Doe", "user_id": 42}))
	assert.Equal(t, "J. Doe", buildObservers(nil, map[string]any{"rightsHolder": "J. Doe"}))
	assert.Equal(t, "42", buildObservers(nil, map[string]any{"user_id": 42}))
	assert.Nil(t, buildObservers(nil, map[string]any{}))
}

func TestMapping_Validates(t *testing.T) {
	p, err := New(Config{MappingJSON: `{"place_name": "locality"}`})
	require.NoError(t, err)
	require.NoError(t, p.Mapping().Validate())
	assert.Equal(t, "locality", p.Mapping().Static["place_name"])
}

func TestApplyOverrides_DoesNotMutateConfig(t *testing.T) {
	p, err := New(Config{APIKey: "k", SpeciesFilter: []string{"A"}, MinEventDate: "2020"})
	require.NoError(t, err)

	p.ApplyOverrides(parser.RunOverrides{SpeciesFilter: []string{"B"}, MinEventDate: "2023"})

	assert.Equal(t, []string{"B"}, p.species)
	assert.Equal(t, "2023", p.minDate)
	assert.Equal(t, []string{"A"}, p.cfg.SpeciesFilter)
	assert.Equal(t, "2020", p.cfg.MinEventDate)
}
