package taxon

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	nethttp "net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReferential counts lookups so tests can assert cache behavior.
type fakeReferential struct {
	names   map[string]int64
	lookups int
}

func (f *fakeReferential) FindCdNom(ctx context.Context, name string) (*int64, error) {
	f.lookups++
	if cd, ok := f.names[strings.ToLower(name)]; ok {
		v := cd
		return &v, nil
	}
	return nil, nil
}

func (f *fakeReferential) CdNomExists(ctx context.Context, cdNom int64) (bool, error) {
	for _, cd := range f.names {
		if cd == cdNom {
			return true, nil
		}
	}
	return false, nil
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Quercus ilex subsp. ballota L.":  "Quercus ilex",
		"Acacia heterophylla var. nana":   "Acacia heterophylla",
		"Dodonaea viscosa ssp. angustata": "Dodonaea viscosa",
		"Cyathea forma borbonica":         "Cyathea",
		"Quercus ilex L.":                 "Quercus ilex",
		"Quercus":                         "Quercus",
		"":                                "",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, Normalize(input), "input %q", input)
	}
}

func TestResolve_LocalAndCache(t *testing.T) {
	ref := &fakeReferential{names: map[string]int64{"quercus ilex": 9001}}
	r := NewResolver(ref, nil, nil)

	cd, err := r.Resolve(context.Background(), "Quercus ilex subsp. ballota L.")
	require.NoError(t, err)
	require.NotNil(t, cd)
	assert.Equal(t, int64(9001), *cd)
	assert.Equal(t, 1, ref.lookups)

	// Second resolution of the same name must not touch the referential.
	cd, err = r.Resolve(context.Background(), "Quercus ilex subsp. ballota L.")
	require.NoError(t, err)
	require.NotNil(t, cd)
	assert.Equal(t, 1, ref.lookups)
	assert.Equal(t, 1, r.Stats().CacheHits)
	assert.Equal(t, 1, r.Stats().ResolvedLocal)
}

func TestResolve_NegativeCache(t *testing.T) {
	ref := &fakeReferential{names: map[string]int64{}}
	r := NewResolver(ref, nil, nil)

	cd, err := r.Resolve(context.Background(), "Nullius taxonius")
	require.NoError(t, err)
	assert.Nil(t, cd)

	cd, err = r.Resolve(context.Background(), "Nullius taxonius")
	require.NoError(t, err)
	assert.Nil(t, cd)
	assert.Equal(t, 1, ref.lookups, "negative result must be cached")
}

func TestResolve_RemoteConfirmedLocally(t *testing.T) {
	remoteCalls := 0
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, req *nethttp.Request) {
		remoteCalls++
		assert.Equal(t, "Vanilla planifolia", req.URL.Query().Get("q"))
		w.Write([]byte(`[{"cd_nom": 7777}, {"cd_nom": 8888}]`))
	}))
	defer srv.Close()

	// The remote candidate exists locally under a different spelling, so
	// the fallback is accepted.
	ref := &fakeReferential{names: map[string]int64{"vanilla fragrans": 7777}}
	r := NewResolver(ref, NewRemoteClient(srv.URL), nil)

	cd, err := r.Resolve(context.Background(), "Vanilla planifolia")
	require.NoError(t, err)
	require.NotNil(t, cd)
	assert.Equal(t, int64(7777), *cd)
	assert.Equal(t, 1, remoteCalls)
	assert.Equal(t, 1, r.Stats().ResolvedRemote)
}

func TestResolve_RemoteUnknownLocallyIsRejected(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, req *nethttp.Request) {
		w.Write([]byte(`[{"cd_nom": 4242}]`))
	}))
	defer srv.Close()

	ref := &fakeReferential{names: map[string]int64{}}
	r := NewResolver(ref, NewRemoteClient(srv.URL), nil)

	cd, err := r.Resolve(context.Background(), "Phantasma species")
	require.NoError(t, err)
	assert.Nil(t, cd, "remote id absent from the local referential must not be imported")
}

func TestResolver_Reset(t *testing.T) {
	ref := &fakeReferential{names: map[string]int64{"quercus ilex": 9001}}
	r := NewResolver(ref, nil, nil)

	_, err := r.Resolve(context.Background(), "Quercus ilex")
	require.NoError(t, err)
	r.Reset()
	assert.Equal(t, Stats{}, r.Stats())

	_, err = r.Resolve(context.Background(), "Quercus ilex")
	require.NoError(t, err)
	assert.Equal(t, 2, ref.lookups)
}
