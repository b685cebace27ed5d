package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	p := Build(-21.32, 55.45, 0)
	require.NotNil(t, p)
	assert.Equal(t, DefaultSRID, p.SRID)
	assert.Equal(t, "SRID=4326;POINT(55.45 -21.32)", p.EWKT())
}

func TestBuild_StringCoordinates(t *testing.T) {
	p := Build("48.85", "2.35", 4326)
	require.NotNil(t, p)
	assert.InDelta(t, 48.85, p.Lat, 1e-9)
	assert.InDelta(t, 2.35, p.Lon, 1e-9)
}

func TestBuild_MissingOrInvalid(t *testing.T) {
	assert.Nil(t, Build(nil, 55.45, 4326))
	assert.Nil(t, Build(-21.32, nil, 4326))
	assert.Nil(t, Build("n/a", 55.45, 4326))
	assert.Nil(t, Build(nil, nil, 4326))
	assert.Nil(t, Build(map[string]any{}, 1.0, 4326))
}
