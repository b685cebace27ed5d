package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basileandre056/api2gn/internal/mapping"
)

type stubParser struct{ name string }

func (s *stubParser) Name() string       { return s.name }
func (s *stubParser) CheckConfig() error { return nil }

func (s *stubParser) FetchPage(context.Context, *Cursor) (*Page, error) { return &Page{}, nil }

func (s *stubParser) Mapping() *mapping.Spec     { return &mapping.Spec{} }
func (s *stubParser) Metadata() ProviderMetadata { return ProviderMetadata{} }
func (s *stubParser) ApplyOverrides(RunOverrides) {}

func stubFactory(name string) Factory {
	return func(config map[string]any) (Parser, error) {
		return &stubParser{name: name}, nil
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubFactory("stub"))

	p, err := r.Create("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", p.Name())
}

func TestRegistry_CreateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("nope", nil)
	require.Error(t, err)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubFactory("stub"))
	assert.Panics(t, func() {
		r.Register("stub", stubFactory("stub"))
	})
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zebra", stubFactory("zebra"))
	r.Register("alpha", stubFactory("alpha"))

	assert.Equal(t, []string{"alpha", "zebra"}, r.List())
}
