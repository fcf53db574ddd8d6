package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fedcore/pkg/domain-errors"
)

func TestParseProfileType(t *testing.T) {
	tests := []struct {
		uri     string
		base    string
		version string
	}{
		{"https://tent.io/types/info/core/v0.1.0", CoreProfileTypeBase, "0.1.0"},
		{"https://tent.io/types/info/basic/v1", "https://tent.io/types/info/basic", "1"},
		{"https://tent.io/types/info/core", CoreProfileTypeBase, ""},
		{"https://example.com/types/video", "https://example.com/types/video", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			typ, err := ParseProfileType(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.base, typ.Base)
			assert.Equal(t, tt.version, typ.Version)
			assert.Equal(t, tt.uri, typ.URI())
		})
	}

	t.Run("core detection uses the base only", func(t *testing.T) {
		typ, err := ParseProfileType("https://tent.io/types/info/core/v0.2.0")
		require.NoError(t, err)
		assert.True(t, typ.IsCore())
	})

	t.Run("relative uri is rejected", func(t *testing.T) {
		_, err := ParseProfileType("types/info/core/v0.1.0")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestParseEntity(t *testing.T) {
	e, err := ParseEntity("https://example.org")
	require.NoError(t, err)
	assert.Equal(t, Entity("https://example.org"), e)

	for _, raw := range []string{"", "  ", "example.org", "/relative"} {
		_, err := ParseEntity(raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), raw)
	}
}

func TestContentPreviousEntities(t *testing.T) {
	t.Run("absent history is empty", func(t *testing.T) {
		history, err := Content{"entity": "https://a.example"}.PreviousEntities()
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("decoded json list", func(t *testing.T) {
		history, err := Content{"previous_entities": []any{"https://b.example", "https://a.example"}}.PreviousEntities()
		require.NoError(t, err)
		assert.Equal(t, Entities("https://b.example", "https://a.example"), history)
	})

	t.Run("non list is a validation error", func(t *testing.T) {
		_, err := Content{"previous_entities": "https://a.example"}.PreviousEntities()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("non string item is a validation error", func(t *testing.T) {
		_, err := Content{"previous_entities": []any{"https://a.example", 3}}.PreviousEntities()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestContentClone(t *testing.T) {
	original := Content{
		"entity":  "https://a.example",
		"servers": []any{"https://a.example/tent"},
		"nested":  map[string]any{"k": []string{"v"}},
	}
	clone := original.Clone()
	clone["servers"].([]any)[0] = "changed"
	clone["nested"].(map[string]any)["k"].([]string)[0] = "changed"

	assert.Equal(t, "https://a.example/tent", original["servers"].([]any)[0])
	assert.Equal(t, "v", original["nested"].(map[string]any)["k"].([]string)[0])
}

func TestWithPreviousEntities(t *testing.T) {
	c := Content{"entity": "https://c.example"}
	out := c.WithPreviousEntities(Entities("https://b.example", "https://a.example"))

	assert.False(t, c.Has(ContentKeyPreviousEntities), "receiver is not mutated")
	assert.Equal(t, []any{"https://b.example", "https://a.example"}, out[ContentKeyPreviousEntities])
}
