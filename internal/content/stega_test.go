package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStegaEncodeDecoratesEditableFieldsOnly(t *testing.T) {
	s := NewStega("https://studio.example")
	raw := json.RawMessage(`[{"_id":"a1","title":"Budget","slug":"budget","category":"india-exclusive","excerpt":"","author":{"firstName":"Asha"}}]`)

	out, err := s.Encode(raw)
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(out, &docs))
	require.Len(t, docs, 1)

	title := docs[0]["title"].(string)
	assert.Equal(t, "Budget", CleanStega(title))
	href, ok := DecodeStega(title)
	require.True(t, ok)
	assert.Equal(t, "https://studio.example/intent/edit/id=a1;path=title", href)

	assert.Equal(t, "budget", docs[0]["slug"])
	assert.Equal(t, "india-exclusive", docs[0]["category"])
	assert.Equal(t, "", docs[0]["excerpt"], "empty strings stay empty")
	assert.Equal(t, "Asha", docs[0]["author"].(map[string]any)["firstName"])
}

func TestCleanStegaLeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, "Plain title", CleanStega("Plain title"))
	_, ok := DecodeStega("Plain title")
	assert.False(t, ok)
}
