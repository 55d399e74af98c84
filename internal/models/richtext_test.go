package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bodyFixture = `[
	{
		"_type": "block",
		"_key": "b1",
		"style": "h2",
		"children": [{"_key": "s1", "text": "Background", "marks": []}],
		"markDefs": []
	},
	{
		"_type": "block",
		"_key": "b2",
		"children": [
			{"_key": "s2", "text": "Read the ", "marks": []},
			{"_key": "s3", "text": "explainer", "marks": ["l1", "em"]},
			{"_key": "s4", "text": " or the ", "marks": []},
			{"_key": "s5", "text": "about page", "marks": ["l2"]},
			{"_key": "s6", "text": " or ", "marks": []},
			{"_key": "s7", "text": "the source", "marks": ["l3"]}
		],
		"markDefs": [
			{"_type": "link", "_key": "l1", "linkType": "article", "article": "explainer"},
			{"_type": "link", "_key": "l2", "page": "about"},
			{"_type": "link", "_key": "l3", "linkType": "href", "href": "https://example.org", "openInNewTab": true},
			{"_type": "link", "_key": "l4", "linkType": "page", "page": null}
		]
	},
	{"_type": "image", "_key": "i1", "asset": {"_ref": "image-x-10x10-png"}, "alt": "chart"},
	{"_type": "youtube", "_key": "y1", "url": "https://youtube.com"}
]`

func TestBodyUnmarshalDispatchesOnType(t *testing.T) {
	var body Body
	require.NoError(t, json.Unmarshal([]byte(bodyFixture), &body))
	require.Len(t, body, 3, "unknown block types are dropped")

	heading, ok := body[0].(*TextBlock)
	require.True(t, ok)
	assert.Equal(t, "h2", heading.Style)

	para, ok := body[1].(*TextBlock)
	require.True(t, ok)
	assert.Equal(t, "normal", para.Style)
	assert.Equal(t, Link{Target: ArticleTarget{Slug: "explainer"}}, para.Links["l1"])
	assert.Equal(t, Link{Target: PageTarget{Slug: "about"}}, para.Links["l2"])
	assert.Equal(t, Link{Target: URLTarget{URL: "https://example.org"}, NewTab: true}, para.Links["l3"])
	assert.NotContains(t, para.Links, "l4", "unresolved references are dropped")

	img, ok := body[2].(*ImageBlock)
	require.True(t, ok)
	assert.Equal(t, "image-x-10x10-png", img.Image.AssetRef())
	assert.Equal(t, "chart", img.Image.Alt)
}

func TestBodyPlainText(t *testing.T) {
	var body Body
	require.NoError(t, json.Unmarshal([]byte(bodyFixture), &body))

	assert.Equal(t, "Background\n\nRead the explainer or the about page or the source", body.PlainText())
}

func TestBodyNull(t *testing.T) {
	var body Body
	require.NoError(t, json.Unmarshal([]byte(`null`), &body))
	assert.Nil(t, body)
}
