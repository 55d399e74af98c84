package view

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/web/internal/models"
)

const bodyJSON = `[
  {"_type":"block","_key":"b1","style":"h2","children":[{"_key":"s1","text":"Heading"}]},
  {"_type":"block","_key":"b2","style":"normal","markDefs":[
     {"_type":"link","_key":"l1","linkType":"page","page":"about"},
     {"_type":"link","_key":"l2","linkType":"href","href":"https://example.com/x?a=1&b=2","openInNewTab":true},
     {"_type":"link","_key":"l3","linkType":"href","href":"javascript:alert(1)"}
   ],"children":[
     {"_key":"s2","text":"See "},
     {"_key":"s3","text":"about","marks":["l1"]},
     {"_key":"s4","text":", "},
     {"_key":"s5","text":"this","marks":["strong","l2"]},
     {"_key":"s6","text":" and <that>","marks":["l3"]}
  ]},
  {"_type":"block","_key":"b3","listItem":"bullet","children":[{"_key":"s7","text":"one"}]},
  {"_type":"block","_key":"b4","listItem":"bullet","children":[{"_key":"s8","text":"two"}]},
  {"_type":"block","_key":"b5","listItem":"number","children":[{"_key":"s9","text":"first"}]},
  {"_type":"image","_key":"i1","asset":{"_ref":"image-pic-800x600-png"},"alt":"A \"quoted\" pic"}
]`

func renderFixture(t *testing.T) *goquery.Document {
	t.Helper()
	var body models.Body
	require.NoError(t, json.Unmarshal([]byte(bodyJSON), &body))

	out := Renderer{Images: NewImageBuilder("p", "d")}.Render(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(out)))
	require.NoError(t, err)
	return doc
}

func TestRenderRichText(t *testing.T) {
	doc := renderFixture(t)

	assert.Equal(t, "Heading", doc.Find("h2").Text())
	assert.Equal(t, "See about, this and <that>", doc.Find("p").Text())

	links := doc.Find("p a")
	require.Equal(t, 3, links.Length())
	href, _ := links.Eq(0).Attr("href")
	assert.Equal(t, "/about", href)

	href, _ = links.Eq(1).Attr("href")
	assert.Equal(t, "https://example.com/x?a=1&b=2", href)
	target, _ := links.Eq(1).Attr("target")
	assert.Equal(t, "_blank", target)
	assert.Equal(t, "this", links.Eq(1).Find("strong").Text())

	href, _ = links.Eq(2).Attr("href")
	assert.Equal(t, "#", href)

	assert.Equal(t, 2, doc.Find("ul li").Length())
	assert.Equal(t, 1, doc.Find("ol li").Length())

	img := doc.Find("figure img")
	src, _ := img.Attr("src")
	assert.True(t, strings.HasPrefix(src, "https://cdn.sanity.io/images/p/d/pic-800x600.png?"))
	alt, _ := img.Attr("alt")
	assert.Equal(t, `A "quoted" pic`, alt)
}

func TestLinkHref(t *testing.T) {
	assert.Equal(t, "/contact", LinkHref(&models.Link{Target: models.PageTarget{Slug: "contact"}}))
	assert.Equal(t, "/posts/summit-ends", LinkHref(&models.Link{Target: models.ArticleTarget{Slug: "summit-ends"}}))
	assert.Equal(t, "mailto:desk@example.com", LinkHref(&models.Link{Target: models.URLTarget{URL: "mailto:desk@example.com"}}))
	assert.Empty(t, LinkHref(nil))
}

func TestListingDate(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 hours ago", ListingDate(now.Add(-3*time.Hour), now))
	assert.Equal(t, "May 1, 2024", ListingDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Empty(t, ListingDate(time.Time{}, now))
}

func TestLinksWrapDecorators(t *testing.T) {
	links := map[string]models.Link{"l2": {Target: models.URLTarget{URL: "https://e.x/"}}}

	for _, marks := range [][]string{{"strong", "l2"}, {"l2", "strong"}} {
		body := models.Body{&models.TextBlock{
			Key:      "b",
			Style:    "normal",
			Children: []models.Span{{Key: "s", Text: "this", Marks: marks}},
			Links:    links,
		}}
		out := Renderer{}.Render(body)
		assert.Equal(t, `<p><a href="https://e.x/"><strong>this</strong></a></p>`, string(out), "marks %v", marks)
	}
}
