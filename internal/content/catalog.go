package content

import (
	"errors"
	"fmt"
	"math"

	"newsroom/web/internal/models"
)

// PageSize is the number of cards fetched per listing page.
const PageSize = 12

// Params are the $-parameters bound into a query.
type Params map[string]any

func (p Params) intValue(name string) (int, bool) {
	switch v := p[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

func (p Params) stringValue(name string) (string, bool) {
	s, ok := p[name].(string)
	return s, ok
}

type sortKey struct {
	field string
	desc  bool
}

// Query is a named read against the content store. GROQ is sent verbatim to
// the hosted store; the unexported fields describe the same selection so the
// local dataset backend can evaluate it without a GROQ engine.
type Query struct {
	Name string
	GROQ string

	validate func(Params) error
	types    []string
	where    func(document, Params) bool
	order    []sortKey
	window   func(Params) (start, end int)
	first    bool
	count    bool
	project  func(*view, document) any
}

// Validate checks params before the query is dispatched.
func (q *Query) Validate(p Params) error {
	if q.validate == nil {
		return nil
	}
	if err := q.validate(p); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParams, q.Name, err)
	}
	return nil
}

// IsCount reports whether the query returns a number rather than documents.
func (q *Query) IsCount() bool { return q.count }

// IsSingle reports whether the query returns at most one document.
func (q *Query) IsSingle() bool { return q.first }

func (q *Query) String() string { return q.Name }

// CategoryPage binds a category listing window. limit is the exclusive end
// index of the slice, so a page is (offset, offset+PageSize).
func CategoryPage(c models.Category, offset, limit int) Params {
	return Params{"category": string(c), "offset": offset, "limit": limit}
}

// CommentaryPage binds a commentary listing window.
func CommentaryPage(offset, limit int) Params {
	return Params{"offset": offset, "limit": limit}
}

// CategoryCount binds the category count query.
func CategoryCount(c models.Category) Params {
	return Params{"category": string(c)}
}

// BySlug binds a slug lookup.
func BySlug(slug string) Params {
	return Params{"slug": slug}
}

// Excluding binds the related-articles query.
func Excluding(id string, limit int) Params {
	return Params{"skip": id, "limit": limit}
}

func requireCategory(p Params) error {
	raw, ok := p.stringValue("category")
	if !ok {
		return errors.New("category is required")
	}
	if _, valid := models.ParseCategory(raw); !valid {
		return fmt.Errorf("unknown category %q", raw)
	}
	return nil
}

func requireWindow(p Params) error {
	offset, ok := p.intValue("offset")
	if !ok {
		return errors.New("offset must be an integer")
	}
	limit, ok := p.intValue("limit")
	if !ok {
		return errors.New("limit must be an integer")
	}
	if offset < 0 {
		return fmt.Errorf("offset %d is negative", offset)
	}
	if limit < offset {
		return fmt.Errorf("limit %d is before offset %d", limit, offset)
	}
	return nil
}

func requireString(name string) func(Params) error {
	return func(p Params) error {
		if s, ok := p.stringValue(name); !ok || s == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func all(checks ...func(Params) error) func(Params) error {
	return func(p Params) error {
		for _, check := range checks {
			if err := check(p); err != nil {
				return err
			}
		}
		return nil
	}
}

func paramWindow(p Params) (int, int) {
	offset, _ := p.intValue("offset")
	limit, _ := p.intValue("limit")
	return offset, limit
}

var (
	byDate        = []sortKey{{"date", true}}
	byDateUpdated = []sortKey{{"date", true}, {"_updatedAt", true}}
)

const summaryFields = `
    _id,
    "title": coalesce(title, "Untitled"),
    "slug": slug.current,
    excerpt,
    "contentPreview": array::join(string::split(pt::text(content), "")[0...200], ""),
    "date": coalesce(date, _updatedAt),
    category,`

const postFields = `
    _id,
    "status": select(_originalId in path("drafts.**") => "draft", "published"),
    "title": coalesce(title, "Untitled"),
    "slug": slug.current,
    excerpt,
    coverImage,
    "date": coalesce(date, _updatedAt),
    _updatedAt,
    "author": author->{firstName, lastName, picture},
    category,`

const linkReference = `
    _type == "link" => {
      "page": page->slug.current,
      "article": article->slug.current
    }`

// The catalog. Every query is read-only and idempotent.
var (
	FeaturedArticle = &Query{
		Name: "featuredArticle",
		GROQ: `*[_type == "article" && featured == true && defined(slug.current)] | order(date desc)[0] {
    _id,
    "title": coalesce(title, "Untitled"),
    "slug": slug.current,
    excerpt,
    "date": coalesce(date, _updatedAt),
    category,
    "author": author->{firstName, lastName},
    coverImage
  }`,
		types: []string{"article"},
		where: func(d document, _ Params) bool { return d.boolean("featured") && d.hasSlug() },
		order: byDate,
		first: true,
		project: func(v *view, d document) any {
			out := v.summary(d)
			delete(out, "contentPreview")
			out["author"] = v.deref(d["author"], "firstName", "lastName")
			out["coverImage"] = d["coverImage"]
			return out
		},
	}

	CommentaryArticles = &Query{
		Name: "commentaryArticles",
		GROQ: `*[_type == "article" && category == "commentary" && defined(slug.current)] | order(date desc)[0...3] {` + summaryFields + `
    "author": author->{firstName, lastName, designation, picture}
  }`,
		types:   []string{"article"},
		where:   inCategory(models.CategoryCommentary),
		order:   byDate,
		window:  fixedWindow(0, 3),
		project: commentaryCard,
	}

	LatestArticles = &Query{
		Name: "latestArticles",
		GROQ: `*[_type == "article" && category != "commentary" && defined(slug.current)] | order(date desc, _updatedAt desc)[0...6] {` + summaryFields + `
    coverImage
  }`,
		types: []string{"article"},
		where: func(d document, _ Params) bool {
			return d.str("category") != string(models.CategoryCommentary) && d.hasSlug()
		},
		order:   byDateUpdated,
		window:  fixedWindow(0, 6),
		project: listingCard,
	}

	CategoryArticles = &Query{
		Name: "categoryArticles",
		GROQ: `*[_type == "article" && category == $category && defined(slug.current)] | order(date desc)[$offset...$limit] {` + summaryFields + `
    coverImage
  }`,
		validate: all(requireCategory, requireWindow),
		types:    []string{"article"},
		where:    categoryParam,
		order:    byDate,
		window:   paramWindow,
		project:  listingCard,
	}

	// CategoryArticlesCount must keep the same predicate as CategoryArticles
	// or the has-more comparison drifts.
	CategoryArticlesCount = &Query{
		Name:     "categoryArticlesCount",
		GROQ:     `count(*[_type == "article" && category == $category && defined(slug.current)])`,
		validate: requireCategory,
		types:    []string{"article"},
		where:    categoryParam,
		count:    true,
	}

	CommentaryArticlesPage = &Query{
		Name: "commentaryArticlesPage",
		GROQ: `*[_type == "article" && category == "commentary" && defined(slug.current)] | order(date desc)[$offset...$limit] {` + summaryFields + `
    "author": author->{firstName, lastName, designation, picture}
  }`,
		validate: requireWindow,
		types:    []string{"article"},
		where:    inCategory(models.CategoryCommentary),
		order:    byDate,
		window:   paramWindow,
		project:  commentaryCard,
	}

	AllPosts = &Query{
		Name: "allPosts",
		GROQ: `*[_type == "article" && defined(slug.current)] | order(date desc, _updatedAt desc) {` + postFields + `
  }`,
		types:   []string{"article"},
		where:   func(d document, _ Params) bool { return d.hasSlug() },
		order:   byDateUpdated,
		project: postCard,
	}

	MorePosts = &Query{
		Name: "morePosts",
		GROQ: `*[_type == "article" && _id != $skip && defined(slug.current)] | order(date desc, _updatedAt desc)[0...$limit] {` + postFields + `
  }`,
		validate: all(requireString("skip"), func(p Params) error {
			if n, ok := p.intValue("limit"); !ok || n < 0 {
				return errors.New("limit must be a non-negative integer")
			}
			return nil
		}),
		types: []string{"article"},
		where: func(d document, p Params) bool {
			skip, _ := p.stringValue("skip")
			return d.str("_id") != skip && d.hasSlug()
		},
		order: byDateUpdated,
		window: func(p Params) (int, int) {
			limit, _ := p.intValue("limit")
			return 0, limit
		},
		project: postCard,
	}

	Post = &Query{
		Name: "post",
		GROQ: `*[_type == "article" && slug.current == $slug][0] {
    content[]{
      ...,
      markDefs[]{
        ...,` + linkReference + `
      }
    },` + postFields + `
  }`,
		validate: requireString("slug"),
		types:    []string{"article"},
		where:    slugParam,
		first:    true,
		project: func(v *view, d document) any {
			out := postCard(v, d).(map[string]any)
			out["content"] = v.richText(d["content"])
			return out
		},
	}

	Page = &Query{
		Name: "page",
		GROQ: `*[_type == 'page' && slug.current == $slug][0]{
    _id,
    _type,
    name,
    "slug": slug.current,
    heading,
    subheading,
    "pageBuilder": pageBuilder[]{
      ...,
      _type == "callToAction" => {
        link {
          ...,` + linkReference + `
        },
      },
      _type == "infoSection" => {
        content[]{
          ...,
          markDefs[]{
            ...,` + linkReference + `
          }
        }
      },
    },
  }`,
		validate: requireString("slug"),
		types:    []string{"page"},
		where:    slugParam,
		first:    true,
		project: func(v *view, d document) any {
			return map[string]any{
				"_id":         d["_id"],
				"_type":       d["_type"],
				"name":        d["name"],
				"slug":        d.slugValue(),
				"heading":     d["heading"],
				"subheading":  d["subheading"],
				"pageBuilder": v.pageBuilder(d["pageBuilder"]),
			}
		},
	}

	SitemapData = &Query{
		Name: "sitemapData",
		GROQ: `*[(_type == "page" || _type == "article") && defined(slug.current)] | order(_type asc) {
    "slug": slug.current,
    _type,
    _updatedAt,
  }`,
		types: []string{"page", "article"},
		where: func(d document, _ Params) bool { return d.hasSlug() },
		order: []sortKey{{"_type", false}},
		project: func(_ *view, d document) any {
			return map[string]any{"slug": d.slugValue(), "_type": d["_type"], "_updatedAt": d["_updatedAt"]}
		},
	}

	PostSlugs = &Query{
		Name:    "postSlugs",
		GROQ:    `*[_type == "article" && defined(slug.current)]{"slug": slug.current}`,
		types:   []string{"article"},
		where:   func(d document, _ Params) bool { return d.hasSlug() },
		project: slugOnly,
	}

	PageSlugs = &Query{
		Name:    "pageSlugs",
		GROQ:    `*[_type == "page" && defined(slug.current)]{"slug": slug.current}`,
		types:   []string{"page"},
		where:   func(d document, _ Params) bool { return d.hasSlug() },
		project: slugOnly,
	}

	SiteSettings = &Query{
		Name:  "settings",
		GROQ:  `*[_type == "settings"][0]{title, description}`,
		types: []string{"settings"},
		first: true,
		project: func(_ *view, d document) any {
			return map[string]any{"title": d["title"], "description": d["description"]}
		},
	}
)

// Catalog lists every query by name.
var Catalog = map[string]*Query{
	FeaturedArticle.Name:        FeaturedArticle,
	CommentaryArticles.Name:     CommentaryArticles,
	LatestArticles.Name:         LatestArticles,
	CategoryArticles.Name:       CategoryArticles,
	CategoryArticlesCount.Name:  CategoryArticlesCount,
	CommentaryArticlesPage.Name: CommentaryArticlesPage,
	AllPosts.Name:               AllPosts,
	MorePosts.Name:              MorePosts,
	Post.Name:                   Post,
	Page.Name:                   Page,
	SitemapData.Name:            SitemapData,
	PostSlugs.Name:              PostSlugs,
	PageSlugs.Name:              PageSlugs,
	SiteSettings.Name:           SiteSettings,
}

// ListingQuery returns the paginated query and matching count query for a
// category listing. Commentary has its own card shape but shares the count.
func ListingQuery(c models.Category) (page *Query, params func(offset, limit int) Params) {
	if c == models.CategoryCommentary {
		return CommentaryArticlesPage, CommentaryPage
	}
	return CategoryArticles, func(offset, limit int) Params {
		return CategoryPage(c, offset, limit)
	}
}

func fixedWindow(start, end int) func(Params) (int, int) {
	return func(Params) (int, int) { return start, end }
}

func inCategory(c models.Category) func(document, Params) bool {
	return func(d document, _ Params) bool {
		return d.str("category") == string(c) && d.hasSlug()
	}
}

func categoryParam(d document, p Params) bool {
	c, _ := p.stringValue("category")
	return d.str("category") == c && d.hasSlug()
}

func slugParam(d document, p Params) bool {
	slug, _ := p.stringValue("slug")
	return d.slugValue() == slug
}

func listingCard(v *view, d document) any {
	out := v.summary(d)
	out["coverImage"] = d["coverImage"]
	return out
}

func commentaryCard(v *view, d document) any {
	out := v.summary(d)
	out["author"] = v.deref(d["author"], "firstName", "lastName", "designation", "picture")
	return out
}

func postCard(v *view, d document) any {
	status := string(models.StatusPublished)
	if d.isDraft() {
		status = string(models.StatusDraft)
	}
	return map[string]any{
		"_id":        d["_id"],
		"status":     status,
		"title":      coalesce(d["title"], models.DefaultTitle),
		"slug":       d.slugValue(),
		"excerpt":    d["excerpt"],
		"coverImage": d["coverImage"],
		"date":       coalesce(d["date"], d["_updatedAt"]),
		"_updatedAt": d["_updatedAt"],
		"author":     v.deref(d["author"], "firstName", "lastName", "picture"),
		"category":   d["category"],
	}
}

func slugOnly(_ *view, d document) any {
	return map[string]any{"slug": d.slugValue()}
}
