package content

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"newsroom/web/internal/models"
)

// previewLength bounds the plain-text projection used as contentPreview.
const previewLength = 200

// document is one record of a dataset export.
type document map[string]any

func (d document) str(key string) string {
	s, _ := d[key].(string)
	return s
}

func (d document) boolean(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// slugValue returns slug.current, accepting a bare string as well.
func (d document) slugValue() any {
	switch s := d["slug"].(type) {
	case string:
		return s
	case map[string]any:
		if current, ok := s["current"].(string); ok {
			return current
		}
	}
	return nil
}

func (d document) hasSlug() bool {
	s, ok := d.slugValue().(string)
	return ok && s != ""
}

func (d document) isDraft() bool {
	return strings.HasPrefix(d.str("_originalId"), models.DraftPrefix)
}

func coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// view is the dataset as seen through one perspective.
type view struct {
	docs []document
	byID map[string]document
}

func newView(docs []document) *view {
	return &view{
		docs: docs,
		byID: lo.KeyBy(docs, func(d document) string { return d.str("_id") }),
	}
}

// deref follows a reference and projects the named fields of its target.
func (v *view) deref(ref any, fields ...string) any {
	m, ok := ref.(map[string]any)
	if !ok {
		return nil
	}
	id, _ := m["_ref"].(string)
	target, ok := v.byID[id]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = target[f]
	}
	return out
}

func (v *view) derefSlug(ref any) any {
	m, ok := ref.(map[string]any)
	if !ok {
		return nil
	}
	id, _ := m["_ref"].(string)
	target, ok := v.byID[id]
	if !ok {
		return nil
	}
	return target.slugValue()
}

func (v *view) summary(d document) map[string]any {
	return map[string]any{
		"_id":            d["_id"],
		"title":          coalesce(d["title"], models.DefaultTitle),
		"slug":           d.slugValue(),
		"excerpt":        d["excerpt"],
		"contentPreview": contentPreview(d["content"]),
		"date":           coalesce(d["date"], d["_updatedAt"]),
		"category":       d["category"],
	}
}

// resolveLink replaces page and article references on a link object with
// the target slugs.
func (v *view) resolveLink(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if m["_type"] != "link" {
		return m
	}
	out := make(map[string]any, len(m)+2)
	for k, val := range m {
		out[k] = val
	}
	out["page"] = v.derefSlug(m["page"])
	out["article"] = v.derefSlug(m["article"])
	return out
}

func (v *view) richText(raw any) any {
	blocks, ok := raw.([]any)
	if !ok {
		return nil
	}
	return lo.Map(blocks, func(b any, _ int) any {
		block, ok := b.(map[string]any)
		if !ok {
			return b
		}
		defs, ok := block["markDefs"].([]any)
		if !ok {
			return block
		}
		out := make(map[string]any, len(block))
		for k, val := range block {
			out[k] = val
		}
		out["markDefs"] = lo.Map(defs, func(def any, _ int) any { return v.resolveLink(def) })
		return out
	})
}

func (v *view) pageBuilder(raw any) any {
	blocks, ok := raw.([]any)
	if !ok {
		return nil
	}
	return lo.Map(blocks, func(b any, _ int) any {
		block, ok := b.(map[string]any)
		if !ok {
			return b
		}
		out := make(map[string]any, len(block))
		for k, val := range block {
			out[k] = val
		}
		switch block["_type"] {
		case "callToAction":
			if link, ok := block["link"]; ok {
				out["link"] = v.resolveLink(link)
			}
		case "infoSection":
			out["content"] = v.richText(block["content"])
		}
		return out
	})
}

// plainText mirrors pt::text: span texts joined per block, blocks joined by a blank line.
func plainText(raw any) string {
	blocks, ok := raw.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok || block["_type"] != "block" {
			continue
		}
		children, _ := block["children"].([]any)
		var sb strings.Builder
		for _, c := range children {
			if span, ok := c.(map[string]any); ok {
				text, _ := span["text"].(string)
				sb.WriteString(text)
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

func contentPreview(raw any) any {
	text := plainText(raw)
	if text == "" {
		return nil
	}
	return Truncate(text, previewLength)
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// LocalBackend answers catalog queries from a dataset export held in memory.
// It is meant for development and tests; production reads the hosted store.
type LocalBackend struct {
	published *view
	drafts    *view
}

// OpenLocalBackend loads an NDJSON dataset export from path.
func OpenLocalBackend(path string) (*LocalBackend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	b, err := NewLocalBackend(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
	}
	return b, nil
}

// NewLocalBackend reads one JSON document per line from r.
func NewLocalBackend(r io.Reader) (*LocalBackend, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var docs []document
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var d document
		if err := jsonAPI.UnmarshalFromString(raw, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if d.str("_id") == "" {
			log.Warn().Int("line", line).Msg("Skipping dataset document without _id")
			continue
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	log.Debug().Int("documents", len(docs)).Msg("Loaded local dataset")
	return fromDocuments(docs), nil
}

// fromDocuments builds a backend over already decoded documents.
func fromDocuments(docs []document) *LocalBackend {
	return &LocalBackend{
		published: newView(publishedPerspective(docs)),
		drafts:    newView(draftsPerspective(docs)),
	}
}

func publishedPerspective(docs []document) []document {
	out := make([]document, 0, len(docs))
	for _, d := range docs {
		if strings.HasPrefix(d.str("_id"), models.DraftPrefix) {
			continue
		}
		c := cloneDoc(d)
		c["_originalId"] = d["_id"]
		out = append(out, c)
	}
	return out
}

// draftsPerspective overlays each draft on its published counterpart. The
// overlaid document keeps the published id and records the draft id as
// _originalId.
func draftsPerspective(docs []document) []document {
	index := make(map[string]int)
	var out []document
	for _, d := range docs {
		id := d.str("_id")
		base := strings.TrimPrefix(id, models.DraftPrefix)
		isDraft := base != id

		c := cloneDoc(d)
		c["_id"] = base
		c["_originalId"] = id

		if i, seen := index[base]; seen {
			if isDraft {
				out[i] = c
			}
			continue
		}
		index[base] = len(out)
		out = append(out, c)
	}
	return out
}

func cloneDoc(d document) document {
	c := make(document, len(d)+1)
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Query evaluates q against the dataset.
func (b *LocalBackend) Query(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := b.published
	if req.Perspective == PerspectiveDrafts {
		v = b.drafts
	}

	result := evaluate(v, req.Query, req.Params)
	data, err := jsonAPI.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", req.Query.Name, err)
	}
	return data, nil
}

func evaluate(v *view, q *Query, p Params) any {
	matched := lo.Filter(v.docs, func(d document, _ int) bool {
		if !slices.Contains(q.types, d.str("_type")) {
			return false
		}
		return q.where == nil || q.where(d, p)
	})

	if q.count {
		return len(matched)
	}

	sortDocuments(matched, q.order)

	if q.first {
		if len(matched) == 0 {
			return nil
		}
		return q.project(v, matched[0])
	}

	if q.window != nil {
		start, end := q.window(p)
		matched = lo.Slice(matched, start, end)
	}
	return lo.Map(matched, func(d document, _ int) any { return q.project(v, d) })
}

// sortDocuments orders by the given keys, then by _id so that offset windows
// never overlap or skip documents with equal keys.
func sortDocuments(docs []document, order []sortKey) {
	slices.SortStableFunc(docs, func(a, b document) int {
		for _, key := range order {
			c := strings.Compare(a.str(key.field), b.str(key.field))
			if key.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(a.str("_id"), b.str("_id"))
	})
}
